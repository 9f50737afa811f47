// Package memory keeps every repository in process memory behind one
// mutex. It backs USE_MEMORY_STORE deployments and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rath-service/internal/accounts"
	"rath-service/internal/bookings"
	"rath-service/internal/contact"
	"rath-service/internal/trips"
)

// Store holds accounts, trips and bookings.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*accounts.Account
	phones   map[string]string
	emails   map[string]string
	trips    map[string]*trips.Trip
	bookings map[string]*bookings.Booking
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*accounts.Account),
		phones:   make(map[string]string),
		emails:   make(map[string]string),
		trips:    make(map[string]*trips.Trip),
		bookings: make(map[string]*bookings.Booking),
	}
}

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s: s} }

// Trips returns the trip repository view.
func (s *Store) Trips() *TripRepo { return &TripRepo{s: s} }

// Bookings returns the booking repository view.
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s: s} }

// ---- accounts ----

type AccountRepo struct{ s *Store }

func cloneAccount(a *accounts.Account) *accounts.Account {
	c := *a
	if a.Documents != nil {
		c.Documents = make(map[string]string, len(a.Documents))
		for k, v := range a.Documents {
			c.Documents[k] = v
		}
	}
	return &c
}

func (r *AccountRepo) FindByContact(_ context.Context, c contact.Contact) (*accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := r.s.phones
	if c.Channel == contact.ChannelEmail {
		idx = r.s.emails
	}
	id, ok := idx[c.Value]
	if !ok || c.Value == "" {
		return nil, accounts.ErrAccountNotFound
	}
	return cloneAccount(r.s.accounts[id]), nil
}

func (r *AccountRepo) FindByID(_ context.Context, id string) (*accounts.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepo) Create(_ context.Context, a *accounts.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkUnique(a); err != nil {
		return err
	}
	r.s.putAccount(a)
	return nil
}

func (r *AccountRepo) Update(_ context.Context, a *accounts.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.accounts[a.ID]
	if !ok {
		return accounts.ErrAccountNotFound
	}
	if err := r.s.checkUnique(a); err != nil {
		return err
	}
	delete(r.s.phones, prev.Phone)
	delete(r.s.emails, prev.Email)
	r.s.putAccount(a)
	return nil
}

func (s *Store) checkUnique(a *accounts.Account) error {
	if id, ok := s.phones[a.Phone]; ok && a.Phone != "" && id != a.ID {
		return accounts.ErrContactAlreadyInUse
	}
	if id, ok := s.emails[a.Email]; ok && a.Email != "" && id != a.ID {
		return accounts.ErrContactAlreadyInUse
	}
	return nil
}

func (s *Store) putAccount(a *accounts.Account) {
	s.accounts[a.ID] = cloneAccount(a)
	if a.Phone != "" {
		s.phones[a.Phone] = a.ID
	}
	if a.Email != "" {
		s.emails[a.Email] = a.ID
	}
}

// ---- trips ----

type TripRepo struct{ s *Store }

func (r *TripRepo) Create(_ context.Context, t *trips.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *t
	r.s.trips[t.ID] = &c
	return nil
}

func (r *TripRepo) Get(_ context.Context, id string) (*trips.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trips[id]
	if !ok {
		return nil, trips.ErrTripNotFound
	}
	c := *t
	return &c, nil
}

// Delete removes the trip and cascades to its bookings.
func (r *TripRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[id]; !ok {
		return trips.ErrTripNotFound
	}
	delete(r.s.trips, id)
	for bid, b := range r.s.bookings {
		if b.TripID == id {
			delete(r.s.bookings, bid)
		}
	}
	return nil
}

func (r *TripRepo) ListByDriver(_ context.Context, driverID string, since time.Time) ([]trips.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []trips.Trip
	for _, t := range r.s.trips {
		if t.DriverID == driverID && t.Status == trips.StatusScheduled && !t.StartTime.Before(since) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *TripRepo) ListOpen(_ context.Context, since time.Time) ([]trips.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []trips.Listing
	for _, t := range r.s.trips {
		if t.Status != trips.StatusScheduled || t.AvailableSeats <= 0 || t.StartTime.Before(since) {
			continue
		}
		l := trips.Listing{Trip: *t}
		if d, ok := r.s.accounts[t.DriverID]; ok {
			l.Driver = d.Card()
		}
		out = append(out, l)
	}
	return out, nil
}

// ---- bookings ----

type BookingRepo struct{ s *Store }

func (r *BookingRepo) Reserve(_ context.Context, b *bookings.Booking) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trips[b.TripID]
	switch {
	case !ok:
		return 0, trips.ErrTripNotFound
	case t.Status != trips.StatusScheduled:
		return 0, bookings.ErrTripNotBookable
	case t.AvailableSeats < b.Seats:
		return 0, bookings.ErrNotEnoughSeats
	case t.IsFullCarBooking && t.AvailableSeats != b.Seats:
		return 0, bookings.ErrFullCarOnly
	}

	t.AvailableSeats -= b.Seats
	c := *b
	r.s.bookings[b.ID] = &c
	return t.AvailableSeats, nil
}

func (r *BookingRepo) Cancel(_ context.Context, bookingID, customerID string) (*bookings.Booking, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[bookingID]
	if !ok || b.CustomerID != customerID {
		return nil, 0, bookings.ErrBookingNotFound
	}
	if b.Status != bookings.StatusConfirmed {
		return nil, 0, bookings.ErrAlreadyCancelled
	}
	b.Status = bookings.StatusCancelled

	remaining := 0
	if t, ok := r.s.trips[b.TripID]; ok {
		t.AvailableSeats += b.Seats
		remaining = t.AvailableSeats
	}
	c := *b
	return &c, remaining, nil
}

func (r *BookingRepo) ListByCustomer(_ context.Context, customerID string) ([]bookings.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []bookings.Ticket
	for _, b := range r.s.bookings {
		if b.CustomerID != customerID {
			continue
		}
		tk := bookings.Ticket{Booking: *b}
		if t, ok := r.s.trips[b.TripID]; ok {
			tk.SourceCity = t.SourceCity
			tk.DestinationCity = t.DestinationCity
			tk.StartTime = t.StartTime
			if d, ok := r.s.accounts[t.DriverID]; ok {
				tk.DriverName = d.Name
				tk.DriverPhone = d.Phone
				tk.VehicleNumber = d.VehicleNumber
			}
		}
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

func (r *BookingRepo) ListByTrip(_ context.Context, tripID string) ([]bookings.Passenger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []bookings.Passenger
	for _, b := range r.s.bookings {
		if b.TripID != tripID {
			continue
		}
		p := bookings.Passenger{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			Seats:      b.Seats,
			Revenue:    b.TotalCost,
			Status:     b.Status,
			BookedAt:   b.BookedAt,
		}
		if c, ok := r.s.accounts[b.CustomerID]; ok {
			p.Name = c.Name
			p.Phone = c.Phone
			p.Email = c.Email
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.Before(out[j].BookedAt) })
	return out, nil
}
