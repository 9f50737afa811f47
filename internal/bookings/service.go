package bookings

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"rath-service/internal/accounts"
	"rath-service/internal/contact"
	"rath-service/internal/events"
	"rath-service/internal/trips"
	"rath-service/pkg/kafka"
)

// Repository persists bookings.
type Repository interface {
	// Reserve inserts b and takes b.Seats from the trip's available seats
	// in one atomic step, returning the seats left. It fails with
	// ErrNotEnoughSeats, ErrFullCarOnly, ErrTripNotBookable or
	// trips.ErrTripNotFound without writing anything.
	Reserve(ctx context.Context, b *Booking) (int, error)
	// Cancel marks a confirmed booking of customerID as cancelled and
	// returns its seats to the trip atomically.
	Cancel(ctx context.Context, bookingID, customerID string) (*Booking, int, error)
	// ListByCustomer returns the customer's bookings, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]Ticket, error)
	ListByTrip(ctx context.Context, tripID string) ([]Passenger, error)
}

// TripReader is the part of the trip service bookings depend on.
type TripReader interface {
	Get(ctx context.Context, id string) (*trips.Trip, error)
	IsOwner(ctx context.Context, t *trips.Trip, requester contact.Contact) (bool, error)
}

// AccountLookup resolves customers and drivers.
type AccountLookup interface {
	FindByContact(ctx context.Context, c contact.Contact) (*accounts.Account, error)
	FindByID(ctx context.Context, id string) (*accounts.Account, error)
}

// SeatFeed is told about seat count changes.
type SeatFeed interface {
	SeatsChanged(tripID string, remaining int)
}

// Service contains the booking ledger logic.
type Service struct {
	repo     Repository
	trips    TripReader
	accounts AccountLookup
	events   events.Publisher
	feed     SeatFeed
	now      func() time.Time
}

// NewService creates a booking service.
func NewService(repo Repository, tr TripReader, accts AccountLookup, pub events.Publisher, feed SeatFeed) *Service {
	return &Service{
		repo:     repo,
		trips:    tr,
		accounts: accts,
		events:   pub,
		feed:     feed,
		now:      time.Now,
	}
}

// BookSeat reserves seats on a trip. Seats are only taken when enough
// remain; the check and the decrement are one atomic repository call.
func (s *Service) BookSeat(ctx context.Context, req BookRequest) (*Receipt, error) {
	if req.Seats < 1 {
		return nil, ErrInvalidSeatCount
	}

	t, err := s.trips.Get(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	customer, err := s.resolveCustomer(ctx, req.CustomerID, req.Customer)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case t.Status != trips.StatusScheduled || t.Stale(now):
		return nil, ErrTripNotBookable
	case customer.ID == t.DriverID:
		return nil, ErrOwnTrip
	}

	driver, err := s.accounts.FindByID(ctx, t.DriverID)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:         uuid.New().String(),
		TripID:     t.ID,
		CustomerID: customer.ID,
		Seats:      req.Seats,
		TotalCost:  trips.RoundCents(t.PricePerSeat * float64(req.Seats)),
		Status:     StatusConfirmed,
		BookedAt:   now,
	}
	remaining, err := s.repo.Reserve(ctx, b)
	if err != nil {
		return nil, err
	}
	t.AvailableSeats = remaining

	if s.feed != nil {
		s.feed.SeatsChanged(t.ID, remaining)
	}
	events.PublishAsync(s.events, kafka.TopicBookingConfirmed, t.ID, events.BookingConfirmedEvent{
		BookingID:       b.ID,
		TripID:          t.ID,
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		DriverID:        driver.ID,
		DriverPhone:     driver.Phone,
		DriverEmail:     driver.Email,
		SourceCity:      t.SourceCity,
		DestinationCity: t.DestinationCity,
		Seats:           b.Seats,
		TotalCost:       b.TotalCost,
		RemainingSeats:  remaining,
		BookedAt:        now.Format(time.RFC3339),
	})
	log.WithFields(log.Fields{
		"trip_id":    t.ID,
		"booking_id": b.ID,
		"seats":      b.Seats,
		"remaining":  remaining,
	}).Info("[bookings] seat booked")

	return &Receipt{Booking: *b, RemainingSeats: remaining, Trip: *t, Driver: driver.Card()}, nil
}

// CancelBooking cancels one of the customer's confirmed bookings and
// returns its seats to the trip.
func (s *Service) CancelBooking(ctx context.Context, bookingID, customerID string, customer contact.Contact) (*Booking, int, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, 0, ErrBookingNotFound
	}
	acct, err := s.resolveCustomer(ctx, customerID, customer)
	if err != nil {
		return nil, 0, err
	}
	b, remaining, err := s.repo.Cancel(ctx, bookingID, acct.ID)
	if err != nil {
		return nil, 0, err
	}

	if s.feed != nil {
		s.feed.SeatsChanged(b.TripID, remaining)
	}
	events.PublishAsync(s.events, kafka.TopicBookingCancelled, b.TripID, events.BookingCancelledEvent{
		BookingID:      b.ID,
		TripID:         b.TripID,
		CustomerID:     acct.ID,
		Seats:          b.Seats,
		RemainingSeats: remaining,
		CancelledAt:    s.now().Format(time.RFC3339),
	})
	log.Printf("[bookings] booking %s cancelled, trip %s has %d seats", b.ID, b.TripID, remaining)
	return b, remaining, nil
}

// GetUserBookings lists a customer's bookings, newest first.
func (s *Service) GetUserBookings(ctx context.Context, customerID string, customer contact.Contact) ([]Ticket, error) {
	acct, err := s.resolveCustomer(ctx, customerID, customer)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByCustomer(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].BookedAt.After(list[j].BookedAt) })
	return list, nil
}

// GetTripPassengers lists the bookings on a trip for its driver. Trips the
// requester does not own are reported as not found.
func (s *Service) GetTripPassengers(ctx context.Context, tripID string, driver contact.Contact) ([]Passenger, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	ok, err := s.trips.IsOwner(ctx, t, driver)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, trips.ErrTripNotFound
	}
	return s.repo.ListByTrip(ctx, t.ID)
}

func (s *Service) resolveCustomer(ctx context.Context, id string, c contact.Contact) (*accounts.Account, error) {
	var (
		acct *accounts.Account
		err  error
	)
	switch {
	case strings.TrimSpace(id) != "":
		acct, err = s.accounts.FindByID(ctx, id)
	case !c.IsZero():
		acct, err = s.accounts.FindByContact(ctx, c)
	default:
		return nil, ErrCustomerNotFound
	}
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, ErrCustomerNotFound
	}
	return acct, err
}
