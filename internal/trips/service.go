package trips

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"rath-service/internal/accounts"
	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/events"
	"rath-service/internal/matching"
	"rath-service/pkg/kafka"
	"rath-service/pkg/validation"
)

// Repository persists trips. Get and Delete return ErrTripNotFound.
type Repository interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id string) (*Trip, error)
	Delete(ctx context.Context, id string) error
	// ListByDriver returns scheduled trips departing at or after since.
	ListByDriver(ctx context.Context, driverID string, since time.Time) ([]Trip, error)
	// ListOpen returns scheduled trips with free seats departing at or
	// after since, joined with their driver.
	ListOpen(ctx context.Context, since time.Time) ([]Listing, error)
}

// AccountLookup is the part of the account service trips depend on.
type AccountLookup interface {
	FindByContact(ctx context.Context, c contact.Contact) (*accounts.Account, error)
	FindByID(ctx context.Context, id string) (*accounts.Account, error)
}

// SeatFeed is told when a trip stops taking bookings.
type SeatFeed interface {
	TripClosed(tripID string)
}

// Service contains trip business logic.
type Service struct {
	repo     Repository
	accounts AccountLookup
	events   events.Publisher
	feed     SeatFeed
	matcher  *matching.Matcher
	now      func() time.Time
}

// NewService creates a trip service.
func NewService(repo Repository, accts AccountLookup, pub events.Publisher, feed SeatFeed) *Service {
	return &Service{
		repo:     repo,
		accounts: accts,
		events:   pub,
		feed:     feed,
		matcher:  matching.NewMatcher(),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for departure defaults and the
// staleness window.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateTrip stores a new scheduled trip for a verified driver and
// publishes trip.posted.
func (s *Service) CreateTrip(ctx context.Context, in NewTrip) (*Trip, error) {
	if in.Driver.IsZero() {
		return nil, apperr.Validation("driver_phone or driver_email is required")
	}
	src := strings.TrimSpace(in.SourceCity)
	dst := strings.TrimSpace(in.DestinationCity)
	if src == "" || dst == "" {
		return nil, apperr.Validation("source_city and destination_city are required")
	}
	if in.PricePerSeat < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	if !validation.ValidateCoordinates(in.Source.Lat, in.Source.Lng) ||
		!validation.ValidateCoordinates(in.Destination.Lat, in.Destination.Lng) {
		return nil, apperr.Validation("coordinates out of range")
	}
	seats := in.Seats
	if seats == 0 {
		seats = DefaultSeats
	}
	if seats < 1 {
		return nil, apperr.Validation("seats must be at least 1")
	}

	driver, err := s.accounts.FindByContact(ctx, in.Driver)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	if !driver.CanPublishTrips() {
		return nil, ErrDriverNotVerified
	}

	now := s.now()
	start := in.StartTime
	if start.IsZero() {
		start = now
	}

	t := &Trip{
		ID:               uuid.New().String(),
		DriverID:         driver.ID,
		SourceCity:       src,
		DestinationCity:  dst,
		Source:           in.Source,
		Destination:      in.Destination,
		StartTime:        start,
		Capacity:         seats,
		AvailableSeats:   seats,
		PricePerSeat:     RoundCents(in.PricePerSeat),
		IsFullCarBooking: in.IsFullCarBooking,
		Status:           StatusScheduled,
		CreatedAt:        now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	events.PublishAsync(s.events, kafka.TopicTripPosted, t.ID, events.TripPostedEvent{
		TripID:          t.ID,
		DriverID:        t.DriverID,
		SourceCity:      t.SourceCity,
		DestinationCity: t.DestinationCity,
		Source:          events.LatLng{Lat: t.Source.Lat, Lng: t.Source.Lng},
		Destination:     events.LatLng{Lat: t.Destination.Lat, Lng: t.Destination.Lng},
		Seats:           t.Capacity,
		PricePerSeat:    t.PricePerSeat,
		StartTime:       t.StartTime.Format(time.RFC3339),
	})
	log.Printf("[trips] driver %s posted trip %s (%s -> %s)", driver.ID, t.ID, src, dst)
	return t, nil
}

// Get returns a trip by id.
func (s *Service) Get(ctx context.Context, id string) (*Trip, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrTripNotFound
	}
	return s.repo.Get(ctx, id)
}

// DeleteTrip removes a trip owned by requester together with its bookings.
func (s *Service) DeleteTrip(ctx context.Context, tripID string, requester contact.Contact) error {
	t, err := s.Get(ctx, tripID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(ctx, t, requester); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}

	if s.feed != nil {
		s.feed.TripClosed(t.ID)
	}
	events.PublishAsync(s.events, kafka.TopicTripDeleted, t.ID, events.TripDeletedEvent{
		TripID:    t.ID,
		DriverID:  t.DriverID,
		DeletedAt: s.now().Format(time.RFC3339),
	})
	log.Printf("[trips] trip %s deleted by owner", t.ID)
	return nil
}

// IsOwner reports whether requester, once normalised, is the trip's driver.
func (s *Service) IsOwner(ctx context.Context, t *Trip, requester contact.Contact) (bool, error) {
	if requester.IsZero() {
		return false, nil
	}
	owner, err := s.accounts.FindByID(ctx, t.DriverID)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return contact.Equal(requester, owner.Contact(requester.Channel)), nil
}

func (s *Service) checkOwner(ctx context.Context, t *Trip, requester contact.Contact) error {
	ok, err := s.IsOwner(ctx, t, requester)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// ListDriverTrips returns the driver's scheduled trips inside the
// staleness window, soonest first.
func (s *Service) ListDriverTrips(ctx context.Context, driver contact.Contact) ([]Trip, error) {
	acct, err := s.accounts.FindByContact(ctx, driver)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByDriver(ctx, acct.ID, s.cutoff())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	return list, nil
}

// SearchTrips returns bookable trips matching the optional city filters and
// pickup point.
func (s *Service) SearchTrips(ctx context.Context, q Query) ([]Match, error) {
	open, err := s.repo.ListOpen(ctx, s.cutoff())
	if err != nil {
		return nil, err
	}

	src := foldCity(q.SourceCity)
	dst := foldCity(q.DestinationCity)

	out := make([]Match, 0, len(open))
	for _, l := range open {
		if src != "" && foldCity(l.SourceCity) != src {
			continue
		}
		if dst != "" && foldCity(l.DestinationCity) != dst {
			continue
		}
		if q.Pickup != nil && !s.matcher.Matches(l.Source, l.Destination, *q.Pickup) {
			continue
		}
		route, err := matching.RouteGeoJSON(l.Source, l.Destination)
		if err != nil {
			log.Warnf("[trips] route geometry for %s: %v", l.ID, err)
		}
		out = append(out, Match{Listing: l, Route: route})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Service) cutoff() time.Time {
	return s.now().Add(-StalenessWindow)
}

// foldCity normalises a city name for case-insensitive exact comparison.
func foldCity(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(name))
}
