package trips_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rath-service/internal/accounts"
	"rath-service/internal/contact"
	"rath-service/internal/events"
	"rath-service/internal/matching"
	"rath-service/internal/store/memory"
	"rath-service/internal/trips"
)

var (
	base      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bangalore = matching.Point{Lat: 12.97, Lng: 77.59}
	chennai   = matching.Point{Lat: 13.08, Lng: 80.27}
)

type closedFeed struct {
	mu     sync.Mutex
	closed []string
}

func (f *closedFeed) TripClosed(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
}

type fixture struct {
	accounts *accounts.Service
	trips    *trips.Service
	feed     *closedFeed
	driver   contact.Contact
}

// newFixture returns services over an empty store with one verified driver.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()
	acctSvc := accounts.NewService(mem.Accounts())
	feed := &closedFeed{}
	tripSvc := trips.NewService(mem.Trips(), acctSvc, events.Discard{}, feed)
	tripSvc.SetClock(func() time.Time { return base })

	driver := contact.Phone("9000000001")
	if _, _, err := acctSvc.CreateOrUpgradeDriver(ctx, accounts.DriverSignup{
		Contact: driver, Name: "Kiran", VehicleNumber: "KA01AB1234", VehicleType: "sedan",
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := acctSvc.ApproveDriver(ctx, driver); err != nil {
		t.Fatal(err)
	}
	return &fixture{accounts: acctSvc, trips: tripSvc, feed: feed, driver: driver}
}

func (f *fixture) post(t *testing.T, in trips.NewTrip) *trips.Trip {
	t.Helper()
	if in.Driver.IsZero() {
		in.Driver = f.driver
	}
	if in.SourceCity == "" {
		in.SourceCity = "Bangalore"
	}
	if in.DestinationCity == "" {
		in.DestinationCity = "Chennai"
	}
	if in.StartTime.IsZero() {
		in.StartTime = base.Add(2 * time.Hour)
	}
	trip, err := f.trips.CreateTrip(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return trip
}

func TestCreateTripDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	trip := f.post(t, trips.NewTrip{PricePerSeat: 450})
	if trip.Capacity != trips.DefaultSeats || trip.AvailableSeats != trips.DefaultSeats {
		t.Errorf("seats = %d/%d, want %d", trip.AvailableSeats, trip.Capacity, trips.DefaultSeats)
	}
	if trip.Status != trips.StatusScheduled {
		t.Errorf("status = %s", trip.Status)
	}
	if !trip.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", trip.CreatedAt, base)
	}
}

func TestCreateTripRequiresVerifiedDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	pending := contact.Email("new.driver@example.com")
	if _, _, err := f.accounts.CreateOrUpgradeDriver(ctx, accounts.DriverSignup{Contact: pending, Name: "New"}); err != nil {
		t.Fatal(err)
	}
	customer := contact.Phone("9555555555")
	if _, _, err := f.accounts.CreateOrUpgradeCustomer(ctx, accounts.CustomerSignup{Contact: customer, Name: "Cust"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		driver contact.Contact
		want   error
	}{
		{"pending driver", pending, trips.ErrDriverNotVerified},
		{"customer", customer, trips.ErrDriverNotVerified},
		{"unknown", contact.Phone("9999999999"), trips.ErrDriverNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.trips.CreateTrip(ctx, trips.NewTrip{
				Driver: tt.driver, SourceCity: "A", DestinationCity: "B", Seats: 2,
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateTripValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name string
		in   trips.NewTrip
	}{
		{"no driver", trips.NewTrip{SourceCity: "A", DestinationCity: "B"}},
		{"no source", trips.NewTrip{Driver: f.driver, DestinationCity: "B"}},
		{"negative seats", trips.NewTrip{Driver: f.driver, SourceCity: "A", DestinationCity: "B", Seats: -1}},
		{"negative price", trips.NewTrip{Driver: f.driver, SourceCity: "A", DestinationCity: "B", PricePerSeat: -5}},
		{"bad latitude", trips.NewTrip{Driver: f.driver, SourceCity: "A", DestinationCity: "B", Source: matching.Point{Lat: 91}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.trips.CreateTrip(context.Background(), tt.in); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestDeleteTripOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	other := contact.Phone("9000000002")
	if _, _, err := f.accounts.CreateOrUpgradeDriver(ctx, accounts.DriverSignup{Contact: other, Name: "Other"}); err != nil {
		t.Fatal(err)
	}

	trip := f.post(t, trips.NewTrip{Seats: 4})

	if err := f.trips.DeleteTrip(ctx, trip.ID, other); !errors.Is(err, trips.ErrUnauthorized) {
		t.Fatalf("non-owner delete: err = %v, want ErrUnauthorized", err)
	}
	if err := f.trips.DeleteTrip(ctx, trip.ID, contact.Email("kiran@example.com")); !errors.Is(err, trips.ErrUnauthorized) {
		t.Fatalf("unbound email delete: err = %v, want ErrUnauthorized", err)
	}
	if err := f.trips.DeleteTrip(ctx, "no-such-trip", f.driver); !errors.Is(err, trips.ErrTripNotFound) {
		t.Fatalf("missing trip: err = %v, want ErrTripNotFound", err)
	}

	// The owner's number written differently still matches.
	if err := f.trips.DeleteTrip(ctx, trip.ID, contact.Phone("+91 90000-00001")); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.trips.Get(ctx, trip.ID); !errors.Is(err, trips.ErrTripNotFound) {
		t.Errorf("trip still readable after delete: %v", err)
	}
	if len(f.feed.closed) != 1 || f.feed.closed[0] != trip.ID {
		t.Errorf("feed closed = %v, want [%s]", f.feed.closed, trip.ID)
	}

	mine, err := f.trips.ListDriverTrips(ctx, f.driver)
	if err != nil {
		t.Fatal(err)
	}
	for _, tr := range mine {
		if tr.ID == trip.ID {
			t.Errorf("deleted trip %s still in driver list", trip.ID)
		}
	}
	matches, err := f.trips.SearchTrips(ctx, trips.Query{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range matches {
		if m.ID == trip.ID {
			t.Errorf("deleted trip %s still in search results", trip.ID)
		}
	}
	if err := f.trips.DeleteTrip(ctx, trip.ID, f.driver); !errors.Is(err, trips.ErrTripNotFound) {
		t.Errorf("second delete: err = %v, want ErrTripNotFound", err)
	}
}

func TestStalenessWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	fresh := f.post(t, trips.NewTrip{StartTime: base.Add(-23*time.Hour - 59*time.Minute)})
	f.post(t, trips.NewTrip{StartTime: base.Add(-24*time.Hour - time.Minute)})

	matches, err := f.trips.SearchTrips(ctx, trips.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != fresh.ID {
		t.Errorf("search returned %d trips, want only %s", len(matches), fresh.ID)
	}

	list, err := f.trips.ListDriverTrips(ctx, f.driver)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != fresh.ID {
		t.Errorf("driver list returned %d trips, want only %s", len(list), fresh.ID)
	}
}

func TestListDriverTripsSorted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	late := f.post(t, trips.NewTrip{StartTime: base.Add(5 * time.Hour)})
	early := f.post(t, trips.NewTrip{StartTime: base.Add(1 * time.Hour)})

	list, err := f.trips.ListDriverTrips(context.Background(), f.driver)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != early.ID || list[1].ID != late.ID {
		t.Errorf("order = %v, want [%s %s]", ids(list), early.ID, late.ID)
	}

	if _, err := f.trips.ListDriverTrips(context.Background(), contact.Phone("9999999999")); !errors.Is(err, trips.ErrDriverNotFound) {
		t.Errorf("unknown driver: err = %v", err)
	}
}

func TestSearchTrips(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	routed := f.post(t, trips.NewTrip{
		SourceCity: "Bangalore", DestinationCity: "Chennai",
		Source: bangalore, Destination: chennai,
	})
	unrouted := f.post(t, trips.NewTrip{
		SourceCity: "Bangalore", DestinationCity: "Chennai",
		StartTime: base.Add(3 * time.Hour),
	})
	f.post(t, trips.NewTrip{SourceCity: "Mysore", DestinationCity: "Chennai"})

	offAxis := &matching.Point{Lat: 14.83, Lng: 78.93}
	onAxis := &matching.Point{Lat: 13.007, Lng: 78.48}

	tests := []struct {
		name  string
		query trips.Query
		want  []string
	}{
		{"folded source", trips.Query{SourceCity: "  BANGALORE "}, []string{routed.ID, unrouted.ID}},
		{"destination mismatch", trips.Query{SourceCity: "bangalore", DestinationCity: "Mumbai"}, nil},
		{"pickup on route", trips.Query{SourceCity: "bangalore", Pickup: onAxis}, []string{routed.ID, unrouted.ID}},
		{"pickup off route keeps sentinel trip", trips.Query{SourceCity: "bangalore", Pickup: offAxis}, []string{unrouted.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.trips.SearchTrips(context.Background(), tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d matches, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.ID != tt.want[i] {
					t.Errorf("match[%d] = %s, want %s", i, m.ID, tt.want[i])
				}
			}
		})
	}

	all, _ := f.trips.SearchTrips(context.Background(), trips.Query{SourceCity: "bangalore"})
	if all[0].Driver.Name != "Kiran" {
		t.Errorf("driver card = %+v", all[0].Driver)
	}
	if len(all[0].Route) == 0 {
		t.Error("routed trip has no geometry")
	}
	if len(all[1].Route) != 0 {
		t.Error("sentinel trip should have no geometry")
	}
}

func ids(list []trips.Trip) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}
