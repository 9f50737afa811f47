package trips

import (
	"encoding/json"
	"math"
	"time"

	"rath-service/internal/accounts"
	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/matching"
)

// RoundCents rounds an amount to the two decimal places money is stored with.
func RoundCents(v float64) float64 { return math.Round(v*100) / 100 }

// TripStatus enumerates the lifecycle states.
const (
	StatusScheduled = "SCHEDULED"
	StatusCancelled = "CANCELLED"
)

const (
	// StalenessWindow hides trips that departed longer ago than this.
	StalenessWindow = 24 * time.Hour

	// DefaultSeats is offered when a driver omits the seat count.
	DefaultSeats = 3
)

var (
	ErrTripNotFound      = apperr.New(apperr.KindNotFound, "trip_not_found", "Trip not found")
	ErrDriverNotFound    = apperr.New(apperr.KindNotFound, "driver_not_found", "Driver not found")
	ErrDriverNotVerified = apperr.New(apperr.KindUnauthorized, "driver_not_verified", "Account Under Review. Please wait for Admin approval.")
	ErrUnauthorized      = apperr.New(apperr.KindUnauthorized, "not_trip_owner", "Unauthorized: you can only delete your own trips")
)

// Trip is a driver's offered route and capacity for one departure.
type Trip struct {
	ID               string         `json:"id"`
	DriverID         string         `json:"driver_id"`
	SourceCity       string         `json:"source_city"`
	DestinationCity  string         `json:"destination_city"`
	Source           matching.Point `json:"source"`
	Destination      matching.Point `json:"destination"`
	StartTime        time.Time      `json:"start_time"`
	Capacity         int            `json:"capacity"`
	AvailableSeats   int            `json:"available_seats"`
	PricePerSeat     float64        `json:"price_per_seat"`
	IsFullCarBooking bool           `json:"is_full_car_booking"`
	Status           string         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Stale reports whether the trip fell out of the staleness window.
func (t *Trip) Stale(now time.Time) bool {
	return t.StartTime.Before(now.Add(-StalenessWindow))
}

// Listing is a trip joined with its driver's card.
type Listing struct {
	Trip
	Driver accounts.Card `json:"driver"`
}

// Match is a search hit with its route geometry.
type Match struct {
	Listing
	Route json.RawMessage `json:"route,omitempty"`
}

// NewTrip is the input of CreateTrip.
type NewTrip struct {
	Driver           contact.Contact
	SourceCity       string
	DestinationCity  string
	Source           matching.Point
	Destination      matching.Point
	StartTime        time.Time
	PricePerSeat     float64
	Seats            int
	IsFullCarBooking bool
}

// Query filters SearchTrips. Empty fields are not applied.
type Query struct {
	SourceCity      string
	DestinationCity string
	Pickup          *matching.Point
}

// ---- HTTP bodies ----

// CreateRequest is the body for POST /create-trip.
type CreateRequest struct {
	DriverPhone      string  `json:"driver_phone" validate:"omitempty,phone"`
	DriverEmail      string  `json:"driver_email" validate:"omitempty,email"`
	SourceCity       string  `json:"source_city" validate:"required"`
	DestinationCity  string  `json:"destination_city" validate:"required"`
	SourceLat        float64 `json:"source_lat" validate:"latitude"`
	SourceLng        float64 `json:"source_lng" validate:"longitude"`
	DestLat          float64 `json:"dest_lat" validate:"latitude"`
	DestLng          float64 `json:"dest_lng" validate:"longitude"`
	Price            float64 `json:"price" validate:"gte=0"`
	Seats            int     `json:"seats" validate:"gte=0,lte=50"`
	StartTime        string  `json:"start_time"`
	IsFullCarBooking bool    `json:"is_full_car_booking"`
}

// DeleteRequest is the body for POST /delete-trip.
type DeleteRequest struct {
	TripID      string `json:"trip_id" validate:"required"`
	DriverPhone string `json:"driver_phone"`
	DriverEmail string `json:"driver_email"`
}
