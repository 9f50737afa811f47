package bookings

import (
	"time"

	"rath-service/internal/accounts"
	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/trips"
)

// BookingStatus values.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrCustomerNotFound = apperr.New(apperr.KindNotFound, "customer_not_found", "Customer not found")
	ErrBookingNotFound  = apperr.New(apperr.KindNotFound, "booking_not_found", "Booking not found")
	ErrInvalidSeatCount = apperr.New(apperr.KindValidation, "invalid_seat_count", "seats must be at least 1")
	ErrTripNotBookable  = apperr.New(apperr.KindValidation, "trip_not_bookable", "Trip is no longer accepting bookings")
	ErrOwnTrip          = apperr.New(apperr.KindValidation, "own_trip", "Drivers cannot book their own trip")
	ErrNotEnoughSeats   = apperr.New(apperr.KindValidation, "not_enough_seats", "Not enough seats!")
	ErrFullCarOnly      = apperr.New(apperr.KindValidation, "full_car_only", "This trip must be booked as a full car")
	ErrAlreadyCancelled = apperr.New(apperr.KindValidation, "already_cancelled", "Booking is already cancelled")
)

// Booking is a customer's seat reservation on a trip.
type Booking struct {
	ID         string    `json:"id"`
	TripID     string    `json:"trip_id"`
	CustomerID string    `json:"customer_id"`
	Seats      int       `json:"seats"`
	TotalCost  float64   `json:"total_cost"`
	Status     string    `json:"status"`
	BookedAt   time.Time `json:"booked_at"`
}

// Receipt is returned by BookSeat.
type Receipt struct {
	Booking        Booking
	RemainingSeats int
	Trip           trips.Trip
	Driver         accounts.Card
}

// Ticket is a booking as listed in a customer's history.
type Ticket struct {
	Booking
	SourceCity      string
	DestinationCity string
	StartTime       time.Time
	DriverName      string
	DriverPhone     string
	VehicleNumber   string
}

// Passenger is a booking as seen by the trip's driver.
type Passenger struct {
	BookingID  string
	CustomerID string
	Name       string
	Phone      string
	Email      string
	Seats      int
	Revenue    float64
	Status     string
	BookedAt   time.Time
}

// BookRequest is the input of BookSeat. CustomerID wins over Customer.
type BookRequest struct {
	TripID     string
	CustomerID string
	Customer   contact.Contact
	Seats      int
}

// ---- HTTP bodies ----

// BookSeatRequest is the body for POST /book-seat.
type BookSeatRequest struct {
	TripID string `json:"trip_id" validate:"required"`
	UserID string `json:"user_id"`
	Phone  string `json:"phone" validate:"omitempty,phone"`
	Email  string `json:"email" validate:"omitempty,email"`
	Seats  int    `json:"seats" validate:"gte=0"`
}

// CancelRequest is the body for POST /cancel-booking.
type CancelRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
	UserID   string `json:"user_id"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}
