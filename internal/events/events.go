package events

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Publisher sends a JSON payload to a topic. *kafka.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, any) error { return nil }

// PublishAsync publishes in the background and logs the outcome.
func PublishAsync(p Publisher, topic, key string, value any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Publish(ctx, topic, key, value); err != nil {
			log.Printf("[events] failed to publish %s: %v", topic, err)
			return
		}
		log.Debugf("[events] published %s key=%s", topic, key)
	}()
}

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TripPostedEvent is published to trip.posted.
type TripPostedEvent struct {
	TripID          string  `json:"trip_id"`
	DriverID        string  `json:"driver_id"`
	SourceCity      string  `json:"source_city"`
	DestinationCity string  `json:"destination_city"`
	Source          LatLng  `json:"source"`
	Destination     LatLng  `json:"destination"`
	Seats           int     `json:"seats"`
	PricePerSeat    float64 `json:"price_per_seat"`
	StartTime       string  `json:"start_time"`
}

// TripDeletedEvent is published to trip.deleted.
type TripDeletedEvent struct {
	TripID    string `json:"trip_id"`
	DriverID  string `json:"driver_id"`
	DeletedAt string `json:"deleted_at"`
}

// BookingConfirmedEvent is published to booking.confirmed. It carries the
// driver's contact so consumers can notify without a lookup.
type BookingConfirmedEvent struct {
	BookingID       string  `json:"booking_id"`
	TripID          string  `json:"trip_id"`
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	DriverID        string  `json:"driver_id"`
	DriverPhone     string  `json:"driver_phone,omitempty"`
	DriverEmail     string  `json:"driver_email,omitempty"`
	SourceCity      string  `json:"source_city"`
	DestinationCity string  `json:"destination_city"`
	Seats           int     `json:"seats"`
	TotalCost       float64 `json:"total_cost"`
	RemainingSeats  int     `json:"remaining_seats"`
	BookedAt        string  `json:"booked_at"`
}

// BookingCancelledEvent is published to booking.cancelled.
type BookingCancelledEvent struct {
	BookingID      string `json:"booking_id"`
	TripID         string `json:"trip_id"`
	CustomerID     string `json:"customer_id"`
	Seats          int    `json:"seats"`
	RemainingSeats int    `json:"remaining_seats"`
	CancelledAt    string `json:"cancelled_at"`
}

// NotificationRequestedEvent is published to notification.requested for
// channels delivered by an external worker (email).
type NotificationRequestedEvent struct {
	Channel     string `json:"channel"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}
