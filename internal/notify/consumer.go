package notify

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"rath-service/internal/contact"
	"rath-service/internal/events"
	"rath-service/pkg/kafka"
)

// BookingAlerts tells drivers about new bookings on their trips.
type BookingAlerts struct {
	kafka  *kafka.Client
	sender Sender
}

func NewBookingAlerts(k *kafka.Client, s Sender) *BookingAlerts {
	return &BookingAlerts{kafka: k, sender: s}
}

// Start consumes booking.confirmed in a background goroutine.
func (b *BookingAlerts) Start(ctx context.Context) {
	b.kafka.Subscribe(ctx, kafka.TopicBookingConfirmed, "notify-booking-confirmed", func(data []byte) error {
		return b.Handle(ctx, data)
	})
}

// Handle delivers one booking.confirmed payload.
func (b *BookingAlerts) Handle(ctx context.Context, data []byte) error {
	var ev events.BookingConfirmedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}

	to := contact.FromFields(ev.DriverPhone, ev.DriverEmail)
	if to.IsZero() {
		log.Printf("[notify] booking %s: driver %s has no contact", ev.BookingID, ev.DriverID)
		return nil
	}

	body := fmt.Sprintf("New booking: %s booked %d seat(s) on %s -> %s. %d seat(s) left.",
		ev.CustomerName, ev.Seats, ev.SourceCity, ev.DestinationCity, ev.RemainingSeats)
	return b.sender.Send(ctx, to, "New booking on your trip", body)
}
