package notify

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"rath-service/internal/contact"
	"rath-service/internal/events"
	"rath-service/pkg/kafka"
)

// Sender delivers a short message to a contact. Delivery is best-effort.
type Sender interface {
	Send(ctx context.Context, to contact.Contact, subject, body string) error
}

// Router picks a sender by the contact's channel. Missing senders fall
// back to Fallback.
type Router struct {
	Phone    Sender
	Email    Sender
	Fallback Sender
}

func (r *Router) Send(ctx context.Context, to contact.Contact, subject, body string) error {
	var s Sender
	switch to.Channel {
	case contact.ChannelPhone:
		s = r.Phone
	case contact.ChannelEmail:
		s = r.Email
	}
	if s == nil {
		s = r.Fallback
	}
	if s == nil {
		return fmt.Errorf("notify: no sender for %s", to.Channel)
	}
	return s.Send(ctx, to, subject, body)
}

// LogSender only writes the message to the log.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to contact.Contact, subject, body string) error {
	log.WithFields(log.Fields{
		"channel": to.Channel,
		"to":      to.Value,
		"subject": subject,
	}).Info("[notify] " + body)
	return nil
}

// ---- SMS ----

// TwilioSMS sends text messages through Twilio.
type TwilioSMS struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

// NewTwilioSMS creates a Twilio sender. countryCode is prefixed to the
// ten-digit national numbers stored on accounts.
func NewTwilioSMS(accountSid, authToken, from, countryCode string) (*TwilioSMS, error) {
	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &TwilioSMS{client: client, from: from, countryCode: countryCode}, nil
}

func (t *TwilioSMS) Send(_ context.Context, to contact.Contact, _, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(E164(to.Value, t.countryCode))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.Sid != nil {
		log.Debugf("[notify] sms sent, sid %s", *resp.Sid)
	}
	return nil
}

// E164 formats a national number with its country code.
func E164(national, countryCode string) string {
	return "+" + countryCode + national
}

// ---- email outbox ----

// Outbox hands messages to an external mail worker through Kafka.
type Outbox struct {
	pub events.Publisher
}

func NewOutbox(pub events.Publisher) *Outbox { return &Outbox{pub: pub} }

func (o *Outbox) Send(ctx context.Context, to contact.Contact, subject, body string) error {
	return o.pub.Publish(ctx, kafka.TopicNotificationRequested, to.Value, events.NotificationRequestedEvent{
		Channel:     string(to.Channel),
		To:          to.Value,
		Subject:     subject,
		Body:        body,
		RequestedAt: time.Now().Format(time.RFC3339),
	})
}

// SendAsync delivers in the background; failures are logged and dropped.
func SendAsync(s Sender, to contact.Contact, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Send(ctx, to, subject, body); err != nil {
			log.Warnf("[notify] dispatch to %s failed: %v", to.Channel, err)
		}
	}()
}
