package contact

import (
	"strings"
	"unicode"
)

// Channel identifies how a contact is reached.
type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
)

// nationalDigits is the length of a subscriber number without country code.
const nationalDigits = 10

// Contact is a normalised phone number or email address.
type Contact struct {
	Channel Channel `json:"channel"`
	Value   string  `json:"value"`
}

// Phone builds a phone contact. Formatting characters and any country-code
// or trunk prefix beyond the last ten digits are dropped.
func Phone(raw string) Contact {
	return Contact{Channel: ChannelPhone, Value: NormalizePhone(raw)}
}

// Email builds an email contact.
func Email(raw string) Contact {
	return Contact{Channel: ChannelEmail, Value: NormalizeEmail(raw)}
}

// FromFields picks the phone when present, the email otherwise.
func FromFields(phone, email string) Contact {
	if c := Phone(phone); !c.IsZero() {
		return c
	}
	return Email(email)
}

// NormalizePhone keeps digits only and strips prefixes longer than a
// national number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > nationalDigits {
		digits = digits[len(digits)-nationalDigits:]
	}
	return digits
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsZero reports whether the contact carries no value.
func (c Contact) IsZero() bool { return c.Value == "" }

// Key is the storage key used for per-contact records such as OTPs.
func (c Contact) Key() string { return string(c.Channel) + ":" + c.Value }

func (c Contact) String() string { return c.Value }

// Equal compares channel and normalised value.
func Equal(a, b Contact) bool {
	return !a.IsZero() && a.Channel == b.Channel && a.Value == b.Value
}
