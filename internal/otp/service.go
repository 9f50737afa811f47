package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"rath-service/internal/accounts"
	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/notify"
)

// DefaultTTL bounds how long an unconsumed code stays valid.
const DefaultTTL = 10 * time.Minute

const (
	codeMin = 1000
	codeMax = 9999
)

var (
	ErrMissingContact  = apperr.New(apperr.KindValidation, "missing_contact", "Phone or email is required")
	ErrMissingCode     = apperr.New(apperr.KindValidation, "missing_code", "OTP is required")
	ErrNoCodeRequested = apperr.New(apperr.KindNotFound, "no_code_requested", "No OTP requested for this contact, or it has expired")
	ErrInvalidCode     = apperr.New(apperr.KindValidation, "invalid_code", "Invalid OTP")
)

// AccountFinder resolves the account behind a verified contact.
type AccountFinder interface {
	FindByContact(ctx context.Context, c contact.Contact) (*accounts.Account, error)
}

// AuthOutcome is the result of a successful verification.
type AuthOutcome struct {
	IsNewUser bool
	Account   *accounts.Account
}

// Service issues and checks one-time codes.
type Service struct {
	store    Store
	accounts AccountFinder
	sender   notify.Sender
	ttl      time.Duration
	generate func() (string, error)
}

// NewService creates an OTP service. A zero ttl selects DefaultTTL.
func NewService(store Store, accts AccountFinder, sender notify.Sender, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:    store,
		accounts: accts,
		sender:   sender,
		ttl:      ttl,
		generate: generateCode,
	}
}

// RequestCode issues a fresh code for c, replacing any earlier one, and
// dispatches it without waiting for delivery.
func (s *Service) RequestCode(ctx context.Context, c contact.Contact) error {
	if c.IsZero() {
		return ErrMissingContact
	}
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.store.Put(ctx, c, code, s.ttl); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	log.WithFields(log.Fields{
		"channel": c.Channel,
		"contact": c.Value,
	}).Infof("[otp] issued code %s", code)

	if s.sender != nil {
		body := fmt.Sprintf("Your Rath verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
		notify.SendAsync(s.sender, c, "Your verification code", body)
	}
	return nil
}

// VerifyCode consumes the stored code for c when it matches. A mismatch
// keeps the code so the caller may retry.
func (s *Service) VerifyCode(ctx context.Context, c contact.Contact, submitted string) (*AuthOutcome, error) {
	if c.IsZero() {
		return nil, ErrMissingContact
	}
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return nil, ErrMissingCode
	}

	res, err := s.store.Consume(ctx, c, submitted)
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	switch res {
	case Missing:
		return nil, ErrNoCodeRequested
	case Mismatch:
		return nil, ErrInvalidCode
	}

	acct, err := s.accounts.FindByContact(ctx, c)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return &AuthOutcome{IsNewUser: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AuthOutcome{Account: acct}, nil
}

// generateCode draws uniformly from [codeMin, codeMax].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}
