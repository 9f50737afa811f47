package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"rath-service/internal/contact"
)

// Repository persists accounts. Create and Update return
// ErrContactAlreadyInUse when a phone or email is already taken.
type Repository interface {
	FindByContact(ctx context.Context, c contact.Contact) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, a *Account) error
}

// Service contains the account business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an account service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// FindByContact looks an account up by phone or email.
func (s *Service) FindByContact(ctx context.Context, c contact.Contact) (*Account, error) {
	if c.IsZero() {
		return nil, ErrMissingContact
	}
	return s.repo.FindByContact(ctx, c)
}

// FindByID looks an account up by primary key.
func (s *Service) FindByID(ctx context.Context, id string) (*Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrAccountNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// CreateOrUpgradeCustomer registers c as a verified customer, reusing an
// existing account with the same contact.
func (s *Service) CreateOrUpgradeCustomer(ctx context.Context, req CustomerSignup) (*Account, UpsertResult, error) {
	name := strings.TrimSpace(req.Name)
	if req.Contact.IsZero() {
		return nil, Unchanged, ErrMissingContact
	}
	if name == "" {
		return nil, Unchanged, ErrMissingName
	}

	return s.upsert(ctx, req.Contact, req.Secondary, EventSignupCustomer, func(a *Account) bool {
		changed := a.Name != name
		a.Name = name
		return changed
	})
}

// CreateOrUpgradeDriver registers c as a driver awaiting review. Every
// submission resets the review, including for verified accounts.
func (s *Service) CreateOrUpgradeDriver(ctx context.Context, req DriverSignup) (*Account, UpsertResult, error) {
	name := strings.TrimSpace(req.Name)
	if req.Contact.IsZero() {
		return nil, Unchanged, ErrMissingContact
	}
	if name == "" {
		return nil, Unchanged, ErrMissingName
	}

	acct, result, err := s.upsert(ctx, req.Contact, req.Secondary, EventSignupDriver, func(a *Account) bool {
		a.Name = name
		a.VehicleNumber = strings.TrimSpace(req.VehicleNumber)
		a.VehicleType = strings.TrimSpace(req.VehicleType)
		a.Address = strings.TrimSpace(req.Address)
		a.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
		if len(req.Documents) > 0 {
			if a.Documents == nil {
				a.Documents = make(map[string]string, len(req.Documents))
			}
			for k, v := range req.Documents {
				a.Documents[k] = v
			}
		}
		return true
	})
	if err != nil {
		return nil, result, err
	}
	log.Printf("[accounts] driver %s submitted for review (%s)", acct.ID, result)
	return acct, result, nil
}

// ApproveDriver flips a pending driver to verified.
func (s *Service) ApproveDriver(ctx context.Context, c contact.Contact) (*Account, UpsertResult, error) {
	acct, err := s.FindByContact(ctx, c)
	if err != nil {
		return nil, Unchanged, err
	}
	if acct.Verified() && acct.Role == RoleDriver {
		return acct, Unchanged, nil
	}
	next, err := acct.State().Apply(EventApprove)
	if err != nil {
		return nil, Unchanged, err
	}
	acct.setState(next)
	acct.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, acct); err != nil {
		return nil, Unchanged, err
	}
	log.Printf("[accounts] driver %s approved", acct.ID)
	return acct, Upgraded, nil
}

// upsert finds or creates the account for primary, applies ev and mutate,
// then checks that secondary is not bound elsewhere.
func (s *Service) upsert(ctx context.Context, primary, secondary contact.Contact, ev Event, mutate func(*Account) bool) (*Account, UpsertResult, error) {
	acct, err := s.repo.FindByContact(ctx, primary)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		acct = nil
	case err != nil:
		return nil, Unchanged, err
	}

	if !secondary.IsZero() && secondary.Channel != primary.Channel {
		other, err := s.repo.FindByContact(ctx, secondary)
		switch {
		case err == nil && (acct == nil || other.ID != acct.ID):
			return nil, Unchanged, ErrContactAlreadyInUse
		case err != nil && !errors.Is(err, ErrAccountNotFound):
			return nil, Unchanged, err
		}
	}

	now := s.now()
	if acct == nil {
		next, err := State{Status: StatusUnregistered}.Apply(ev)
		if err != nil {
			return nil, Unchanged, err
		}
		acct = &Account{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
		acct.setContact(primary)
		if !secondary.IsZero() && secondary.Channel != primary.Channel {
			acct.setContact(secondary)
		}
		acct.setState(next)
		mutate(acct)
		if err := s.repo.Create(ctx, acct); err != nil {
			return nil, Unchanged, err
		}
		return acct, Created, nil
	}

	prev := acct.State()
	next, err := prev.Apply(ev)
	if err != nil {
		return nil, Unchanged, err
	}
	acct.setState(next)
	changed := mutate(acct)
	if !secondary.IsZero() && secondary.Channel != primary.Channel && acct.Contact(secondary.Channel).Value != secondary.Value {
		acct.setContact(secondary)
		changed = true
	}
	if !changed && prev == next {
		return acct, Unchanged, nil
	}
	acct.UpdatedAt = now
	if err := s.repo.Update(ctx, acct); err != nil {
		return nil, Unchanged, err
	}
	return acct, Upgraded, nil
}
