package accounts

import (
	"fmt"
	"time"

	"rath-service/internal/apperr"
	"rath-service/internal/contact"
)

// Role is the account's function on the platform.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleDriver   Role = "DRIVER"
	RoleAgent    Role = "AGENT"
)

// Status is the review state of an account.
type Status string

const (
	StatusUnregistered  Status = "UNREGISTERED"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusVerified      Status = "VERIFIED"
)

// Event drives State transitions.
type Event int

const (
	EventSignupCustomer Event = iota
	EventSignupDriver
	EventApprove
)

func (e Event) String() string {
	switch e {
	case EventSignupCustomer:
		return "signup_customer"
	case EventSignupDriver:
		return "signup_driver"
	case EventApprove:
		return "approve"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Document kinds accepted on driver signup.
const (
	DocProfilePhoto = "profile_photo"
	DocLicensePhoto = "license_photo"
	DocRCPhoto      = "rc_photo"
	DocAadhaarPhoto = "aadhaar_photo"
)

// DocumentKinds lists the upload fields in form order.
var DocumentKinds = []string{DocProfilePhoto, DocLicensePhoto, DocRCPhoto, DocAadhaarPhoto}

var (
	ErrAccountNotFound     = apperr.New(apperr.KindNotFound, "account_not_found", "Account not found")
	ErrContactAlreadyInUse = apperr.New(apperr.KindConflict, "contact_in_use", "Contact already linked to another account")
	ErrInvalidTransition   = apperr.New(apperr.KindValidation, "invalid_transition", "Account cannot change state this way")
	ErrMissingContact      = apperr.New(apperr.KindValidation, "missing_contact", "Phone or email is required")
	ErrMissingName         = apperr.New(apperr.KindValidation, "missing_name", "Name is required")
	ErrDocumentUpload      = apperr.New(apperr.KindInternal, "document_upload", "Could not store uploaded document")
)

// State is the (role, status) pair an account moves through.
type State struct {
	Role   Role
	Status Status
}

// Apply returns the state after ev.
func (s State) Apply(ev Event) (State, error) {
	switch ev {
	case EventSignupCustomer:
		return State{Role: RoleCustomer, Status: StatusVerified}, nil
	case EventSignupDriver:
		return State{Role: RoleDriver, Status: StatusPendingReview}, nil
	case EventApprove:
		if s.Role == RoleDriver && (s.Status == StatusPendingReview || s.Status == StatusVerified) {
			return State{Role: RoleDriver, Status: StatusVerified}, nil
		}
	}
	return s, ErrInvalidTransition.WithMessage(fmt.Sprintf("cannot %s from %s/%s", ev, s.Role, s.Status))
}

// Account is a registered customer, driver or agent.
type Account struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Phone         string            `json:"phone,omitempty"`
	Email         string            `json:"email,omitempty"`
	Role          Role              `json:"role"`
	Status        Status            `json:"status"`
	Address       string            `json:"address,omitempty"`
	LicenseNumber string            `json:"license_number,omitempty"`
	VehicleNumber string            `json:"vehicle_number,omitempty"`
	VehicleType   string            `json:"vehicle_type,omitempty"`
	Documents     map[string]string `json:"documents,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// State returns the account's current state.
func (a *Account) State() State {
	if a == nil {
		return State{Status: StatusUnregistered}
	}
	return State{Role: a.Role, Status: a.Status}
}

func (a *Account) setState(s State) {
	a.Role = s.Role
	a.Status = s.Status
}

// Verified reports the verification flag.
func (a *Account) Verified() bool { return a.Status == StatusVerified }

// CanPublishTrips reports whether the account may post trips.
func (a *Account) CanPublishTrips() bool {
	return a.Role == RoleDriver && a.Verified()
}

// Contact returns the account's contact on the given channel.
func (a *Account) Contact(ch contact.Channel) contact.Contact {
	if ch == contact.ChannelEmail {
		return contact.Email(a.Email)
	}
	return contact.Phone(a.Phone)
}

func (a *Account) setContact(c contact.Contact) {
	switch c.Channel {
	case contact.ChannelPhone:
		a.Phone = c.Value
	case contact.ChannelEmail:
		a.Email = c.Value
	}
}

// Card is the public contact card shown to the other party of a trip.
type Card struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
	VehicleType   string `json:"vehicle_type,omitempty"`
}

// Card builds the contact card for a.
func (a *Account) Card() Card {
	return Card{
		ID:            a.ID,
		Name:          a.Name,
		Phone:         a.Phone,
		Email:         a.Email,
		VehicleNumber: a.VehicleNumber,
		VehicleType:   a.VehicleType,
	}
}

// UpsertResult tags the outcome of a signup.
type UpsertResult int

const (
	Created UpsertResult = iota
	Upgraded
	Unchanged
)

func (r UpsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Upgraded:
		return "upgraded"
	default:
		return "unchanged"
	}
}

// CustomerSignup is the input of CreateOrUpgradeCustomer.
type CustomerSignup struct {
	Contact   contact.Contact
	Name      string
	Secondary contact.Contact
}

// DriverSignup is the input of CreateOrUpgradeDriver.
type DriverSignup struct {
	Contact       contact.Contact
	Name          string
	VehicleNumber string
	VehicleType   string
	Address       string
	LicenseNumber string
	Documents     map[string]string
	Secondary     contact.Contact
}

// ---- HTTP bodies ----

type contactRequest struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type customerSignupRequest struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"required"`
}
