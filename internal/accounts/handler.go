package accounts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/httpx"
	"rath-service/pkg/validation"
)

const maxUploadSize = 20 << 20

// DocumentStore saves an uploaded file and returns its reference URL.
type DocumentStore interface {
	Save(ctx context.Context, kind, filename string, r io.Reader) (string, error)
}

// Handler exposes account HTTP endpoints.
type Handler struct {
	svc  *Service
	docs DocumentStore
}

// NewHandler wires a handler to the account service.
func NewHandler(svc *Service, docs DocumentStore) *Handler {
	return &Handler{svc: svc, docs: docs}
}

// Register mounts the account routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/check-phone", h.Check)
	r.Post("/check-email", h.Check)
	r.Post("/signup-customer", h.SignupCustomer)
	r.Post("/signup-driver", h.SignupDriver)
	r.Get("/get-profile", h.GetProfile)
}

// Check reports whether an account exists for the posted phone or email.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	acct, err := h.svc.FindByContact(r.Context(), contact.FromFields(req.Phone, req.Email))
	if errors.Is(err, ErrAccountNotFound) {
		httpx.Success(w, httpx.Envelope{"exists": false})
		return
	}
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, httpx.Envelope{
		"exists":      true,
		"role":        acct.Role,
		"name":        acct.Name,
		"user_id":     acct.ID,
		"is_verified": acct.Verified(),
	})
}

func (h *Handler) SignupCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerSignupRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	primary := contact.FromFields(req.Phone, req.Email)
	var secondary contact.Contact
	if primary.Channel == contact.ChannelPhone {
		secondary = contact.Email(req.Email)
	}

	acct, result, err := h.svc.CreateOrUpgradeCustomer(r.Context(), CustomerSignup{
		Contact:   primary,
		Name:      req.Name,
		Secondary: secondary,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeSignup(w, acct, result)
}

// SignupDriver accepts multipart forms with document photos, or plain JSON.
func (h *Handler) SignupDriver(w http.ResponseWriter, r *http.Request) {
	var (
		form driverForm
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		form, err = h.readDriverForm(w, r)
	} else {
		err = httpx.Decode(w, r, &form)
	}
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := form.validate(); err != nil {
		httpx.Error(w, r, err)
		return
	}

	primary := contact.FromFields(form.Phone, form.Email)
	var secondary contact.Contact
	if primary.Channel == contact.ChannelPhone {
		secondary = contact.Email(form.Email)
	}

	acct, result, err := h.svc.CreateOrUpgradeDriver(r.Context(), DriverSignup{
		Contact:       primary,
		Name:          form.name(),
		VehicleNumber: form.VehicleNumber,
		VehicleType:   form.VehicleType,
		Address:       form.Address,
		LicenseNumber: form.LicenseNumber,
		Documents:     form.documents,
		Secondary:     secondary,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeSignup(w, acct, result)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, err := h.svc.FindByContact(r.Context(), contact.FromFields(q.Get("phone"), q.Get("email")))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, httpx.Envelope{
		"user_id":        acct.ID,
		"name":           acct.Name,
		"phone":          acct.Phone,
		"email":          acct.Email,
		"role":           acct.Role,
		"account_status": acct.Status,
		"is_verified":    acct.Verified(),
		"address":        acct.Address,
		"license_number": acct.LicenseNumber,
		"vehicle_number": acct.VehicleNumber,
		"vehicle_type":   acct.VehicleType,
		"documents":      acct.Documents,
	})
}

func writeSignup(w http.ResponseWriter, acct *Account, result UpsertResult) {
	body := httpx.Envelope{
		"user_id":     acct.ID,
		"role":        acct.Role,
		"is_verified": acct.Verified(),
		"result":      result.String(),
	}
	if result == Created {
		httpx.Created(w, body)
		return
	}
	httpx.Success(w, body)
}

type driverForm struct {
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	Name          string `json:"name"`
	VehicleNumber string `json:"vehicleNumber"`
	VehicleType   string `json:"vehicleType"`
	Address       string `json:"address"`
	LicenseNumber string `json:"licenseNumber"`

	documents map[string]string
}

func (f driverForm) name() string {
	if f.FullName != "" {
		return f.FullName
	}
	return f.Name
}

func (f driverForm) validate() error {
	var fields []validation.FieldError
	if f.Phone != "" && !validation.ValidatePhone(f.Phone) {
		fields = append(fields, validation.FieldError{Field: "phone", Message: "Invalid phone number", Code: "phone"})
	}
	if f.Email != "" && !validation.ValidateEmail(f.Email) {
		fields = append(fields, validation.FieldError{Field: "email", Message: "Invalid email format", Code: "email"})
	}
	if len(fields) > 0 {
		return &validation.Errors{Fields: fields}
	}
	return nil
}

func (h *Handler) readDriverForm(w http.ResponseWriter, r *http.Request) (driverForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return driverForm{}, apperr.Validation("invalid multipart form")
	}

	f := driverForm{
		Phone:         r.FormValue("phone"),
		Email:         r.FormValue("email"),
		FullName:      r.FormValue("fullName"),
		Name:          r.FormValue("name"),
		VehicleNumber: r.FormValue("vehicleNumber"),
		VehicleType:   r.FormValue("vehicleType"),
		Address:       r.FormValue("address"),
		LicenseNumber: r.FormValue("licenseNumber"),
	}

	for _, kind := range DocumentKinds {
		file, header, err := r.FormFile(kind)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return driverForm{}, apperr.Validation("invalid upload for " + kind)
		}
		url, err := h.docs.Save(r.Context(), kind, header.Filename, file)
		file.Close()
		if err != nil {
			return driverForm{}, ErrDocumentUpload.Wrap(err)
		}
		if f.documents == nil {
			f.documents = make(map[string]string)
		}
		f.documents[kind] = url
		log.Debugf("[accounts] stored %s for %s", kind, header.Filename)
	}
	return f, nil
}
