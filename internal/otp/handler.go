package otp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rath-service/internal/contact"
	"rath-service/internal/httpx"
	"rath-service/internal/metrics"
)

type sendRequest struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type verifyRequest struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Email string `json:"email" validate:"omitempty,email"`
	OTP   string `json:"otp"`
}

// Handler exposes OTP HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the OTP service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the OTP routes on r. The phone and email variants share
// handlers; the body decides the channel.
func (h *Handler) Register(r chi.Router) {
	r.Post("/send-otp", h.Send)
	r.Post("/send-otp-email", h.Send)
	r.Post("/verify-otp", h.Verify)
	r.Post("/verify-otp-email", h.Verify)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c := contact.FromFields(req.Phone, req.Email)
	if err := h.svc.RequestCode(r.Context(), c); err != nil {
		httpx.Error(w, r, err)
		return
	}
	metrics.OTPIssued.WithLabelValues(string(c.Channel)).Inc()
	httpx.Success(w, httpx.Envelope{"message": "OTP sent"})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c := contact.FromFields(req.Phone, req.Email)
	out, err := h.svc.VerifyCode(r.Context(), c, req.OTP)
	if err != nil {
		metrics.OTPVerified.WithLabelValues(string(c.Channel), "rejected").Inc()
		httpx.Error(w, r, err)
		return
	}
	metrics.OTPVerified.WithLabelValues(string(c.Channel), "accepted").Inc()

	if out.IsNewUser {
		httpx.Success(w, httpx.Envelope{
			"message":     "OTP verified",
			"is_new_user": true,
			"exists":      false,
		})
		return
	}
	httpx.Success(w, httpx.Envelope{
		"message":     "OTP verified",
		"is_new_user": false,
		"exists":      true,
		"user_id":     out.Account.ID,
		"name":        out.Account.Name,
		"role":        out.Account.Role,
		"is_verified": out.Account.Verified(),
	})
}
