package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"rath-service/internal/accounts"
	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/httpx"
	"rath-service/pkg/jwt"
)

const (
	role     = "admin"
	tokenTTL = 12 * time.Hour
)

var errBadPassword = apperr.New(apperr.KindUnauthorized, "bad_credentials", "invalid credentials")

// Approver performs the driver approval action.
type Approver interface {
	ApproveDriver(ctx context.Context, c contact.Contact) (*accounts.Account, accounts.UpsertResult, error)
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type approveRequest struct {
	Phone string `json:"phone" validate:"omitempty,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

// Handler exposes the admin endpoints.
type Handler struct {
	approver     Approver
	passwordHash []byte
}

// NewHandler returns an admin handler. An empty hash disables login.
func NewHandler(approver Approver, passwordHash string) *Handler {
	return &Handler{approver: approver, passwordHash: []byte(passwordHash)}
}

// Routes returns a chi.Router for the /admin mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireRole(role))
		r.Post("/approve-driver", h.ApproveDriver)
	})
	return r
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if len(h.passwordHash) == 0 || bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)) != nil {
		log.Warnf("[admin] failed login from %s", r.RemoteAddr)
		httpx.Error(w, r, errBadPassword)
		return
	}
	token, err := jwt.Generate(role, role, tokenTTL)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, httpx.Envelope{"token": token, "expires_in": int(tokenTTL.Seconds())})
}

func (h *Handler) ApproveDriver(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	acct, result, err := h.approver.ApproveDriver(r.Context(), contact.FromFields(req.Phone, req.Email))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	log.Printf("[admin] driver %s approval: %s", acct.ID, result)
	httpx.Success(w, httpx.Envelope{
		"user_id":     acct.ID,
		"name":        acct.Name,
		"is_verified": acct.Verified(),
		"result":      result.String(),
	})
}

// HashPassword returns the bcrypt hash for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
