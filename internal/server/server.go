// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rath-service/internal/accounts"
	"rath-service/internal/admin"
	"rath-service/internal/bookings"
	"rath-service/internal/httpx"
	"rath-service/internal/logger"
	"rath-service/internal/metrics"
	"rath-service/internal/otp"
	"rath-service/internal/seatfeed"
	"rath-service/internal/trips"
)

// Deps are the handlers the router mounts.
type Deps struct {
	OTP      *otp.Handler
	Accounts *accounts.Handler
	Trips    *trips.Handler
	Bookings *bookings.Handler
	Admin    *admin.Handler
	SeatFeed *seatfeed.Hub

	CORSOrigins []string
}

// NewRouter builds the service router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, httpx.Envelope{"status": "ok", "service": "rath-service"})
	})
	r.Handle("/metrics", metrics.Handler())

	d.OTP.Register(r)
	d.Accounts.Register(r)
	d.Trips.Register(r)
	d.Bookings.Register(r)

	if d.Admin != nil {
		r.Mount("/admin", d.Admin.Routes())
	}
	if d.SeatFeed != nil {
		r.Mount("/ws", d.SeatFeed.Routes())
	}
	return r
}
