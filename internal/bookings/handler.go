package bookings

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/httpx"
	"rath-service/internal/metrics"
	"rath-service/internal/trips"
)

// Handler exposes booking HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the booking service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the booking routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/book-seat", h.BookSeat)
	r.Post("/cancel-booking", h.Cancel)
	r.Get("/get-user-bookings", h.UserBookings)
	r.Get("/get-trip-bookings", h.TripBookings)
	r.Get("/get-trip-passengers", h.TripBookings)
}

func (h *Handler) BookSeat(w http.ResponseWriter, r *http.Request) {
	var req BookSeatRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	seats := req.Seats
	if seats == 0 {
		seats = 1
	}

	rc, err := h.svc.BookSeat(r.Context(), BookRequest{
		TripID:     req.TripID,
		CustomerID: req.UserID,
		Customer:   contact.FromFields(req.Phone, req.Email),
		Seats:      seats,
	})
	if err != nil {
		metrics.Bookings.WithLabelValues(apperr.KindOf(err).String()).Inc()
		httpx.Error(w, r, err)
		return
	}
	metrics.Bookings.WithLabelValues("confirmed").Inc()

	httpx.Created(w, httpx.Envelope{
		"message":         "Booking Confirmed!",
		"ticket_id":       rc.Booking.ID,
		"seats":           rc.Booking.Seats,
		"total_cost":      rc.Booking.TotalCost,
		"remaining_seats": rc.RemainingSeats,
		"driver": map[string]any{
			"name":         rc.Driver.Name,
			"phone":        rc.Driver.Phone,
			"email":        rc.Driver.Email,
			"vehicle":      rc.Driver.VehicleNumber,
			"vehicle_type": rc.Driver.VehicleType,
		},
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	b, remaining, err := h.svc.CancelBooking(r.Context(), req.TicketID, req.UserID, contact.FromFields(req.Phone, req.Email))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	metrics.Bookings.WithLabelValues("cancelled").Inc()
	httpx.Success(w, httpx.Envelope{
		"message":         "Booking Cancelled",
		"ticket_id":       b.ID,
		"remaining_seats": remaining,
	})
}

func (h *Handler) UserBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tickets, err := h.svc.GetUserBookings(r.Context(), q.Get("user_id"), contact.FromFields(q.Get("phone"), q.Get("email")))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, map[string]any{
			"ticket_id":    t.ID,
			"trip_id":      t.TripID,
			"source":       t.SourceCity,
			"destination":  t.DestinationCity,
			"start_time":   t.StartTime.Format(time.RFC3339),
			"driver_name":  t.DriverName,
			"driver_phone": t.DriverPhone,
			"vehicle":      t.VehicleNumber,
			"seats":        t.Seats,
			"total_cost":   t.TotalCost,
			"status":       t.Status,
			"booking_date": t.BookedAt.Format(time.RFC3339),
		})
	}
	httpx.Success(w, httpx.Envelope{"bookings": out, "count": len(out)})
}

// TripBookings serves both the revenue and the passenger views of a trip.
func (h *Handler) TripBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	driver := contact.FromFields(q.Get("driver_phone"), q.Get("driver_email"))
	passengers, err := h.svc.GetTripPassengers(r.Context(), q.Get("trip_id"), driver)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(passengers))
	var seats int
	var revenue float64
	for _, p := range passengers {
		out = append(out, map[string]any{
			"ticket_id":    p.BookingID,
			"customer":     p.Name,
			"phone":        p.Phone,
			"email":        p.Email,
			"seats":        p.Seats,
			"revenue":      p.Revenue,
			"status":       p.Status,
			"booking_date": p.BookedAt.Format(time.RFC3339),
		})
		if p.Status == StatusConfirmed {
			seats += p.Seats
			revenue += p.Revenue
		}
	}
	httpx.Success(w, httpx.Envelope{
		"bookings":      out,
		"passengers":    out,
		"seats_booked":  seats,
		"total_revenue": trips.RoundCents(revenue),
	})
}
