package trips

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"rath-service/internal/apperr"
	"rath-service/internal/contact"
	"rath-service/internal/httpx"
	"rath-service/internal/matching"
	"rath-service/internal/metrics"
)

// Handler exposes trip HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the trip service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the trip routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/create-trip", h.Create)
	r.Post("/delete-trip", h.Delete)
	r.Get("/get-driver-trips", h.ListForDriver)
	r.Get("/search-trips", h.Search)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	start, err := parseStartTime(req.StartTime)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	t, err := h.svc.CreateTrip(r.Context(), NewTrip{
		Driver:           contact.FromFields(req.DriverPhone, req.DriverEmail),
		SourceCity:       req.SourceCity,
		DestinationCity:  req.DestinationCity,
		Source:           matching.Point{Lat: req.SourceLat, Lng: req.SourceLng},
		Destination:      matching.Point{Lat: req.DestLat, Lng: req.DestLng},
		StartTime:        start,
		PricePerSeat:     req.Price,
		Seats:            req.Seats,
		IsFullCarBooking: req.IsFullCarBooking,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	metrics.TripsPosted.Inc()

	httpx.Created(w, httpx.Envelope{
		"message":         "Trip Created!",
		"trip_id":         t.ID,
		"available_seats": t.AvailableSeats,
		"start_time":      t.StartTime.Format(time.RFC3339),
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), req.TripID, contact.FromFields(req.DriverPhone, req.DriverEmail)); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, httpx.Envelope{"message": "Trip deleted"})
}

func (h *Handler) ListForDriver(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	driver := contact.FromFields(firstOf(q.Get("phone"), q.Get("driver_phone")), firstOf(q.Get("email"), q.Get("driver_email")))
	if driver.IsZero() {
		httpx.Error(w, r, apperr.Validation("phone or email is required"))
		return
	}

	list, err := h.svc.ListDriverTrips(r.Context(), driver)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	trips := make([]map[string]any, 0, len(list))
	for _, t := range list {
		trips = append(trips, map[string]any{
			"trip_id":             t.ID,
			"source":              t.SourceCity,
			"destination":         t.DestinationCity,
			"start_time":          t.StartTime.Format(time.RFC3339),
			"price":               t.PricePerSeat,
			"seats":               t.Capacity,
			"available_seats":     t.AvailableSeats,
			"is_full_car_booking": t.IsFullCarBooking,
			"status":              t.Status,
		})
	}
	httpx.Success(w, httpx.Envelope{"trips": trips, "count": len(trips)})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := Query{
		SourceCity:      q.Get("source"),
		DestinationCity: q.Get("destination"),
	}

	latRaw, lngRaw := q.Get("lat"), q.Get("lng")
	if latRaw != "" || lngRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lng, errLng := strconv.ParseFloat(lngRaw, 64)
		if errLat != nil || errLng != nil {
			httpx.Error(w, r, apperr.Validation("Please provide lat and lng"))
			return
		}
		query.Pickup = &matching.Point{Lat: lat, Lng: lng}
	}

	matches, err := h.svc.SearchTrips(r.Context(), query)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	results := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		results = append(results, map[string]any{
			"trip_id":             m.ID,
			"driver_name":         m.Driver.Name,
			"driver_phone":        m.Driver.Phone,
			"driver_email":        m.Driver.Email,
			"vehicle":             m.Driver.VehicleNumber,
			"vehicle_type":        m.Driver.VehicleType,
			"price":               m.PricePerSeat,
			"source":              m.SourceCity,
			"destination":         m.DestinationCity,
			"start_time":          m.StartTime.Format(time.RFC3339),
			"remaining_seats":     m.AvailableSeats,
			"is_full_car_booking": m.IsFullCarBooking,
			"route":               m.Route,
		})
	}
	httpx.Success(w, httpx.Envelope{"results": results, "count": len(results)})
}

// parseStartTime accepts RFC3339 or a local "2006-01-02 15:04" stamp.
func parseStartTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("start_time must be RFC3339")
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
