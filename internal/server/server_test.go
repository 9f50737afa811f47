package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"rath-service/internal/accounts"
	"rath-service/internal/admin"
	"rath-service/internal/bookings"
	"rath-service/internal/contact"
	"rath-service/internal/documents"
	"rath-service/internal/events"
	"rath-service/internal/otp"
	"rath-service/internal/seatfeed"
	"rath-service/internal/server"
	"rath-service/internal/store/memory"
	"rath-service/internal/trips"
	"rath-service/pkg/jwt"
)

const adminPassword = "let-me-in"

var codePattern = regexp.MustCompile(`code is (\d{4})`)

type codeSender chan string

func (c codeSender) Send(_ context.Context, _ contact.Contact, _, body string) error {
	if m := codePattern.FindStringSubmatch(body); m != nil {
		c <- m[1]
	}
	return nil
}

type testServer struct {
	t     *testing.T
	h     http.Handler
	codes codeSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if err := jwt.Init("test-secret"); err != nil {
		t.Fatal(err)
	}
	hash, err := admin.HashPassword(adminPassword)
	if err != nil {
		t.Fatal(err)
	}

	mem := memory.New()
	hub := seatfeed.NewHub()
	codes := make(codeSender, 4)

	acctSvc := accounts.NewService(mem.Accounts())
	tripSvc := trips.NewService(mem.Trips(), acctSvc, events.Discard{}, hub)
	bookSvc := bookings.NewService(mem.Bookings(), tripSvc, acctSvc, events.Discard{}, hub)
	otpSvc := otp.NewService(otp.NewMemoryStore(), acctSvc, codes, 0)

	h := server.NewRouter(server.Deps{
		OTP:         otp.NewHandler(otpSvc),
		Accounts:    accounts.NewHandler(acctSvc, documents.NewDiskStore(t.TempDir(), "http://localhost")),
		Trips:       trips.NewHandler(tripSvc),
		Bookings:    bookings.NewHandler(bookSvc),
		Admin:       admin.NewHandler(acctSvc, hash),
		SeatFeed:    hub,
		CORSOrigins: []string{"*"},
	})
	return &testServer{t: t, h: h, codes: codes}
}

func (s *testServer) do(method, path string, body any, header ...string) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) expect(method, path string, body any, want int, header ...string) map[string]any {
	s.t.Helper()
	code, out := s.do(method, path, body, header...)
	if code != want {
		s.t.Fatalf("%s %s = %d %v, want %d", method, path, code, out, want)
	}
	return out
}

func (s *testServer) login(phone string) map[string]any {
	s.t.Helper()
	s.expect(http.MethodPost, "/send-otp", map[string]string{"phone": phone}, http.StatusOK)
	var code string
	select {
	case code = <-s.codes:
	case <-time.After(2 * time.Second):
		s.t.Fatal("no code dispatched")
	}
	return s.expect(http.MethodPost, "/verify-otp", map[string]string{"phone": phone, "otp": code}, http.StatusOK)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	out := s.expect(http.MethodGet, "/health", nil, http.StatusOK)
	if out["status"] != "ok" {
		t.Errorf("health = %v", out)
	}
}

func TestRideFlow(t *testing.T) {
	s := newTestServer(t)
	const (
		driverPhone   = "9000000001"
		customerPhone = "9111111111"
	)

	// Driver signs in for the first time and registers.
	if out := s.login(driverPhone); out["is_new_user"] != true {
		t.Fatalf("driver verify = %v, want new user", out)
	}
	s.expect(http.MethodPost, "/signup-driver", map[string]string{
		"phone": driverPhone, "fullName": "Kiran", "vehicleNumber": "KA01AB1234", "vehicleType": "sedan",
	}, http.StatusCreated)

	out := s.expect(http.MethodPost, "/check-phone", map[string]string{"phone": "+91" + driverPhone}, http.StatusOK)
	if out["exists"] != true || out["role"] != string(accounts.RoleDriver) || out["is_verified"] != false {
		t.Errorf("check-phone = %v", out)
	}
	out = s.expect(http.MethodGet, "/get-profile?phone="+driverPhone, nil, http.StatusOK)
	if out["account_status"] != string(accounts.StatusPendingReview) || out["vehicle_number"] != "KA01AB1234" {
		t.Errorf("profile = %v", out)
	}
	if out := s.expect(http.MethodPost, "/check-email", map[string]string{"email": "nobody@example.com"}, http.StatusOK); out["exists"] != false {
		t.Errorf("check-email = %v", out)
	}

	trip := map[string]any{
		"driver_phone": "+91 " + driverPhone, "source_city": "Bangalore", "destination_city": "Chennai",
		"source_lat": 12.97, "source_lng": 77.59, "dest_lat": 13.08, "dest_lng": 80.27,
		"price": 450, "seats": 2,
		"start_time": time.Now().Add(3 * time.Hour).UTC().Format(time.RFC3339),
	}
	out = s.expect(http.MethodPost, "/create-trip", trip, http.StatusForbidden)
	if out["message"] != trips.ErrDriverNotVerified.Message {
		t.Errorf("unverified create = %v", out)
	}

	// Admin approves the driver.
	s.expect(http.MethodPost, "/admin/approve-driver", map[string]string{"phone": driverPhone}, http.StatusUnauthorized)
	s.expect(http.MethodPost, "/admin/login", map[string]string{"password": "wrong"}, http.StatusForbidden)
	token := s.expect(http.MethodPost, "/admin/login", map[string]string{"password": adminPassword}, http.StatusOK)["token"].(string)
	out = s.expect(http.MethodPost, "/admin/approve-driver", map[string]string{"phone": driverPhone}, http.StatusOK,
		"Authorization", "Bearer "+token)
	if out["is_verified"] != true {
		t.Fatalf("approve = %v", out)
	}

	out = s.expect(http.MethodPost, "/create-trip", trip, http.StatusCreated)
	tripID := out["trip_id"].(string)

	// Customer signs up, searches and books.
	s.login(customerPhone)
	s.expect(http.MethodPost, "/signup-customer", map[string]string{"phone": customerPhone, "name": "Asha"}, http.StatusCreated)
	if out := s.login(customerPhone); out["exists"] != true || out["role"] != string(accounts.RoleCustomer) {
		t.Errorf("returning customer verify = %v", out)
	}

	out = s.expect(http.MethodGet, "/search-trips?source=BANGALORE&lat=13.007&lng=78.48", nil, http.StatusOK)
	if out["count"].(float64) != 1 {
		t.Fatalf("search = %v", out)
	}
	s.expect(http.MethodGet, "/search-trips?lat=13.0", nil, http.StatusBadRequest)

	out = s.expect(http.MethodPost, "/book-seat", map[string]any{"trip_id": tripID, "phone": customerPhone, "seats": 2}, http.StatusCreated)
	if out["remaining_seats"].(float64) != 0 || out["total_cost"].(float64) != 900 {
		t.Errorf("booking = %v", out)
	}
	ticket := out["ticket_id"].(string)

	out = s.expect(http.MethodPost, "/book-seat", map[string]any{"trip_id": tripID, "phone": customerPhone}, http.StatusBadRequest)
	if out["message"] != "Not enough seats!" {
		t.Errorf("oversell = %v", out)
	}

	out = s.expect(http.MethodGet, "/search-trips", nil, http.StatusOK)
	if out["count"].(float64) != 0 {
		t.Errorf("full trip still listed: %v", out)
	}

	// Driver views revenue; others cannot.
	q := url.Values{"trip_id": {tripID}, "driver_phone": {driverPhone}}
	out = s.expect(http.MethodGet, "/get-trip-bookings?"+q.Encode(), nil, http.StatusOK)
	if out["seats_booked"].(float64) != 2 || out["total_revenue"].(float64) != 900 {
		t.Errorf("trip bookings = %v", out)
	}
	q.Set("driver_phone", customerPhone)
	s.expect(http.MethodGet, "/get-trip-passengers?"+q.Encode(), nil, http.StatusNotFound)

	out = s.expect(http.MethodGet, "/get-user-bookings?phone="+customerPhone, nil, http.StatusOK)
	if out["count"].(float64) != 1 {
		t.Errorf("user bookings = %v", out)
	}

	out = s.expect(http.MethodPost, "/cancel-booking", map[string]string{"ticket_id": ticket, "phone": customerPhone}, http.StatusOK)
	if out["remaining_seats"].(float64) != 2 {
		t.Errorf("cancel = %v", out)
	}

	// Only the owner may delete.
	s.expect(http.MethodPost, "/delete-trip", map[string]string{"trip_id": tripID, "driver_phone": customerPhone}, http.StatusForbidden)
	s.expect(http.MethodPost, "/delete-trip", map[string]string{"trip_id": tripID, "driver_phone": driverPhone}, http.StatusOK)
	s.expect(http.MethodPost, "/delete-trip", map[string]string{"trip_id": tripID, "driver_phone": driverPhone}, http.StatusNotFound)
}

func TestVerifyOTPErrors(t *testing.T) {
	s := newTestServer(t)

	s.expect(http.MethodPost, "/verify-otp", map[string]string{"phone": "9000000001", "otp": "1234"}, http.StatusNotFound)
	s.expect(http.MethodPost, "/send-otp", map[string]string{}, http.StatusBadRequest)
	s.expect(http.MethodPost, "/send-otp-email", map[string]string{"email": "not-an-email"}, http.StatusBadRequest)

	s.expect(http.MethodPost, "/send-otp", map[string]string{"phone": "9000000001"}, http.StatusOK)
	<-s.codes
	s.expect(http.MethodPost, "/verify-otp", map[string]string{"phone": "9000000001", "otp": "0"}, http.StatusBadRequest)
}
