package seatfeed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, tripID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trips/" + tripID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitSubscribers(t *testing.T, h *Hub, tripID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(tripID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", h.Subscribers(tripID), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readUpdate(t *testing.T, ws *websocket.Conn) Update {
	t.Helper()
	var u Update
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&u); err != nil {
		t.Fatalf("read: %v", err)
	}
	return u
}

func TestSeatsChangedReachesSubscribers(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	a := dial(t, srv, "trip-1")
	b := dial(t, srv, "trip-1")
	other := dial(t, srv, "trip-2")
	waitSubscribers(t, h, "trip-1", 2)
	waitSubscribers(t, h, "trip-2", 1)

	h.SeatsChanged("trip-1", 2)
	for _, ws := range []*websocket.Conn{a, b} {
		u := readUpdate(t, ws)
		if u.TripID != "trip-1" || u.RemainingSeats != 2 || u.Status != StatusOpen {
			t.Errorf("update = %+v", u)
		}
	}

	h.SeatsChanged("trip-1", 0)
	if u := readUpdate(t, a); u.Status != StatusFull {
		t.Errorf("status = %s, want FULL", u.Status)
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("trip-2 subscriber received a trip-1 update")
	}
}

func TestTripClosedDropsSubscribers(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	ws := dial(t, srv, "trip-1")
	waitSubscribers(t, h, "trip-1", 1)

	h.TripClosed("trip-1")
	if u := readUpdate(t, ws); u.Status != StatusClosed {
		t.Errorf("status = %s, want CLOSED", u.Status)
	}
	if n := h.Subscribers("trip-1"); n != 0 {
		t.Errorf("subscribers after close = %d", n)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("connection still open after TripClosed")
	}
}

func TestSeatsChangedDoesNotWaitForSlowClients(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	// Never reads, so its socket buffers fill up.
	dial(t, srv, "trip-1")
	waitSubscribers(t, h, "trip-1", 1)

	start := time.Now()
	for i := 0; i < 20000; i++ {
		h.SeatsChanged("trip-1", i%4)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("20000 pushes took %v with a stalled subscriber", d)
	}
}
