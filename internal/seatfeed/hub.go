package seatfeed

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame statuses pushed to subscribers.
const (
	StatusOpen   = "OPEN"
	StatusFull   = "FULL"
	StatusClosed = "CLOSED"
)

// Update is the frame pushed to subscribers of a trip.
type Update struct {
	TripID         string `json:"trip_id"`
	RemainingSeats int    `json:"remaining_seats"`
	Status         string `json:"status"`
	TS             int64  `json:"ts"`
}

const (
	writeWait = 5 * time.Second
	sendQueue = 16
)

// subscriber owns one WebSocket. Its writer goroutine is the only one
// touching the connection for writes; frames that do not fit send are
// dropped.
type subscriber struct {
	ws   *websocket.Conn
	send chan Update

	mu   sync.Mutex
	done bool
}

func newSubscriber(ws *websocket.Conn) *subscriber {
	s := &subscriber{ws: ws, send: make(chan Update, sendQueue)}
	go s.writeLoop()
	return s
}

func (s *subscriber) writeLoop() {
	defer s.ws.Close()
	for u := range s.send {
		_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.ws.WriteJSON(u); err != nil {
			log.Printf("[seatfeed] write error: %v", err)
			return
		}
	}
}

// push queues u without blocking.
func (s *subscriber) push(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	select {
	case s.send <- u:
		return true
	default:
		return false
	}
}

// close stops the writer once queued frames are flushed.
func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.send)
	}
}

// Hub fans seat-count changes out to WebSocket clients watching a trip.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*subscriber
}

// NewHub creates a seat feed hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*subscriber)}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/trips/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a trip.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[seatfeed] upgrade error: %v", err)
		return
	}

	conn := newSubscriber(ws)
	h.add(tripID, conn)
	log.Debugf("[seatfeed] client subscribed to trip %s", tripID)

	// Block until the client disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(tripID, conn)
	conn.close()
	log.Debugf("[seatfeed] client left trip %s", tripID)
}

// SeatsChanged pushes the remaining seat count of a trip.
func (h *Hub) SeatsChanged(tripID string, remaining int) {
	status := StatusOpen
	if remaining <= 0 {
		status = StatusFull
	}
	h.broadcast(tripID, Update{TripID: tripID, RemainingSeats: remaining, Status: status, TS: time.Now().Unix()})
}

// TripClosed tells subscribers the trip is gone and drops them.
func (h *Hub) TripClosed(tripID string) {
	h.broadcast(tripID, Update{TripID: tripID, Status: StatusClosed, TS: time.Now().Unix()})

	h.mu.Lock()
	conns := h.conns[tripID]
	delete(h.conns, tripID)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Subscribers returns the number of clients watching a trip.
func (h *Hub) Subscribers(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[tripID])
}

func (h *Hub) broadcast(tripID string, u Update) {
	h.mu.RLock()
	conns := append([]*subscriber(nil), h.conns[tripID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if !c.push(u) {
			log.Debugf("[seatfeed] dropped %s frame for slow client on trip %s", u.Status, tripID)
		}
	}
}

func (h *Hub) add(tripID string, conn *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[tripID] = append(h.conns[tripID], conn)
}

func (h *Hub) remove(tripID string, conn *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[tripID]
	for i, c := range conns {
		if c == conn {
			h.conns[tripID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[tripID]) == 0 {
		delete(h.conns, tripID)
	}
}
