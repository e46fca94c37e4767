// Package realtime pushes change cues to connected clients. Events carry
// only the table, action and record ids; they are a signal to re-read
// current state, never authoritative data. With Redis configured, events
// fan out across instances via pub/sub; without it, broadcast is local.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/futuretrendsent/zaryo-market/internal/metrics"
)

const channelPrefix = "feed:"

// Event is a change cue for one record.
type Event struct {
	Table     string `json:"table"`
	Action    string `json:"action"`
	ID        string `json:"id,omitempty"`
	ListingID string `json:"listing_id,omitempty"`
}

// client wraps a connection with a write lock; gorilla/websocket allows
// at most one concurrent writer per connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

func (h *hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cl := range h.clients {
		_ = cl.write(payload)
	}
}

func (h *hub) register(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = &client{conn: c}
	h.mu.Unlock()
	metrics.WebSocketClients.Inc()
}

func (h *hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.WebSocketClients.Dec()
	}
	h.mu.Unlock()
}

// Feed owns the topic hubs and the optional Redis bridge.
type Feed struct {
	mu   sync.RWMutex
	hubs map[string]*hub
	rdb  *redis.Client
}

// New creates a Feed. rdb may be nil, in which case events only reach
// clients connected to this process.
func New(rdb *redis.Client) *Feed {
	f := &Feed{hubs: make(map[string]*hub), rdb: rdb}
	if rdb != nil {
		go f.listen()
	}
	return f
}

func (f *Feed) getHub(topic string) *hub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.hubs[topic]; ok {
		return h
	}
	h := &hub{clients: make(map[*websocket.Conn]*client)}
	f.hubs[topic] = h
	return h
}

// Publish sends a change cue to every subscriber of the topic. Best effort:
// a failed publish is logged and dropped, consumers re-read on their next
// action anyway.
func (f *Feed) Publish(topic string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if f.rdb != nil {
		// Local delivery happens in listen when the message comes back.
		if err := f.rdb.Publish(context.Background(), channelPrefix+topic, payload).Err(); err != nil {
			log.Printf("feed publish failed (topic=%s): %v", topic, err)
			f.getHub(topic).broadcast(payload)
		}
		return
	}
	f.getHub(topic).broadcast(payload)
}

// listen bridges Redis pub/sub messages back into local hubs.
func (f *Feed) listen() {
	sub := f.rdb.PSubscribe(context.Background(), channelPrefix+"*")
	defer sub.Close()
	for msg := range sub.Channel() {
		topic := strings.TrimPrefix(msg.Channel, channelPrefix)
		f.getHub(topic).broadcast([]byte(msg.Payload))
	}
}

// ListingBidsTopic is the channel for bid changes on one listing.
func ListingBidsTopic(listingID string) string { return "listing-bids:" + listingID }

// BookingsTopic is the per-user channel for booking changes.
func BookingsTopic(userID string) string { return "bookings:" + userID }
