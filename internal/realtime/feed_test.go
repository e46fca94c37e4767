package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// dialTopic connects a websocket client to a feed topic through a real
// HTTP server, the way a browser would.
func dialTopic(t *testing.T, f *Feed, topic string) (*websocket.Conn, func()) {
	t.Helper()
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return f.serve(c, topic)
	})
	srv := httptest.NewServer(e)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	// The handshake completes before the server registers the conn; wait
	// for the hub to know about it so a publish cannot race ahead.
	h := f.getHub(topic)
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.RLock()
		n := len(h.clients)
		h.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return ev
}

func TestPublishReachesSubscriber(t *testing.T) {
	f := New(nil)
	topic := ListingBidsTopic("l1")
	conn, cleanup := dialTopic(t, f, topic)
	defer cleanup()

	f.Publish(topic, Event{Table: "bids", Action: "insert", ID: "b1", ListingID: "l1"})

	ev := readEvent(t, conn)
	if ev.Table != "bids" || ev.Action != "insert" || ev.ID != "b1" || ev.ListingID != "l1" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestPublishIsTopicScoped(t *testing.T) {
	f := New(nil)
	conn, cleanup := dialTopic(t, f, ListingBidsTopic("l1"))
	defer cleanup()

	// A cue for a different listing must not arrive here.
	f.Publish(ListingBidsTopic("other"), Event{Table: "bids", Action: "insert", ID: "bx"})
	f.Publish(ListingBidsTopic("l1"), Event{Table: "bids", Action: "update", ID: "b1"})

	ev := readEvent(t, conn)
	if ev.ID != "b1" || ev.Action != "update" {
		t.Fatalf("got event for wrong topic: %+v", ev)
	}
}

func TestConcurrentPublishesDeliverAll(t *testing.T) {
	f := New(nil)
	topic := ListingBidsTopic("l1")
	conn, cleanup := dialTopic(t, f, topic)
	defer cleanup()

	// Writes to one connection must serialize even when publishers race.
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.Publish(topic, Event{Table: "bids", Action: "insert", ID: strconv.Itoa(i)})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		ev := readEvent(t, conn)
		seen[ev.ID] = true
	}
	if len(seen) != n {
		t.Fatalf("received %d distinct events, want %d", len(seen), n)
	}
}

func TestPublishWithoutSubscribersIsSafe(t *testing.T) {
	f := New(nil)
	f.Publish(BookingsTopic("nobody"), Event{Table: "bookings", Action: "update", ID: "x"})
}

func TestUnauthorizedWSRejected(t *testing.T) {
	f := New(nil)
	e := echo.New()
	e.GET("/ws/listings/:id/bids", f.ListingBidsWS)
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws/listings/l1/bids")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
