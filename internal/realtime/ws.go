package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serve attaches the connection to the topic hub and blocks on the read
// loop. Client messages are discarded; the protocol is server push only.
func (f *Feed) serve(c echo.Context, topic string) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h := f.getHub(topic)
	h.register(ws)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.unregister(ws)
			_ = ws.Close()
			break
		}
	}
	return nil
}

// ListingBidsWS - websocket for realtime bid updates on a listing
func (f *Feed) ListingBidsWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := c.Param("id")
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing listing id"})
	}
	return f.serve(c, ListingBidsTopic(listingID))
}

// BookingsWS - websocket for realtime updates on the caller's bookings
func (f *Feed) BookingsWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return f.serve(c, BookingsTopic(userID))
}
