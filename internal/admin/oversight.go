package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
)

type AdminTransfer struct {
	ID         string    `json:"id"`
	FromUserID *string   `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Amount     int64     `json:"amount"`
	Kind       string    `json:"kind"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
}

// GET /admin/transfers returns the full ledger, newest first
func ListTransfers(c echo.Context) error {
	query := `SELECT id, from_user_id, to_user_id, amount, kind, reference, created_at
	          FROM transfers`
	var args []any
	if kind := c.QueryParam("kind"); kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transfers"})
	}
	defer rows.Close()

	var transfers []AdminTransfer
	for rows.Next() {
		var t AdminTransfer
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Kind, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transfer record"})
		}
		transfers = append(transfers, t)
	}
	return c.JSON(http.StatusOK, echo.Map{"transfers": transfers})
}

// GET /admin/transfers/user/:id
func ListUserTransfers(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, from_user_id, to_user_id, amount, kind, reference, created_at
		 FROM transfers
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch user transfers"})
	}
	defer rows.Close()

	var transfers []AdminTransfer
	for rows.Next() {
		var t AdminTransfer
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Kind, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transfer record"})
		}
		transfers = append(transfers, t)
	}
	return c.JSON(http.StatusOK, echo.Map{"transfers": transfers})
}

// GET /admin/bids
func ListBids(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT b.id, b.listing_id, b.bidder_id, b.amount, b.status, b.created_at, l.title
		 FROM bids b JOIN listings l ON l.id = b.listing_id
		 ORDER BY b.created_at DESC LIMIT 200`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch bids"})
	}
	defer rows.Close()

	var bids []map[string]interface{}
	for rows.Next() {
		var id, listingID, bidderID, status, title string
		var amount int64
		var createdAt time.Time
		if err := rows.Scan(&id, &listingID, &bidderID, &amount, &status, &createdAt, &title); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read bid record"})
		}
		bids = append(bids, map[string]interface{}{
			"id":            id,
			"listing_id":    listingID,
			"listing_title": title,
			"bidder_id":     bidderID,
			"amount":        amount,
			"status":        status,
			"created_at":    createdAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}

// GET /admin/bookings
func ListBookings(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, listing_id, requester_id, provider_id, amount, tokens_paid, status, booking_date, created_at
		 FROM bookings ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch bookings"})
	}
	defer rows.Close()

	var bookings []map[string]interface{}
	for rows.Next() {
		var id, listingID, requesterID, providerID, status string
		var amount, tokensPaid int64
		var bookingDate, createdAt time.Time
		if err := rows.Scan(&id, &listingID, &requesterID, &providerID, &amount, &tokensPaid, &status, &bookingDate, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read booking record"})
		}
		bookings = append(bookings, map[string]interface{}{
			"id":           id,
			"listing_id":   listingID,
			"requester_id": requesterID,
			"provider_id":  providerID,
			"amount":       amount,
			"tokens_paid":  tokensPaid,
			"status":       status,
			"booking_date": bookingDate,
			"created_at":   createdAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}
