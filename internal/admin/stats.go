package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, listings, bids, bookings, transfers int
	var circulating int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&listings)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM bids`).Scan(&bids)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&bookings)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&transfers)
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM wallets`).Scan(&circulating)

	return c.JSON(http.StatusOK, echo.Map{
		"users":              users,
		"listings":           listings,
		"bids":               bids,
		"bookings":           bookings,
		"transfers":          transfers,
		"circulating_tokens": circulating,
	})
}
