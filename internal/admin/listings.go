package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
	"github.com/futuretrendsent/zaryo-market/internal/model"
)

type AdminListing struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	OwnerEmail string    `json:"owner_email"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	Price      int64     `json:"price"`
	Status     string    `json:"status"`
	BidCount   int       `json:"bid_count"`
	HighestBid int64     `json:"highest_bid"`
	CreatedAt  time.Time `json:"created_at"`
}

// GET /admin/listings
func ListListings(c echo.Context) error {
	query := `
		SELECT l.id, l.owner_id, p.email, l.title, l.kind, l.price, l.status,
		       l.bid_count, l.highest_bid, l.created_at
		FROM listings l
		JOIN profiles p ON p.id = l.owner_id`
	var args []any
	if status := c.QueryParam("status"); status != "" {
		query += ` WHERE l.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY l.created_at DESC`

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch listings"})
	}
	defer rows.Close()

	var listings []AdminListing
	for rows.Next() {
		var l AdminListing
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.OwnerEmail, &l.Title, &l.Kind, &l.Price,
			&l.Status, &l.BidCount, &l.HighestBid, &l.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read listing record"})
		}
		listings = append(listings, l)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

// ListingPatch is the admin edit payload. Nil fields are left untouched.
type ListingPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
}

func (p *ListingPatch) validate() error {
	if p.Price != nil && *p.Price <= 0 {
		return errors.New("price must be positive")
	}
	if p.Status != nil && *p.Status != model.ListingStatusActive && *p.Status != model.ListingStatusArchived {
		return errors.New("status must be active or archived")
	}
	if p.Title == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.Location == nil && p.Status == nil {
		return errors.New("nothing to update")
	}
	return nil
}

func (p *ListingPatch) buildQuery(listingID string) (string, []any) {
	query := "UPDATE listings SET id = id"
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	args = append(args, listingID)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))
	return query, args
}

// PATCH /admin/listings/:id edits any listing regardless of owner. Sold
// listings stay immutable; unlike the owner path, bids do not lock the
// price, since moderation may need to correct it.
func UpdateListing(c echo.Context) error {
	listingID := c.Param("id")
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var req ListingPatch
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var status string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT status FROM listings WHERE id = $1`, listingID).Scan(&status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if status == model.ListingStatusSold {
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold listings cannot be edited"})
	}

	query, args := req.buildQuery(listingID)
	if _, err := db.Conn.Exec(context.Background(), query, args...); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update listing"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "listing updated", "listing_id": listingID})
}

// POST /admin/listings/:id/archive takes a listing off the market without
// touching its bid history.
func ArchiveListing(c echo.Context) error {
	listingID := c.Param("id")
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}
	res, err := db.Conn.Exec(context.Background(),
		`UPDATE listings SET status = $1 WHERE id = $2 AND status <> $3`,
		model.ListingStatusArchived, listingID, model.ListingStatusSold)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to archive listing"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found or already sold"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "listing archived", "listing_id": listingID})
}

// DELETE /admin/listings/:id removes a listing entirely. Settled listings
// are refused; the transfer history must keep its subject.
func DeleteListing(c echo.Context) error {
	listingID := c.Param("id")
	if listingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing id required"})
	}

	var status string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT status FROM listings WHERE id = $1`, listingID).Scan(&status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if status == model.ListingStatusSold {
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold listings cannot be deleted"})
	}

	if _, err := db.Conn.Exec(context.Background(),
		`DELETE FROM listings WHERE id = $1`, listingID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete listing"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "listing deleted", "listing_id": listingID})
}
