// Package catalog exposes listing management and browsing over the raw
// database pool.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
	"github.com/futuretrendsent/zaryo-market/internal/model"
)

type listingRow struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Kind         string    `json:"kind"`
	Price        int64     `json:"price"`
	Status       string    `json:"status"`
	MediaURL     *string   `json:"media_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Category     *string   `json:"category"`
	Location     *string   `json:"location"`
	BidCount     int       `json:"bid_count"`
	HighestBid   int64     `json:"highest_bid"`
	MinimumBid   int64     `json:"minimum_bid"`
	CreatedAt    time.Time `json:"created_at"`
}

const listingColumns = `id, owner_id, title, description, kind, price, status,
	media_url, thumbnail_url, category, location, bid_count, highest_bid, created_at`

func scanListing(row interface{ Scan(...any) error }) (*listingRow, error) {
	var l listingRow
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Kind, &l.Price,
		&l.Status, &l.MediaURL, &l.ThumbnailURL, &l.Category, &l.Location,
		&l.BidCount, &l.HighestBid, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.MinimumBid = model.MinimumBid(l.Price, l.HighestBid)
	return &l, nil
}

// CreateListing allows a creator to list content or a service
func CreateListing(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		Kind         string `json:"kind"`
		Price        int64  `json:"price"`
		MediaURL     string `json:"media_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Category     string `json:"category"`
		Location     string `json:"location"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and valid price are required"})
	}
	if req.Kind != model.ListingKindContent && req.Kind != model.ListingKindService {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be content or service"})
	}

	listingID := uuid.New().String()
	_, err := db.Conn.Exec(
		context.Background(),
		`INSERT INTO listings (id, owner_id, title, description, kind, price, status,
		       media_url, thumbnail_url, category, location, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8, $9, $10, $11)`,
		listingID, uid, req.Title, req.Description, req.Kind, req.Price,
		req.MediaURL, req.ThumbnailURL, req.Category, req.Location, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create listing"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"listing_id": listingID,
		"message":    "listing created successfully",
	})
}

// SearchListings returns active listings matching the optional filters
func SearchListings(c echo.Context) error {
	q := c.QueryParam("q")
	kind := c.QueryParam("kind")
	category := c.QueryParam("category")
	minPrice := c.QueryParam("min_price")
	maxPrice := c.QueryParam("max_price")
	sort := c.QueryParam("sort")
	limit := 20
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = 'active'`
	var args []any
	next := func() int { return len(args) + 1 }

	if q != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", next(), next()+1)
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}
	if kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", next())
		args = append(args, kind)
	}
	if category != "" {
		query += fmt.Sprintf(" AND category = $%d", next())
		args = append(args, category)
	}
	if minPrice != "" {
		query += fmt.Sprintf(" AND price >= $%d", next())
		args = append(args, minPrice)
	}
	if maxPrice != "" {
		query += fmt.Sprintf(" AND price <= $%d", next())
		args = append(args, maxPrice)
	}

	switch sort {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	case "most_bids":
		query += " ORDER BY bid_count DESC"
	case "oldest":
		query += " ORDER BY created_at ASC"
	default:
		query += " ORDER BY created_at DESC"
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next(), next()+1)
	args = append(args, limit, offset)

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch listings"})
	}
	defer rows.Close()

	var listings []listingRow
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse listing record"})
		}
		listings = append(listings, *l)
	}

	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

// GetListing returns a single listing with its current bid floor
func GetListing(c echo.Context) error {
	row := db.Conn.QueryRow(context.Background(),
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, c.Param("id"))
	l, err := scanListing(row)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listing": l})
}

// MyListings returns all listings created by the authenticated user
func MyListings(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch listings"})
	}
	defer rows.Close()

	var listings []listingRow
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse listing record"})
		}
		listings = append(listings, *l)
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

// UpdateListing edits an owned listing. Once any bid exists the price is
// locked so the floor bidders already measured against cannot move.
func UpdateListing(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID := c.Param("id")

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Price       *int64  `json:"price"`
		Category    *string `json:"category"`
		Location    *string `json:"location"`
		Status      *string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var ownerID, status string
	var bidCount int
	err := db.Conn.QueryRow(context.Background(),
		`SELECT owner_id, status, bid_count FROM listings WHERE id = $1`, listingID,
	).Scan(&ownerID, &status, &bidCount)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	if ownerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your listing"})
	}
	if status == model.ListingStatusSold {
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold listings cannot be edited"})
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
		}
		if bidCount > 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "price is locked once bids exist"})
		}
	}
	if req.Status != nil && *req.Status != model.ListingStatusActive && *req.Status != model.ListingStatusArchived {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or archived"})
	}

	query := "UPDATE listings SET id = id"
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	if req.Title != nil {
		add("title", *req.Title)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Price != nil {
		add("price", *req.Price)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.Location != nil {
		add("location", *req.Location)
	}
	if req.Status != nil {
		add("status", *req.Status)
	}
	if len(args) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	args = append(args, listingID)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	if _, err := db.Conn.Exec(context.Background(), query, args...); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update listing"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "listing updated"})
}
