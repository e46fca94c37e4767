// Package store defines the persistence interface for the settlement core:
// wallets, the transfer ledger, bids and bookings. Implementations include
// PostgreSQL (source of truth), a Redis read-through cache wrapper, and
// in-memory (for testing).
//
// Catalog search and admin reporting queries live with their handlers; the
// interface here covers only the operations the consistency-sensitive
// services need.
package store

import (
	"context"
	"time"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

// Store is the persistence interface. WithTx runs fn atomically: every
// store call made with the ctx it passes joins the same transaction, and an
// error from fn rolls the whole unit back. Nested WithTx calls join the
// enclosing transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// --- Profiles ---

	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)

	// --- Wallets ---

	CreateWallet(ctx context.Context, userID string) error
	WalletBalance(ctx context.Context, userID string) (int64, error)
	// WalletBalanceForUpdate locks the wallet row for the duration of the
	// enclosing transaction.
	WalletBalanceForUpdate(ctx context.Context, userID string) (int64, error)
	AdjustBalance(ctx context.Context, userID string, delta int64) error

	// --- Transfer ledger ---

	// GetTransferByReference returns nil, nil when no transfer holds the
	// reference. The reference column is unique, which backs idempotency.
	GetTransferByReference(ctx context.Context, reference string) (*model.Transfer, error)
	InsertTransfer(ctx context.Context, t *model.Transfer) error
	ListTransfersByUser(ctx context.Context, userID string) ([]model.Transfer, error)

	// --- Listings ---

	InsertListing(ctx context.Context, l *model.Listing) error
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	GetListingForUpdate(ctx context.Context, id string) (*model.Listing, error)
	UpdateListingStatus(ctx context.Context, id, status string) error
	// RefreshListingBidStats recomputes bid_count and highest_bid from the
	// pending and accepted bids on the listing.
	RefreshListingBidStats(ctx context.Context, id string) error

	// --- Bids ---

	InsertBid(ctx context.Context, b *model.Bid) error
	GetBid(ctx context.Context, id string) (*model.Bid, error)
	GetBidForUpdate(ctx context.Context, id string) (*model.Bid, error)
	ListBidsByListing(ctx context.Context, listingID string) ([]model.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	// HighestActiveBid returns the largest pending or accepted bid amount,
	// or zero when none exists.
	HighestActiveBid(ctx context.Context, listingID string) (int64, error)
	MarkBidAccepted(ctx context.Context, id string, at time.Time) error
	MarkBidRejected(ctx context.Context, id string) error
	// RejectPendingBidsExcept rejects every pending bid on the listing other
	// than bidID and returns the ids it touched.
	RejectPendingBidsExcept(ctx context.Context, listingID, bidID string) ([]string, error)

	// --- Bookings ---

	InsertBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	GetBookingForUpdate(ctx context.Context, id string) (*model.Booking, error)
	SetBookingStatus(ctx context.Context, id, status string) error
	MarkBookingPaid(ctx context.Context, id string, tokensPaid int64) error
	ListBookingsByRequester(ctx context.Context, userID string) ([]model.Booking, error)
	ListBookingsByProvider(ctx context.Context, userID string) ([]model.Booking, error)
}
