package model

import "time"

// Roles assigned at signup; admin access is a separate flag, see Profile.IsAdmin.
const (
	RoleFan     = "fan"
	RoleCreator = "creator"
)

const (
	ListingKindContent = "content"
	ListingKindService = "service"
)

const (
	ListingStatusActive   = "active"
	ListingStatusSold     = "sold"
	ListingStatusArchived = "archived"
)

const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusPaid      = "paid"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

const (
	TransferKindBid      = "bid"
	TransferKindBooking  = "booking"
	TransferKindPurchase = "purchase"
)

// BidIncrement is the minimum step over the current highest bid, in Zaryo units.
const BidIncrement = 10

// MaxBidMessageLen bounds the optional message attached to a bid.
const MaxBidMessageLen = 500

// Profile is an account record. IsAdmin alone does not grant admin access;
// the email domain must also pass the allow-list check.
type Profile struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Wallet holds a user's Zaryo balance. Balance is mutated only through the
// ledger; handlers never write it directly.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing is a sellable unit: content takes bids, services take bookings.
// BidCount and HighestBid are denormalized from the bids table and refreshed
// whenever bids change.
type Listing struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Kind         string    `json:"kind"`
	Price        int64     `json:"price"`
	Status       string    `json:"status"`
	MediaURL     string    `json:"media_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Category     string    `json:"category,omitempty"`
	Location     string    `json:"location,omitempty"`
	BidCount     int       `json:"bid_count"`
	HighestBid   int64     `json:"highest_bid"`
	CreatedAt    time.Time `json:"created_at"`
}

// Bid is an offer on a content listing. Accepted and rejected are terminal.
type Bid struct {
	ID         string     `json:"id"`
	ListingID  string     `json:"listing_id"`
	BidderID   string     `json:"bidder_id"`
	Amount     int64      `json:"amount"`
	Message    string     `json:"message,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Booking reserves a service listing. Amount is the price at request time;
// TokensPaid is written exactly once, when the booking is paid.
type Booking struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	RequesterID string    `json:"requester_id"`
	ProviderID  string    `json:"provider_id"`
	BookingDate time.Time `json:"booking_date"`
	Duration    string    `json:"duration,omitempty"`
	Message     string    `json:"message,omitempty"`
	Amount      int64     `json:"amount"`
	TokensPaid  int64     `json:"tokens_paid"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transfer is an immutable ledger record. FromUserID is nil for purchase
// credits. Reference is the idempotency key: bid:<id>, booking:<id> or
// purchase:<id>; at most one transfer may exist per reference.
type Transfer struct {
	ID         string    `json:"id"`
	FromUserID *string   `json:"from_user_id,omitempty"`
	ToUserID   string    `json:"to_user_id"`
	Amount     int64     `json:"amount"`
	Kind       string    `json:"kind"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
}

// Purchase is a pending token top-up awaiting payment-processor settlement.
type Purchase struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// MinimumBid computes the lowest acceptable bid for a listing. Once any
// pending or accepted bid exists the floor rises by BidIncrement over the
// highest, never dropping below the asking price.
func MinimumBid(price, highest int64) int64 {
	if highest <= 0 {
		return price
	}
	min := highest + BidIncrement
	if min < price {
		min = price
	}
	return min
}
