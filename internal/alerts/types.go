package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail     = "email:welcome"
	TaskPasswordReset    = "email:password_reset"
	TaskBidPlaced        = "email:bid_placed"
	TaskBidAccepted      = "email:bid_accepted"
	TaskBidRejected      = "email:bid_rejected"
	TaskBookingRequested = "email:booking_requested"
	TaskBookingConfirmed = "email:booking_confirmed"
	TaskBookingPaid      = "email:booking_paid"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

type PasswordResetPayload struct {
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Bid event payload; the processor resolves recipient emails from the
// profile ids, so enqueue sites only carry identifiers.
type BidEventPayload struct {
	BidID     string    `json:"bid_id"`
	ListingID string    `json:"listing_id"`
	BidderID  string    `json:"bidder_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Booking event payload
type BookingEventPayload struct {
	BookingID   string    `json:"booking_id"`
	RecipientID string    `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	SentAt      time.Time `json:"sent_at"`
}
