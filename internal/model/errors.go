package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrInvalidAmount       = errors.New("amount must be a positive number of tokens")
	ErrSelfTransfer        = errors.New("cannot transfer tokens to yourself")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientTokens  = errors.New("insufficient tokens")

	ErrListingNotActive  = errors.New("listing is no longer active")
	ErrNotContentListing = errors.New("bids can only be placed on content listings")
	ErrNotServiceListing = errors.New("bookings can only be made on service listings")
	ErrOwnListing        = errors.New("cannot bid on or book your own listing")
	ErrMessageTooLong    = errors.New("message exceeds maximum length")
	ErrPriceLockedByBids = errors.New("price cannot change while bids exist")

	ErrBidNotPending         = errors.New("bid is not pending")
	ErrBookingNotPending     = errors.New("booking is not pending")
	ErrBookingNotConfirmed   = errors.New("booking is not confirmed")
	ErrBookingNotPaid        = errors.New("booking is not paid")
	ErrBookingNotCancellable = errors.New("booking can no longer be cancelled")

	ErrNotListingOwner = errors.New("only the listing owner may do this")
	ErrNotParticipant  = errors.New("not a participant in this record")

	// ErrDuplicateReference surfaces a unique-constraint hit on the transfer
	// reference; the ledger resolves it by re-reading the recorded transfer.
	ErrDuplicateReference = errors.New("transfer reference already recorded")
)

// BidTooLowError reports the minimum the caller must meet.
type BidTooLowError struct {
	Minimum int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %d Zaryo tokens", e.Minimum)
}

// TransferFailedError wraps a ledger failure during settlement. The
// surrounding transaction is rolled back, so no record state changed.
type TransferFailedError struct {
	Err error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("token transfer failed: %v", e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }

// ErrorStatus maps domain errors to HTTP status codes at the handler
// boundary. Unknown errors are treated as internal failures.
func ErrorStatus(err error) int {
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		return http.StatusBadRequest
	}
	var failed *TransferFailedError
	if errors.As(err, &failed) {
		return ErrorStatus(failed.Err)
	}
	switch {
	case errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrBidNotFound),
		errors.Is(err, ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotListingOwner),
		errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrBidNotPending),
		errors.Is(err, ErrBookingNotPending),
		errors.Is(err, ErrBookingNotConfirmed),
		errors.Is(err, ErrBookingNotPaid),
		errors.Is(err, ErrBookingNotCancellable),
		errors.Is(err, ErrListingNotActive),
		errors.Is(err, ErrPriceLockedByBids),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientTokens),
		errors.Is(err, ErrNotContentListing),
		errors.Is(err, ErrNotServiceListing),
		errors.Is(err, ErrOwnListing),
		errors.Is(err, ErrMessageTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
