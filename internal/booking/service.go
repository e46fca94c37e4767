// Package booking implements service reservations with a confirm-then-pay
// flow. Payment is the only step that moves tokens, and it is idempotent:
// retrying a paid booking returns the recorded outcome instead of charging
// again.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/futuretrendsent/zaryo-market/internal/ledger"
	"github.com/futuretrendsent/zaryo-market/internal/metrics"
	"github.com/futuretrendsent/zaryo-market/internal/model"
	"github.com/futuretrendsent/zaryo-market/internal/realtime"
	"github.com/futuretrendsent/zaryo-market/internal/store"
)

type Service struct {
	store  store.Store
	ledger *ledger.Service
	feed   *realtime.Feed
}

func NewService(st store.Store, lg *ledger.Service, feed *realtime.Feed) *Service {
	return &Service{store: st, ledger: lg, feed: feed}
}

type RequestInput struct {
	ListingID   string
	RequesterID string
	BookingDate time.Time
	Duration    string
	Message     string
}

// Request creates a pending booking against a service listing. The price is
// captured now so a later listing edit cannot change what the requester owes.
func (s *Service) Request(ctx context.Context, in RequestInput) (*model.Booking, error) {
	if len(in.Message) > model.MaxBidMessageLen {
		return nil, model.ErrMessageTooLong
	}
	listing, err := s.store.GetListing(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.Kind != model.ListingKindService {
		return nil, model.ErrNotServiceListing
	}
	if listing.OwnerID == in.RequesterID {
		return nil, model.ErrOwnListing
	}
	if listing.Status != model.ListingStatusActive {
		return nil, model.ErrListingNotActive
	}

	now := time.Now()
	booking := &model.Booking{
		ID:          uuid.New().String(),
		ListingID:   in.ListingID,
		RequesterID: in.RequesterID,
		ProviderID:  listing.OwnerID,
		BookingDate: in.BookingDate,
		Duration:    in.Duration,
		Message:     in.Message,
		Amount:      listing.Price,
		Status:      model.BookingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.publish(booking, "insert")
	return booking, nil
}

// Confirm moves a pending booking to confirmed. Provider only.
func (s *Service) Confirm(ctx context.Context, providerID, bookingID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, func(b *model.Booking) error {
		if b.ProviderID != providerID {
			return model.ErrNotParticipant
		}
		if b.Status != model.BookingStatusPending {
			return model.ErrBookingNotPending
		}
		b.Status = model.BookingStatusConfirmed
		return nil
	})
}

// Pay charges the requester for a confirmed booking. The transfer and the
// status change commit together; the booking id doubles as the idempotency
// reference, so a retried call after success finds the booking already paid
// and returns it unchanged.
func (s *Service) Pay(ctx context.Context, requesterID, bookingID string) (*model.Booking, error) {
	var out *model.Booking
	var charged bool
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.store.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RequesterID != requesterID {
			return model.ErrNotParticipant
		}
		if b.Status == model.BookingStatusPaid || b.Status == model.BookingStatusCompleted {
			out = b
			return nil
		}
		if b.Status != model.BookingStatusConfirmed {
			return model.ErrBookingNotConfirmed
		}

		_, err = s.ledger.Transfer(ctx, b.RequesterID, b.ProviderID, b.Amount,
			model.TransferKindBooking, "booking:"+b.ID)
		if err != nil {
			if errors.Is(err, model.ErrInsufficientBalance) {
				return model.ErrInsufficientTokens
			}
			return &model.TransferFailedError{Err: err}
		}
		if err := s.store.MarkBookingPaid(ctx, b.ID, b.Amount); err != nil {
			return err
		}
		b.Status = model.BookingStatusPaid
		b.TokensPaid = b.Amount
		out = b
		charged = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if charged {
		metrics.BookingPaymentsTotal.Inc()
		s.publish(out, "update")
	}
	return out, nil
}

// Complete closes out a paid booking. Provider only.
func (s *Service) Complete(ctx context.Context, providerID, bookingID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, func(b *model.Booking) error {
		if b.ProviderID != providerID {
			return model.ErrNotParticipant
		}
		if b.Status != model.BookingStatusPaid {
			return model.ErrBookingNotPaid
		}
		b.Status = model.BookingStatusCompleted
		return nil
	})
}

// Cancel is open to either side before payment. Paid bookings cannot be
// cancelled; there are no refunds in the ledger.
func (s *Service) Cancel(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	return s.transition(ctx, bookingID, func(b *model.Booking) error {
		if b.RequesterID != userID && b.ProviderID != userID {
			return model.ErrNotParticipant
		}
		if b.Status != model.BookingStatusPending && b.Status != model.BookingStatusConfirmed {
			return model.ErrBookingNotCancellable
		}
		b.Status = model.BookingStatusCancelled
		return nil
	})
}

func (s *Service) transition(ctx context.Context, bookingID string, apply func(*model.Booking) error) (*model.Booking, error) {
	var out *model.Booking
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.store.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := apply(b); err != nil {
			return err
		}
		if err := s.store.SetBookingStatus(ctx, b.ID, b.Status); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(out, "update")
	return out, nil
}

func (s *Service) publish(b *model.Booking, action string) {
	if s.feed == nil {
		return
	}
	ev := realtime.Event{Table: "bookings", Action: action, ID: b.ID, ListingID: b.ListingID}
	s.feed.Publish(realtime.BookingsTopic(b.RequesterID), ev)
	s.feed.Publish(realtime.BookingsTopic(b.ProviderID), ev)
}

// Get returns a booking if the caller is the requester or the provider.
func (s *Service) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RequesterID != userID && b.ProviderID != userID {
		return nil, model.ErrNotParticipant
	}
	return b, nil
}

// ListMine returns bookings the user requested and bookings on their listings.
func (s *Service) ListMine(ctx context.Context, userID string) (requested, providing []model.Booking, err error) {
	requested, err = s.store.ListBookingsByRequester(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	providing, err = s.store.ListBookingsByProvider(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return requested, providing, nil
}
