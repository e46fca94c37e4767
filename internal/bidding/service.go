// Package bidding implements the bid lifecycle: submission against an
// active content listing, and owner-side resolution. Acceptance settles in
// one storage transaction (ledger transfer first, then the accepted mark,
// the rejection cascade and the listing status) so no intermediate state
// is ever visible to other readers.
package bidding

import (
	"context"
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

type PlaceInput struct {
	ListingID string
	BidderID  string
	Amount    int64
	Message   string
}

// Place validates and records a pending bid. The listing is re-read under
// its row lock inside the insert transaction, so a cached or stale copy can
// never admit a bid on a listing that just went inactive, and concurrent
// submissions measure the minimum against a settled highest bid. The
// balance check is informational only: no hold is taken, and the ledger
// re-validates at acceptance time.
func (s *Service) Place(ctx context.Context, in PlaceInput) (*model.Bid, error) {
	if in.Amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	if len(in.Message) > model.MaxBidMessageLen {
		return nil, model.ErrMessageTooLong
	}

	bid := &model.Bid{
		ID:        uuid.New().String(),
		ListingID: in.ListingID,
		BidderID:  in.BidderID,
		Amount:    in.Amount,
		Message:   in.Message,
		Status:    model.BidStatusPending,
		CreatedAt: time.Now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		listing, err := s.store.GetListingForUpdate(ctx, in.ListingID)
		if err != nil {
			return err
		}
		if listing.Kind != model.ListingKindContent {
			return model.ErrNotContentListing
		}
		if listing.OwnerID == in.BidderID {
			return model.ErrOwnListing
		}
		if listing.Status != model.ListingStatusActive {
			metrics.BidRejectionsTotal.WithLabelValues("listing_inactive").Inc()
			return model.ErrListingNotActive
		}

		highest, err := s.store.HighestActiveBid(ctx, in.ListingID)
		if err != nil {
			return err
		}
		min := model.MinimumBid(listing.Price, highest)
		if in.Amount < min {
			metrics.BidRejectionsTotal.WithLabelValues("too_low").Inc()
			return &model.BidTooLowError{Minimum: min}
		}

		balance, err := s.store.WalletBalance(ctx, in.BidderID)
		if err != nil {
			return err
		}
		if in.Amount > balance {
			metrics.BidRejectionsTotal.WithLabelValues("insufficient_balance").Inc()
			return model.ErrInsufficientBalance
		}

		if err := s.store.InsertBid(ctx, bid); err != nil {
			return err
		}
		return s.store.RefreshListingBidStats(ctx, in.ListingID)
	})
	if err != nil {
		return nil, err
	}

	metrics.BidsPlacedTotal.Inc()
	if s.feed != nil {
		s.feed.Publish(realtime.ListingBidsTopic(in.ListingID), realtime.Event{
			Table: "bids", Action: "insert", ID: bid.ID, ListingID: in.ListingID,
		})
	}
	return bid, nil
}

// SettleResult reports what an acceptance changed, for notifications.
type SettleResult struct {
	Accepted    *model.Bid
	RejectedIDs []string
	Transfer    *model.Transfer
}

// Accept settles the listing on the chosen bid. Preconditions are
// re-checked under row locks; the transfer runs first so a ledger failure
// aborts before any status changes, and everything after it commits as one
// unit. A second concurrent accept fails on the pending check.
func (s *Service) Accept(ctx context.Context, ownerID, bidID string) (*SettleResult, error) {
	var res SettleResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		bid, err := s.store.GetBidForUpdate(ctx, bidID)
		if err != nil {
			return err
		}
		listing, err := s.store.GetListingForUpdate(ctx, bid.ListingID)
		if err != nil {
			return err
		}
		if listing.OwnerID != ownerID {
			return model.ErrNotListingOwner
		}
		if bid.Status != model.BidStatusPending {
			return model.ErrBidNotPending
		}

		transfer, err := s.ledger.Transfer(ctx, bid.BidderID, ownerID, bid.Amount,
			model.TransferKindBid, "bid:"+bid.ID)
		if err != nil {
			return &model.TransferFailedError{Err: err}
		}

		now := time.Now()
		if err := s.store.MarkBidAccepted(ctx, bid.ID, now); err != nil {
			return err
		}
		rejected, err := s.store.RejectPendingBidsExcept(ctx, bid.ListingID, bid.ID)
		if err != nil {
			return err
		}
		if err := s.store.UpdateListingStatus(ctx, bid.ListingID, model.ListingStatusSold); err != nil {
			return err
		}
		if err := s.store.RefreshListingBidStats(ctx, bid.ListingID); err != nil {
			return err
		}

		bid.Status = model.BidStatusAccepted
		bid.AcceptedAt = &now
		res = SettleResult{Accepted: bid, RejectedIDs: rejected, Transfer: transfer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.Inc()
	if s.feed != nil {
		s.feed.Publish(realtime.ListingBidsTopic(res.Accepted.ListingID), realtime.Event{
			Table: "bids", Action: "update", ID: res.Accepted.ID, ListingID: res.Accepted.ListingID,
		})
	}
	return &res, nil
}

// Reject marks a pending bid rejected. No balance effect.
func (s *Service) Reject(ctx context.Context, ownerID, bidID string) (*model.Bid, error) {
	var out *model.Bid
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		bid, err := s.store.GetBidForUpdate(ctx, bidID)
		if err != nil {
			return err
		}
		listing, err := s.store.GetListingForUpdate(ctx, bid.ListingID)
		if err != nil {
			return err
		}
		if listing.OwnerID != ownerID {
			return model.ErrNotListingOwner
		}
		if err := s.store.MarkBidRejected(ctx, bid.ID); err != nil {
			return err
		}
		if err := s.store.RefreshListingBidStats(ctx, bid.ListingID); err != nil {
			return err
		}
		bid.Status = model.BidStatusRejected
		out = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.Publish(realtime.ListingBidsTopic(out.ListingID), realtime.Event{
			Table: "bids", Action: "update", ID: out.ID, ListingID: out.ListingID,
		})
	}
	return out, nil
}

// ListForListing returns the bids on one listing, highest first.
func (s *Service) ListForListing(ctx context.Context, listingID string) ([]model.Bid, error) {
	return s.store.ListBidsByListing(ctx, listingID)
}

// ListForBidder returns the caller's own bids.
func (s *Service) ListForBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return s.store.ListBidsByBidder(ctx, bidderID)
}
