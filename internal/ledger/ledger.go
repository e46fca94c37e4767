// Package ledger is the only mutator of wallet balances. Every movement of
// Zaryo tokens goes through Transfer or Credit, which run as a single
// storage transaction: debit and credit land together or not at all, and
// each reference settles at most once.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/futuretrendsent/zaryo-market/internal/metrics"
	"github.com/futuretrendsent/zaryo-market/internal/model"
	"github.com/futuretrendsent/zaryo-market/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Transfer moves amount tokens from one wallet to another. Idempotent on
// reference: a retry returns the recorded transfer without touching
// balances again. Wallet rows are locked in sorted id order so two
// opposite-direction transfers between the same pair cannot deadlock.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64, kind, reference string) (*model.Transfer, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	if from == to {
		return nil, model.ErrSelfTransfer
	}

	start := time.Now()
	var out *model.Transfer
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.GetTransferByReference(ctx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		first, second := from, to
		if second < first {
			first, second = second, first
		}
		var fromBalance int64
		for _, id := range []string{first, second} {
			bal, err := s.store.WalletBalanceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if id == from {
				fromBalance = bal
			}
		}
		if fromBalance < amount {
			return model.ErrInsufficientBalance
		}

		if err := s.store.AdjustBalance(ctx, from, -amount); err != nil {
			return err
		}
		if err := s.store.AdjustBalance(ctx, to, amount); err != nil {
			return err
		}

		f := from
		t := &model.Transfer{
			ID:         uuid.New().String(),
			FromUserID: &f,
			ToUserID:   to,
			Amount:     amount,
			Kind:       kind,
			Reference:  reference,
			CreatedAt:  time.Now(),
		}
		if err := s.store.InsertTransfer(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if errors.Is(err, model.ErrDuplicateReference) {
		// Lost a race with a concurrent retry; the winner's record stands.
		return s.recorded(ctx, reference)
	}
	if err != nil {
		return nil, err
	}

	metrics.TransfersTotal.WithLabelValues(kind).Inc()
	metrics.TransferLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return out, nil
}

// Credit adds purchased tokens to a wallet. Same idempotency contract as
// Transfer, with no debit side.
func (s *Service) Credit(ctx context.Context, to string, amount int64, reference string) (*model.Transfer, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	var out *model.Transfer
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.GetTransferByReference(ctx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		if _, err := s.store.WalletBalanceForUpdate(ctx, to); err != nil {
			return err
		}
		if err := s.store.AdjustBalance(ctx, to, amount); err != nil {
			return err
		}

		t := &model.Transfer{
			ID:        uuid.New().String(),
			ToUserID:  to,
			Amount:    amount,
			Kind:      model.TransferKindPurchase,
			Reference: reference,
			CreatedAt: time.Now(),
		}
		if err := s.store.InsertTransfer(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if errors.Is(err, model.ErrDuplicateReference) {
		return s.recorded(ctx, reference)
	}
	if err != nil {
		return nil, err
	}

	metrics.TransfersTotal.WithLabelValues(model.TransferKindPurchase).Inc()
	return out, nil
}

func (s *Service) recorded(ctx context.Context, reference string) (*model.Transfer, error) {
	t, err := s.store.GetTransferByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.ErrDuplicateReference
	}
	return t, nil
}

// BalanceOf reads a wallet balance through the store (and its cache).
func (s *Service) BalanceOf(ctx context.Context, userID string) (int64, error) {
	return s.store.WalletBalance(ctx, userID)
}

// History lists every transfer touching the user, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]model.Transfer, error) {
	return s.store.ListTransfersByUser(ctx, userID)
}
