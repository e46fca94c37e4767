package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/futuretrendsent/zaryo-market/internal/model"
	"github.com/futuretrendsent/zaryo-market/internal/store"
)

func seedWallet(t *testing.T, st store.Store, balance int64) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	err := st.CreateProfile(ctx, &model.Profile{
		ID: id, Email: id[:8] + "@example.com", Role: model.RoleFan,
		IsActive: true, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := st.CreateWallet(ctx, id); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	if balance > 0 {
		if err := st.AdjustBalance(ctx, id, balance); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return id
}

func TestTransferMovesBalance(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	from := seedWallet(t, st, 300)
	to := seedWallet(t, st, 0)

	tr, err := svc.Transfer(ctx, from, to, 120, model.TransferKindBid, "bid:t1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tr.Amount != 120 || tr.Kind != model.TransferKindBid || tr.Reference != "bid:t1" {
		t.Fatalf("transfer = %+v", tr)
	}
	if tr.FromUserID == nil || *tr.FromUserID != from {
		t.Fatalf("from = %v, want %s", tr.FromUserID, from)
	}

	fromBal, _ := svc.BalanceOf(ctx, from)
	toBal, _ := svc.BalanceOf(ctx, to)
	if fromBal != 180 || toBal != 120 {
		t.Fatalf("balances = %d/%d, want 180/120", fromBal, toBal)
	}
}

func TestTransferInsufficientLeavesBalancesUnchanged(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	from := seedWallet(t, st, 100)
	to := seedWallet(t, st, 40)

	_, err := svc.Transfer(ctx, from, to, 101, model.TransferKindBid, "bid:t2")
	if !errors.Is(err, model.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	fromBal, _ := svc.BalanceOf(ctx, from)
	toBal, _ := svc.BalanceOf(ctx, to)
	if fromBal != 100 || toBal != 40 {
		t.Fatalf("balances = %d/%d, want 100/40", fromBal, toBal)
	}
	if tr, _ := st.GetTransferByReference(ctx, "bid:t2"); tr != nil {
		t.Fatalf("transfer recorded on failure: %+v", tr)
	}
}

func TestTransferValidation(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	a := seedWallet(t, st, 100)
	b := seedWallet(t, st, 100)

	if _, err := svc.Transfer(ctx, a, b, 0, model.TransferKindBid, "bid:v1"); !errors.Is(err, model.ErrInvalidAmount) {
		t.Errorf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Transfer(ctx, a, b, -5, model.TransferKindBid, "bid:v2"); !errors.Is(err, model.ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Transfer(ctx, a, a, 10, model.TransferKindBid, "bid:v3"); !errors.Is(err, model.ErrSelfTransfer) {
		t.Errorf("self transfer: err = %v, want ErrSelfTransfer", err)
	}
}

func TestTransferIdempotentByReference(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	from := seedWallet(t, st, 300)
	to := seedWallet(t, st, 0)

	first, err := svc.Transfer(ctx, from, to, 100, model.TransferKindBooking, "booking:x")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Transfer(ctx, from, to, 100, model.TransferKindBooking, "booking:x")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("retry returned a new transfer: %s vs %s", second.ID, first.ID)
	}

	fromBal, _ := svc.BalanceOf(ctx, from)
	if fromBal != 200 {
		t.Fatalf("balance = %d, want 200 (charged once)", fromBal)
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	from := seedWallet(t, st, 1000)
	to := seedWallet(t, st, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Transfer(ctx, from, to, 25, model.TransferKindBid, fmt.Sprintf("bid:c%d", i))
		}(i)
	}
	wg.Wait()

	fromBal, _ := svc.BalanceOf(ctx, from)
	toBal, _ := svc.BalanceOf(ctx, to)
	if fromBal+toBal != 1000 {
		t.Fatalf("total = %d, want 1000", fromBal+toBal)
	}
	if fromBal != 500 || toBal != 500 {
		t.Fatalf("balances = %d/%d, want 500/500", fromBal, toBal)
	}
}

func TestCreditMintsTokens(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	user := seedWallet(t, st, 10)

	tr, err := svc.Credit(ctx, user, 90, "purchase:p1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if tr.FromUserID != nil {
		t.Fatalf("credit has a source: %v", *tr.FromUserID)
	}
	if tr.Kind != model.TransferKindPurchase {
		t.Fatalf("kind = %q, want purchase", tr.Kind)
	}

	// Webhook retries deliver the same reference.
	if _, err := svc.Credit(ctx, user, 90, "purchase:p1"); err != nil {
		t.Fatalf("credit retry: %v", err)
	}
	balance, _ := svc.BalanceOf(ctx, user)
	if balance != 100 {
		t.Fatalf("balance = %d, want 100 (credited once)", balance)
	}
}

func TestHistoryIncludesBothSides(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st)
	ctx := context.Background()
	a := seedWallet(t, st, 200)
	b := seedWallet(t, st, 200)

	if _, err := svc.Transfer(ctx, a, b, 50, model.TransferKindBid, "bid:h1"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := svc.Transfer(ctx, b, a, 30, model.TransferKindBooking, "booking:h2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	hist, err := svc.History(ctx, a)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want 2", len(hist))
	}
}
