package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/futuretrendsent/zaryo-market/internal/ledger"
	"github.com/futuretrendsent/zaryo-market/internal/model"
	"github.com/futuretrendsent/zaryo-market/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewService(st, ledger.NewService(st), nil), st
}

func seedUser(t *testing.T, st store.Store, balance int64) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	err := st.CreateProfile(ctx, &model.Profile{
		ID: id, FullName: "User " + id[:8], Email: id[:8] + "@example.com",
		Role: model.RoleCreator, IsActive: true, CreatedAt: time.Now(),
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

func seedService(t *testing.T, st store.Store, ownerID string, price int64) string {
	t.Helper()
	id := uuid.New().String()
	err := st.InsertListing(context.Background(), &model.Listing{
		ID: id, OwnerID: ownerID, Title: "session", Kind: model.ListingKindService,
		Price: price, Status: model.ListingStatusActive, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return id
}

func requestConfirmed(t *testing.T, svc *Service, listingID, requesterID, providerID string) *model.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := svc.Request(ctx, RequestInput{
		ListingID:   listingID,
		RequesterID: requesterID,
		BookingDate: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := svc.Confirm(ctx, providerID, b.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return b
}

func TestRequestCapturesPrice(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	listingID := seedService(t, st, provider, 120)

	b, err := svc.Request(ctx, RequestInput{
		ListingID:   listingID,
		RequesterID: requester,
		BookingDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if b.Amount != 120 {
		t.Fatalf("amount = %d, want 120", b.Amount)
	}
	if b.Status != model.BookingStatusPending {
		t.Fatalf("status = %q, want pending", b.Status)
	}
	if b.ProviderID != provider {
		t.Fatalf("provider = %q, want %q", b.ProviderID, provider)
	}
}

func TestRequestValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	serviceID := seedService(t, st, provider, 120)

	contentID := uuid.New().String()
	err := st.InsertListing(ctx, &model.Listing{
		ID: contentID, OwnerID: provider, Kind: model.ListingKindContent,
		Price: 100, Status: model.ListingStatusActive, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed content listing: %v", err)
	}

	date := time.Now().Add(24 * time.Hour)
	cases := []struct {
		name string
		in   RequestInput
		want error
	}{
		{"content listing", RequestInput{ListingID: contentID, RequesterID: requester, BookingDate: date}, model.ErrNotServiceListing},
		{"own listing", RequestInput{ListingID: serviceID, RequesterID: provider, BookingDate: date}, model.ErrOwnListing},
		{"unknown listing", RequestInput{ListingID: uuid.New().String(), RequesterID: requester, BookingDate: date}, model.ErrListingNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.Request(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestPayRequiresConfirmed(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	listingID := seedService(t, st, provider, 120)

	b, err := svc.Request(ctx, RequestInput{
		ListingID:   listingID,
		RequesterID: requester,
		BookingDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := svc.Pay(ctx, requester, b.ID); !errors.Is(err, model.ErrBookingNotConfirmed) {
		t.Fatalf("pay pending: err = %v, want ErrBookingNotConfirmed", err)
	}
	balance, _ := st.WalletBalance(ctx, requester)
	if balance != 500 {
		t.Fatalf("balance after failed pay = %d, want 500", balance)
	}
}

func TestPayMovesTokensOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	listingID := seedService(t, st, provider, 120)
	b := requestConfirmed(t, svc, listingID, requester, provider)

	paid, err := svc.Pay(ctx, requester, b.ID)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != model.BookingStatusPaid || paid.TokensPaid != 120 {
		t.Fatalf("paid = %q/%d, want paid/120", paid.Status, paid.TokensPaid)
	}

	// Retry is a no-op returning the recorded state.
	again, err := svc.Pay(ctx, requester, b.ID)
	if err != nil {
		t.Fatalf("pay retry: %v", err)
	}
	if again.Status != model.BookingStatusPaid {
		t.Fatalf("retry status = %q, want paid", again.Status)
	}

	reqBal, _ := st.WalletBalance(ctx, requester)
	provBal, _ := st.WalletBalance(ctx, provider)
	if reqBal != 380 || provBal != 120 {
		t.Fatalf("balances = %d/%d, want 380/120", reqBal, provBal)
	}

	transfer, err := st.GetTransferByReference(ctx, "booking:"+b.ID)
	if err != nil || transfer == nil {
		t.Fatalf("transfer by reference: %v, %v", transfer, err)
	}
	if transfer.Amount != 120 || transfer.Kind != model.TransferKindBooking {
		t.Fatalf("transfer = %+v", transfer)
	}
}

func TestConcurrentPaysChargeOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	listingID := seedService(t, st, provider, 120)
	b := requestConfirmed(t, svc, listingID, requester, provider)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Pay(ctx, requester, b.ID)
		}()
	}
	wg.Wait()

	reqBal, _ := st.WalletBalance(ctx, requester)
	provBal, _ := st.WalletBalance(ctx, provider)
	if reqBal != 380 || provBal != 120 {
		t.Fatalf("balances = %d/%d, want 380/120 (single charge)", reqBal, provBal)
	}
}

func TestPayInsufficientTokens(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 50)
	listingID := seedService(t, st, provider, 120)
	b := requestConfirmed(t, svc, listingID, requester, provider)

	if _, err := svc.Pay(ctx, requester, b.ID); !errors.Is(err, model.ErrInsufficientTokens) {
		t.Fatalf("err = %v, want ErrInsufficientTokens", err)
	}

	got, _ := st.GetBooking(ctx, b.ID)
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("status after failed pay = %q, want confirmed", got.Status)
	}
	balance, _ := st.WalletBalance(ctx, requester)
	if balance != 50 {
		t.Fatalf("balance = %d, want 50", balance)
	}
}

func TestLifecycleGuards(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	stranger := seedUser(t, st, 0)
	listingID := seedService(t, st, provider, 120)

	b, err := svc.Request(ctx, RequestInput{
		ListingID:   listingID,
		RequesterID: requester,
		BookingDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := svc.Confirm(ctx, stranger, b.ID); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("stranger confirm: err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.Confirm(ctx, requester, b.ID); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("requester confirm: err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.Complete(ctx, provider, b.ID); !errors.Is(err, model.ErrBookingNotPaid) {
		t.Errorf("complete pending: err = %v, want ErrBookingNotPaid", err)
	}

	if _, err := svc.Confirm(ctx, provider, b.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.Confirm(ctx, provider, b.ID); !errors.Is(err, model.ErrBookingNotPending) {
		t.Errorf("double confirm: err = %v, want ErrBookingNotPending", err)
	}
	if _, err := svc.Pay(ctx, provider, b.ID); !errors.Is(err, model.ErrNotParticipant) {
		t.Errorf("provider pay: err = %v, want ErrNotParticipant", err)
	}

	if _, err := svc.Pay(ctx, requester, b.ID); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := svc.Cancel(ctx, requester, b.ID); !errors.Is(err, model.ErrBookingNotCancellable) {
		t.Errorf("cancel paid: err = %v, want ErrBookingNotCancellable", err)
	}
	if _, err := svc.Complete(ctx, provider, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestCancelBeforePayment(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	provider := seedUser(t, st, 0)
	requester := seedUser(t, st, 500)
	listingID := seedService(t, st, provider, 120)
	b := requestConfirmed(t, svc, listingID, requester, provider)

	cancelled, err := svc.Cancel(ctx, requester, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.BookingStatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}
	if _, err := svc.Pay(ctx, requester, b.ID); !errors.Is(err, model.ErrBookingNotConfirmed) {
		t.Fatalf("pay cancelled: err = %v, want ErrBookingNotConfirmed", err)
	}
	balance, _ := st.WalletBalance(ctx, requester)
	if balance != 500 {
		t.Fatalf("balance = %d, want 500", balance)
	}
}
