package bidding

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
		Role: model.RoleFan, IsActive: true, CreatedAt: time.Now(),
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

func seedListing(t *testing.T, st store.Store, ownerID, kind string, price int64) string {
	t.Helper()
	id := uuid.New().String()
	err := st.InsertListing(context.Background(), &model.Listing{
		ID: id, OwnerID: ownerID, Title: "listing", Kind: kind,
		Price: price, Status: model.ListingStatusActive, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return id
}

func TestPlaceMinimum(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	bidder := seedUser(t, st, 1000)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	// No bids yet: exactly the asking price is fine.
	if _, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 99}); err == nil {
		t.Fatal("expected below-price bid to fail")
	}
	first, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100})
	if err != nil {
		t.Fatalf("place at price: %v", err)
	}
	if first.Status != model.BidStatusPending {
		t.Fatalf("status = %q, want pending", first.Status)
	}

	// Highest is 100, so the floor is 110.
	bidder2 := seedUser(t, st, 1000)
	_, err = svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder2, Amount: 105})
	var tooLow *model.BidTooLowError
	if !errors.As(err, &tooLow) {
		t.Fatalf("err = %v, want BidTooLowError", err)
	}
	if tooLow.Minimum != 110 {
		t.Fatalf("minimum = %d, want 110", tooLow.Minimum)
	}
	if _, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder2, Amount: 110}); err != nil {
		t.Fatalf("place at floor: %v", err)
	}
}

func TestPlaceValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	bidder := seedUser(t, st, 50)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	cases := []struct {
		name string
		in   PlaceInput
		want error
	}{
		{"zero amount", PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 0}, model.ErrInvalidAmount},
		{"own listing", PlaceInput{ListingID: listingID, BidderID: owner, Amount: 100}, model.ErrOwnListing},
		{"insufficient balance", PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100}, model.ErrInsufficientBalance},
		{"unknown listing", PlaceInput{ListingID: uuid.New().String(), BidderID: bidder, Amount: 100}, model.ErrListingNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.Place(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	long := make([]byte, model.MaxBidMessageLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100, Message: string(long)})
	if !errors.Is(err, model.ErrMessageTooLong) {
		t.Errorf("long message: err = %v, want ErrMessageTooLong", err)
	}

	serviceID := seedListing(t, st, owner, model.ListingKindService, 100)
	rich := seedUser(t, st, 1000)
	if _, err := svc.Place(ctx, PlaceInput{ListingID: serviceID, BidderID: rich, Amount: 100}); !errors.Is(err, model.ErrNotContentListing) {
		t.Errorf("service listing: err = %v, want ErrNotContentListing", err)
	}
}

// staleListingStore answers plain listing reads from a frozen copy, the
// way a cache that missed an invalidation would, while locked reads inside
// a transaction still see current state.
type staleListingStore struct {
	store.Store
	stale *model.Listing
}

func (s *staleListingStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	if s.stale != nil && s.stale.ID == id {
		return s.stale, nil
	}
	return s.Store.GetListing(ctx, id)
}

func TestPlaceRefusesArchivedListingBehindStaleRead(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	owner := seedUser(t, mem, 0)
	bidder := seedUser(t, mem, 1000)
	listingID := seedListing(t, mem, owner, model.ListingKindContent, 100)

	frozen, err := mem.GetListing(ctx, listingID)
	if err != nil {
		t.Fatalf("snapshot listing: %v", err)
	}
	st := &staleListingStore{Store: mem, stale: frozen}
	svc := NewService(st, ledger.NewService(st), nil)

	// The listing goes off the market after the stale copy was taken.
	if err := mem.UpdateListingStatus(ctx, listingID, model.ListingStatusArchived); err != nil {
		t.Fatalf("archive listing: %v", err)
	}

	_, err = svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100})
	if !errors.Is(err, model.ErrListingNotActive) {
		t.Fatalf("err = %v, want ErrListingNotActive", err)
	}
	bids, err := mem.ListBidsByListing(ctx, listingID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 0 {
		t.Fatalf("archived listing accepted %d bids", len(bids))
	}
}

func TestAcceptSettles(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	winner := seedUser(t, st, 500)
	loser := seedUser(t, st, 500)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	losing, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: loser, Amount: 100})
	if err != nil {
		t.Fatalf("place losing: %v", err)
	}
	winning, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: winner, Amount: 150})
	if err != nil {
		t.Fatalf("place winning: %v", err)
	}

	res, err := svc.Accept(ctx, owner, winning.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Accepted.Status != model.BidStatusAccepted {
		t.Fatalf("accepted status = %q", res.Accepted.Status)
	}
	if len(res.RejectedIDs) != 1 || res.RejectedIDs[0] != losing.ID {
		t.Fatalf("rejected = %v, want [%s]", res.RejectedIDs, losing.ID)
	}

	// Tokens moved once, winner to owner, loser untouched.
	for _, c := range []struct {
		id   string
		want int64
	}{{owner, 150}, {winner, 350}, {loser, 500}} {
		got, err := st.WalletBalance(ctx, c.id)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if got != c.want {
			t.Errorf("balance(%s) = %d, want %d", c.id, got, c.want)
		}
	}

	listing, err := st.GetListing(ctx, listingID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Status != model.ListingStatusSold {
		t.Errorf("listing status = %q, want sold", listing.Status)
	}

	rejected, err := st.GetBid(ctx, losing.ID)
	if err != nil {
		t.Fatalf("get losing bid: %v", err)
	}
	if rejected.Status != model.BidStatusRejected {
		t.Errorf("losing bid status = %q, want rejected", rejected.Status)
	}

	// Sold listing takes no further bids.
	another := seedUser(t, st, 500)
	if _, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: another, Amount: 200}); !errors.Is(err, model.ErrListingNotActive) {
		t.Errorf("bid on sold listing: err = %v, want ErrListingNotActive", err)
	}
}

func TestAcceptFailedTransferLeavesBidPending(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	bidder := seedUser(t, st, 200)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	bid, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 200})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Balance drains between submission and acceptance.
	if err := st.AdjustBalance(ctx, bidder, -150); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_, err = svc.Accept(ctx, owner, bid.ID)
	var tf *model.TransferFailedError
	if !errors.As(err, &tf) {
		t.Fatalf("err = %v, want TransferFailedError", err)
	}
	if !errors.Is(err, model.ErrInsufficientBalance) {
		t.Fatalf("cause = %v, want ErrInsufficientBalance", err)
	}

	got, err := st.GetBid(ctx, bid.ID)
	if err != nil {
		t.Fatalf("get bid: %v", err)
	}
	if got.Status != model.BidStatusPending {
		t.Errorf("bid status after failed accept = %q, want pending", got.Status)
	}
	listing, _ := st.GetListing(ctx, listingID)
	if listing.Status != model.ListingStatusActive {
		t.Errorf("listing status after failed accept = %q, want active", listing.Status)
	}
	balance, _ := st.WalletBalance(ctx, owner)
	if balance != 0 {
		t.Errorf("owner balance after failed accept = %d, want 0", balance)
	}
}

func TestAcceptOnlyOwnerAndOnlyPending(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	bidder := seedUser(t, st, 500)
	stranger := seedUser(t, st, 0)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	bid, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := svc.Accept(ctx, stranger, bid.ID); !errors.Is(err, model.ErrNotListingOwner) {
		t.Fatalf("stranger accept: err = %v, want ErrNotListingOwner", err)
	}
	if _, err := svc.Accept(ctx, owner, bid.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Accept(ctx, owner, bid.ID); !errors.Is(err, model.ErrBidNotPending) {
		t.Fatalf("second accept: err = %v, want ErrBidNotPending", err)
	}
}

func TestConcurrentAcceptsSettleOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	var bids []*model.Bid
	amount := int64(100)
	for i := 0; i < 4; i++ {
		bidder := seedUser(t, st, 1000)
		b, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: amount})
		if err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		bids = append(bids, b)
		amount += model.BidIncrement
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for _, b := range bids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.Accept(ctx, owner, id); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(b.ID)
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("accepted %d bids, want exactly 1", accepted)
	}

	got, err := st.ListBidsByListing(ctx, listingID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	var acceptedCount, rejectedCount int
	var winAmount int64
	for _, b := range got {
		switch b.Status {
		case model.BidStatusAccepted:
			acceptedCount++
			winAmount = b.Amount
		case model.BidStatusRejected:
			rejectedCount++
		}
	}
	if acceptedCount != 1 || rejectedCount != 3 {
		t.Fatalf("accepted=%d rejected=%d, want 1/3", acceptedCount, rejectedCount)
	}
	balance, _ := st.WalletBalance(ctx, owner)
	if balance != winAmount {
		t.Fatalf("owner balance = %d, want %d (single settlement)", balance, winAmount)
	}
}

func TestRejectHasNoBalanceEffect(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, st, 0)
	bidder := seedUser(t, st, 500)
	listingID := seedListing(t, st, owner, model.ListingKindContent, 100)

	bid, err := svc.Place(ctx, PlaceInput{ListingID: listingID, BidderID: bidder, Amount: 100})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	rejected, err := svc.Reject(ctx, owner, bid.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.BidStatusRejected {
		t.Fatalf("status = %q, want rejected", rejected.Status)
	}
	balance, _ := st.WalletBalance(ctx, bidder)
	if balance != 500 {
		t.Fatalf("bidder balance = %d, want 500", balance)
	}

	// Listing stays open and the floor resets back to the price.
	listing, _ := st.GetListing(ctx, listingID)
	if listing.Status != model.ListingStatusActive {
		t.Fatalf("listing status = %q, want active", listing.Status)
	}
	if listing.HighestBid != 0 {
		t.Fatalf("highest bid = %d, want 0 after reject", listing.HighestBid)
	}
}
