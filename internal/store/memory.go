package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

// MemoryStore is an in-memory Store for tests. A single mutex serializes
// transactions; WithTx snapshots the maps and restores them when fn fails,
// so rollbacks behave like the real thing.
type MemoryStore struct {
	mu sync.Mutex

	profiles  map[string]*model.Profile
	wallets   map[string]int64
	transfers map[string]*model.Transfer // keyed by reference
	listings  map[string]*model.Listing
	bids      map[string]*model.Bid
	bookings  map[string]*model.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]*model.Profile),
		wallets:   make(map[string]int64),
		transfers: make(map[string]*model.Transfer),
		listings:  make(map[string]*model.Listing),
		bids:      make(map[string]*model.Bid),
		bookings:  make(map[string]*model.Booking),
	}
}

type memTxKey struct{}

func inMemTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(bool)
	return ok
}

// lock acquires the store mutex unless the ctx already holds the
// transaction lock. Returns the matching unlock.
func (s *MemoryStore) lock(ctx context.Context) func() {
	if inMemTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memSnapshot struct {
	profiles  map[string]*model.Profile
	wallets   map[string]int64
	transfers map[string]*model.Transfer
	listings  map[string]*model.Listing
	bids      map[string]*model.Bid
	bookings  map[string]*model.Booking
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		profiles:  make(map[string]*model.Profile, len(s.profiles)),
		wallets:   make(map[string]int64, len(s.wallets)),
		transfers: make(map[string]*model.Transfer, len(s.transfers)),
		listings:  make(map[string]*model.Listing, len(s.listings)),
		bids:      make(map[string]*model.Bid, len(s.bids)),
		bookings:  make(map[string]*model.Booking, len(s.bookings)),
	}
	for k, v := range s.profiles {
		c := *v
		snap.profiles[k] = &c
	}
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.transfers {
		c := *v
		snap.transfers[k] = &c
	}
	for k, v := range s.listings {
		c := *v
		snap.listings[k] = &c
	}
	for k, v := range s.bids {
		c := *v
		snap.bids[k] = &c
	}
	for k, v := range s.bookings {
		c := *v
		snap.bookings[k] = &c
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.profiles = snap.profiles
	s.wallets = snap.wallets
	s.transfers = snap.transfers
	s.listings = snap.listings
	s.bids = snap.bids
	s.bookings = snap.bookings
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- Profiles ---

func (s *MemoryStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	defer s.lock(ctx)()
	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return model.ErrEmailTaken
		}
	}
	c := *p
	s.profiles[p.ID] = &c
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	defer s.lock(ctx)()
	p, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	defer s.lock(ctx)()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			c := *p
			return &c, nil
		}
	}
	return nil, model.ErrProfileNotFound
}

// --- Wallets ---

func (s *MemoryStore) CreateWallet(ctx context.Context, userID string) error {
	defer s.lock(ctx)()
	if _, ok := s.wallets[userID]; !ok {
		s.wallets[userID] = 0
	}
	return nil
}

func (s *MemoryStore) WalletBalance(ctx context.Context, userID string) (int64, error) {
	defer s.lock(ctx)()
	bal, ok := s.wallets[userID]
	if !ok {
		return 0, model.ErrWalletNotFound
	}
	return bal, nil
}

func (s *MemoryStore) WalletBalanceForUpdate(ctx context.Context, userID string) (int64, error) {
	// The transaction mutex already serializes writers.
	return s.WalletBalance(ctx, userID)
}

func (s *MemoryStore) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	defer s.lock(ctx)()
	if _, ok := s.wallets[userID]; !ok {
		return model.ErrWalletNotFound
	}
	s.wallets[userID] += delta
	return nil
}

// --- Transfer ledger ---

func (s *MemoryStore) GetTransferByReference(ctx context.Context, reference string) (*model.Transfer, error) {
	defer s.lock(ctx)()
	t, ok := s.transfers[reference]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *MemoryStore) InsertTransfer(ctx context.Context, t *model.Transfer) error {
	defer s.lock(ctx)()
	if _, ok := s.transfers[t.Reference]; ok {
		return model.ErrDuplicateReference
	}
	c := *t
	s.transfers[t.Reference] = &c
	return nil
}

func (s *MemoryStore) ListTransfersByUser(ctx context.Context, userID string) ([]model.Transfer, error) {
	defer s.lock(ctx)()
	var out []model.Transfer
	for _, t := range s.transfers {
		if t.ToUserID == userID || (t.FromUserID != nil && *t.FromUserID == userID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Listings ---

func (s *MemoryStore) InsertListing(ctx context.Context, l *model.Listing) error {
	defer s.lock(ctx)()
	c := *l
	s.listings[l.ID] = &c
	return nil
}

func (s *MemoryStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	defer s.lock(ctx)()
	l, ok := s.listings[id]
	if !ok {
		return nil, model.ErrListingNotFound
	}
	c := *l
	return &c, nil
}

func (s *MemoryStore) GetListingForUpdate(ctx context.Context, id string) (*model.Listing, error) {
	return s.GetListing(ctx, id)
}

func (s *MemoryStore) UpdateListingStatus(ctx context.Context, id, status string) error {
	defer s.lock(ctx)()
	l, ok := s.listings[id]
	if !ok {
		return model.ErrListingNotFound
	}
	l.Status = status
	return nil
}

func (s *MemoryStore) RefreshListingBidStats(ctx context.Context, id string) error {
	defer s.lock(ctx)()
	l, ok := s.listings[id]
	if !ok {
		return model.ErrListingNotFound
	}
	count := 0
	var highest int64
	for _, b := range s.bids {
		if b.ListingID != id {
			continue
		}
		if b.Status == model.BidStatusPending || b.Status == model.BidStatusAccepted {
			count++
			if b.Amount > highest {
				highest = b.Amount
			}
		}
	}
	l.BidCount = count
	l.HighestBid = highest
	return nil
}

// --- Bids ---

func (s *MemoryStore) InsertBid(ctx context.Context, b *model.Bid) error {
	defer s.lock(ctx)()
	c := *b
	s.bids[b.ID] = &c
	return nil
}

func (s *MemoryStore) GetBid(ctx context.Context, id string) (*model.Bid, error) {
	defer s.lock(ctx)()
	b, ok := s.bids[id]
	if !ok {
		return nil, model.ErrBidNotFound
	}
	c := *b
	return &c, nil
}

func (s *MemoryStore) GetBidForUpdate(ctx context.Context, id string) (*model.Bid, error) {
	return s.GetBid(ctx, id)
}

func (s *MemoryStore) listBids(ctx context.Context, match func(*model.Bid) bool) []model.Bid {
	defer s.lock(ctx)()
	var out []model.Bid
	for _, b := range s.bids {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) ListBidsByListing(ctx context.Context, listingID string) ([]model.Bid, error) {
	return s.listBids(ctx, func(b *model.Bid) bool { return b.ListingID == listingID }), nil
}

func (s *MemoryStore) ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return s.listBids(ctx, func(b *model.Bid) bool { return b.BidderID == bidderID }), nil
}

func (s *MemoryStore) HighestActiveBid(ctx context.Context, listingID string) (int64, error) {
	defer s.lock(ctx)()
	var highest int64
	for _, b := range s.bids {
		if b.ListingID != listingID {
			continue
		}
		if (b.Status == model.BidStatusPending || b.Status == model.BidStatusAccepted) && b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest, nil
}

func (s *MemoryStore) MarkBidAccepted(ctx context.Context, id string, at time.Time) error {
	defer s.lock(ctx)()
	b, ok := s.bids[id]
	if !ok {
		return model.ErrBidNotFound
	}
	if b.Status != model.BidStatusPending {
		return model.ErrBidNotPending
	}
	b.Status = model.BidStatusAccepted
	t := at
	b.AcceptedAt = &t
	return nil
}

func (s *MemoryStore) MarkBidRejected(ctx context.Context, id string) error {
	defer s.lock(ctx)()
	b, ok := s.bids[id]
	if !ok {
		return model.ErrBidNotFound
	}
	if b.Status != model.BidStatusPending {
		return model.ErrBidNotPending
	}
	b.Status = model.BidStatusRejected
	return nil
}

func (s *MemoryStore) RejectPendingBidsExcept(ctx context.Context, listingID, bidID string) ([]string, error) {
	defer s.lock(ctx)()
	var ids []string
	for _, b := range s.bids {
		if b.ListingID == listingID && b.Status == model.BidStatusPending && b.ID != bidID {
			b.Status = model.BidStatusRejected
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

// --- Bookings ---

func (s *MemoryStore) InsertBooking(ctx context.Context, b *model.Booking) error {
	defer s.lock(ctx)()
	c := *b
	s.bookings[b.ID] = &c
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	defer s.lock(ctx)()
	b, ok := s.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	c := *b
	return &c, nil
}

func (s *MemoryStore) GetBookingForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return s.GetBooking(ctx, id)
}

func (s *MemoryStore) SetBookingStatus(ctx context.Context, id, status string) error {
	defer s.lock(ctx)()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) MarkBookingPaid(ctx context.Context, id string, tokensPaid int64) error {
	defer s.lock(ctx)()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.Status = model.BookingStatusPaid
	b.TokensPaid = tokensPaid
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) listBookings(ctx context.Context, match func(*model.Booking) bool) []model.Booking {
	defer s.lock(ctx)()
	var out []model.Booking
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) ListBookingsByRequester(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.listBookings(ctx, func(b *model.Booking) bool { return b.RequesterID == userID }), nil
}

func (s *MemoryStore) ListBookingsByProvider(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.listBookings(ctx, func(b *model.Booking) bool { return b.ProviderID == userID }), nil
}
