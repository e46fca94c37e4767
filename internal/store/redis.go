package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache for
// listings and wallet balances. Writes go to the primary store and
// invalidate the affected keys; reads check Redis first then fall back.
// Cache contents are advisory; the settlement paths always re-read inside
// their transactions, which bypass the cache via the ForUpdate variants.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: primary, rdb: rdb, ttl: ttl}
}

func listingKey(id string) string  { return fmt.Sprintf("listing:%s", id) }
func balanceKey(uid string) string { return fmt.Sprintf("balance:%s", uid) }

// --- Read-through ---

func (s *CachedStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingKey(id)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	l, err := s.Store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, listingKey(id), data, s.ttl)
	}
	return l, nil
}

func (s *CachedStore) WalletBalance(ctx context.Context, userID string) (int64, error) {
	if bal, err := s.rdb.Get(ctx, balanceKey(userID)).Int64(); err == nil {
		return bal, nil
	}

	bal, err := s.Store.WalletBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, balanceKey(userID), bal, s.ttl)
	return bal, nil
}

// --- Write-through invalidation ---

func (s *CachedStore) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	if err := s.Store.AdjustBalance(ctx, userID, delta); err != nil {
		return err
	}
	s.rdb.Del(ctx, balanceKey(userID))
	return nil
}

func (s *CachedStore) UpdateListingStatus(ctx context.Context, id, status string) error {
	if err := s.Store.UpdateListingStatus(ctx, id, status); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingKey(id))
	return nil
}

func (s *CachedStore) RefreshListingBidStats(ctx context.Context, id string) error {
	if err := s.Store.RefreshListingBidStats(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingKey(id))
	return nil
}

func (s *CachedStore) InsertListing(ctx context.Context, l *model.Listing) error {
	if err := s.Store.InsertListing(ctx, l); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingKey(l.ID))
	return nil
}
