package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type txKey struct{}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// --- Profiles ---

func (s *PostgresStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO profiles (id, full_name, email, password_hash, role, is_admin, is_active, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.FullName, p.Email, p.PasswordHash, p.Role, p.IsAdmin, p.IsActive, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrEmailTaken
	}
	return err
}

const profileCols = `id, full_name, email, password_hash, role, is_admin, is_active, created_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.Role, &p.IsAdmin, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return scanProfile(s.q(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
}

func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(s.q(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE LOWER(email) = LOWER($1)`, email))
}

// --- Wallets ---

func (s *PostgresStore) CreateWallet(ctx context.Context, userID string) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO wallets (user_id, balance, created_at) VALUES ($1, 0, $2)`,
		userID, time.Now(),
	)
	return err
}

func (s *PostgresStore) WalletBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.q(ctx).QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrWalletNotFound
	}
	return balance, err
}

func (s *PostgresStore) WalletBalanceForUpdate(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.q(ctx).QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrWalletNotFound
	}
	return balance, err
}

func (s *PostgresStore) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, delta, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrWalletNotFound
	}
	return nil
}

// --- Transfer ledger ---

const transferCols = `id, from_user_id, to_user_id, amount, kind, reference, created_at`

func (s *PostgresStore) GetTransferByReference(ctx context.Context, reference string) (*model.Transfer, error) {
	var t model.Transfer
	err := s.q(ctx).QueryRow(ctx,
		`SELECT `+transferCols+` FROM transfers WHERE reference = $1`, reference).
		Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Kind, &t.Reference, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) InsertTransfer(ctx context.Context, t *model.Transfer) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO transfers (id, from_user_id, to_user_id, amount, kind, reference, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.FromUserID, t.ToUserID, t.Amount, t.Kind, t.Reference, t.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateReference
	}
	return err
}

func (s *PostgresStore) ListTransfersByUser(ctx context.Context, userID string) ([]model.Transfer, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+transferCols+` FROM transfers
         WHERE from_user_id = $1 OR to_user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transfer
	for rows.Next() {
		var t model.Transfer
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.Kind, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Listings ---

const listingCols = `id, owner_id, title, description, kind, price, status,
    media_url, thumbnail_url, category, location, bid_count, highest_bid, created_at`

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Kind, &l.Price, &l.Status,
		&l.MediaURL, &l.ThumbnailURL, &l.Category, &l.Location, &l.BidCount, &l.HighestBid, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) InsertListing(ctx context.Context, l *model.Listing) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO listings (id, owner_id, title, description, kind, price, status,
             media_url, thumbnail_url, category, location, bid_count, highest_bid, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Kind, l.Price, l.Status,
		l.MediaURL, l.ThumbnailURL, l.Category, l.Location, l.BidCount, l.HighestBid, l.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	return scanListing(s.q(ctx).QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1`, id))
}

func (s *PostgresStore) GetListingForUpdate(ctx context.Context, id string) (*model.Listing, error) {
	return scanListing(s.q(ctx).QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) UpdateListingStatus(ctx context.Context, id, status string) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE listings SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrListingNotFound
	}
	return nil
}

func (s *PostgresStore) RefreshListingBidStats(ctx context.Context, id string) error {
	_, err := s.q(ctx).Exec(ctx,
		`UPDATE listings SET
            bid_count = (SELECT COUNT(*) FROM bids WHERE listing_id = $1 AND status IN ('pending','accepted')),
            highest_bid = COALESCE((SELECT MAX(amount) FROM bids WHERE listing_id = $1 AND status IN ('pending','accepted')), 0)
         WHERE id = $1`, id)
	return err
}

// --- Bids ---

const bidCols = `id, listing_id, bidder_id, amount, message, status, created_at, accepted_at`

func scanBid(row pgx.Row) (*model.Bid, error) {
	var b model.Bid
	err := row.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.Message, &b.Status, &b.CreatedAt, &b.AcceptedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrBidNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) InsertBid(ctx context.Context, b *model.Bid) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO bids (id, listing_id, bidder_id, amount, message, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.ListingID, b.BidderID, b.Amount, b.Message, b.Status, b.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetBid(ctx context.Context, id string) (*model.Bid, error) {
	return scanBid(s.q(ctx).QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids WHERE id = $1`, id))
}

func (s *PostgresStore) GetBidForUpdate(ctx context.Context, id string) (*model.Bid, error) {
	return scanBid(s.q(ctx).QueryRow(ctx,
		`SELECT `+bidCols+` FROM bids WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) listBids(ctx context.Context, where string, arg any) ([]model.Bid, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+bidCols+` FROM bids WHERE `+where+` ORDER BY amount DESC, created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bid
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.Message, &b.Status, &b.CreatedAt, &b.AcceptedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListBidsByListing(ctx context.Context, listingID string) ([]model.Bid, error) {
	return s.listBids(ctx, `listing_id = $1`, listingID)
}

func (s *PostgresStore) ListBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return s.listBids(ctx, `bidder_id = $1`, bidderID)
}

func (s *PostgresStore) HighestActiveBid(ctx context.Context, listingID string) (int64, error) {
	var highest int64
	err := s.q(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(amount), 0) FROM bids
         WHERE listing_id = $1 AND status IN ('pending','accepted')`, listingID).Scan(&highest)
	return highest, err
}

func (s *PostgresStore) MarkBidAccepted(ctx context.Context, id string, at time.Time) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE bids SET status = 'accepted', accepted_at = $1 WHERE id = $2 AND status = 'pending'`,
		at, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrBidNotPending
	}
	return nil
}

func (s *PostgresStore) MarkBidRejected(ctx context.Context, id string) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE bids SET status = 'rejected' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrBidNotPending
	}
	return nil
}

func (s *PostgresStore) RejectPendingBidsExcept(ctx context.Context, listingID, bidID string) ([]string, error) {
	rows, err := s.q(ctx).Query(ctx,
		`UPDATE bids SET status = 'rejected'
         WHERE listing_id = $1 AND status = 'pending' AND id <> $2
         RETURNING id`, listingID, bidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Bookings ---

const bookingCols = `id, listing_id, requester_id, provider_id, booking_date,
    duration, message, amount, tokens_paid, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.ListingID, &b.RequesterID, &b.ProviderID, &b.BookingDate,
		&b.Duration, &b.Message, &b.Amount, &b.TokensPaid, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO bookings (id, listing_id, requester_id, provider_id, booking_date,
             duration, message, amount, tokens_paid, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.ListingID, b.RequesterID, b.ProviderID, b.BookingDate,
		b.Duration, b.Message, b.Amount, b.TokensPaid, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(s.q(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
}

func (s *PostgresStore) GetBookingForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(s.q(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
}

func (s *PostgresStore) SetBookingStatus(ctx context.Context, id, status string) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}

func (s *PostgresStore) MarkBookingPaid(ctx context.Context, id string, tokensPaid int64) error {
	ct, err := s.q(ctx).Exec(ctx,
		`UPDATE bookings SET status = 'paid', tokens_paid = $1, updated_at = NOW() WHERE id = $2`,
		tokensPaid, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}

func (s *PostgresStore) listBookings(ctx context.Context, where string, arg any) ([]model.Booking, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ListingID, &b.RequesterID, &b.ProviderID, &b.BookingDate,
			&b.Duration, &b.Message, &b.Amount, &b.TokensPaid, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListBookingsByRequester(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.listBookings(ctx, `requester_id = $1`, userID)
}

func (s *PostgresStore) ListBookingsByProvider(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.listBookings(ctx, `provider_id = $1`, userID)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// error, used to translate duplicate emails and transfer references.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
