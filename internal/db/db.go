package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureCoreTables()
	ensureListingBidColumns()
	ensureNotificationsTable()
}

// ensureCoreTables creates the marketplace tables if missing
func ensureCoreTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS profiles (
            id UUID PRIMARY KEY,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'fan' CHECK (role IN ('fan','creator')),
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS wallets (
            user_id UUID PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
            balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY,
            owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            kind TEXT NOT NULL CHECK (kind IN ('content','service')),
            price BIGINT NOT NULL CHECK (price > 0),
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','sold','archived')),
            media_url TEXT NOT NULL DEFAULT '',
            thumbnail_url TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            bid_count INTEGER NOT NULL DEFAULT 0,
            highest_bid BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
        CREATE INDEX IF NOT EXISTS idx_listings_kind_status ON listings(kind, status);

        CREATE TABLE IF NOT EXISTS bids (
            id UUID PRIMARY KEY,
            listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            bidder_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            message TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted','rejected')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            accepted_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_bids_listing ON bids(listing_id);
        CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);

        CREATE TABLE IF NOT EXISTS bookings (
            id UUID PRIMARY KEY,
            listing_id UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            requester_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            provider_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            booking_date TIMESTAMP WITH TIME ZONE NOT NULL,
            duration TEXT NOT NULL DEFAULT '',
            message TEXT NOT NULL DEFAULT '',
            amount BIGINT NOT NULL CHECK (amount >= 0),
            tokens_paid BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','confirmed','paid','completed','cancelled')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_bookings_requester ON bookings(requester_id);
        CREATE INDEX IF NOT EXISTS idx_bookings_provider ON bookings(provider_id);

        CREATE TABLE IF NOT EXISTS transfers (
            id UUID PRIMARY KEY,
            from_user_id UUID NULL REFERENCES profiles(id) ON DELETE SET NULL,
            to_user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            kind TEXT NOT NULL CHECK (kind IN ('bid','booking','purchase')),
            reference TEXT NOT NULL UNIQUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_user_id);
        CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_user_id);

        CREATE TABLE IF NOT EXISTS purchases (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to ensure core tables: %v", err)
	}
}

// ensureListingBidColumns backfills the denormalized bid aggregates on
// databases created before they existed
func ensureListingBidColumns() {
	ctx := context.Background()
	var exists bool
	_ = Conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = 'listings' AND column_name = 'highest_bid'
        )`).Scan(&exists)
	if exists {
		return
	}
	if _, err := Conn.Exec(ctx, `
        ALTER TABLE listings ADD COLUMN IF NOT EXISTS bid_count INTEGER NOT NULL DEFAULT 0;
        ALTER TABLE listings ADD COLUMN IF NOT EXISTS highest_bid BIGINT NOT NULL DEFAULT 0;
    `); err != nil {
		log.Printf("failed to add listing bid columns: %v", err)
		return
	}
	log.Printf("listings bid aggregate columns ensured")
}

// ensureNotificationsTable creates notifications table if it doesn't exist
func ensureNotificationsTable() {
	ctx := context.Background()
	var exists bool
	_ = Conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = 'public' AND table_name = 'notifications'
        )`).Scan(&exists)
	if exists {
		return
	}
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference UUID NULL,
            metadata TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to create notifications table: %v", err)
	}
}
