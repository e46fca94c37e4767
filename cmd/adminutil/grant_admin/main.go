package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/futuretrendsent/zaryo-market/internal/auth"
	"github.com/futuretrendsent/zaryo-market/internal/db"
)

// grant_admin sets the is_admin flag for an account by email.
// Usage:
//
//	go run cmd/adminutil/grant_admin/main.go -email ops@futuretrendsent.com
func main() {
	email := flag.String("email", "", "Email of the user to grant admin access")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/grant_admin/main.go -email ops@futuretrendsent.com")
	}

	// The guard checks the domain on every request, so a flag on an
	// outside-domain account would never take effect. Refuse it here.
	if !auth.IsAdminEmail(*email) {
		log.Fatalf("email %s is not on the admin domain allow-list", *email)
	}

	_ = godotenv.Load()
	db.Init()

	ct, err := db.Conn.Exec(context.Background(),
		`UPDATE profiles SET is_admin = TRUE WHERE email = $1`, *email)
	if err != nil {
		log.Fatalf("failed to grant admin: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("Admin access granted to %s.\n", *email)
}
