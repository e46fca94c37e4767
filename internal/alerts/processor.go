package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/futuretrendsent/zaryo-market/internal/db"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			// Default to docker-compose service name if running in container; otherwise localhost
			redisAddr = "redis:6379"
			if os.Getenv("RUN_LOCAL") == "true" {
				redisAddr = "127.0.0.1:6379"
			}
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail)
	mux.HandleFunc(TaskPasswordReset, handlePasswordReset)
	mux.HandleFunc(TaskBidPlaced, handleBidPlaced)
	mux.HandleFunc(TaskBidAccepted, handleBidAccepted)
	mux.HandleFunc(TaskBidRejected, handleBidRejected)
	mux.HandleFunc(TaskBookingRequested, handleBookingEvent("booking_requested", "New booking request", "You have a new booking request for %d Zaryo. Review and confirm it in your dashboard."))
	mux.HandleFunc(TaskBookingConfirmed, handleBookingEvent("booking_confirmed", "Booking confirmed", "Your booking was confirmed. Pay %d Zaryo to lock it in."))
	mux.HandleFunc(TaskBookingPaid, handleBookingEvent("booking_paid", "Booking paid", "Payment of %d Zaryo has been released to your wallet."))

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

func profileEmail(ctx context.Context, userID string) (email, name string, err error) {
	err = db.Conn.QueryRow(ctx,
		`SELECT email, full_name FROM profiles WHERE id = $1`, userID,
	).Scan(&email, &name)
	return email, name, err
}

func handleWelcomeEmail(_ context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WelcomeEmail send failed: %v", err)
		return err
	}
	log.Printf("[notify] WelcomeEmail sent -> to=%s user=%s", p.Email, p.UserID)
	return nil
}

func handlePasswordReset(_ context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] PasswordReset send failed: %v", err)
		return err
	}
	log.Printf("[notify] PasswordReset sent -> to=%s user=%s", p.Email, p.UserID)
	return nil
}

func handleBidPlaced(ctx context.Context, t *asynq.Task) error {
	var p BidEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	var ownerID, title string
	err := db.Conn.QueryRow(ctx,
		`SELECT owner_id::text, title FROM listings WHERE id = $1`, p.ListingID,
	).Scan(&ownerID, &title)
	if err != nil {
		return err
	}
	email, _, err := profileEmail(ctx, ownerID)
	if err != nil {
		return err
	}

	subject := "New bid on your listing"
	body := fmt.Sprintf("Your listing %q received a bid of %d Zaryo. Accept it to settle, or wait for a better offer.", title, p.Amount)
	if err := SendEmail(email, subject, body); err != nil {
		log.Printf("[notify][ERROR] BidPlaced send failed: %v", err)
		return err
	}
	ref := p.BidID
	_ = CreateNotification(ownerID, "bid_placed", subject, body, &ref, nil)
	log.Printf("[notify] BidPlaced sent -> listing=%s to=%s", p.ListingID, email)
	return nil
}

func handleBidAccepted(ctx context.Context, t *asynq.Task) error {
	var p BidEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	email, name, err := profileEmail(ctx, p.BidderID)
	if err != nil {
		return err
	}

	subject := "Your bid was accepted"
	body := fmt.Sprintf("Congratulations %s, your bid of %d Zaryo was accepted. The tokens have been transferred and the content is yours.", name, p.Amount)
	if err := SendEmail(email, subject, body); err != nil {
		log.Printf("[notify][ERROR] BidAccepted send failed: %v", err)
		return err
	}
	ref := p.BidID
	_ = CreateNotification(p.BidderID, "bid_accepted", subject, body, &ref, nil)
	log.Printf("[notify] BidAccepted sent -> bid=%s to=%s", p.BidID, email)
	return nil
}

func handleBidRejected(ctx context.Context, t *asynq.Task) error {
	var p BidEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	var bidderID string
	err := db.Conn.QueryRow(ctx,
		`SELECT bidder_id::text FROM bids WHERE id = $1`, p.BidID,
	).Scan(&bidderID)
	if err != nil {
		return err
	}
	email, _, err := profileEmail(ctx, bidderID)
	if err != nil {
		return err
	}

	subject := "Your bid was not accepted"
	body := "Your bid was not accepted this time. No tokens left your wallet, so you can bid again right away."
	if err := SendEmail(email, subject, body); err != nil {
		log.Printf("[notify][ERROR] BidRejected send failed: %v", err)
		return err
	}
	ref := p.BidID
	_ = CreateNotification(bidderID, "bid_rejected", subject, body, &ref, nil)
	log.Printf("[notify] BidRejected sent -> bid=%s to=%s", p.BidID, email)
	return nil
}

func handleBookingEvent(ntype, subject, bodyFmt string) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p BookingEventPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		email, _, err := profileEmail(ctx, p.RecipientID)
		if err != nil {
			return err
		}
		body := fmt.Sprintf(bodyFmt, p.Amount)
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("[notify][ERROR] %s send failed: %v", ntype, err)
			return err
		}
		ref := p.BookingID
		_ = CreateNotification(p.RecipientID, ntype, subject, body, &ref, nil)
		log.Printf("[notify] %s sent -> booking=%s to=%s", ntype, p.BookingID, email)
		return nil
	}
}
