package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// enqueue schedules a task on the given queue. Alerts are best effort:
// when the queue is not configured (client is nil, e.g. in tests) the
// event is dropped silently.
func enqueue(taskType string, payload any, queue string) error {
	if client == nil {
		return nil
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(taskType, b)
	_, err := client.Enqueue(task, asynq.Queue(queue))
	return err
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	base = strings.TrimRight(base, "/")

	subject := fmt.Sprintf("Welcome to Zaryo Market, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining Zaryo Market.\n\nOpen Zaryo Market: %s\n\nIf the link doesn't work, copy and paste the URL above.", name, base)

	payload := WelcomeEmailPayload{
		UserID: userID, Name: name, Email: email,
		Envelope: EmailEnvelope{To: email, Subject: subject, Body: body},
		SentAt:   time.Now(),
	}
	return enqueue(TaskWelcomeEmail, payload, "emails")
}

// EnqueuePasswordReset mails a short-lived reset link.
func EnqueuePasswordReset(userID, email, name, resetURL string) error {
	subject := "Reset your Zaryo Market password"
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this email.", name, resetURL)

	payload := PasswordResetPayload{
		UserID: userID, Email: email,
		Envelope: EmailEnvelope{To: email, Subject: subject, Body: body},
		SentAt:   time.Now(),
	}
	return enqueue(TaskPasswordReset, payload, "emails")
}

// EnqueueBidPlaced notifies the listing owner that a new bid arrived
func EnqueueBidPlaced(bidID, listingID, bidderID string, amount int64) error {
	payload := BidEventPayload{BidID: bidID, ListingID: listingID, BidderID: bidderID, Amount: amount, SentAt: time.Now()}
	return enqueue(TaskBidPlaced, payload, "emails")
}

// EnqueueBidAccepted notifies the winning bidder
func EnqueueBidAccepted(bidID, listingID, bidderID string, amount int64) error {
	payload := BidEventPayload{BidID: bidID, ListingID: listingID, BidderID: bidderID, Amount: amount, SentAt: time.Now()}
	return enqueue(TaskBidAccepted, payload, "emails")
}

// EnqueueBidRejected notifies a losing bidder
func EnqueueBidRejected(bidID, listingID string) error {
	payload := BidEventPayload{BidID: bidID, ListingID: listingID, SentAt: time.Now()}
	return enqueue(TaskBidRejected, payload, "emails")
}

// EnqueueBookingRequested notifies the provider of a new booking request
func EnqueueBookingRequested(bookingID, providerID string, amount int64) error {
	payload := BookingEventPayload{BookingID: bookingID, RecipientID: providerID, Amount: amount, SentAt: time.Now()}
	return enqueue(TaskBookingRequested, payload, "emails")
}

// EnqueueBookingConfirmed notifies the requester that the provider confirmed
func EnqueueBookingConfirmed(bookingID, requesterID string, amount int64) error {
	payload := BookingEventPayload{BookingID: bookingID, RecipientID: requesterID, Amount: amount, SentAt: time.Now()}
	return enqueue(TaskBookingConfirmed, payload, "emails")
}

// EnqueueBookingPaid notifies the provider that payment landed
func EnqueueBookingPaid(bookingID, providerID string, amount int64) error {
	payload := BookingEventPayload{BookingID: bookingID, RecipientID: providerID, Amount: amount, SentAt: time.Now()}
	return enqueue(TaskBookingPaid, payload, "emails")
}
