// Package payments handles Zaryo token purchases: a pending purchase row is
// created up front, and the processor callback credits the wallet through
// the ledger exactly once.
package payments

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
	"github.com/futuretrendsent/zaryo-market/internal/ledger"
	"github.com/futuretrendsent/zaryo-market/internal/model"
)

type Handler struct {
	ledger *ledger.Service
}

func NewHandler(lg *ledger.Service) *Handler {
	return &Handler{ledger: lg}
}

type PurchaseRequest struct {
	Amount int64 `json:"amount"`
}

type PurchaseResponse struct {
	PurchaseID string `json:"purchase_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// InitPurchase starts a token purchase and hands back a payment URL
func (h *Handler) InitPurchase(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(PurchaseRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	purchaseID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO purchases (id, user_id, amount, status, created_at)
		 VALUES ($1, $2, $3, 'pending', $4)`,
		purchaseID, userID, req.Amount, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create purchase"})
	}

	// mock payment URL until a real processor is integrated
	paymentURL := os.Getenv("MOCK_PAYMENT_URL")
	if paymentURL == "" {
		paymentURL = "https://pay.zaryo.dev/mock/" + purchaseID
	}

	return c.JSON(http.StatusOK, PurchaseResponse{
		PurchaseID: purchaseID,
		Status:     "pending",
		Message:    "Purchase initialized. Complete payment at " + paymentURL,
	})
}

type ConfirmRequest struct {
	PurchaseID string `json:"purchase_id"`
}

// ConfirmPurchase is the processor callback. Processors redeliver, so the
// credit is keyed on the purchase id and lands at most once.
func (h *Handler) ConfirmPurchase(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req ConfirmRequest
	if err := c.Bind(&req); err != nil || req.PurchaseID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := context.Background()
	var amount int64
	var status string
	err := db.Conn.QueryRow(ctx,
		`SELECT amount, status FROM purchases WHERE id = $1 AND user_id = $2`,
		req.PurchaseID, userID,
	).Scan(&amount, &status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
	}

	transfer, err := h.ledger.Credit(ctx, userID, amount, "purchase:"+req.PurchaseID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidAmount) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase amount"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not credit wallet"})
	}

	if status != "completed" {
		_, err = db.Conn.Exec(ctx,
			`UPDATE purchases SET status = 'completed' WHERE id = $1`, req.PurchaseID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not finalize purchase"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "purchase completed",
		"transfer": transfer,
	})
}
