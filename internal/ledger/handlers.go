package ledger

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/model"
)

// Balance returns the authenticated user's wallet balance
func (s *Service) Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	balance, err := s.BalanceOf(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": userID,
		"balance": balance,
	})
}

// Transactions returns the user's transfer history, newest first
func (s *Service) Transactions(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	transfers, err := s.History(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": transfers})
}
