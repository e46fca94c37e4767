package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
)

// Me returns the currently authenticated user's profile with wallet balance
func Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var (
		id, fullName, email, role string
		isAdmin, isActive         bool
		balance                   int64
	)
	err := db.Conn.QueryRow(context.Background(), `
		SELECT p.id, p.full_name, p.email, p.role, p.is_admin, p.is_active,
		       COALESCE(w.balance, 0)
		FROM profiles p
		LEFT JOIN wallets w ON w.user_id = p.id
		WHERE p.id = $1
	`, userID).Scan(&id, &fullName, &email, &role, &isAdmin, &isActive, &balance)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        id,
		"full_name": fullName,
		"email":     email,
		"role":      role,
		"is_admin":  isAdmin && IsAdminEmail(email),
		"is_active": isActive,
		"balance":   balance,
	})
}
