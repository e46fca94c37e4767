package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/auth"
	"github.com/futuretrendsent/zaryo-market/internal/db"
)

// AdminGuard admits only accounts that hold the is_admin flag AND carry a
// company-domain email. Both conditions are re-read from the database on
// every request, so revoking either one takes effect immediately, token
// lifetime notwithstanding.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := c.Get("user_id").(string)
		if !ok || userID == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}

		var email string
		var isAdmin, isActive bool
		err := db.Conn.QueryRow(context.Background(),
			`SELECT email, is_admin, is_active FROM profiles WHERE id = $1`, userID,
		).Scan(&email, &isAdmin, &isActive)
		if err != nil {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		if !isActive {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
		}
		if !auth.IsAdmin(email, isAdmin) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		return next(c)
	}
}
