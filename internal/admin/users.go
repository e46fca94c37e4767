package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/auth"
	"github.com/futuretrendsent/zaryo-market/internal/db"
)

type AdminUser struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /admin/users
func ListUsers(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(), `
		SELECT p.id, p.full_name, p.email, p.role, p.is_admin, p.is_active,
		       COALESCE(w.balance, 0), p.created_at
		FROM profiles p
		LEFT JOIN wallets w ON w.user_id = p.id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch users"})
	}
	defer rows.Close()

	var users []AdminUser
	for rows.Next() {
		var u AdminUser
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.IsAdmin, &u.IsActive, &u.Balance, &u.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read user record"})
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// POST /admin/users/:id/suspend
func SuspendUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	res, err := db.Conn.Exec(context.Background(),
		`UPDATE profiles SET is_active = FALSE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to suspend user"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user suspended", "user_id": userID})
}

// POST /admin/users/:id/activate
func ActivateUser(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	res, err := db.Conn.Exec(context.Background(),
		`UPDATE profiles SET is_active = TRUE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to activate user"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user activated", "user_id": userID})
}

// POST /admin/users/:id/grant-admin
// Granting the flag to an account outside the company domains is refused
// up front: the guard would never admit it, so the flag would only mislead.
func GrantAdmin(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}

	var email string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT email FROM profiles WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !auth.IsAdminEmail(email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email domain is not on the admin allow-list"})
	}

	_, err = db.Conn.Exec(context.Background(),
		`UPDATE profiles SET is_admin = TRUE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to grant admin"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "admin granted", "user_id": userID})
}

// POST /admin/users/:id/revoke-admin
func RevokeAdmin(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	res, err := db.Conn.Exec(context.Background(),
		`UPDATE profiles SET is_admin = FALSE WHERE id = $1`, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to revoke admin"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "admin revoked", "user_id": userID})
}
