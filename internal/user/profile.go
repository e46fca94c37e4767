package user

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/db"
)

// GET /user/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	var (
		id, fullName, bio, avatarURL, role string
		isActive                           bool
		createdAt                          time.Time
	)
	err := db.Conn.QueryRow(context.Background(), `
		SELECT id, full_name, bio, avatar_url, role, is_active, created_at
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&id, &fullName, &bio, &avatarURL, &role, &isActive, &createdAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !isActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":         id,
		"full_name":  fullName,
		"bio":        bio,
		"avatar_url": avatarURL,
		"role":       role,
		"created_at": createdAt.Format(time.RFC3339),
	})
}

type UpdateProfileRequest struct {
	FullName  string `json:"full_name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// PATCH /user/profile
func UpdateProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	query := `
		UPDATE profiles
		SET
			full_name = COALESCE(NULLIF($1, ''), full_name),
			bio = COALESCE(NULLIF($2, ''), bio),
			avatar_url = COALESCE(NULLIF($3, ''), avatar_url)
		WHERE id = $4
	`
	_, err := db.Conn.Exec(context.Background(), query, req.FullName, req.Bio, req.AvatarURL, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully"})
}
