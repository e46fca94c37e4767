package booking

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/alerts"
	"github.com/futuretrendsent/zaryo-market/internal/model"
)

type requestBody struct {
	ListingID   string `json:"listing_id"`
	BookingDate string `json:"booking_date"`
	Duration    string `json:"duration"`
	Message     string `json:"message"`
}

// RequestBooking handles POST /api/bookings.
func (s *Service) RequestBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req requestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ListingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id is required"})
	}
	date, err := time.Parse(time.RFC3339, req.BookingDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_date must be RFC3339"})
	}
	if date.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_date must be in the future"})
	}

	booking, err := s.Request(c.Request().Context(), RequestInput{
		ListingID:   req.ListingID,
		RequesterID: userID,
		BookingDate: date,
		Duration:    req.Duration,
		Message:     req.Message,
	})
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBookingRequested(booking.ID, booking.ProviderID, booking.Amount)

	return c.JSON(http.StatusCreated, echo.Map{"booking": booking})
}

// ConfirmBooking handles POST /api/bookings/:id/confirm.
func (s *Service) ConfirmBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	booking, err := s.Confirm(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBookingConfirmed(booking.ID, booking.RequesterID, booking.Amount)

	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// PayBooking handles POST /api/bookings/:id/pay.
func (s *Service) PayBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	booking, err := s.Pay(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBookingPaid(booking.ID, booking.ProviderID, booking.TokensPaid)

	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// CompleteBooking handles POST /api/bookings/:id/complete.
func (s *Service) CompleteBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	booking, err := s.Complete(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (s *Service) CancelBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	booking, err := s.Cancel(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// GetBooking handles GET /api/bookings/:id.
func (s *Service) GetBooking(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	booking, err := s.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// MyBookings handles GET /api/bookings/mine.
func (s *Service) MyBookings(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	requested, providing, err := s.ListMine(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"requested": requested,
		"providing": providing,
	})
}
