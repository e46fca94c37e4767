package bidding

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretrendsent/zaryo-market/internal/alerts"
	"github.com/futuretrendsent/zaryo-market/internal/model"
)

type placeRequest struct {
	ListingID string `json:"listing_id"`
	Amount    int64  `json:"amount"`
	Message   string `json:"message"`
}

// PlaceBid handles POST /api/bids.
func (s *Service) PlaceBid(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req placeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ListingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id is required"})
	}

	bid, err := s.Place(c.Request().Context(), PlaceInput{
		ListingID: req.ListingID,
		BidderID:  userID,
		Amount:    req.Amount,
		Message:   req.Message,
	})
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBidPlaced(bid.ID, bid.ListingID, bid.BidderID, bid.Amount)

	return c.JSON(http.StatusCreated, echo.Map{"bid": bid})
}

// AcceptBid handles POST /api/bids/:id/accept. Only the listing owner may
// call it; the losing pending bids are rejected in the same settlement.
func (s *Service) AcceptBid(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bidID := c.Param("id")

	res, err := s.Accept(c.Request().Context(), userID, bidID)
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBidAccepted(res.Accepted.ID, res.Accepted.ListingID, res.Accepted.BidderID, res.Accepted.Amount)
	for _, id := range res.RejectedIDs {
		alerts.EnqueueBidRejected(id, res.Accepted.ListingID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"bid":          res.Accepted,
		"rejected_ids": res.RejectedIDs,
		"transfer":     res.Transfer,
	})
}

// RejectBid handles POST /api/bids/:id/reject.
func (s *Service) RejectBid(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bidID := c.Param("id")

	bid, err := s.Reject(c.Request().Context(), userID, bidID)
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}

	alerts.EnqueueBidRejected(bid.ID, bid.ListingID)

	return c.JSON(http.StatusOK, echo.Map{"bid": bid})
}

// ListingBids handles GET /api/listings/:id/bids.
func (s *Service) ListingBids(c echo.Context) error {
	bids, err := s.ListForListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}

// MyBids handles GET /api/bids/mine.
func (s *Service) MyBids(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bids, err := s.ListForBidder(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(model.ErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}
