package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// HoldOperations is the slice of the hold service the handler needs.
type HoldOperations interface {
	Hold(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (*service.HoldResult, error)
	Release(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (int64, error)
	Extend(ctx context.Context, seatIDs []uint64, userID uint64, additional time.Duration) (time.Time, error)
	ActiveHolds(ctx context.Context, userID, eventID uint64) ([]repository.HoldView, error)
}

// HoldHandler exposes the seat-hold endpoints.  JWT authentication has
// already run by the time these methods are invoked.
type HoldHandler struct {
	holds HoldOperations
}

// NewHoldHandler constructs a HoldHandler.
func NewHoldHandler(holds HoldOperations) *HoldHandler {
	if holds == nil {
		panic("nil service passed to NewHoldHandler")
	}
	return &HoldHandler{holds: holds}
}

// HoldSeats handles POST /v1/events/:id/hold.  The body carries a
// seat_ids array; on success the response names the held seats, the
// hold's correlation token and the expiry timestamp.
func (h *HoldHandler) HoldSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	result, err := h.holds.Hold(c.Request().Context(), eventID, body.SeatIDs, userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    result.HoldID,
		"seat_ids":   result.SeatIDs,
		"expires_at": result.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseSeats handles POST /v1/events/:id/release.  Releasing seats the
// caller no longer holds is not an error; the response reports how many
// were actually released.
func (h *HoldHandler) ReleaseSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	released, err := h.holds.Release(c.Request().Context(), eventID, body.SeatIDs, userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// ExtendHold handles POST /v1/events/:id/hold/extend.  The optional
// additional_seconds defaults to 300 and is clamped to the configured
// TTL by the service.
func (h *HoldHandler) ExtendHold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if _, err := pathID(c, "id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		SeatIDs           []uint64 `json:"seat_ids"`
		AdditionalSeconds int64    `json:"additional_seconds"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	newExpiry, err := h.holds.Extend(c.Request().Context(), body.SeatIDs, userID,
		time.Duration(body.AdditionalSeconds)*time.Second)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expires_at": newExpiry.Format(time.RFC3339)})
}

// GetHoldStatus handles GET /v1/holds.  The optional event_id query
// parameter narrows the listing to one event.
func (h *HoldHandler) GetHoldStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var eventID uint64
	if raw := c.QueryParam("event_id"); raw != "" {
		eventID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || eventID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event_id"})
		}
	}
	holds, err := h.holds.ActiveHolds(c.Request().Context(), userID, eventID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": holds})
}
