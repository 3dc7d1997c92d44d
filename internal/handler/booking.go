package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// BookingOperations is the slice of the booking service the handler needs.
type BookingOperations interface {
	Create(ctx context.Context, userID, eventID uint64, seatIDs []uint64) (*model.Booking, error)
	Confirm(ctx context.Context, bookingID uint64, paymentID, paymentMethod string) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID, userID uint64, reason string) error
	Get(ctx context.Context, bookingID, userID uint64) (*service.BookingDetail, error)
	ListByUser(ctx context.Context, userID uint64, page, limit int, status model.BookingStatus) ([]model.Booking, int64, error)
}

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	bookings BookingOperations
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings BookingOperations) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{bookings: bookings}
}

// CreateBooking handles POST /v1/events/:id/bookings.  It converts the
// caller's active holds on the listed seats into a PENDING booking.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
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
	booking, err := h.bookings.Create(c.Request().Context(), userID, eventID, body.SeatIDs)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, booking)
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.  The payment
// reference comes from the trusted gateway callback; a stale booking
// version surfaces as 409 so the caller retries from a fresh read.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		PaymentID     string `json:"payment_id"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.PaymentID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_id is required"})
	}
	booking, err := h.bookings.Confirm(c.Request().Context(), bookingID, body.PaymentID, body.PaymentMethod)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.bookings.Cancel(c.Request().Context(), bookingID, userID, strings.TrimSpace(body.Reason)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	detail, err := h.bookings.Get(c.Request().Context(), bookingID, userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// ListBookings handles GET /v1/bookings with page, limit and an optional
// status filter.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	status := model.BookingStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	bookings, total, err := h.bookings.ListByUser(c.Request().Context(), userID, page, limit, status)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": bookings,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
