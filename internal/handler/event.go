package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// EventOperations is the slice of the event service the handler needs.
type EventOperations interface {
	Create(ctx context.Context, name, venue string, startsAt time.Time, sections []service.SectionSpec) (*model.Event, error)
	SeatMap(ctx context.Context, eventID uint64) (*model.Event, []model.Seat, error)
}

// EventHandler exposes event creation (admin) and the public seat map.
type EventHandler struct {
	events EventOperations
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events EventOperations) *EventHandler {
	if events == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{events: events}
}

// CreateEvent handles POST /v1/events.  Role enforcement (ADMIN) happens
// in middleware.  Seat inventory is generated in bulk from the section
// layout in the same transaction as the event row.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var body struct {
		Name     string                `json:"name"`
		Venue    string                `json:"venue"`
		StartsAt string                `json:"starts_at"`
		Sections []service.SectionSpec `json:"sections"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(body.StartsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at format"})
	}
	event, err := h.events.Create(c.Request().Context(),
		strings.TrimSpace(body.Name), strings.TrimSpace(body.Venue), startsAt, body.Sections)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// GetSeatMap handles GET /v1/events/:id/seats.  The response is cached
// by the Redis response-cache middleware for a short TTL.
func (h *EventHandler) GetSeatMap(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, seats, err := h.events.SeatMap(c.Request().Context(), eventID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event": event,
		"count": len(seats),
		"seats": seats,
	})
}
