// Package handler contains the HTTP handlers.  Handlers are thin: they
// bind and validate transport input, extract the authenticated identity
// placed in the context by middleware, call the service layer and
// translate its errors into HTTP responses.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// getUserID extracts the user_id injected by the JWT middleware and
// converts it to uint64.  Claims decoded from JSON arrive as float64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// writeServiceError maps service and repository errors onto the HTTP
// taxonomy: validation 400, not-found 404, forbidden 403, conflict 409
// (with the unavailable seat IDs when the conflict names them), and a
// generic 500 for everything else so internals never leak to clients.
func writeServiceError(c echo.Context, err error) error {
	var ve *service.ValidationError
	var ce *service.ConflictError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
	case errors.As(err, &ce):
		resp := echo.Map{"error": ce.Message}
		if len(ce.UnavailableSeatIDs) > 0 {
			resp["unavailable"] = ce.UnavailableSeatIDs
		}
		return c.JSON(http.StatusConflict, resp)
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("handler: %s %s timed out: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "request timed out, please retry"})
	default:
		log.Printf("handler: %s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
