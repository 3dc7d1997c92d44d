package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// fakeHolds implements HoldOperations with pluggable functions.
type fakeHolds struct {
	hold    func(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (*service.HoldResult, error)
	release func(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (int64, error)
	extend  func(ctx context.Context, seatIDs []uint64, userID uint64, additional time.Duration) (time.Time, error)
	active  func(ctx context.Context, userID, eventID uint64) ([]repository.HoldView, error)
}

func (f *fakeHolds) Hold(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (*service.HoldResult, error) {
	return f.hold(ctx, eventID, seatIDs, userID)
}
func (f *fakeHolds) Release(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (int64, error) {
	return f.release(ctx, eventID, seatIDs, userID)
}
func (f *fakeHolds) Extend(ctx context.Context, seatIDs []uint64, userID uint64, additional time.Duration) (time.Time, error) {
	return f.extend(ctx, seatIDs, userID, additional)
}
func (f *fakeHolds) ActiveHolds(ctx context.Context, userID, eventID uint64) ([]repository.HoldView, error) {
	return f.active(ctx, userID, eventID)
}

// newRequestContext builds an echo context carrying an authenticated
// user, a JSON body and one path parameter.
func newRequestContext(method, target, body string, userID any, paramName, paramValue string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHoldSeatsEndpoint(t *testing.T) {
	expires := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	h := NewHoldHandler(&fakeHolds{
		hold: func(_ context.Context, eventID uint64, seatIDs []uint64, userID uint64) (*service.HoldResult, error) {
			assert.Equal(t, uint64(1), eventID)
			assert.Equal(t, uint64(9), userID)
			assert.Equal(t, []uint64{11, 12}, seatIDs)
			return &service.HoldResult{HoldID: "abc123", SeatIDs: seatIDs, ExpiresAt: expires}, nil
		},
	})

	// JWT claims decode numbers as float64.
	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/hold",
		`{"seat_ids":[11,12]}`, float64(9), "id", "1")
	require.NoError(t, h.HoldSeats(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "abc123", body["hold_id"])
	assert.Equal(t, expires.Format(time.RFC3339), body["expires_at"])
}

func TestHoldSeatsEndpointConflict(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{
		hold: func(context.Context, uint64, []uint64, uint64) (*service.HoldResult, error) {
			return nil, &service.ConflictError{
				Message:            "some seats are unavailable",
				UnavailableSeatIDs: []uint64{12},
			}
		},
	})

	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/hold",
		`{"seat_ids":[11,12]}`, float64(9), "id", "1")
	require.NoError(t, h.HoldSeats(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "some seats are unavailable", body["error"])
	assert.Equal(t, []any{float64(12)}, body["unavailable"])
}

func TestHoldSeatsEndpointRejectsBadEventID(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{})
	c, rec := newRequestContext(http.MethodPost, "/v1/events/abc/hold",
		`{"seat_ids":[11]}`, float64(9), "id", "abc")
	require.NoError(t, h.HoldSeats(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldSeatsEndpointRequiresIdentity(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{})
	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/hold",
		`{"seat_ids":[11]}`, nil, "id", "1")
	require.NoError(t, h.HoldSeats(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReleaseSeatsEndpoint(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{
		release: func(_ context.Context, eventID uint64, seatIDs []uint64, userID uint64) (int64, error) {
			return int64(len(seatIDs)), nil
		},
	})

	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/release",
		`{"seat_ids":[11,12]}`, float64(9), "id", "1")
	require.NoError(t, h.ReleaseSeats(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["released"])
}

func TestExtendHoldEndpoint(t *testing.T) {
	expires := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second)
	h := NewHoldHandler(&fakeHolds{
		extend: func(_ context.Context, seatIDs []uint64, userID uint64, additional time.Duration) (time.Time, error) {
			assert.Equal(t, 120*time.Second, additional)
			return expires, nil
		},
	})

	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/hold/extend",
		`{"seat_ids":[11],"additional_seconds":120}`, float64(9), "id", "1")
	require.NoError(t, h.ExtendHold(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, expires.Format(time.RFC3339), decodeBody(t, rec)["expires_at"])
}

func TestExtendHoldEndpointNoneEligible(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{
		extend: func(context.Context, []uint64, uint64, time.Duration) (time.Time, error) {
			return time.Time{}, &service.ValidationError{Message: "no active holds to extend"}
		},
	})

	c, rec := newRequestContext(http.MethodPost, "/v1/events/1/hold/extend",
		`{"seat_ids":[11]}`, float64(9), "id", "1")
	require.NoError(t, h.ExtendHold(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHoldStatusEndpoint(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{
		active: func(_ context.Context, userID, eventID uint64) ([]repository.HoldView, error) {
			assert.Equal(t, uint64(9), userID)
			assert.Equal(t, uint64(3), eventID)
			return []repository.HoldView{{SeatID: 11, EventID: 3, ExpiresAt: time.Now().UTC()}}, nil
		},
	})

	c, rec := newRequestContext(http.MethodGet, "/v1/holds?event_id=3", "", float64(9), "", "")
	require.NoError(t, h.GetHoldStatus(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	items, ok := decodeBody(t, rec)["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestGetHoldStatusEndpointBadEventID(t *testing.T) {
	h := NewHoldHandler(&fakeHolds{})
	c, rec := newRequestContext(http.MethodGet, "/v1/holds?event_id=zero", "", float64(9), "", "")
	require.NoError(t, h.GetHoldStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
