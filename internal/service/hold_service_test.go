package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

func newHoldService(t *testing.T, cfg HoldConfig) (*HoldService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewHoldService(db, repository.NewEventRepo(db), repository.NewSeatRepo(db), cfg)
	return svc, mock
}

var eventCols = []string{"id", "name", "venue", "starts_at", "total_seats", "available_seats", "status", "created_at", "updated_at"}

func eventRow(id uint64, status model.EventStatus, startsAt time.Time, total, available uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(eventCols).
		AddRow(id, "Go Conf", "Main Hall", startsAt, total, available, string(status), now, now)
}

func TestHoldSeatsSuccess(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WithArgs(1).
		WillReturnRows(eventRow(1, model.EventOnSale, startsAt, 100, 100))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM seats`)).
		WithArgs(1, string(model.SeatHeld), 9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats WHERE event_id = ? AND status = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = ?, held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	before := time.Now().UTC()
	result, err := svc.Hold(context.Background(), 1, []uint64{11, 12}, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, result.SeatIDs)
	assert.Len(t, result.HoldID, 32)
	assert.True(t, result.ExpiresAt.After(before.Add(9*time.Minute)), "deadline should be roughly TTL from now")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsRejectsUnavailable(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(eventRow(1, model.EventOnSale, startsAt, 100, 50))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// Seat 12 is no longer AVAILABLE.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats WHERE event_id = ? AND status = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectRollback()

	_, err := svc.Hold(context.Background(), 1, []uint64{11, 12}, 9)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []uint64{12}, conflict.UnavailableSeatIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsLostRaceRollsBack(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(eventRow(1, model.EventOnSale, startsAt, 100, 50))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats WHERE event_id = ? AND status = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11).AddRow(12))
	// A concurrent transaction won one of the seats between our read and
	// our conditional write: only one row transitions.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = ?, held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := svc.Hold(context.Background(), 1, []uint64{11, 12}, 9)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsEnforcesPerUserLimit(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{MaxSeatsPerUser: 6})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(eventRow(1, model.EventOnSale, startsAt, 100, 50))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := svc.Hold(context.Background(), 1, []uint64{11, 12}, 9)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsLimitBoundarySucceeds(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{MaxSeatsPerUser: 6})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(eventRow(1, model.EventOnSale, startsAt, 100, 50))
	// 4 active holds + 2 requested lands exactly on the limit of 6.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats WHERE event_id = ? AND status = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = ?, held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.Hold(context.Background(), 1, []uint64{11, 12}, 9)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, result.SeatIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsRejectsClosedEvent(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})
	startsAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WillReturnRows(eventRow(1, model.EventClosed, startsAt, 100, 50))
	mock.ExpectRollback()

	_, err := svc.Hold(context.Background(), 1, []uint64{11}, 9)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsTokenFailureTouchesNothing(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})
	orig := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("entropy unavailable") }
	defer func() { randRead = orig }()

	// The token is minted before the transaction starts, so an entropy
	// failure must surface without any seat having been committed HELD.
	_, err := svc.Hold(context.Background(), 1, []uint64{11}, 9)
	require.ErrorContains(t, err, "entropy unavailable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldSeatsValidatesInput(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{MaxSeatsPerUser: 2})

	_, err := svc.Hold(context.Background(), 1, nil, 9)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// Duplicates and zeros collapse before the limit check.
	_, err = svc.Hold(context.Background(), 1, []uint64{0, 0}, 9)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Hold(context.Background(), 1, []uint64{1, 2, 3}, 9)
	require.ErrorAs(t, err, &verr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsRestoresCapacity(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = NULL, held_until = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	released, err := svc.Release(context.Background(), 1, []uint64{11, 12}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsNothingMatched(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = NULL, held_until = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// No capacity adjustment when nothing was released.
	mock.ExpectCommit()

	released, err := svc.Release(context.Background(), 1, []uint64{11}, 9)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendHoldClampsToTTL(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{TTL: 600 * time.Second})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	before := time.Now().UTC()
	newUntil, err := svc.Extend(context.Background(), []uint64{11}, 9, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, newUntil.Before(before.Add(601*time.Second)), "extension must not exceed a fresh hold")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendHoldDefaultsWhenUnspecified(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{TTL: 600 * time.Second})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	before := time.Now().UTC()
	newUntil, err := svc.Extend(context.Background(), []uint64{11}, 9, 0)
	require.NoError(t, err)
	assert.True(t, newUntil.After(before.Add(4*time.Minute)))
	assert.True(t, newUntil.Before(before.Add(6*time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendHoldNoneEligible(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET held_until = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Extend(context.Background(), []uint64{11}, 9, time.Minute)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredHolds(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id, id FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "id"}).
			AddRow(1, 7).
			AddRow(1, 8))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = NULL, held_until = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	// Counter restore happens outside the transaction.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reclaimed, err := svc.ReleaseExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredHoldsNothingToDo(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id, id FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "id"}))
	mock.ExpectRollback()

	reclaimed, err := svc.ReleaseExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseExpiredHoldsSkipsFailedCounter(t *testing.T) {
	svc, mock := newHoldService(t, HoldConfig{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id, id FROM seats`)).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "id"}).AddRow(1, 7))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET status = ?, held_by = NULL, held_until = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events`)).
		WillReturnError(errors.New("connection reset"))

	// The sweep already committed; a failed counter restore is logged,
	// not surfaced.
	reclaimed, err := svc.ReleaseExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
