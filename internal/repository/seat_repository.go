package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// SeatRepo provides data access to the seats table.  It is the only
// component permitted to write seat rows, and every status write goes
// through a conditional update keyed on the current status: the UPDATE
// matches the expected state in its WHERE clause and the affected row
// count is returned so callers can compare it against the number of
// seats they asked for.  A mismatch means another transaction won a race
// and the caller must abort (rolling back the enclosing transaction)
// rather than partially apply.  All deadline comparisons are performed
// in UTC against the database clock.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// placeholders returns a comma separated list of n "?" markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// idArgs converts seat IDs into a []any suitable for ExecContext.
func idArgs(ids []uint64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

const mysqlTime = "2006-01-02 15:04:05"

// CreateBulkTx inserts seat rows in one statement within the provided
// transaction.  Seats are created AVAILABLE with version 1; hold fields
// are left null.  Timestamps default in the database.  Passing an empty
// slice has no effect and returns nil.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, section, row_label, seat_number, price_cents, status, version) VALUES `
	args := make([]any, 0, len(seats)*7)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, s.EventID, s.Section, s.RowLabel, s.SeatNumber, s.PriceCents, model.SeatAvailable, 1)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// FilterAvailableTx returns the subset of the given seat IDs that belong
// to the event and are currently AVAILABLE.  Callers compare the result
// length against the request to report exactly which seats are
// unavailable.  Runs within the provided transaction so the read shares
// isolation with the conditional write that follows it.
func (r *SeatRepo) FilterAvailableTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM seats WHERE event_id = ? AND status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{eventID, model.SeatAvailable}, idArgs(seatIDs)...)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var available []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		available = append(available, id)
	}
	return available, rows.Err()
}

// CountActiveHoldsTx counts the seats of one event currently held by the
// given user with an unexpired deadline.  Used to enforce the per-user
// hold limit before acquiring more seats.
func (r *SeatRepo) CountActiveHoldsTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM seats
	           WHERE event_id = ? AND status = ? AND held_by = ? AND held_until > UTC_TIMESTAMP()`
	var n int
	err := tx.QueryRowContext(ctx, q, eventID, model.SeatHeld, userID).Scan(&n)
	return n, err
}

// HoldTx conditionally transitions the given seats AVAILABLE -> HELD for
// userID with the provided deadline, bumping each row's version.  Only
// rows still AVAILABLE match, so the returned count is the number of
// seats actually won; callers must treat count != len(seatIDs) as a lost
// race and roll back.
func (r *SeatRepo) HoldTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, userID uint64, heldUntil time.Time) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = ?, held_by = ?, held_until = ?, version = version + 1
	          WHERE event_id = ? AND status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{model.SeatHeld, userID, heldUntil.UTC().Format(mysqlTime), eventID, model.SeatAvailable}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReleaseTx conditionally transitions seats HELD -> AVAILABLE, restricted
// to seats held by userID, clearing the hold fields.  Releasing a seat
// the user no longer holds simply matches zero rows; that is not an
// error, and the returned count tells the caller how much capacity to
// restore.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, userID uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = ?, held_by = NULL, held_until = NULL, version = version + 1
	          WHERE event_id = ? AND status = ? AND held_by = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{model.SeatAvailable, eventID, model.SeatHeld, userID}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExtendTx pushes the deadline of seats currently HELD by userID with an
// unexpired deadline out to newUntil.  Expired or foreign holds match
// zero rows.  Returns the number of seats whose deadline moved.
func (r *SeatRepo) ExtendTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, userID uint64, newUntil time.Time) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET held_until = ?, version = version + 1
	          WHERE status = ? AND held_by = ? AND held_until > UTC_TIMESTAMP() AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{newUntil.UTC().Format(mysqlTime), model.SeatHeld, userID}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// BookTx conditionally transitions seats HELD -> BOOKED for a confirmed
// booking, clearing the hold fields.  The guard keeps the held_by match
// so a seat that expired and was re-held by someone else between booking
// creation and confirm cannot be captured; the caller compares the count
// against the booking's item count and aborts on mismatch.
func (r *SeatRepo) BookTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, userID uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = ?, held_by = NULL, held_until = NULL, version = version + 1
	          WHERE status = ? AND held_by = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{model.SeatBooked, model.SeatHeld, userID}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReleaseForCancelTx returns a cancelled booking's seats to AVAILABLE.
// Cancellation may happen while the seats are still HELD (pending
// booking) or after they are BOOKED (confirmed booking), so both states
// match.  The HELD branch is restricted to the booking owner: a seat
// whose hold lapsed, was sweep-reclaimed and re-held by another user
// must not have that live hold released.  Hold fields are cleared
// either way.
func (r *SeatRepo) ReleaseForCancelTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, userID uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = ?, held_by = NULL, held_until = NULL, version = version + 1
	          WHERE ((status = ? AND held_by = ?) OR status = ?) AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{model.SeatAvailable, model.SeatHeld, userID, model.SeatBooked}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpiredHeldTx lists all seats whose hold deadline has passed, grouped
// by event.  The expiry sweep feeds the result into ReclaimExpiredTx per
// event and then restores each event's capacity counter best-effort.
func (r *SeatRepo) ExpiredHeldTx(ctx context.Context, tx *sql.Tx) (map[uint64][]uint64, error) {
	const q = `SELECT event_id, id FROM seats
	           WHERE status = ? AND held_until <= UTC_TIMESTAMP()`
	rows, err := tx.QueryContext(ctx, q, model.SeatHeld)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byEvent := make(map[uint64][]uint64)
	for rows.Next() {
		var eventID, seatID uint64
		if err := rows.Scan(&eventID, &seatID); err != nil {
			return nil, err
		}
		byEvent[eventID] = append(byEvent[eventID], seatID)
	}
	return byEvent, rows.Err()
}

// ReclaimExpiredTx transitions one event's expired holds HELD -> AVAILABLE.
// The deadline guard is repeated here so a hold extended between the
// sweep's read and this write survives.  Returns the number reclaimed.
func (r *SeatRepo) ReclaimExpiredTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE seats SET status = ?, held_by = NULL, held_until = NULL, version = version + 1
	          WHERE event_id = ? AND status = ? AND held_until <= UTC_TIMESTAMP() AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{model.SeatAvailable, eventID, model.SeatHeld}, idArgs(seatIDs)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HeldSeat is the projection used when converting holds into a booking:
// the seat, its frozen price and the hold deadline that bounds the
// booking's payment window.
type HeldSeat struct {
	SeatID     uint64
	PriceCents uint32
	HeldUntil  time.Time
}

// HeldByUserTx returns the subset of the given seats that are currently
// HELD by userID with an unexpired deadline.  Booking creation compares
// the result count against the request; any shortfall means the caller's
// holds lapsed (or never existed) and no booking may be created.
func (r *SeatRepo) HeldByUserTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, userID uint64) ([]HeldSeat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, price_cents, held_until FROM seats
	          WHERE event_id = ? AND status = ? AND held_by = ? AND held_until > UTC_TIMESTAMP()
	          AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{eventID, model.SeatHeld, userID}, idArgs(seatIDs)...)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var held []HeldSeat
	for rows.Next() {
		var h HeldSeat
		if err := rows.Scan(&h.SeatID, &h.PriceCents, &h.HeldUntil); err != nil {
			return nil, err
		}
		held = append(held, h)
	}
	return held, rows.Err()
}

// HoldView is the read-only projection of one active hold returned to
// the holding user.
type HoldView struct {
	SeatID    uint64    `json:"seat_id"`
	EventID   uint64    `json:"event_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActiveHoldsByUser lists the caller's active, unexpired holds, most
// recent deadline first.  Pass eventID 0 to list holds across all
// events.  This is a plain read outside any transaction.
func (r *SeatRepo) ActiveHoldsByUser(ctx context.Context, userID, eventID uint64) ([]HoldView, error) {
	query := `SELECT id, event_id, held_until FROM seats
	          WHERE status = ? AND held_by = ? AND held_until > UTC_TIMESTAMP()`
	args := []any{model.SeatHeld, userID}
	if eventID != 0 {
		query += ` AND event_id = ?`
		args = append(args, eventID)
	}
	query += ` ORDER BY held_until DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	holds := []HoldView{}
	for rows.Next() {
		var h HoldView
		if err := rows.Scan(&h.SeatID, &h.EventID, &h.ExpiresAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

// ListByEvent returns every seat of an event ordered by section, row and
// number, for the public seat map.  Hold ownership is not exposed here;
// the projection carries only what a browsing client needs.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT id, event_id, section, row_label, seat_number, price_cents, status, version, created_at, updated_at
	           FROM seats WHERE event_id = ? ORDER BY section, row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber,
			&s.PriceCents, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
