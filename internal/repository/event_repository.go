package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides data access to the events table, including the
// available_seats capacity counter.  Seat rows themselves are owned by
// SeatRepo; the only event column mutated after creation is the counter,
// and only through the Adjust methods below so every change stays
// bounded by [0, total_seats].
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, venue, starts_at, total_seats, available_seats, status, created_at, updated_at`

// scanEvent scans one event row from the given row scanner.
func scanEvent(row interface{ Scan(dest ...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Venue, &e.StartsAt, &e.TotalSeats,
		&e.AvailableSeats, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// CreateTx inserts a new event within the scope of an existing
// transaction and populates the generated ID plus DB-defaulted fields on
// the provided model.  TotalSeats and AvailableSeats must already be set
// by the caller (both equal the number of seats about to be generated).
// The caller must commit or roll back the transaction.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	const q = `INSERT INTO events (name, venue, starts_at, total_seats, available_seats, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, e.Name, e.Venue,
		e.StartsAt.UTC().Format("2006-01-02 15:04:05"), e.TotalSeats, e.AvailableSeats, e.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	fresh, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, e.ID))
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// GetByID loads a single event.  Returns ErrEventNotFound when no row
// with the given ID exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside an existing transaction.  Hold and booking
// paths use it so the event's bookable state is read under the same
// isolation as the seat mutations that follow.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

const adjustAvailableQuery = `UPDATE events
	SET available_seats = available_seats + ?
	WHERE id = ? AND available_seats + ? >= 0 AND available_seats + ? <= total_seats`

// AdjustAvailableSeatsTx applies a signed delta to the event's
// available_seats counter within an existing transaction.  The update is
// guarded so the counter can never leave [0, total_seats]; a guard
// violation (or a missing event) affects zero rows and is reported as an
// error so the caller aborts and rolls back the whole operation.
func (r *EventRepo) AdjustAvailableSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, delta int64) error {
	result, err := tx.ExecContext(ctx, adjustAvailableQuery, delta, eventID, delta, delta)
	if err != nil {
		return err
	}
	return checkAdjusted(result, eventID, delta)
}

// AdjustAvailableSeats is the non-transactional variant used by the
// expiry sweep, where counter updates are applied per event on a
// best-effort basis after the seat transitions have already committed.
func (r *EventRepo) AdjustAvailableSeats(ctx context.Context, eventID uint64, delta int64) error {
	result, err := r.db.ExecContext(ctx, adjustAvailableQuery, delta, eventID, delta, delta)
	if err != nil {
		return err
	}
	return checkAdjusted(result, eventID, delta)
}

func checkAdjusted(result sql.Result, eventID uint64, delta int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("available_seats adjustment by %d rejected for event %d", delta, eventID)
	}
	return nil
}
