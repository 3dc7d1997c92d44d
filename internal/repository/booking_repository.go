package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingRepo provides data access to the bookings and booking_items
// tables.  Bookings carry an optimistic-lock version counter: state
// transitions match id, expected version and expected status in the
// WHERE clause and callers inspect the affected row count, because a
// booking can be mutated by more than one logical actor (user confirm
// racing the expiry sweep) on the same row.  Booking items are written
// once at creation and retained through cancellation and expiry so the
// record of what was originally booked survives.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, event_id, status, total_amount_cents, tax_amount_cents, final_amount_cents,
	expires_at, version, payment_id, payment_method, confirmed_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

// scanBooking scans one booking row from the given row scanner.
func scanBooking(row interface{ Scan(dest ...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.Status,
		&b.TotalAmountCents, &b.TaxAmountCents, &b.FinalAmountCents,
		&b.ExpiresAt, &b.Version, &b.PaymentID, &b.PaymentMethod,
		&b.ConfirmedAt, &b.CancelledAt, &b.CancellationReason,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts a new PENDING booking within the provided transaction
// and populates the generated ID plus DB-defaulted fields on the model.
// ExpiresAt must be set by the caller to the earliest hold deadline
// among the captured seats.  The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (user_id, event_id, status, total_amount_cents, tax_amount_cents, final_amount_cents, expires_at, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
	var expires any
	if b.ExpiresAt != nil {
		expires = b.ExpiresAt.UTC().Format(mysqlTime)
	}
	result, err := tx.ExecContext(ctx, q, b.UserID, b.EventID, model.BookingPending,
		b.TotalAmountCents, b.TaxAmountCents, b.FinalAmountCents, expires)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	fresh, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID))
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}

// CreateItemsBulkTx inserts one booking_items row per captured seat in a
// single statement.  Prices are frozen at booking time.  Passing an
// empty slice has no effect and returns nil.
func (r *BookingRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.BookingItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO booking_items (booking_id, seat_id, price_cents) VALUES `
	args := make([]any, 0, len(items)*3)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, it.BookingID, it.SeatID, it.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads a single booking.  Returns ErrBookingNotFound when no
// row with the given ID exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside an existing transaction.  Confirm and
// cancel read the booking here before attempting their conditional
// transition.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// SeatIDsTx returns the seat IDs captured by a booking's items, in
// insertion order.
func (r *BookingRepo) SeatIDsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT seat_id FROM booking_items WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ConfirmTx performs the optimistic-lock transition PENDING -> CONFIRMED.
// The update matches id, the version observed by the caller and the
// PENDING status; zero affected rows means another transaction mutated
// the booking first and the caller must fail with a conflict instead of
// applying seat-state side effects.  On success the payment reference is
// recorded and the payment deadline cleared.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, version uint32, paymentID, paymentMethod string) (int64, error) {
	const q = `UPDATE bookings
	           SET status = ?, version = version + 1, payment_id = ?, payment_method = ?,
	               confirmed_at = UTC_TIMESTAMP(), expires_at = NULL
	           WHERE id = ? AND version = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q, model.BookingConfirmed, paymentID, paymentMethod, id, version, model.BookingPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CancelTx performs the transition to CANCELLED under the same
// version-matched guard as ConfirmTx.  Both PENDING and CONFIRMED
// bookings may be cancelled; terminal states match zero rows.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, version uint32, reason string) (int64, error) {
	const q = `UPDATE bookings
	           SET status = ?, version = version + 1, cancelled_at = UTC_TIMESTAMP(), cancellation_reason = ?
	           WHERE id = ? AND version = ? AND status IN (?, ?)`
	var reasonArg any
	if reason != "" {
		reasonArg = reason
	}
	result, err := tx.ExecContext(ctx, q, model.BookingCancelled, reasonArg, id, version,
		model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpiredPendingIDsTx lists the bookings that are PENDING with a payment
// deadline in the past.  The booking expiry sweep feeds the result into
// ExpireTx.
func (r *BookingRepo) ExpiredPendingIDsTx(ctx context.Context, tx *sql.Tx) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE status = ? AND expires_at < UTC_TIMESTAMP()`
	rows, err := tx.QueryContext(ctx, q, model.BookingPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExpireTx bulk-transitions the given bookings PENDING -> EXPIRED.  The
// status and deadline guards are repeated so a booking confirmed between
// the sweep's read and this write is left alone.  Returns the number of
// bookings actually expired.
func (r *BookingRepo) ExpireTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE bookings SET status = ?, version = version + 1
	          WHERE status = ? AND expires_at < UTC_TIMESTAMP() AND id IN (` + placeholders(len(ids)) + `)`
	args := append([]any{model.BookingExpired, model.BookingPending}, idArgs(ids)...)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByUser returns one page of the user's bookings, newest first,
// optionally filtered by status, along with the total row count for
// pagination.  Read-only; no transaction.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, page, limit int, status model.BookingStatus) ([]model.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	where := ` WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, total, rows.Err()
}

// Items returns a booking's items outside any transaction, for read-only
// booking detail responses.
func (r *BookingRepo) Items(ctx context.Context, bookingID uint64) ([]model.BookingItem, error) {
	const q = `SELECT id, booking_id, seat_id, price_cents, created_at FROM booking_items WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.BookingItem{}
	for rows.Next() {
		var it model.BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.SeatID, &it.PriceCents, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
