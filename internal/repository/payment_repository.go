package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// PaymentRepo provides data access to the payments table.  A payment
// row is only ever created inside the confirm transaction, so either
// the booking flips to CONFIRMED and its payment exists, or neither.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts the payment recorded for a confirmed booking within
// the provided transaction and populates the generated ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, gateway_ref, amount_cents, status, method) VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, p.BookingID, p.GatewayRef, p.AmountCents, p.Status, p.Method)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByBookingID loads the payment attached to a booking, if any.
// Returns sql.ErrNoRows when the booking has no payment.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT id, booking_id, gateway_ref, amount_cents, status, method, created_at
	           FROM payments WHERE booking_id = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
		&p.ID, &p.BookingID, &p.GatewayRef, &p.AmountCents, &p.Status, &p.Method, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
