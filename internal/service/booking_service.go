package service

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// taxRatePercent is the fixed tax applied on top of the seat total.
const taxRatePercent = 18

// PublishFunc delivers a confirmation event to the message broker.
// Publishing is best-effort: failures are the publisher's to log and
// never fail the confirm itself.
type PublishFunc func(ctx context.Context, event queue.BookingConfirmedEvent) error

// BookingService owns the booking lifecycle: converting held seats into
// a PENDING booking, confirming it against the payment signal, or
// cancelling it.  The confirm path runs at serializable isolation and is
// additionally guarded by the booking's optimistic-lock version, because
// an expiry sweep and a user confirm can race on the same row.
type BookingService struct {
	db        *sql.DB
	events    *repository.EventRepo
	seats     *repository.SeatRepo
	bookings  *repository.BookingRepo
	payments  *repository.PaymentRepo
	publish   PublishFunc // nil disables publishing
	txTimeout time.Duration
}

// NewBookingService constructs a BookingService.  publish may be nil
// when no broker is configured.
func NewBookingService(db *sql.DB, events *repository.EventRepo, seats *repository.SeatRepo,
	bookings *repository.BookingRepo, payments *repository.PaymentRepo,
	publish PublishFunc, txTimeout time.Duration) *BookingService {
	if db == nil || events == nil || seats == nil || bookings == nil || payments == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if txTimeout <= 0 {
		txTimeout = 15 * time.Second
	}
	return &BookingService{
		db:        db,
		events:    events,
		seats:     seats,
		bookings:  bookings,
		payments:  payments,
		publish:   publish,
		txTimeout: txTimeout,
	}
}

// Create converts the caller's held seats into a PENDING booking.  The
// seats are re-read inside the transaction filtered by holder, HELD
// status and an unexpired deadline; any shortfall against the request
// means the holds lapsed (or never existed) and no booking is created.
// The booking's payment deadline is the earliest hold deadline among the
// captured seats, so it can never outlive the shortest-lived hold.
// Seats stay HELD until confirm.
func (s *BookingService) Create(ctx context.Context, userID, eventID uint64, seatIDs []uint64) (*model.Booking, error) {
	seatIDs = dedupeIDs(seatIDs)
	if len(seatIDs) == 0 {
		return nil, validationf("seat_ids is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	event, err := s.events.GetByIDTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Bookable(time.Now().UTC()) {
		return nil, validationf("event is not open for booking")
	}

	held, err := s.seats.HeldByUserTx(ctx, tx, eventID, seatIDs, userID)
	if err != nil {
		return nil, err
	}
	if len(held) != len(seatIDs) {
		return nil, validationf("seat holds have lapsed, hold the seats again before booking")
	}

	// Amount math runs in uint64: six seats at extreme prices would
	// silently overflow 32-bit cents during the tax multiplication.
	var total uint64
	expiresAt := held[0].HeldUntil
	for _, h := range held {
		total += uint64(h.PriceCents)
		if h.HeldUntil.Before(expiresAt) {
			expiresAt = h.HeldUntil
		}
	}
	tax := total * taxRatePercent / 100
	final := total + tax
	if final > math.MaxUint32 {
		return nil, validationf("booking amount exceeds the supported maximum")
	}

	booking := &model.Booking{
		UserID:           userID,
		EventID:          eventID,
		Status:           model.BookingPending,
		TotalAmountCents: uint32(total),
		TaxAmountCents:   uint32(tax),
		FinalAmountCents: uint32(final),
		ExpiresAt:        &expiresAt,
	}
	if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}

	items := make([]model.BookingItem, 0, len(held))
	for _, h := range held {
		items = append(items, model.BookingItem{
			BookingID:  booking.ID,
			SeatID:     h.SeatID,
			PriceCents: h.PriceCents,
		})
	}
	if err := s.bookings.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return booking, nil
}

// Confirm settles a PENDING booking against the trusted payment signal.
// It runs at serializable isolation; the booking transition itself is a
// conditional update matching the observed version and PENDING status,
// so a concurrent confirm or expiry sweep makes the update match zero
// rows and this call fails with a ConflictError instead of applying seat
// side effects twice.  A retried confirm after success observes a
// non-PENDING status and fails cleanly.  On success the booking's seats
// move HELD -> BOOKED, the hold fields are cleared and the payment row
// is recorded, all in the same transaction.
func (s *BookingService) Confirm(ctx context.Context, bookingID uint64, paymentID, paymentMethod string) (*model.Booking, error) {
	if paymentID == "" {
		return nil, validationf("payment_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingPending {
		return nil, validationf("booking is %s and cannot be confirmed", booking.Status)
	}
	if booking.ExpiresAt != nil && !booking.ExpiresAt.After(time.Now().UTC()) {
		return nil, validationf("booking has expired")
	}

	updated, err := s.bookings.ConfirmTx(ctx, tx, bookingID, booking.Version, paymentID, paymentMethod)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		// Stale version: another transaction mutated this booking
		// between our read and our write.
		return nil, &ConflictError{Message: "booking was modified concurrently, retry from a fresh read"}
	}

	seatIDs, err := s.bookings.SeatIDsTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	booked, err := s.seats.BookTx(ctx, tx, seatIDs, booking.UserID)
	if err != nil {
		return nil, err
	}
	if booked != int64(len(seatIDs)) {
		return nil, &ConflictError{Message: "booked seats are no longer held, restart the booking flow"}
	}

	payment := &model.Payment{
		BookingID:   bookingID,
		GatewayRef:  paymentID,
		AmountCents: booking.FinalAmountCents,
		Status:      "CAPTURED",
		Method:      paymentMethod,
	}
	if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
		return nil, err
	}

	confirmed, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if s.publish != nil {
		_ = s.publish(ctx, queue.BookingConfirmedEvent{
			BookingID:        confirmed.ID,
			UserID:           confirmed.UserID,
			EventID:          confirmed.EventID,
			SeatIDs:          seatIDs,
			FinalAmountCents: confirmed.FinalAmountCents,
			PaymentID:        paymentID,
			ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
		})
	}
	return confirmed, nil
}

// Cancel marks a booking CANCELLED on behalf of its owner, returns its
// seats to AVAILABLE whether they were still HELD by the owner or
// already BOOKED, and restores the event's capacity counter by the
// number of seats actually released (seats reclaimed by an expiry sweep
// or since re-held by another user must not be counted or touched).  Terminal bookings and events that already started
// cannot be cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return repository.ErrForbidden
	}
	if booking.Status == model.BookingCancelled {
		return validationf("booking is already cancelled")
	}
	if booking.Status == model.BookingExpired {
		return validationf("booking has expired and cannot be cancelled")
	}

	event, err := s.events.GetByIDTx(ctx, tx, booking.EventID)
	if err != nil {
		return err
	}
	if !event.StartsAt.After(time.Now().UTC()) {
		return validationf("event has already started")
	}

	updated, err := s.bookings.CancelTx(ctx, tx, bookingID, booking.Version, reason)
	if err != nil {
		return err
	}
	if updated == 0 {
		return &ConflictError{Message: "booking was modified concurrently, retry from a fresh read"}
	}

	seatIDs, err := s.bookings.SeatIDsTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	released, err := s.seats.ReleaseForCancelTx(ctx, tx, seatIDs, booking.UserID)
	if err != nil {
		return err
	}
	if released > 0 {
		if err := s.events.AdjustAvailableSeatsTx(ctx, tx, booking.EventID, released); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// BookingDetail bundles a booking with its items for read responses.
type BookingDetail struct {
	Booking model.Booking       `json:"booking"`
	Items   []model.BookingItem `json:"items"`
}

// Get returns one booking with its items.  A booking owned by another
// user is reported as not found rather than leaking its existence.
func (s *BookingService) Get(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, repository.ErrBookingNotFound
	}
	items, err := s.bookings.Items(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &BookingDetail{Booking: *booking, Items: items}, nil
}

// ListByUser returns one page of the caller's bookings, optionally
// filtered by status, along with the total count for pagination.
func (s *BookingService) ListByUser(ctx context.Context, userID uint64, page, limit int, status model.BookingStatus) ([]model.Booking, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, validationf("unknown booking status %q", string(status))
	}
	return s.bookings.ListByUser(ctx, userID, page, limit, status)
}

// ExpirePending is the booking sweep invoked by the reaper.  It
// transitions every PENDING booking whose payment deadline has passed to
// EXPIRED.  Seat reclamation for the same deadline belongs to the hold
// sweep; the two sweeps are decoupled and both must run for full
// consistency.
func (s *BookingService) ExpirePending(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ids, err := s.bookings.ExpiredPendingIDsTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	expired, err := s.bookings.ExpireTx(ctx, tx, ids)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return expired, nil
}
