package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

// HoldConfig carries the tunables of the hold subsystem.
type HoldConfig struct {
	TTL             time.Duration // lifetime of a fresh hold (default 600s)
	MaxSeatsPerUser int           // active-hold ceiling per user per event (default 6)
	TxTimeout       time.Duration // wall-clock bound on each transactional unit of work
}

// HoldService acquires, releases, extends and sweeps temporary seat
// holds.  Every mutation runs inside a single transaction: hold
// acquisition at serializable isolation with a row-count re-check after
// the conditional write, so a lost race aborts the whole request instead
// of leaving a partial hold.
type HoldService struct {
	db     *sql.DB
	events *repository.EventRepo
	seats  *repository.SeatRepo
	cfg    HoldConfig
}

// NewHoldService constructs a HoldService.  All dependencies must be
// non-nil; configuration zero values fall back to the documented
// defaults.
func NewHoldService(db *sql.DB, events *repository.EventRepo, seats *repository.SeatRepo, cfg HoldConfig) *HoldService {
	if db == nil || events == nil || seats == nil {
		panic("nil dependency passed to NewHoldService")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 600 * time.Second
	}
	if cfg.MaxSeatsPerUser <= 0 {
		cfg.MaxSeatsPerUser = 6
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 15 * time.Second
	}
	return &HoldService{db: db, events: events, seats: seats, cfg: cfg}
}

// HoldResult is returned to the client after a successful hold.  HoldID
// is a random correlation token; it is not persisted and carries no
// authority, ownership checks always use the authenticated user.
type HoldResult struct {
	HoldID    string    `json:"hold_id"`
	SeatIDs   []uint64  `json:"seat_ids"`
	ExpiresAt time.Time `json:"expires_at"`
}

// randRead is swapped out in tests to exercise entropy failure.
var randRead = rand.Read

// newHoldToken returns a random hexadecimal token of n*2 characters.
func newHoldToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// dedupeIDs drops zero and duplicate seat IDs preserving order.
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	unique := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}

// Hold places a temporary, exclusive claim on the requested seats for
// userID.  Within one serializable transaction it verifies the event is
// bookable, enforces the per-user hold limit, filters the seats still
// AVAILABLE, performs the conditional AVAILABLE->HELD transition and
// decrements the event's capacity counter by the held count.  Holds are
// all-or-nothing: any unavailable seat fails the whole request with a
// ConflictError naming the offending IDs, and a transitioned-count
// mismatch after the write (a race won by another transaction between
// our read and our write) aborts the same way.
func (s *HoldService) Hold(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (*HoldResult, error) {
	seatIDs = dedupeIDs(seatIDs)
	if len(seatIDs) == 0 {
		return nil, validationf("seat_ids is required")
	}
	if len(seatIDs) > s.cfg.MaxSeatsPerUser {
		return nil, validationf("cannot hold more than %d seats", s.cfg.MaxSeatsPerUser)
	}
	// Generated up front so a token failure cannot surface as an error
	// after the seats are already committed HELD.
	holdID, err := newHoldToken(16)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
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

	event, err := s.events.GetByIDTx(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Bookable(time.Now().UTC()) {
		return nil, validationf("event is not open for booking")
	}

	existing, err := s.seats.CountActiveHoldsTx(ctx, tx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if existing+len(seatIDs) > s.cfg.MaxSeatsPerUser {
		return nil, validationf("cannot hold more than %d seats (%d already held)", s.cfg.MaxSeatsPerUser, existing)
	}

	available, err := s.seats.FilterAvailableTx(ctx, tx, eventID, seatIDs)
	if err != nil {
		return nil, err
	}
	if len(available) != len(seatIDs) {
		return nil, &ConflictError{
			Message:            "some seats are unavailable",
			UnavailableSeatIDs: missingIDs(seatIDs, available),
		}
	}

	expiresAt := time.Now().UTC().Add(s.cfg.TTL).Truncate(time.Second)
	held, err := s.seats.HoldTx(ctx, tx, eventID, seatIDs, userID, expiresAt)
	if err != nil {
		return nil, err
	}
	// Second race-detection point: another transaction may have won
	// between the availability read and the conditional write.
	if held != int64(len(seatIDs)) {
		return nil, &ConflictError{Message: "seats were taken by a concurrent request"}
	}

	if err := s.events.AdjustAvailableSeatsTx(ctx, tx, eventID, -held); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return &HoldResult{HoldID: holdID, SeatIDs: seatIDs, ExpiresAt: expiresAt}, nil
}

// missingIDs returns the elements of requested that are absent from got.
func missingIDs(requested, got []uint64) []uint64 {
	present := make(map[uint64]struct{}, len(got))
	for _, id := range got {
		present[id] = struct{}{}
	}
	missing := make([]uint64, 0, len(requested)-len(got))
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Release returns the caller's holds on the given seats to AVAILABLE and
// restores the event's capacity counter by the count actually released.
// Seats the caller does not hold simply do not match; releasing nothing
// is not an error.
func (s *HoldService) Release(ctx context.Context, eventID uint64, seatIDs []uint64, userID uint64) (int64, error) {
	seatIDs = dedupeIDs(seatIDs)
	if len(seatIDs) == 0 {
		return 0, validationf("seat_ids is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
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

	released, err := s.seats.ReleaseTx(ctx, tx, eventID, seatIDs, userID)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		if err := s.events.AdjustAvailableSeatsTx(ctx, tx, eventID, released); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return released, nil
}

// Extend pushes the deadline of the caller's active holds to
// now + min(additional, TTL): a hold can be renewed but never extended
// further than a fresh hold would reach.  Fails with a validation error
// when no seat qualified (expired, foreign or unknown holds).
func (s *HoldService) Extend(ctx context.Context, seatIDs []uint64, userID uint64, additional time.Duration) (time.Time, error) {
	seatIDs = dedupeIDs(seatIDs)
	if len(seatIDs) == 0 {
		return time.Time{}, validationf("seat_ids is required")
	}
	if additional <= 0 {
		additional = 300 * time.Second
	}
	if additional > s.cfg.TTL {
		additional = s.cfg.TTL
	}
	newUntil := time.Now().UTC().Add(additional).Truncate(time.Second)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	extended, err := s.seats.ExtendTx(ctx, tx, seatIDs, userID, newUntil)
	if err != nil {
		return time.Time{}, err
	}
	if extended == 0 {
		return time.Time{}, validationf("no active holds to extend")
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	committed = true
	return newUntil, nil
}

// ActiveHolds lists the caller's active, unexpired holds.  Pass eventID
// 0 to list holds across all events.
func (s *HoldService) ActiveHolds(ctx context.Context, userID, eventID uint64) ([]repository.HoldView, error) {
	return s.seats.ActiveHoldsByUser(ctx, userID, eventID)
}

// ReleaseExpiredHolds is the hold sweep invoked by the reaper.  It
// reclaims every seat whose deadline has passed in one transaction,
// grouped per event, then restores each affected event's capacity
// counter independently and best-effort: a failed counter update is
// logged and skipped so one bad event cannot block reclamation for the
// others.  Returns the total number of seats reclaimed.
func (s *HoldService) ReleaseExpiredHolds(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
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

	expired, err := s.seats.ExpiredHeldTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var total int64
	reclaimed := make(map[uint64]int64, len(expired))
	for eventID, seatIDs := range expired {
		n, err := s.seats.ReclaimExpiredTx(ctx, tx, eventID, seatIDs)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			reclaimed[eventID] = n
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	// Counter restoration is deliberately outside the transaction and
	// per event: the seats are already reclaimed, and a counter failure
	// for one event must not undo or block the rest of the sweep.
	for eventID, n := range reclaimed {
		if err := s.events.AdjustAvailableSeats(ctx, eventID, n); err != nil {
			log.Printf("hold-sweep: restoring %d available seats for event %d failed: %v", n, eventID, err)
		}
	}
	return total, nil
}
