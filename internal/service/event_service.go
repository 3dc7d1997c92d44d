package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// SectionSpec describes one venue section when an event is created:
// a rectangular block of rows at a uniform price.
type SectionSpec struct {
	Name        string `json:"name"`
	Rows        uint32 `json:"rows"`
	SeatsPerRow uint32 `json:"seats_per_row"`
	PriceCents  uint32 `json:"price_cents"`
}

// EventService creates events and bulk-generates their seat inventory,
// and serves the public seat map.  Event CRUD beyond creation lives with
// the venue-management collaborator; this service only owns what the
// inventory core needs, one AVAILABLE seat row per venue slot with the
// counters initialised to match.
type EventService struct {
	db        *sql.DB
	events    *repository.EventRepo
	seats     *repository.SeatRepo
	txTimeout time.Duration
}

// NewEventService constructs an EventService.
func NewEventService(db *sql.DB, events *repository.EventRepo, seats *repository.SeatRepo, txTimeout time.Duration) *EventService {
	if db == nil || events == nil || seats == nil {
		panic("nil dependency passed to NewEventService")
	}
	if txTimeout <= 0 {
		txTimeout = 15 * time.Second
	}
	return &EventService{db: db, events: events, seats: seats, txTimeout: txTimeout}
}

// Create inserts the event and generates its seats in one transaction:
// for every section, Rows rows labelled A, B, ... AA with SeatsPerRow
// numbered seats each, all AVAILABLE at the section price.  TotalSeats
// and AvailableSeats both start at the generated count.
func (s *EventService) Create(ctx context.Context, name, venue string, startsAt time.Time, sections []SectionSpec) (*model.Event, error) {
	if name == "" || venue == "" {
		return nil, validationf("name and venue are required")
	}
	if !startsAt.After(time.Now().UTC()) {
		return nil, validationf("starts_at must be in the future")
	}
	if len(sections) == 0 {
		return nil, validationf("at least one section is required")
	}

	var seats []model.Seat
	for _, sec := range sections {
		if sec.Name == "" || sec.Rows == 0 || sec.SeatsPerRow == 0 {
			return nil, validationf("each section needs a name, rows and seats_per_row")
		}
		for row := uint32(0); row < sec.Rows; row++ {
			label := rowLabel(int(row))
			for num := uint32(1); num <= sec.SeatsPerRow; num++ {
				seats = append(seats, model.Seat{
					Section:    sec.Name,
					RowLabel:   label,
					SeatNumber: num,
					PriceCents: sec.PriceCents,
					Status:     model.SeatAvailable,
				})
			}
		}
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

	event := &model.Event{
		Name:           name,
		Venue:          venue,
		StartsAt:       startsAt.UTC(),
		TotalSeats:     uint32(len(seats)),
		AvailableSeats: uint32(len(seats)),
		Status:         model.EventOnSale,
	}
	if err := s.events.CreateTx(ctx, tx, event); err != nil {
		return nil, err
	}
	for i := range seats {
		seats[i].EventID = event.ID
	}
	if err := s.seats.CreateBulkTx(ctx, tx, seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return event, nil
}

// SeatMap returns the event and all of its seats for the public browse
// surface.
func (s *EventService) SeatMap(ctx context.Context, eventID uint64) (*model.Event, []model.Seat, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	seats, err := s.seats.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return event, seats, nil
}

// rowLabel converts a zero-based row index into an alphabetical label
// like A, B, ..., Z, AA, AB.
func rowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []rune
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
