package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

func newEventService(t *testing.T) (*EventService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewEventService(db, repository.NewEventRepo(db), repository.NewSeatRepo(db), 0)
	return svc, mock
}

func TestCreateEventGeneratesSeats(t *testing.T) {
	svc, mock := newEventService(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	// 2 rows x 3 seats + 1 row x 2 seats = 8 seats total.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs("Go Conf", "Main Hall", startsAt.Format("2006-01-02 15:04:05"), 8, 8, string(model.EventOnSale)).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WithArgs(5).
		WillReturnRows(eventRow(5, model.EventOnSale, startsAt, 8, 8))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seats`)).
		WillReturnResult(sqlmock.NewResult(0, 8))
	mock.ExpectCommit()

	event, err := svc.Create(context.Background(), "Go Conf", "Main Hall", startsAt, []SectionSpec{
		{Name: "Floor", Rows: 2, SeatsPerRow: 3, PriceCents: 5000},
		{Name: "Balcony", Rows: 1, SeatsPerRow: 2, PriceCents: 3000},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), event.ID)
	assert.Equal(t, uint32(8), event.TotalSeats)
	assert.Equal(t, uint32(8), event.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventValidation(t *testing.T) {
	svc, mock := newEventService(t)
	future := time.Now().UTC().Add(time.Hour)
	section := []SectionSpec{{Name: "Floor", Rows: 1, SeatsPerRow: 1, PriceCents: 100}}

	var verr *ValidationError

	_, err := svc.Create(context.Background(), "", "Main Hall", future, section)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(context.Background(), "Go Conf", "Main Hall", time.Now().UTC().Add(-time.Hour), section)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(context.Background(), "Go Conf", "Main Hall", future, nil)
	require.ErrorAs(t, err, &verr)

	_, err = svc.Create(context.Background(), "Go Conf", "Main Hall", future,
		[]SectionSpec{{Name: "Floor", Rows: 0, SeatsPerRow: 5}})
	require.ErrorAs(t, err, &verr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowLabel(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for idx, want := range cases {
		assert.Equal(t, want, rowLabel(idx), "index %d", idx)
	}
}
