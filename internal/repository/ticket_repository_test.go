package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

func TestTicketIssueWritesTicketAndExtras(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	key := "req-1"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(qTicketInsert).
		WithArgs(1, 2, "economy", 12000, nil, key).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(qTicketExtrasInsert+"(?, ?),(?, ?)").
		WithArgs(11, 4, 11, 5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(qTicketPurchasedAt).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"purchased_at"}).AddRow(now))
	mock.ExpectCommit()

	tk := &model.Ticket{
		PassengerID: 1, FlightID: 2, Class: model.Economy, PriceCents: 12000, RequestKey: &key,
		Extras: []model.Extra{{ID: 4, CostCents: 1000}, {ID: 5, CostCents: 1000}},
	}
	require.NoError(t, repo.Issue(context.Background(), tk))
	assert.Equal(t, uint64(11), tk.ID)
	assert.Equal(t, now, tk.PurchasedAt)
}

func TestTicketIssueDuplicateRequestKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	key := "req-1"
	mock.ExpectBegin()
	mock.ExpectExec(qTicketInsert).
		WithArgs(1, 2, "first", 50000, nil, key).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'req-1' for key 'tickets.uq_tickets_request_key'"})
	mock.ExpectRollback()

	err := repo.Issue(context.Background(), &model.Ticket{
		PassengerID: 1, FlightID: 2, Class: model.First, PriceCents: 50000, RequestKey: &key,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
	assert.True(t, errors.Is(err, model.ErrDuplicateRequestKey))
}

func TestTicketIssueRejectsBadClassWithoutTouchingDB(t *testing.T) {
	db, _ := newMock(t)
	repo := NewTicketRepo(db)

	err := repo.Issue(context.Background(), &model.Ticket{PassengerID: 1, FlightID: 2, Class: "premium", PriceCents: 100})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidClass))
}

func TestTicketGetByIDLoadsExtras(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(qTicketByID).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "passenger_id", "flight_id", "class", "price_cents", "seat", "request_key", "purchased_at"}).
			AddRow(11, 1, 2, "business", 21000, "4C", nil, now))
	mock.ExpectQuery(qTicketExtrasFor+"?) ORDER BY te.ticket_id, e.id").WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id", "id", "name", "cost_cents"}).
			AddRow(11, 4, "Priority boarding", 1000))

	tk, err := repo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, model.Business, tk.Class)
	require.NotNil(t, tk.Seat)
	assert.Equal(t, "4C", *tk.Seat)
	assert.Nil(t, tk.RequestKey)
	assert.Equal(t, []uint64{4}, tk.ExtraIDs())
}

func TestTicketDeleteReturnsSeat(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(qTicketFlightForUpdate).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"flight_id"}).AddRow(2))
	mock.ExpectExec(qTicketDelExtras).WithArgs(11).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qTicketDel).WithArgs(11).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qFlightRelease).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 11))
}

func TestTicketStats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectQuery(qStatsFlights).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(qStatsSales).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"n", "sum"}).AddRow(5, 61000))
	mock.ExpectQuery(qStatsRoutes).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"dep", "arr", "n"}).
		AddRow(1, 2, 3).AddRow(2, 1, 2))

	s, err := repo.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Flights)
	assert.Equal(t, 5, s.Tickets)
	assert.Equal(t, int64(61000), s.RevenueCents)
	assert.Equal(t, []model.RouteStat{
		{DepartureAirportID: 1, ArrivalAirportID: 2, Tickets: 3},
		{DepartureAirportID: 2, ArrivalAirportID: 1, Tickets: 2},
	}, s.TopRoutes)
}
