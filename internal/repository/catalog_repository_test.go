package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

func TestAirlineCreateDuplicateIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAirlineRepo(db)

	mock.ExpectExec(qAirlineInsert).
		WithArgs("Iran Air", "IR", "Iran", "ops@iranair.test", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'IR' for key 'airlines.uq_airlines_iata'"})

	err := repo.Create(context.Background(), &model.Airline{
		Name: "Iran Air", IATACode: " ir ", Country: "Iran", Email: "OPS@iranair.test", PasswordHash: "hash",
	})
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "got %v", err)
}

func TestAirlineDeleteCascadeOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAirlineRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("airlines")).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	for _, q := range []string{qAirlineDelTicketExtras, qAirlineDelTickets, qAirlineDelFlights, qAirlineDelAircraft, qAirlineDel} {
		mock.ExpectExec(q).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 1))
}

func TestAircraftDeleteInUseIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAircraftRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("aircraft")).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(qAircraftInUse).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 4)
	e := apperr.From(err)
	assert.Equal(t, apperr.CodeConflict, e.Code)
	assert.Equal(t, 2, e.Details["flights"])
}

func TestAirportDeleteUnused(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAirportRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("airports")).WithArgs(8).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectQuery(qAirportInUse).WithArgs(8, 8).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(qAirportDel).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 8))
}

func TestPassengerDeleteReturnsSeatsFirst(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPassengerRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("passengers")).WithArgs(6).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectExec(qPassengerReturnSeats).WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(qPassengerDelTicketExtras).WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qPassengerDelTickets).WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(qPassengerDel).WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 6))
}

func TestExtraGetByIDsReportsMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExtraRepo(db)

	mock.ExpectQuery(`SELECT id, name, cost_cents FROM extras WHERE id IN (?, ?)`).WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "cost_cents"}).AddRow(1, "Meal", 1500))

	_, err := repo.GetByIDs(context.Background(), []uint64{1, 2})
	e := apperr.From(err)
	assert.Equal(t, apperr.CodeNotFound, e.Code)
	assert.Equal(t, uint64(2), e.Details["id"])
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
