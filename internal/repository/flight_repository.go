package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const (
	flightColumns = `id, airline_id, aircraft_id, departure_airport_id, arrival_airport_id, departure_at, arrival_at,
         capacity, remaining_seats, economy_cents, business_cents, first_cents, created_at`

	qFlightInsert = `INSERT INTO flights (airline_id, aircraft_id, departure_airport_id, arrival_airport_id,
         departure_at, arrival_at, capacity, remaining_seats, economy_cents, business_cents, first_cents)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	qFlightByID        = `SELECT ` + flightColumns + ` FROM flights WHERE id = ?`
	qFlightByAirline   = `SELECT ` + flightColumns + ` FROM flights WHERE airline_id = ? ORDER BY departure_at, id`
	qFlightSearchPrice = `SELECT ` + flightColumns + ` FROM flights
         WHERE departure_airport_id = ? AND arrival_airport_id = ?
           AND departure_at >= ? AND departure_at < ? AND remaining_seats > 0
         ORDER BY economy_cents, departure_at, id`
	qFlightSearchDuration = `SELECT ` + flightColumns + ` FROM flights
         WHERE departure_airport_id = ? AND arrival_airport_id = ?
           AND departure_at >= ? AND departure_at < ? AND remaining_seats > 0
         ORDER BY TIMESTAMPDIFF(SECOND, departure_at, arrival_at), departure_at, id`
	qFlightExists = `SELECT remaining_seats FROM flights WHERE id = ?`

	// The check and the decrement are one statement: InnoDB takes the row
	// lock, evaluates remaining_seats > 0 against the latest committed value
	// and decrements in place.  Two callers can never both succeed on the
	// last seat.
	qFlightReserve = `UPDATE flights SET remaining_seats = remaining_seats - 1 WHERE id = ? AND remaining_seats > 0`
	qFlightRelease = `UPDATE flights SET remaining_seats = remaining_seats + 1 WHERE id = ? AND remaining_seats < capacity`

	qFlightDelTicketExtras = `DELETE te FROM ticket_extras te
         JOIN tickets t ON t.id = te.ticket_id
         WHERE t.flight_id = ?`
	qFlightDelTickets = `DELETE FROM tickets WHERE flight_id = ?`
	qFlightDel        = `DELETE FROM flights WHERE id = ?`
)

// FlightRepo is the MySQL flight inventory.  remaining_seats is only ever
// changed by Reserve, Release and the cascading deletes, each of which
// expresses the change as a single conditional UPDATE.
type FlightRepo struct {
	db *sql.DB
}

func NewFlightRepo(db *sql.DB) *FlightRepo { return &FlightRepo{db: db} }

// Create inserts a flight.  Callers set Capacity and RemainingSeats; the
// CHECK constraints reject anything outside 0..capacity.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	res, err := r.db.ExecContext(ctx, qFlightInsert,
		f.AirlineID, f.AircraftID, f.DepartureAirportID, f.ArrivalAirportID,
		f.DepartureAt.UTC(), f.ArrivalAt.UTC(), f.Capacity, f.RemainingSeats,
		f.EconomyCents, f.BusinessCents, f.FirstCents)
	if err != nil {
		return translate(err, "flight already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*f = *got
	return nil
}

func (r *FlightRepo) GetByID(ctx context.Context, id uint64) (*model.Flight, error) {
	f, err := scanFlight(r.db.QueryRowContext(ctx, qFlightByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("flight", id)
	}
	return f, err
}

func (r *FlightRepo) ListByAirline(ctx context.Context, airlineID uint64) ([]*model.Flight, error) {
	return r.query(ctx, qFlightByAirline, airlineID)
}

// Search returns direct flights between two airports departing on q.Date
// (UTC day) that still have seats.
func (r *FlightRepo) Search(ctx context.Context, q model.FlightQuery) ([]*model.Flight, error) {
	from := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	stmt := qFlightSearchPrice
	if q.Sort == model.SortByDuration {
		stmt = qFlightSearchDuration
	}
	return r.query(ctx, stmt, q.DepartureAirportID, q.ArrivalAirportID, from, to)
}

// Reserve atomically takes one seat.  When no row is updated the flight
// either does not exist (NotFound) or is full (SeatsExhausted).
func (r *FlightRepo) Reserve(ctx context.Context, flightID uint64) error {
	res, err := r.db.ExecContext(ctx, qFlightReserve, flightID)
	if err != nil {
		return fmt.Errorf("reserve seat on flight %d: %w", flightID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if err := r.exists(ctx, flightID); err != nil {
		return err
	}
	return apperr.SeatsExhausted(flightID)
}

// Release atomically returns one seat.  A flight already at capacity is
// left unchanged.
func (r *FlightRepo) Release(ctx context.Context, flightID uint64) error {
	res, err := r.db.ExecContext(ctx, qFlightRelease, flightID)
	if err != nil {
		return fmt.Errorf("release seat on flight %d: %w", flightID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return r.exists(ctx, flightID)
}

// Delete removes a flight with its tickets and their extras.
func (r *FlightRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "flights", "flight", id); err != nil {
			return err
		}
		for _, q := range []string{qFlightDelTicketExtras, qFlightDelTickets, qFlightDel} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete flight %d: %w", id, translate(err, "flight delete conflict"))
			}
		}
		return nil
	})
}

func (r *FlightRepo) exists(ctx context.Context, flightID uint64) error {
	var remaining int
	err := r.db.QueryRowContext(ctx, qFlightExists, flightID).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("flight", flightID)
	}
	return err
}

func (r *FlightRepo) query(ctx context.Context, q string, args ...any) ([]*model.Flight, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFlight(s rowScanner) (*model.Flight, error) {
	var f model.Flight
	if err := s.Scan(
		&f.ID, &f.AirlineID, &f.AircraftID, &f.DepartureAirportID, &f.ArrivalAirportID,
		&f.DepartureAt, &f.ArrivalAt, &f.Capacity, &f.RemainingSeats,
		&f.EconomyCents, &f.BusinessCents, &f.FirstCents, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
