package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const (
	aircraftColumns = `id, airline_id, model, total_seats, created_at`

	qAircraftInsert    = `INSERT INTO aircraft (airline_id, model, total_seats) VALUES (?, ?, ?)`
	qAircraftByID      = `SELECT ` + aircraftColumns + ` FROM aircraft WHERE id = ?`
	qAircraftByAirline = `SELECT ` + aircraftColumns + ` FROM aircraft WHERE airline_id = ? ORDER BY id`
	qAircraftInUse     = `SELECT COUNT(*) FROM flights WHERE aircraft_id = ?`
	qAircraftDel       = `DELETE FROM aircraft WHERE id = ?`
)

// AircraftRepo persists the aircraft table.
type AircraftRepo struct {
	db *sql.DB
}

func NewAircraftRepo(db *sql.DB) *AircraftRepo { return &AircraftRepo{db: db} }

// Create inserts an aircraft for an existing airline.  A missing airline
// is reported by the foreign key as Conflict.
func (r *AircraftRepo) Create(ctx context.Context, a *model.Aircraft) error {
	res, err := r.db.ExecContext(ctx, qAircraftInsert, a.AirlineID, a.Model, a.TotalSeats)
	if err != nil {
		return translate(err, "aircraft already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = *got
	return nil
}

func (r *AircraftRepo) GetByID(ctx context.Context, id uint64) (*model.Aircraft, error) {
	a, err := scanAircraft(r.db.QueryRowContext(ctx, qAircraftByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("aircraft", id)
	}
	return a, err
}

func (r *AircraftRepo) ListByAirline(ctx context.Context, airlineID uint64) ([]*model.Aircraft, error) {
	rows, err := r.db.QueryContext(ctx, qAircraftByAirline, airlineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Aircraft
	for rows.Next() {
		a, err := scanAircraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an aircraft that no flight references.  While any flight
// still points at it the call fails with Conflict and nothing changes.
func (r *AircraftRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "aircraft", "aircraft", id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, qAircraftInUse, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("aircraft is still assigned to flights").
				WithDetails(map[string]any{"aircraft_id": id, "flights": n})
		}
		_, err := tx.ExecContext(ctx, qAircraftDel, id)
		return translate(err, "aircraft delete conflict")
	})
}

func scanAircraft(s rowScanner) (*model.Aircraft, error) {
	var a model.Aircraft
	if err := s.Scan(&a.ID, &a.AirlineID, &a.Model, &a.TotalSeats, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
