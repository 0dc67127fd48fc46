package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const (
	airportColumns = `id, name, city, country, iata_code`

	qAirportInsert = `INSERT INTO airports (name, city, country, iata_code) VALUES (?, ?, ?, ?)`
	qAirportByID   = `SELECT ` + airportColumns + ` FROM airports WHERE id = ?`
	qAirportList   = `SELECT ` + airportColumns + ` FROM airports ORDER BY city, id`
	qAirportInUse  = `SELECT COUNT(*) FROM flights WHERE departure_airport_id = ? OR arrival_airport_id = ?`
	qAirportDel    = `DELETE FROM airports WHERE id = ?`
)

// AirportRepo persists airport reference data.
type AirportRepo struct {
	db *sql.DB
}

func NewAirportRepo(db *sql.DB) *AirportRepo { return &AirportRepo{db: db} }

// Create inserts an airport; a duplicate IATA code is a Conflict.
func (r *AirportRepo) Create(ctx context.Context, a *model.Airport) error {
	a.IATACode = strings.ToUpper(strings.TrimSpace(a.IATACode))
	res, err := r.db.ExecContext(ctx, qAirportInsert, a.Name, a.City, a.Country, a.IATACode)
	if err != nil {
		return translate(err, "airport IATA code already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *AirportRepo) GetByID(ctx context.Context, id uint64) (*model.Airport, error) {
	var a model.Airport
	err := r.db.QueryRowContext(ctx, qAirportByID, id).Scan(&a.ID, &a.Name, &a.City, &a.Country, &a.IATACode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("airport", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns all airports ordered by city.
func (r *AirportRepo) List(ctx context.Context) ([]*model.Airport, error) {
	rows, err := r.db.QueryContext(ctx, qAirportList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Airport
	for rows.Next() {
		a := new(model.Airport)
		if err := rows.Scan(&a.ID, &a.Name, &a.City, &a.Country, &a.IATACode); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an airport.  Airports are never cascaded: while a flight
// departs from or arrives at it, the call fails with Conflict.
func (r *AirportRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "airports", "airport", id); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, qAirportInUse, id, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("airport is still used by flights").
				WithDetails(map[string]any{"airport_id": id, "flights": n})
		}
		_, err := tx.ExecContext(ctx, qAirportDel, id)
		return translate(err, "airport delete conflict")
	})
}
