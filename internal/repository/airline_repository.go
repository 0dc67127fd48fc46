package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const (
	airlineColumns = `id, name, iata_code, country, email, password_hash, created_at`

	qAirlineInsert  = `INSERT INTO airlines (name, iata_code, country, email, password_hash) VALUES (?, ?, ?, ?, ?)`
	qAirlineByID    = `SELECT ` + airlineColumns + ` FROM airlines WHERE id = ?`
	qAirlineByEmail = `SELECT ` + airlineColumns + ` FROM airlines WHERE email = ? LIMIT 1`
	qAirlineList    = `SELECT ` + airlineColumns + ` FROM airlines ORDER BY id`

	// Cascade for an airline, deepest dependents first.
	qAirlineDelTicketExtras = `DELETE te FROM ticket_extras te
         JOIN tickets t ON t.id = te.ticket_id
         JOIN flights f ON f.id = t.flight_id
         WHERE f.airline_id = ?`
	qAirlineDelTickets = `DELETE t FROM tickets t
         JOIN flights f ON f.id = t.flight_id
         WHERE f.airline_id = ?`
	qAirlineDelFlights  = `DELETE FROM flights WHERE airline_id = ?`
	qAirlineDelAircraft = `DELETE FROM aircraft WHERE airline_id = ?`
	qAirlineDel         = `DELETE FROM airlines WHERE id = ?`
)

// AirlineRepo encapsulates all database queries related to airlines.
type AirlineRepo struct {
	db *sql.DB
}

// NewAirlineRepo constructs an AirlineRepo with the provided DB handle.
func NewAirlineRepo(db *sql.DB) *AirlineRepo {
	return &AirlineRepo{db: db}
}

// Create inserts a new airline and populates its ID and CreatedAt.  The
// unique indexes on iata_code and email make the uniqueness check and the
// insert a single atomic step; a violation surfaces as Conflict.
func (r *AirlineRepo) Create(ctx context.Context, a *model.Airline) error {
	a.IATACode = strings.ToUpper(strings.TrimSpace(a.IATACode))
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	res, err := r.db.ExecContext(ctx, qAirlineInsert, a.Name, a.IATACode, a.Country, a.Email, a.PasswordHash)
	if err != nil {
		return translate(err, "airline IATA code or email already exists")
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

// GetByID fetches an airline or returns NotFound.
func (r *AirlineRepo) GetByID(ctx context.Context, id uint64) (*model.Airline, error) {
	a, err := scanAirline(r.db.QueryRowContext(ctx, qAirlineByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("airline", id)
	}
	return a, err
}

// GetByEmail fetches an airline by normalized login email.
func (r *AirlineRepo) GetByEmail(ctx context.Context, email string) (*model.Airline, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := scanAirline(r.db.QueryRowContext(ctx, qAirlineByEmail, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("airline", email)
	}
	return a, err
}

// List returns every airline ordered by id.
func (r *AirlineRepo) List(ctx context.Context) ([]*model.Airline, error) {
	rows, err := r.db.QueryContext(ctx, qAirlineList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Airline
	for rows.Next() {
		a, err := scanAirline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an airline together with its aircraft, flights, the
// tickets on those flights and their extras, in one transaction.
func (r *AirlineRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "airlines", "airline", id); err != nil {
			return err
		}
		for _, q := range []string{
			qAirlineDelTicketExtras,
			qAirlineDelTickets,
			qAirlineDelFlights,
			qAirlineDelAircraft,
			qAirlineDel,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete airline %d: %w", id, translate(err, "airline delete conflict"))
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAirline(s rowScanner) (*model.Airline, error) {
	var a model.Airline
	if err := s.Scan(&a.ID, &a.Name, &a.IATACode, &a.Country, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
