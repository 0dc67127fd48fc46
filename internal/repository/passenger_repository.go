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
	passengerColumns = `id, name, surname, email, password_hash, created_at`

	qPassengerInsert  = `INSERT INTO passengers (name, surname, email, password_hash) VALUES (?, ?, ?, ?)`
	qPassengerByID    = `SELECT ` + passengerColumns + ` FROM passengers WHERE id = ?`
	qPassengerByEmail = `SELECT ` + passengerColumns + ` FROM passengers WHERE email = ? LIMIT 1`

	// Seats held by the passenger's tickets go back to their flights before
	// the tickets disappear, so remaining + tickets stays equal to capacity.
	qPassengerReturnSeats = `UPDATE flights f
         JOIN (SELECT flight_id, COUNT(*) AS n FROM tickets WHERE passenger_id = ? GROUP BY flight_id) t
           ON t.flight_id = f.id
         SET f.remaining_seats = LEAST(f.capacity, f.remaining_seats + t.n)`
	qPassengerDelTicketExtras = `DELETE te FROM ticket_extras te
         JOIN tickets t ON t.id = te.ticket_id
         WHERE t.passenger_id = ?`
	qPassengerDelTickets = `DELETE FROM tickets WHERE passenger_id = ?`
	qPassengerDel        = `DELETE FROM passengers WHERE id = ?`
)

// PassengerRepo persists passengers.
type PassengerRepo struct {
	db *sql.DB
}

func NewPassengerRepo(db *sql.DB) *PassengerRepo { return &PassengerRepo{db: db} }

// Create inserts a passenger.  A duplicate email is a Conflict and leaves
// no row behind.
func (r *PassengerRepo) Create(ctx context.Context, p *model.Passenger) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	res, err := r.db.ExecContext(ctx, qPassengerInsert, p.Name, p.Surname, p.Email, p.PasswordHash)
	if err != nil {
		return translate(err, "passenger email already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

func (r *PassengerRepo) GetByID(ctx context.Context, id uint64) (*model.Passenger, error) {
	p, err := scanPassenger(r.db.QueryRowContext(ctx, qPassengerByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("passenger", id)
	}
	return p, err
}

func (r *PassengerRepo) GetByEmail(ctx context.Context, email string) (*model.Passenger, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := scanPassenger(r.db.QueryRowContext(ctx, qPassengerByEmail, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("passenger", email)
	}
	return p, err
}

// Delete removes a passenger, their tickets and ticket extras, returning
// each ticket's seat to its flight.
func (r *PassengerRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "passengers", "passenger", id); err != nil {
			return err
		}
		for _, q := range []string{
			qPassengerReturnSeats,
			qPassengerDelTicketExtras,
			qPassengerDelTickets,
			qPassengerDel,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete passenger %d: %w", id, translate(err, "passenger delete conflict"))
			}
		}
		return nil
	})
}

func scanPassenger(s rowScanner) (*model.Passenger, error) {
	var p model.Passenger
	if err := s.Scan(&p.ID, &p.Name, &p.Surname, &p.Email, &p.PasswordHash, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
