package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const (
	ticketColumns = `id, passenger_id, flight_id, class, price_cents, seat, request_key, purchased_at`

	qTicketInsert       = `INSERT INTO tickets (passenger_id, flight_id, class, price_cents, seat, request_key) VALUES (?, ?, ?, ?, ?, ?)`
	qTicketExtrasInsert = `INSERT INTO ticket_extras (ticket_id, extra_id) VALUES `
	qTicketPurchasedAt  = `SELECT purchased_at FROM tickets WHERE id = ?`
	qTicketByID         = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	qTicketByRequestKey = `SELECT ` + ticketColumns + ` FROM tickets WHERE request_key = ?`
	qTicketByFlight     = `SELECT ` + ticketColumns + ` FROM tickets WHERE flight_id = ? ORDER BY id`
	qTicketByPassenger  = `SELECT ` + ticketColumns + ` FROM tickets WHERE passenger_id = ? ORDER BY purchased_at DESC, id DESC`
	qTicketExtrasFor    = `SELECT te.ticket_id, e.id, e.name, e.cost_cents FROM ticket_extras te
         JOIN extras e ON e.id = te.extra_id
         WHERE te.ticket_id IN (`
	qTicketFlightForUpdate = `SELECT flight_id FROM tickets WHERE id = ? FOR UPDATE`
	qTicketDelExtras       = `DELETE FROM ticket_extras WHERE ticket_id = ?`
	qTicketDel             = `DELETE FROM tickets WHERE id = ?`

	qStatsFlights = `SELECT COUNT(*) FROM flights WHERE airline_id = ?`
	qStatsSales   = `SELECT COUNT(t.id), COALESCE(SUM(t.price_cents), 0) FROM tickets t
         JOIN flights f ON f.id = t.flight_id
         WHERE f.airline_id = ?`
	qStatsRoutes = `SELECT f.departure_airport_id, f.arrival_airport_id, COUNT(t.id) AS n FROM tickets t
         JOIN flights f ON f.id = t.flight_id
         WHERE f.airline_id = ?
         GROUP BY f.departure_airport_id, f.arrival_airport_id
         ORDER BY n DESC, f.departure_airport_id, f.arrival_airport_id
         LIMIT 5`

	requestKeyIndex = "uq_tickets_request_key"
)

// TicketRepo is the MySQL ticket ledger.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Issue persists a ticket and its extra associations in one transaction:
// either every row is written or none is.  Class and price are checked
// here as well, independently of the caller.
func (r *TicketRepo) Issue(ctx context.Context, t *model.Ticket) error {
	if err := t.CheckIssuable(); err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, qTicketInsert,
			t.PassengerID, t.FlightID, string(t.Class), t.PriceCents, t.Seat, t.RequestKey)
		if err != nil {
			if isDupKey(err, requestKeyIndex) {
				return apperr.ConflictCause("request key already used", model.ErrDuplicateRequestKey)
			}
			return translate(err, "ticket already exists")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(id)

		if len(t.Extras) > 0 {
			q := qTicketExtrasInsert
			args := make([]any, 0, len(t.Extras)*2)
			for i, e := range t.Extras {
				if i > 0 {
					q += ","
				}
				q += "(?, ?)"
				args = append(args, t.ID, e.ID)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return translate(err, "extra attached twice to the same ticket")
			}
		}
		return tx.QueryRowContext(ctx, qTicketPurchasedAt, t.ID).Scan(&t.PurchasedAt)
	})
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	return r.one(ctx, qTicketByID, id, "ticket")
}

// GetByRequestKey returns the ticket issued for a de-duplication key.
func (r *TicketRepo) GetByRequestKey(ctx context.Context, key string) (*model.Ticket, error) {
	return r.one(ctx, qTicketByRequestKey, key, "ticket")
}

// ListByFlight returns the flight's tickets with their extras.
func (r *TicketRepo) ListByFlight(ctx context.Context, flightID uint64) ([]*model.Ticket, error) {
	return r.many(ctx, qTicketByFlight, flightID)
}

// ListByPassenger returns the passenger's tickets, newest first.
func (r *TicketRepo) ListByPassenger(ctx context.Context, passengerID uint64) ([]*model.Ticket, error) {
	return r.many(ctx, qTicketByPassenger, passengerID)
}

// Delete removes a ticket and its extras and gives the seat back to the
// flight in the same transaction.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var flightID uint64
		err := tx.QueryRowContext(ctx, qTicketFlightForUpdate, id).Scan(&flightID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("ticket", id)
		}
		if err != nil {
			return err
		}
		for _, q := range []string{qTicketDelExtras, qTicketDel} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete ticket %d: %w", id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, qFlightRelease, flightID); err != nil {
			return fmt.Errorf("return seat to flight %d: %w", flightID, err)
		}
		return nil
	})
}

// Stats aggregates an airline's flights, tickets, revenue and its five
// busiest routes.
func (r *TicketRepo) Stats(ctx context.Context, airlineID uint64) (*model.AirlineStats, error) {
	var s model.AirlineStats
	if err := r.db.QueryRowContext(ctx, qStatsFlights, airlineID).Scan(&s.Flights); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, qStatsSales, airlineID).Scan(&s.Tickets, &s.RevenueCents); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, qStatsRoutes, airlineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rs model.RouteStat
		if err := rows.Scan(&rs.DepartureAirportID, &rs.ArrivalAirportID, &rs.Tickets); err != nil {
			return nil, err
		}
		s.TopRoutes = append(s.TopRoutes, rs)
	}
	return &s, rows.Err()
}

func (r *TicketRepo) one(ctx context.Context, q string, arg any, resource string) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(resource, arg)
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachExtras(ctx, []*model.Ticket{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TicketRepo) many(ctx context.Context, q string, arg any) ([]*model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	var out []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := r.attachExtras(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachExtras loads the extras of every ticket with one query.
func (r *TicketRepo) attachExtras(ctx context.Context, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Ticket, len(tickets))
	ids := make([]uint64, 0, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	q := qTicketExtrasFor + placeholders(len(ids)) + `) ORDER BY te.ticket_id, e.id`
	rows, err := r.db.QueryContext(ctx, q, uint64Args(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ticketID uint64
		var e model.Extra
		if err := rows.Scan(&ticketID, &e.ID, &e.Name, &e.CostCents); err != nil {
			return err
		}
		if t, ok := byID[ticketID]; ok {
			t.Extras = append(t.Extras, e)
		}
	}
	return rows.Err()
}

func scanTicket(s rowScanner) (*model.Ticket, error) {
	var (
		t          model.Ticket
		class      string
		seat       sql.NullString
		requestKey sql.NullString
	)
	if err := s.Scan(&t.ID, &t.PassengerID, &t.FlightID, &class, &t.PriceCents, &seat, &requestKey, &t.PurchasedAt); err != nil {
		return nil, err
	}
	t.Class = model.Class(class)
	if seat.Valid {
		v := seat.String
		t.Seat = &v
	}
	if requestKey.Valid {
		v := requestKey.String
		t.RequestKey = &v
	}
	return &t, nil
}
