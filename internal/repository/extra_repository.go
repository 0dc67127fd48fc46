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
	qExtraInsert        = `INSERT INTO extras (name, cost_cents) VALUES (?, ?)`
	qExtraByID          = `SELECT id, name, cost_cents FROM extras WHERE id = ?`
	qExtraList          = `SELECT id, name, cost_cents FROM extras ORDER BY name`
	qExtraDelTicketRows = `DELETE FROM ticket_extras WHERE extra_id = ?`
	qExtraDel           = `DELETE FROM extras WHERE id = ?`
)

// ExtraRepo persists add-on services.
type ExtraRepo struct {
	db *sql.DB
}

func NewExtraRepo(db *sql.DB) *ExtraRepo { return &ExtraRepo{db: db} }

// Create inserts an extra; names are unique.
func (r *ExtraRepo) Create(ctx context.Context, e *model.Extra) error {
	e.Name = strings.TrimSpace(e.Name)
	res, err := r.db.ExecContext(ctx, qExtraInsert, e.Name, e.CostCents)
	if err != nil {
		return translate(err, "extra name already exists")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *ExtraRepo) GetByID(ctx context.Context, id uint64) (*model.Extra, error) {
	var e model.Extra
	err := r.db.QueryRowContext(ctx, qExtraByID, id).Scan(&e.ID, &e.Name, &e.CostCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("extra", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByIDs loads every requested extra, in request order.  The first id
// that does not exist is reported as NotFound.
func (r *ExtraRepo) GetByIDs(ctx context.Context, ids []uint64) ([]*model.Extra, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT id, name, cost_cents FROM extras WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, q, uint64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uint64]*model.Extra, len(ids))
	for rows.Next() {
		e := new(model.Extra)
		if err := rows.Scan(&e.ID, &e.Name, &e.CostCents); err != nil {
			return nil, err
		}
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*model.Extra, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("extra", id)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *ExtraRepo) List(ctx context.Context) ([]*model.Extra, error) {
	rows, err := r.db.QueryContext(ctx, qExtraList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Extra
	for rows.Next() {
		e := new(model.Extra)
		if err := rows.Scan(&e.ID, &e.Name, &e.CostCents); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an extra and its ticket associations.  Tickets keep
// their locked-in price.
func (r *ExtraRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockRow(ctx, tx, "extras", "extra", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, qExtraDelTicketRows, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, qExtraDel, id)
		return err
	})
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func uint64Args(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
