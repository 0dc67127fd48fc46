// Package repository implements the MySQL-backed stores: catalog tables,
// the flight seat inventory and the ticket ledger.  Every exported method
// returns classified *apperr.Error values for expected outcomes (missing
// rows, uniqueness and referential conflicts, exhausted seats) and plain
// wrapped errors for infrastructure failures.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// MySQL server error numbers the stores react to.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// translate maps driver errors onto the error taxonomy.  conflictMsg is
// used for duplicate-key violations; anything unrecognised is returned
// unchanged.
func translate(err error, conflictMsg string) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDupEntry:
		return apperr.ConflictCause(conflictMsg, err)
	case errRowIsReferenced:
		return apperr.ConflictCause("record is still referenced", err)
	case errNoReferencedRow:
		return apperr.ConflictCause("referenced record does not exist", err)
	}
	return err
}

// isDupKey reports whether err is a duplicate-key violation on the named
// unique index.
func isDupKey(err error, index string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry && strings.Contains(me.Message, index)
}
