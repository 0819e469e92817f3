// Package repository defines error kinds that are reused across multiple
// repositories.  Higher layers match on the kind with errors.Is and never on
// the concrete message: ErrNotFound becomes a 404, ErrConflict a 409 and
// ErrInvalid a 400.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Kinds.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// Concrete errors.  Each wraps exactly one kind.
var (
	ErrTripNotFound   = fmt.Errorf("trip %w", ErrNotFound)
	ErrStopNotFound   = fmt.Errorf("stop %w", ErrNotFound)
	ErrSeatNotFound   = fmt.Errorf("seat %w", ErrNotFound)
	ErrBusNotFound    = fmt.Errorf("bus %w", ErrNotFound)
	ErrTicketNotFound = fmt.Errorf("ticket %w", ErrNotFound)

	ErrSeatTaken        = fmt.Errorf("seat already reserved: %w", ErrConflict)
	ErrSeatInUse        = fmt.Errorf("seat is referenced by tickets: %w", ErrConflict)
	ErrLayoutExists     = fmt.Errorf("bus already has a seat layout: %w", ErrConflict)
	ErrTicketNotPayable = fmt.Errorf("ticket is not awaiting payment: %w", ErrConflict)
	ErrPaymentRaced     = fmt.Errorf("another payment was started for this ticket: %w", ErrConflict)
	ErrOrderCodeTaken   = fmt.Errorf("order code already issued to another ticket: %w", ErrConflict)

	ErrTooFewStops    = fmt.Errorf("a trip needs at least 2 stops: %w", ErrInvalid)
	ErrTooManyStops   = fmt.Errorf("a trip accepts at most %d stops: %w", MaxLegs, ErrInvalid)
	ErrDuplicateStop  = fmt.Errorf("a stop may appear once per trip: %w", ErrInvalid)
	ErrMissingLegTime = fmt.Errorf("every stop after the first needs a duration: %w", ErrInvalid)
	ErrLegDuration    = fmt.Errorf("leg duration out of range: %w", ErrInvalid)
	ErrAmountMismatch = fmt.Errorf("paid amount differs from ticket price: %w", ErrInvalid)
	ErrInvalidLayout  = fmt.Errorf("rows and cols must be between 1 and 26: %w", ErrInvalid)
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
	mysqlRowReferenced  = 1451
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrNumber(err) == mysqlDuplicateEntry }

func isMissingParent(err error) bool { return mysqlErrNumber(err) == mysqlNoReferenced }

func isReferenced(err error) bool { return mysqlErrNumber(err) == mysqlRowReferenced }
