package service

import (
	"errors"
	"fmt"

	"github.com/travelhub/busticket/internal/repository"
)

// Kinds.  ErrValidation is the repository's invalid kind so that store and
// service rejections map to the same response.
var (
	ErrValidation         = repository.ErrInvalid
	ErrExternalDependency = errors.New("external dependency failed")
)

// Concrete outcomes callers branch on.
var (
	ErrTripNotFound        = repository.ErrTripNotFound
	ErrTicketNotFound      = repository.ErrTicketNotFound
	ErrSeatAlreadyReserved = repository.ErrSeatTaken
	ErrTicketNotPayable    = repository.ErrTicketNotPayable

	ErrInvalidContact       = fmt.Errorf("invalid contact details: %w", ErrValidation)
	ErrTripNotBookable      = fmt.Errorf("trip is not open for booking: %w", ErrValidation)
	ErrInvalidPage          = fmt.Errorf("page must be 1 or greater: %w", ErrValidation)
	ErrSeatNotOnBus         = fmt.Errorf("seat is not on this trip's bus: %w", repository.ErrNotFound)
	ErrTicketNotCancellable = fmt.Errorf("only pending tickets can be cancelled: %w", repository.ErrConflict)
)

// PaymentFailedError is returned when the gateway reports a failed payment.
// The ticket stays pending and a new payment may be started.
type PaymentFailedError struct {
	TicketID uint64
	Reason   string
}

func (e *PaymentFailedError) Error() string {
	if e.Reason == "" {
		return "payment failed"
	}
	return "payment failed: " + e.Reason
}
