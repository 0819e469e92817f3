package service

import (
	"context"
	"time"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/payment"
	"github.com/travelhub/busticket/internal/queue"
	"github.com/travelhub/busticket/internal/repository"
)

// TripStore is satisfied by *repository.TripRepo.
type TripStore interface {
	GetByID(ctx context.Context, id uint64) (model.Trip, error)
	SearchTrips(ctx context.Context, f repository.TripSearchFilter) ([]repository.TripRow, int64, error)
}

// LegStore is satisfied by *repository.LegRepo.
type LegStore interface {
	SetLegs(ctx context.Context, tripID uint64, in []model.LegInput) error
	GetLegs(ctx context.Context, tripID uint64) (model.Legs, error)
	LegsForTrips(ctx context.Context, tripIDs []uint64) (map[uint64]model.Legs, error)
}

// SeatStore is satisfied by *repository.SeatRepo.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (model.Seat, error)
	GetByBus(ctx context.Context, busID uint64) ([]model.Seat, error)
	GetBus(ctx context.Context, busID uint64) (model.Bus, error)
	OccupiedSeatIDs(ctx context.Context, tripID uint64, now time.Time) ([]uint64, error)
	CreateLayout(ctx context.Context, busID uint64, rows, cols int) ([]model.Seat, error)
	DeleteSeat(ctx context.Context, seatID uint64) error
}

// TicketStore is satisfied by *repository.TicketRepo.
type TicketStore interface {
	CreatePending(ctx context.Context, t *model.Ticket, now time.Time) error
	GetByID(ctx context.Context, id uint64) (model.Ticket, error)
	GetByOrderCode(ctx context.Context, code int64) (model.Ticket, error)
	GetDetail(ctx context.Context, id uint64) (repository.TicketDetail, error)
	CancelPending(ctx context.Context, id uint64) (bool, error)
	AttachOrderCode(ctx context.Context, id uint64, code int64, prevAttempts uint32, now time.Time) error
	BookByOrderCode(ctx context.Context, code int64, amount uint32) (model.Ticket, bool, error)
}

// Gateway opens hosted checkout sessions.  *payment.Client satisfies it.
type Gateway interface {
	CreatePaymentSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
}

// Notifier delivers the booking confirmation.  *queue.Publisher satisfies
// it.
type Notifier interface {
	TicketBooked(ctx context.Context, ev queue.TicketBookedEvent) error
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
