package handler

import (
    "context"

    "github.com/travelhub/busticket/internal/model"
    "github.com/travelhub/busticket/internal/service"
)

// Catalog is the read side of trips plus the operator edits.  Implemented
// by *service.CatalogService.
type Catalog interface {
    SearchTrips(ctx context.Context, q service.SearchQuery) (service.SearchPage, error)
    GetTripDetail(ctx context.Context, id uint64) (service.TripDetail, error)
    OccupiedSeats(ctx context.Context, tripID uint64) ([]uint64, error)
    BusSeats(ctx context.Context, busID uint64) (model.Bus, error)
    SetLegs(ctx context.Context, tripID uint64, in []model.LegInput) (model.Legs, error)
    CreateLayout(ctx context.Context, busID uint64, rows, cols int) ([]model.Seat, error)
    DeleteSeat(ctx context.Context, seatID uint64) error
}

// Reservations is implemented by *service.ReservationService.
type Reservations interface {
    Reserve(ctx context.Context, req service.ReserveRequest) (model.Ticket, error)
    GetTicketView(ctx context.Context, id uint64) (service.TicketView, error)
    CancelTicket(ctx context.Context, id uint64) error
}

// Payments is implemented by *service.PaymentService.
type Payments interface {
    InitiatePayment(ctx context.Context, ticketID uint64) (service.PaymentSession, error)
    ConfirmPayment(ctx context.Context, cb service.PaymentCallback) (uint64, error)
}
