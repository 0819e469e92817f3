package model

import "time"

// Ticket statuses.  A ticket is created pending, moves to booked once on a
// confirmed payment, and cancelled tickets no longer hold their seat.
const (
    TicketPending   = "pending"
    TicketBooked    = "booked"
    TicketCancelled = "cancelled"
)

// Ticket is a single seat sold on a single trip.
//
// Fields:
//  Price            – snapshot of the trip price at reservation time.
//  OrderCode        – the most recently issued gateway order code; older
//                     codes are no longer honored.
//  PaymentAttempts  – number of order codes issued so far.
//  ExpiresAt        – when a pending ticket stops holding its seat (nil
//                     means never).
//  ConfirmationSent – set in the same transaction that books the ticket.
type Ticket struct {
    ID               uint64     `json:"id"`
    TripID           uint64     `json:"trip_id"`
    SeatID           uint64     `json:"seat_id"`
    UserID           *uint64    `json:"user_id,omitempty"`
    Email            string     `json:"email"`
    Phone            string     `json:"phone"`
    Price            uint32     `json:"price"`
    Status           string     `json:"status"`
    OrderCode        *int64     `json:"order_code,omitempty"`
    PaymentAttempts  uint32     `json:"payment_attempts"`
    ExpiresAt        *time.Time `json:"expires_at,omitempty"`
    ConfirmationSent bool       `json:"-"`
    CreatedAt        time.Time  `json:"created_at"`
    UpdatedAt        time.Time  `json:"updated_at"`
}

// Expired reports whether a pending ticket has given up its seat.
func (t Ticket) Expired(now time.Time) bool {
    return t.Status == TicketPending && t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
