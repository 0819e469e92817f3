// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// TicketBookedQueue is the durable queue ticket confirmations go through.
const TicketBookedQueue = "ticket.booked"

// TicketBookedEvent is published once, when a ticket first moves to
// booked.  It carries everything the confirmation needs so consumers never
// query the primary database.
type TicketBookedEvent struct {
    EventID      string    `json:"event_id"`
    TicketID     uint64    `json:"ticket_id"`
    TripID       uint64    `json:"trip_id"`
    Email        string    `json:"email"`
    Phone        string    `json:"phone"`
    FromCity     string    `json:"from_city"`
    ToCity       string    `json:"to_city"`
    DepartureAt  time.Time `json:"departure_at"`
    ArrivalAt    time.Time `json:"arrival_at"`
    SeatLabel    string    `json:"seat_label"`
    LicensePlate string    `json:"license_plate"`
    Price        uint32    `json:"price"`
    OrderCode    int64     `json:"order_code"`
    BookedAt     time.Time `json:"booked_at"`
}

// NewEventID returns a fresh id consumers can use to drop duplicates.
func NewEventID() string { return uuid.NewString() }
