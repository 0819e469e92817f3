package model

import (
    "iter"
    "time"
)

// Trip statuses.  Only scheduled trips accept reservations.
const (
    TripScheduled = "scheduled"
    TripCancelled = "cancelled"
    TripCompleted = "completed"
)

// Trip is one departure of a bus along a fixed ordered path of stops.
// Arrival is not stored; see Legs.ArrivalFrom.
type Trip struct {
    ID          uint64    `json:"id"`           // trips.id
    BusID       *uint64   `json:"bus_id"`       // trips.bus_id (nullable)
    DepartureAt time.Time `json:"departure_at"` // trips.departure_at (UTC)
    Price       uint32    `json:"price"`        // trips.price
    Status      string    `json:"status"`       // trips.status
}

// Bookable reports whether a reservation may be taken at now.
func (t Trip) Bookable(now time.Time) bool {
    return t.Status == TripScheduled && t.BusID != nil && t.DepartureAt.After(now)
}

// Leg is one stop on a trip's path.  DurationMin is the travel time from
// the previous stop and is nil for the first leg.
type Leg struct {
    TripID      uint64  `json:"-"`
    StopID      uint64  `json:"stop_id"`
    StopName    string  `json:"stop_name"`
    CityID      uint64  `json:"city_id"`
    CityName    string  `json:"city_name"`
    Sequence    uint16  `json:"sequence"`
    DurationMin *uint32 `json:"duration_min"`
}

// Legs is a trip's path sorted by ascending sequence.
type Legs []Leg

// All yields the legs in order.  The sequence can be ranged over any
// number of times.
func (l Legs) All() iter.Seq[Leg] {
    return func(yield func(Leg) bool) {
        for _, leg := range l {
            if !yield(leg) {
                return
            }
        }
    }
}

// TotalMinutes sums every leg duration.
func (l Legs) TotalMinutes() uint32 {
    var total uint32
    for leg := range l.All() {
        if leg.DurationMin != nil {
            total += *leg.DurationMin
        }
    }
    return total
}

// ArrivalFrom derives the arrival at the last stop.
func (l Legs) ArrivalFrom(departure time.Time) time.Time {
    return departure.Add(time.Duration(l.TotalMinutes()) * time.Minute)
}

// LegInput is one entry of an operator supplied path.  DurationMin is
// signed so that a negative value reaches validation instead of failing
// to decode.
type LegInput struct {
    StopID      uint64 `json:"stop_id" validate:"required"`
    DurationMin *int64 `json:"duration_min"`
}
