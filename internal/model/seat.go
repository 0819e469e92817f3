package model

// Seat is a fixed position in a bus layout.  (BusID, Row, Col) is unique
// and Label is unique within a bus.
type Seat struct {
    ID    uint64 `json:"id"`     // seats.id
    BusID uint64 `json:"bus_id"` // seats.bus_id
    Row   uint16 `json:"row"`    // seats.seat_row
    Col   uint16 `json:"col"`    // seats.seat_col
    Label string `json:"label"`  // seats.label
}

// Bus carries the seat layout a trip sells.
type Bus struct {
    ID           uint64 `json:"id"`
    LicensePlate string `json:"license_plate"`
    Seats        []Seat `json:"seats"`
}
