package model

// City groups the stops travelers pick as origin or destination.
type City struct {
    ID   uint64 `json:"id"`   // cities.id
    Name string `json:"name"` // cities.name
}

// Stop is a physical boarding point owned by a city.  A stop referenced by
// any trip leg is never deleted (FK RESTRICT).
type Stop struct {
    ID     uint64 `json:"id"`      // stops.id
    CityID uint64 `json:"city_id"` // stops.city_id
    Name   string `json:"name"`    // stops.name
}
