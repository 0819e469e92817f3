// Package route decides whether a trip's ordered path connects two cities.
//
// A city can own several stops and a trip may pass through more than one of
// them.  Matching always boards at the earliest stop in the origin city and
// alights at the latest stop in the destination city; the trip connects the
// two cities only when the boarding stop comes strictly before the alighting
// stop.  The SQL search in the repository package applies the same rule with
// MIN(sequence) and MAX(sequence).
package route

import "github.com/travelhub/busticket/internal/model"

// Segment is the part of a trip a traveler rides.
type Segment struct {
	Board  model.Leg
	Alight model.Leg
}

// Minutes is the riding time between the two stops.
func (s Segment) Minutes(legs model.Legs) uint32 {
	var total uint32
	for leg := range legs.All() {
		if leg.Sequence > s.Board.Sequence && leg.Sequence <= s.Alight.Sequence && leg.DurationMin != nil {
			total += *leg.DurationMin
		}
	}
	return total
}

// Match resolves the boarding and alighting legs for a trip.  ok is false
// when either city is absent from the path or the direction is reversed.
func Match(legs model.Legs, originCity, destCity uint64) (seg Segment, ok bool) {
	var haveBoard, haveAlight bool
	for leg := range legs.All() {
		if leg.CityID == originCity && (!haveBoard || leg.Sequence < seg.Board.Sequence) {
			seg.Board = leg
			haveBoard = true
		}
		if leg.CityID == destCity && (!haveAlight || leg.Sequence > seg.Alight.Sequence) {
			seg.Alight = leg
			haveAlight = true
		}
	}
	if !haveBoard || !haveAlight || seg.Board.Sequence >= seg.Alight.Sequence {
		return Segment{}, false
	}
	return seg, true
}

// Connects is Match without the segment.
func Connects(legs model.Legs, originCity, destCity uint64) bool {
	_, ok := Match(legs, originCity, destCity)
	return ok
}
