package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TripSearchFilter selects trips that carry a traveler from one city to
// another.  Page is 1-based.
type TripSearchFilter struct {
	OriginCityID      uint64
	DestinationCityID uint64
	// Date restricts departures to one calendar day in Location.  Only the
	// year, month and day of Date are used.
	Date     *time.Time
	Location *time.Location
	Page     int
	PageSize int
}

// TripRow is one search hit before legs are attached.
type TripRow struct {
	ID          uint64
	BusID       *uint64
	DepartureAt time.Time
	Price       uint32
	Status      string
	Capacity    int
}

// predicate is a fixed SQL fragment plus its bound values.  Fragments are
// constants in this file; callers only contribute values.
type predicate struct {
	sql  string
	args []any
}

type tripSearchBuilder struct {
	preds []predicate
}

func (b *tripSearchBuilder) departsWithin(from, to time.Time) {
	b.preds = append(b.preds, predicate{"t.departure_at >= ? AND t.departure_at < ?", []any{from.UTC(), to.UTC()}})
}

func (b *tripSearchBuilder) where() (string, []any) {
	if len(b.preds) == 0 {
		return "1=1", nil
	}
	parts := make([]string, 0, len(b.preds))
	var args []any
	for _, p := range b.preds {
		parts = append(parts, "("+p.sql+")")
		args = append(args, p.args...)
	}
	return strings.Join(parts, " AND "), args
}

// DayWindow returns [start of day, start of next day) for the calendar day
// of d in loc.
func DayWindow(d time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := d.Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// connectingTrips joins each trip to its earliest stop in the origin city
// and its latest stop in the destination city.  Grouping in the derived
// tables keeps one row per trip, so COUNT(*) counts trips.  route.Match
// applies the same rule to loaded legs; the two must change together.
const connectingTrips = `
		FROM trips t
		JOIN (SELECT tl.trip_id, MIN(tl.sequence) AS seq
		      FROM trip_legs tl JOIN stops s ON s.id = tl.stop_id
		      WHERE s.city_id = ?
		      GROUP BY tl.trip_id) o ON o.trip_id = t.id
		JOIN (SELECT tl.trip_id, MAX(tl.sequence) AS seq
		      FROM trip_legs tl JOIN stops s ON s.id = tl.stop_id
		      WHERE s.city_id = ?
		      GROUP BY tl.trip_id) d ON d.trip_id = t.id
		WHERE o.seq < d.seq AND `

// SearchTrips returns one page of connecting trips ordered by departure then
// id, plus the total number of matching trips.
func (r *TripRepo) SearchTrips(ctx context.Context, f TripSearchFilter) ([]TripRow, int64, error) {
	var b tripSearchBuilder
	if f.Date != nil {
		b.departsWithin(DayWindow(*f.Date, f.Location))
	}
	cond, condArgs := b.where()
	args := append([]any{f.OriginCityID, f.DestinationCityID}, condArgs...)

	var total int64
	countSQL := `SELECT COUNT(*)` + connectingTrips + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.PageSize
	if limit < 1 {
		limit = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	dataSQL := `SELECT
			t.id,
			t.bus_id,
			t.departure_at,
			t.price,
			t.status,
			(SELECT COUNT(*) FROM seats se WHERE se.bus_id = t.bus_id) AS capacity` +
		connectingTrips + cond + `
		ORDER BY t.departure_at ASC, t.id ASC
		LIMIT ? OFFSET ?`
	dataArgs := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]TripRow, 0, limit)
	for rows.Next() {
		var (
			row   TripRow
			busID sql.NullInt64
		)
		if err := rows.Scan(&row.ID, &busID, &row.DepartureAt, &row.Price, &row.Status, &row.Capacity); err != nil {
			return nil, 0, err
		}
		if busID.Valid {
			id := uint64(busID.Int64)
			row.BusID = &id
		}
		row.DepartureAt = row.DepartureAt.UTC()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
