package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/travelhub/busticket/internal/model"
)

// MaxLegs is the largest path a trip can store; sequence is a SMALLINT.
const MaxLegs = math.MaxInt16

// LegRepo stores the ordered stop list of each trip.
type LegRepo struct {
	db *sqlx.DB
}

// NewLegRepo wraps db for sqlx batch loading.
func NewLegRepo(db *sql.DB) *LegRepo {
	return &LegRepo{db: sqlx.NewDb(db, "mysql")}
}

type legRow struct {
	TripID      uint64        `db:"trip_id"`
	StopID      uint64        `db:"stop_id"`
	StopName    string        `db:"stop_name"`
	CityID      uint64        `db:"city_id"`
	CityName    string        `db:"city_name"`
	Sequence    uint16        `db:"sequence"`
	DurationMin sql.NullInt64 `db:"duration_min"`
}

func (r legRow) leg() model.Leg {
	l := model.Leg{
		TripID:   r.TripID,
		StopID:   r.StopID,
		StopName: r.StopName,
		CityID:   r.CityID,
		CityName: r.CityName,
		Sequence: r.Sequence,
	}
	if r.DurationMin.Valid {
		d := uint32(r.DurationMin.Int64)
		l.DurationMin = &d
	}
	return l
}

const legColumns = `SELECT tl.trip_id, tl.stop_id, s.name AS stop_name, s.city_id, c.name AS city_name,
	       tl.sequence, tl.duration_min
	FROM trip_legs tl
	JOIN stops s  ON s.id = tl.stop_id
	JOIN cities c ON c.id = s.city_id`

// ValidateLegs checks an operator supplied path before anything is written.
func ValidateLegs(in []model.LegInput) error {
	if len(in) < 2 {
		return ErrTooFewStops
	}
	if len(in) > MaxLegs {
		return ErrTooManyStops
	}
	seen := make(map[uint64]struct{}, len(in))
	for i, l := range in {
		if _, dup := seen[l.StopID]; dup {
			return ErrDuplicateStop
		}
		seen[l.StopID] = struct{}{}
		if i == 0 {
			continue
		}
		if l.DurationMin == nil {
			return ErrMissingLegTime
		}
		if *l.DurationMin < 0 || *l.DurationMin > math.MaxUint32 {
			return ErrLegDuration
		}
	}
	return nil
}

// SetLegs replaces the whole path of a trip.  The first leg's duration is
// always stored as NULL.  Either every leg is written or none is.
func (r *LegRepo) SetLegs(ctx context.Context, tripID uint64, in []model.LegInput) error {
	if err := ValidateLegs(in); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var id uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM trips WHERE id = ? FOR UPDATE`, tripID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTripNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_legs WHERE trip_id = ?`, tripID); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO trip_legs (trip_id, stop_id, sequence, duration_min) VALUES `)
	args := make([]any, 0, len(in)*4)
	for i, l := range in {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?)")
		var dur any
		if i > 0 {
			dur = *l.DurationMin
		}
		args = append(args, tripID, l.StopID, i+1, dur)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		switch {
		case isMissingParent(err):
			return ErrStopNotFound
		case isDuplicate(err):
			return ErrDuplicateStop
		}
		return err
	}
	return tx.Commit()
}

// GetLegs returns a trip's path sorted by sequence.  A trip with no path
// yields an empty slice.
func (r *LegRepo) GetLegs(ctx context.Context, tripID uint64) (model.Legs, error) {
	var rows []legRow
	if err := r.db.SelectContext(ctx, &rows, legColumns+` WHERE tl.trip_id = ? ORDER BY tl.sequence`, tripID); err != nil {
		return nil, err
	}
	legs := make(model.Legs, 0, len(rows))
	for _, row := range rows {
		legs = append(legs, row.leg())
	}
	return legs, nil
}

// LegsForTrips loads the paths of several trips in one round trip.
func (r *LegRepo) LegsForTrips(ctx context.Context, tripIDs []uint64) (map[uint64]model.Legs, error) {
	out := make(map[uint64]model.Legs, len(tripIDs))
	if len(tripIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(legColumns+` WHERE tl.trip_id IN (?) ORDER BY tl.trip_id, tl.sequence`, tripIDs)
	if err != nil {
		return nil, err
	}
	var rows []legRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TripID] = append(out[row.TripID], row.leg())
	}
	return out, nil
}
