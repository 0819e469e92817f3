package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/travelhub/busticket/internal/model"
)

// TripRepo reads trips.  Trips themselves are managed by an outer
// scheduling surface; this service only needs lookups.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo returns a TripRepo bound to db.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// GetByID returns ErrTripNotFound when no trip has the id.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (model.Trip, error) {
	const q = `SELECT id, bus_id, departure_at, price, status FROM trips WHERE id = ?`
	var (
		t     model.Trip
		busID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &busID, &t.DepartureAt, &t.Price, &t.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trip{}, ErrTripNotFound
	}
	if err != nil {
		return model.Trip{}, err
	}
	if busID.Valid {
		b := uint64(busID.Int64)
		t.BusID = &b
	}
	t.DepartureAt = t.DepartureAt.UTC()
	return t, nil
}
