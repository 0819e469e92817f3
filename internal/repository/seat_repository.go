package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/travelhub/busticket/internal/model"
)

// MaxLayoutSide bounds rows and cols of a generated layout; columns are
// labelled A..Z.
const MaxLayoutSide = 26

// SeatRepo manages bus seat layouts and answers occupancy questions.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// SeatLabel names the seat at zero-based (row, col): column letter then
// one-based row, so (0,0) is A1 and (0,1) is B1.
func SeatLabel(row, col uint16) string {
	return fmt.Sprintf("%c%d", 'A'+rune(col), row+1)
}

// GetByID returns ErrSeatNotFound for an unknown id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (model.Seat, error) {
	const q = `SELECT id, bus_id, seat_row, seat_col, label FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.BusID, &s.Row, &s.Col, &s.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, ErrSeatNotFound
	}
	return s, err
}

// GetByBus retrieves every seat of a bus ordered by row then col.
func (r *SeatRepo) GetByBus(ctx context.Context, busID uint64) ([]model.Seat, error) {
	const q = `SELECT id, bus_id, seat_row, seat_col, label
	           FROM seats
	           WHERE bus_id = ?
	           ORDER BY seat_row, seat_col`
	rows, err := r.db.QueryContext(ctx, q, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.Row, &s.Col, &s.Label); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// GetBus returns a bus with its full layout.
func (r *SeatRepo) GetBus(ctx context.Context, busID uint64) (model.Bus, error) {
	var b model.Bus
	err := r.db.QueryRowContext(ctx, `SELECT id, license_plate FROM buses WHERE id = ?`, busID).Scan(&b.ID, &b.LicensePlate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bus{}, ErrBusNotFound
	}
	if err != nil {
		return model.Bus{}, err
	}
	if b.Seats, err = r.GetByBus(ctx, busID); err != nil {
		return model.Bus{}, err
	}
	return b, nil
}

// OccupiedSeatIDs lists the seats of a trip held by a booked ticket or by
// a pending ticket that has not expired at now.
func (r *SeatRepo) OccupiedSeatIDs(ctx context.Context, tripID uint64, now time.Time) ([]uint64, error) {
	const q = `SELECT seat_id FROM tickets
	           WHERE trip_id = ?
	             AND (status = 'booked'
	                  OR (status = 'pending' AND (expires_at IS NULL OR expires_at > ?)))
	           ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, q, tripID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateLayout generates rows x cols seats for a bus that has none yet and
// returns them in (row, col) order.
func (r *SeatRepo) CreateLayout(ctx context.Context, busID uint64, rows, cols int) ([]model.Seat, error) {
	if rows < 1 || cols < 1 || rows > MaxLayoutSide || cols > MaxLayoutSide {
		return nil, ErrInvalidLayout
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var id uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM buses WHERE id = ? FOR UPDATE`, busID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE bus_id = ?`, busID).Scan(&existing); err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrLayoutExists
	}

	seats := make([]model.Seat, 0, rows*cols)
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (bus_id, seat_row, seat_col, label) VALUES `)
	args := make([]any, 0, rows*cols*4)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			s := model.Seat{BusID: busID, Row: uint16(row), Col: uint16(col), Label: SeatLabel(uint16(row), uint16(col))}
			if len(seats) > 0 {
				b.WriteString(",")
			}
			b.WriteString("(?, ?, ?, ?)")
			args = append(args, s.BusID, s.Row, s.Col, s.Label)
			seats = append(seats, s)
		}
	}
	res, err := tx.ExecContext(ctx, b.String(), args...)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrLayoutExists
		}
		return nil, err
	}
	// InnoDB hands out consecutive ids to a single multi-row insert.
	first, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for i := range seats {
		seats[i].ID = uint64(first) + uint64(i)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return seats, nil
}

// DeleteSeat removes a seat no ticket has ever referenced.
func (r *SeatRepo) DeleteSeat(ctx context.Context, seatID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var refs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE seat_id = ?`, seatID).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrSeatInUse
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE id = ?`, seatID)
	if err != nil {
		if isReferenced(err) {
			return ErrSeatInUse
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatNotFound
	}
	return tx.Commit()
}
