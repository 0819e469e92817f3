package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/travelhub/busticket/internal/model"
)

// TicketRepo owns the tickets table.  The unique key on
// (trip_id, seat_id, active_flag) is what stops a seat from being sold
// twice; active_flag is NULL for cancelled rows so they never collide.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to db.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `SELECT id, trip_id, seat_id, user_id, email, phone, price, status,
	       order_code, payment_attempts, expires_at, confirmation_sent, created_at, updated_at
	FROM tickets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(s rowScanner) (model.Ticket, error) {
	var (
		t         model.Ticket
		userID    sql.NullInt64
		orderCode sql.NullInt64
		expiresAt sql.NullTime
	)
	err := s.Scan(&t.ID, &t.TripID, &t.SeatID, &userID, &t.Email, &t.Phone, &t.Price, &t.Status,
		&orderCode, &t.PaymentAttempts, &expiresAt, &t.ConfirmationSent, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if userID.Valid {
		u := uint64(userID.Int64)
		t.UserID = &u
	}
	if orderCode.Valid {
		c := orderCode.Int64
		t.OrderCode = &c
	}
	if expiresAt.Valid {
		e := expiresAt.Time.UTC()
		t.ExpiresAt = &e
	}
	return t, nil
}

// CreatePending inserts t as a pending ticket and sets its ID.  A pending
// ticket on the same seat whose expiry has passed is cancelled first, in
// the same transaction.  ErrSeatTaken means another active ticket holds
// the seat.
func (r *TicketRepo) CreatePending(ctx context.Context, t *model.Ticket, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	const sweep = `UPDATE tickets SET status = 'cancelled'
	               WHERE trip_id = ? AND seat_id = ? AND status = 'pending'
	                 AND expires_at IS NOT NULL AND expires_at <= ?`
	if _, err := tx.ExecContext(ctx, sweep, t.TripID, t.SeatID, now.UTC()); err != nil {
		return err
	}

	const ins = `INSERT INTO tickets (trip_id, seat_id, user_id, email, phone, price, status, expires_at)
	             VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)`
	var expires any
	if t.ExpiresAt != nil {
		expires = t.ExpiresAt.UTC()
	}
	var userID any
	if t.UserID != nil {
		userID = *t.UserID
	}
	res, err := tx.ExecContext(ctx, ins, t.TripID, t.SeatID, userID, t.Email, t.Phone, t.Price, expires)
	if err != nil {
		if isDuplicate(err) {
			return ErrSeatTaken
		}
		if isMissingParent(err) {
			return ErrSeatNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TicketPending
	return nil
}

// GetByID returns ErrTicketNotFound for an unknown id.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, ticketColumns+` WHERE id = ?`, id))
}

// GetByOrderCode finds the ticket whose current order code is code.
func (r *TicketRepo) GetByOrderCode(ctx context.Context, code int64) (model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, ticketColumns+` WHERE order_code = ?`, code))
}

// CancelPending frees the seat of a pending ticket.  ok is false when the
// ticket exists but is not pending.
func (r *TicketRepo) CancelPending(ctx context.Context, id uint64) (ok bool, err error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tickets SET status = 'cancelled' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// AttachOrderCode records code as the ticket's current order code.  The
// update only applies while the ticket is still pending, unexpired at now
// and has seen exactly prevAttempts codes, so two concurrent payment starts
// cannot both win.
func (r *TicketRepo) AttachOrderCode(ctx context.Context, id uint64, code int64, prevAttempts uint32, now time.Time) error {
	const q = `UPDATE tickets
	           SET order_code = ?, payment_attempts = payment_attempts + 1
	           WHERE id = ? AND status = 'pending' AND payment_attempts = ?
	             AND (expires_at IS NULL OR expires_at > ?)`
	res, err := r.db.ExecContext(ctx, q, code, id, prevAttempts, now.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrOrderCodeTaken
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status != model.TicketPending || cur.Expired(now) {
		return ErrTicketNotPayable
	}
	return ErrPaymentRaced
}

// BookByOrderCode moves the ticket holding code from pending to booked and
// marks its confirmation as sent, all under a row lock.  booked is false
// when the ticket was already booked, in which case nothing is written.
// A non-zero amount must equal the ticket price.
func (r *TicketRepo) BookByOrderCode(ctx context.Context, code int64, amount uint32) (t model.Ticket, booked bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Ticket{}, false, err
	}
	defer tx.Rollback() //nolint:errcheck

	t, err = scanTicket(tx.QueryRowContext(ctx, ticketColumns+` WHERE order_code = ? FOR UPDATE`, code))
	if err != nil {
		return model.Ticket{}, false, err
	}
	if amount != 0 && amount != t.Price {
		return t, false, ErrAmountMismatch
	}
	switch t.Status {
	case model.TicketBooked:
		return t, false, nil
	case model.TicketPending:
	default:
		return t, false, ErrTicketNotPayable
	}

	const q = `UPDATE tickets SET status = 'booked', confirmation_sent = 1, expires_at = NULL WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, t.ID); err != nil {
		return model.Ticket{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return model.Ticket{}, false, err
	}
	t.Status = model.TicketBooked
	t.ConfirmationSent = true
	t.ExpiresAt = nil
	return t, true, nil
}

// TicketDetail is what a printed ticket shows.  FromCity and ToCity are the
// first and last cities of the trip's path.
type TicketDetail struct {
	Ticket       model.Ticket `json:"ticket"`
	SeatLabel    string       `json:"seat_label"`
	LicensePlate string       `json:"license_plate"`
	DepartureAt  time.Time    `json:"departure_at"`
	FromCity     string       `json:"from_city"`
	ToCity       string       `json:"to_city"`
}

// GetDetail loads a ticket with its seat, bus and endpoint cities.
func (r *TicketRepo) GetDetail(ctx context.Context, id uint64) (TicketDetail, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return TicketDetail{}, err
	}
	const q = `SELECT se.label, COALESCE(b.license_plate, ''), tr.departure_at,
	                  COALESCE((SELECT c.name FROM trip_legs tl
	                            JOIN stops s ON s.id = tl.stop_id JOIN cities c ON c.id = s.city_id
	                            WHERE tl.trip_id = tr.id ORDER BY tl.sequence ASC LIMIT 1), ''),
	                  COALESCE((SELECT c.name FROM trip_legs tl
	                            JOIN stops s ON s.id = tl.stop_id JOIN cities c ON c.id = s.city_id
	                            WHERE tl.trip_id = tr.id ORDER BY tl.sequence DESC LIMIT 1), '')
	           FROM trips tr
	           JOIN seats se ON se.id = ?
	           LEFT JOIN buses b ON b.id = se.bus_id
	           WHERE tr.id = ?`
	d := TicketDetail{Ticket: t}
	err = r.db.QueryRowContext(ctx, q, t.SeatID, t.TripID).Scan(&d.SeatLabel, &d.LicensePlate, &d.DepartureAt, &d.FromCity, &d.ToCity)
	if errors.Is(err, sql.ErrNoRows) {
		return TicketDetail{}, ErrTripNotFound
	}
	if err != nil {
		return TicketDetail{}, err
	}
	d.DepartureAt = d.DepartureAt.UTC()
	return d, nil
}
