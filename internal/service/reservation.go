package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/repository"
	"github.com/travelhub/busticket/internal/telemetry"
)

var phonePattern = regexp.MustCompile(`^[0-9+\- ]{6,20}$`)

// NewValidator returns a validator with the "phone" tag registered.  The
// HTTP layer shares it so request binding and the service agree.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Contact is how the customer is reached about a ticket.
type Contact struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
}

// ReserveRequest asks for one seat on one trip.  UserID is set when the
// caller is signed in.
type ReserveRequest struct {
	TripID uint64
	SeatID uint64
	UserID *uint64
	Contact
}

// ReservationOptions tunes a ReservationService.
type ReservationOptions struct {
	// PendingTTL is how long a pending ticket holds its seat.  Zero means
	// until cancelled or booked.
	PendingTTL   time.Duration
	QueryTimeout time.Duration
	Now          func() time.Time
	Metrics      *telemetry.Metrics
	Validator    *validator.Validate
}

// ReservationService admits seat reservations.  Exclusion between
// concurrent callers comes from the tickets unique key, not from this type.
type ReservationService struct {
	trips    TripStore
	seats    SeatStore
	tickets  TicketStore
	legs     LegStore
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

// NewReservationService wires the stores together.
func NewReservationService(trips TripStore, seats SeatStore, tickets TicketStore, legs LegStore, opts ReservationOptions) *ReservationService {
	s := &ReservationService{
		trips:    trips,
		seats:    seats,
		tickets:  tickets,
		legs:     legs,
		ttl:      opts.PendingTTL,
		timeout:  opts.QueryTimeout,
		now:      opts.Now,
		metrics:  opts.Metrics,
		validate: opts.Validator,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.validate == nil {
		s.validate = NewValidator()
	}
	return s
}

// ValidateContact trims c in place and checks it.
func (s *ReservationService) ValidateContact(c *Contact) error {
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if err := s.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidContact, strings.ToLower(verrs[0].Field()))
		}
		return ErrInvalidContact
	}
	return nil
}

// Reserve creates a pending ticket for req.  Exactly one of several
// concurrent calls for the same trip and seat succeeds; the rest get
// ErrSeatAlreadyReserved.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (model.Ticket, error) {
	t, err := s.reserve(ctx, req)
	switch {
	case err == nil:
		s.metrics.Reservation(ctx, telemetry.OutcomeOK)
	case errors.Is(err, repository.ErrConflict):
		s.metrics.Reservation(ctx, telemetry.OutcomeConflict)
	case errors.Is(err, repository.ErrInvalid), errors.Is(err, repository.ErrNotFound):
		s.metrics.Reservation(ctx, telemetry.OutcomeRejected)
	default:
		s.metrics.Reservation(ctx, telemetry.OutcomeError)
	}
	return t, err
}

func (s *ReservationService) reserve(ctx context.Context, req ReserveRequest) (model.Ticket, error) {
	if err := s.ValidateContact(&req.Contact); err != nil {
		return model.Ticket{}, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	now := s.now().UTC()

	trip, err := s.trips.GetByID(ctx, req.TripID)
	if err != nil {
		return model.Ticket{}, err
	}
	if !trip.Bookable(now) {
		return model.Ticket{}, ErrTripNotBookable
	}
	seat, err := s.seats.GetByID(ctx, req.SeatID)
	if errors.Is(err, repository.ErrSeatNotFound) {
		return model.Ticket{}, ErrSeatNotOnBus
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if seat.BusID != *trip.BusID {
		return model.Ticket{}, ErrSeatNotOnBus
	}

	t := model.Ticket{
		TripID: trip.ID,
		SeatID: seat.ID,
		UserID: req.UserID,
		Email:  req.Email,
		Phone:  req.Phone,
		Price:  trip.Price,
		Status: model.TicketPending,
	}
	if s.ttl > 0 {
		exp := now.Add(s.ttl)
		t.ExpiresAt = &exp
	}
	if err := s.tickets.CreatePending(ctx, &t, now); err != nil {
		return model.Ticket{}, err
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return t, nil
}

// GetTicket returns ErrTicketNotFound for an unknown id.
func (s *ReservationService) GetTicket(ctx context.Context, id uint64) (model.Ticket, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.tickets.GetByID(ctx, id)
}

// CancelTicket releases the seat held by a pending ticket.
func (s *ReservationService) CancelTicket(ctx context.Context, id uint64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.tickets.CancelPending(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTicketNotCancellable
	}
	return nil
}

// TicketView is a ticket with everything needed to print it.
type TicketView struct {
	repository.TicketDetail
	ArrivalAt time.Time `json:"arrival_at"`
}

// GetTicketView loads the printable view of a ticket.
func (s *ReservationService) GetTicketView(ctx context.Context, id uint64) (TicketView, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return loadTicketView(ctx, s.tickets, s.legs, id)
}

func loadTicketView(ctx context.Context, tickets TicketStore, legs LegStore, id uint64) (TicketView, error) {
	d, err := tickets.GetDetail(ctx, id)
	if err != nil {
		return TicketView{}, err
	}
	path, err := legs.GetLegs(ctx, d.Ticket.TripID)
	if err != nil {
		return TicketView{}, err
	}
	return TicketView{TicketDetail: d, ArrivalAt: path.ArrivalFrom(d.DepartureAt)}, nil
}
