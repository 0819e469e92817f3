package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/payment"
	"github.com/travelhub/busticket/internal/queue"
	"github.com/travelhub/busticket/internal/repository"
	"github.com/travelhub/busticket/internal/telemetry"
)

// PaymentOptions tunes a PaymentService.
type PaymentOptions struct {
	ReturnURL     string
	CancelURL     string
	Description   string
	QueryTimeout  time.Duration
	NotifyTimeout time.Duration
	Now           func() time.Time
	NewOrderCode  func() (int64, error)
	Metrics       *telemetry.Metrics
	Logger        *slog.Logger
}

// PaymentService drives a ticket from pending to booked through the
// external gateway.
type PaymentService struct {
	tickets  TicketStore
	legs     LegStore
	gateway  Gateway
	notifier Notifier
	opts     PaymentOptions
	log      *slog.Logger

	inflight sync.WaitGroup
}

// NewPaymentService wires the collaborators.  notifier may be nil.
func NewPaymentService(tickets TicketStore, legs LegStore, gateway Gateway, notifier Notifier, opts PaymentOptions) *PaymentService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewOrderCode == nil {
		opts.NewOrderCode = payment.NewOrderCode
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 30 * time.Second
	}
	if opts.Description == "" {
		opts.Description = "Bus ticket"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &PaymentService{tickets: tickets, legs: legs, gateway: gateway, notifier: notifier, opts: opts, log: log}
}

// PaymentSession is what the customer needs to pay.
type PaymentSession struct {
	TicketID uint64 `json:"ticket_id"`
	payment.Session
}

// InitiatePayment opens a gateway session under a fresh order code.  Only
// the newest code of a ticket is honored by ConfirmPayment.  A gateway
// failure leaves the ticket untouched.
func (s *PaymentService) InitiatePayment(ctx context.Context, ticketID uint64) (PaymentSession, error) {
	sess, err := s.initiate(ctx, ticketID)
	switch {
	case err == nil:
		s.opts.Metrics.PaymentInitiated(ctx, telemetry.OutcomeOK)
	case errors.Is(err, ErrExternalDependency):
		s.opts.Metrics.PaymentInitiated(ctx, telemetry.OutcomeFailed)
	default:
		s.opts.Metrics.PaymentInitiated(ctx, telemetry.OutcomeRejected)
	}
	return sess, err
}

func (s *PaymentService) initiate(ctx context.Context, ticketID uint64) (PaymentSession, error) {
	now := s.opts.Now().UTC()
	t, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return PaymentSession{}, err
	}
	if t.Status != model.TicketPending || t.Expired(now) {
		return PaymentSession{}, ErrTicketNotPayable
	}

	// A random code can collide with one already issued to another
	// ticket; that attempt is abandoned and a fresh code gets its own
	// session.
	for attempt := 1; ; attempt++ {
		code, sess, err := s.openSession(ctx, t)
		if err != nil {
			return PaymentSession{}, err
		}
		err = s.attach(ctx, t, code, now)
		if errors.Is(err, repository.ErrOrderCodeTaken) && attempt < maxOrderCodeAttempts {
			s.log.Warn("order code collision, retrying", "ticket_id", t.ID, "order_code", code)
			continue
		}
		if err != nil {
			return PaymentSession{}, err
		}
		s.log.Info("payment session opened", "ticket_id", t.ID, "order_code", code, "attempt", t.PaymentAttempts+1)
		return PaymentSession{TicketID: t.ID, Session: sess}, nil
	}
}

// maxOrderCodeAttempts bounds how many fresh codes one payment start tries.
const maxOrderCodeAttempts = 2

func (s *PaymentService) openSession(ctx context.Context, t model.Ticket) (int64, payment.Session, error) {
	code, err := s.opts.NewOrderCode()
	if err != nil {
		return 0, payment.Session{}, fmt.Errorf("order code: %w", err)
	}
	sess, err := s.gateway.CreatePaymentSession(ctx, payment.SessionRequest{
		OrderCode:   code,
		Amount:      t.Price,
		Description: s.opts.Description,
		ReturnURL:   s.opts.ReturnURL,
		CancelURL:   s.opts.CancelURL,
	})
	if err != nil {
		s.log.Warn("payment session failed", "ticket_id", t.ID, "order_code", code, "error", err)
		return 0, payment.Session{}, fmt.Errorf("%w: %v", ErrExternalDependency, err)
	}
	return code, sess, nil
}

func (s *PaymentService) attach(ctx context.Context, t model.Ticket, code int64, now time.Time) error {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.tickets.AttachOrderCode(ctx, t.ID, code, t.PaymentAttempts, now)
}

func (s *PaymentService) getTicket(ctx context.Context, id uint64) (model.Ticket, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.tickets.GetByID(ctx, id)
}

// PaymentCallback is the gateway's verdict on one order code.  Amount zero
// means the gateway did not report one.
type PaymentCallback struct {
	OrderCode int64
	Success   bool
	Amount    uint32
	Reason    string
}

// ConfirmPayment applies cb and returns the ticket id.  A successful
// callback books a pending ticket once; replays return the same id and
// trigger nothing.  The confirmation is sent in the background and its
// failure never undoes the booking.
func (s *PaymentService) ConfirmPayment(ctx context.Context, cb PaymentCallback) (uint64, error) {
	qctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	if !cb.Success {
		t, err := s.tickets.GetByOrderCode(qctx, cb.OrderCode)
		if err != nil {
			return 0, err
		}
		s.opts.Metrics.Confirmation(ctx, telemetry.OutcomeFailed)
		s.log.Info("payment reported failed", "ticket_id", t.ID, "order_code", cb.OrderCode, "reason", cb.Reason)
		return t.ID, &PaymentFailedError{TicketID: t.ID, Reason: cb.Reason}
	}

	t, booked, err := s.tickets.BookByOrderCode(qctx, cb.OrderCode, cb.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrAmountMismatch) {
			s.log.Warn("payment amount mismatch", "order_code", cb.OrderCode, "amount", cb.Amount, "price", t.Price)
		}
		s.opts.Metrics.Confirmation(ctx, telemetry.OutcomeRejected)
		return 0, err
	}
	if !booked {
		s.opts.Metrics.Confirmation(ctx, telemetry.OutcomeReplay)
		return t.ID, nil
	}
	s.opts.Metrics.Confirmation(ctx, telemetry.OutcomeOK)
	s.log.Info("ticket booked", "ticket_id", t.ID, "order_code", cb.OrderCode)
	s.dispatchConfirmation(ctx, t, cb.OrderCode)
	return t.ID, nil
}

// dispatchConfirmation runs the notifier on its own goroutine with a
// context that outlives the request.
func (s *PaymentService) dispatchConfirmation(ctx context.Context, t model.Ticket, code int64) {
	if s.notifier == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(bg, s.opts.NotifyTimeout)
		defer cancel()
		if err := s.notify(ctx, t, code); err != nil {
			s.opts.Metrics.NotificationFailed(ctx)
			s.log.Error("booking confirmation not sent", "ticket_id", t.ID, "error", err)
		}
	}()
}

func (s *PaymentService) notify(ctx context.Context, t model.Ticket, code int64) error {
	v, err := loadTicketView(ctx, s.tickets, s.legs, t.ID)
	if err != nil {
		return fmt.Errorf("load ticket: %w", err)
	}
	return s.notifier.TicketBooked(ctx, queue.TicketBookedEvent{
		EventID:      queue.NewEventID(),
		TicketID:     t.ID,
		TripID:       t.TripID,
		Email:        t.Email,
		Phone:        t.Phone,
		FromCity:     v.FromCity,
		ToCity:       v.ToCity,
		DepartureAt:  v.DepartureAt,
		ArrivalAt:    v.ArrivalAt,
		SeatLabel:    v.SeatLabel,
		LicensePlate: v.LicensePlate,
		Price:        t.Price,
		OrderCode:    code,
		BookedAt:     s.opts.Now().UTC(),
	})
}

// Wait blocks until every dispatched confirmation has finished.
func (s *PaymentService) Wait() { s.inflight.Wait() }
