package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/repository"
)

type paymentRig struct {
	db       *memDB
	clock    time.Time
	reserve  *ReservationService
	pay      *PaymentService
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newPaymentRig(t *testing.T, ttl time.Duration) *paymentRig {
	t.Helper()
	r := &paymentRig{db: fixture(), clock: now0, gateway: &fakeGateway{}, notifier: &fakeNotifier{}}
	now := func() time.Time { return r.clock }
	r.reserve = NewReservationService(tripStore{r.db}, seatStore{r.db}, ticketStore{r.db}, legStore{r.db}, ReservationOptions{PendingTTL: ttl, Now: now})
	r.pay = NewPaymentService(ticketStore{r.db}, legStore{r.db}, r.gateway, r.notifier, PaymentOptions{
		ReturnURL:    "https://shop/return",
		CancelURL:    "https://shop/cancel",
		Now:          now,
		NewOrderCode: sequentialCodes(),
	})
	return r
}

func (r *paymentRig) pendingTicket(t *testing.T, label string) model.Ticket {
	t.Helper()
	tk, err := r.reserve.Reserve(context.Background(), ReserveRequest{TripID: 1, SeatID: r.db.seatID(1, label), Contact: contact("pay@example.com")})
	require.NoError(t, err)
	return tk
}

func TestInitiateThenConfirmBooksOnce(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")

	sess, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, sess.TicketID)
	assert.NotEmpty(t, sess.CheckoutURL)
	require.Len(t, r.gateway.requests, 1)
	assert.Equal(t, uint32(250000), r.gateway.requests[0].Amount)
	assert.Equal(t, "https://shop/return", r.gateway.requests[0].ReturnURL)

	id, err := r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: true, Amount: 250000})
	require.NoError(t, err)
	assert.Equal(t, tk.ID, id)
	r.pay.Wait()

	got, err := r.reserve.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketBooked, got.Status)
	assert.True(t, got.ConfirmationSent)
	require.Equal(t, 1, r.notifier.count())
	ev := r.notifier.events[0]
	assert.Equal(t, tk.ID, ev.TicketID)
	assert.Equal(t, "A1", ev.SeatLabel)
	assert.Equal(t, sess.OrderCode, ev.OrderCode)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, ev.DepartureAt.Add(1800*time.Minute), ev.ArrivalAt)

	// Gateway retries the same callback.
	id, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: true})
	require.NoError(t, err)
	assert.Equal(t, tk.ID, id)
	r.pay.Wait()
	assert.Equal(t, 1, r.notifier.count())
}

func TestConfirmUnknownOrderCode(t *testing.T) {
	r := newPaymentRig(t, 0)
	_, err := r.pay.ConfirmPayment(context.Background(), PaymentCallback{OrderCode: 42, Success: true})
	assert.ErrorIs(t, err, ErrTicketNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = r.pay.ConfirmPayment(context.Background(), PaymentCallback{OrderCode: 42, Success: false})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestConfirmFailureKeepsTicketPending(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")
	sess, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)

	id, err := r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: false, Reason: "card declined"})
	var pf *PaymentFailedError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, "card declined", pf.Reason)
	assert.Equal(t, tk.ID, id)

	got, _ := r.reserve.GetTicket(ctx, tk.ID)
	assert.Equal(t, model.TicketPending, got.Status)
	assert.Zero(t, r.notifier.count())

	// The customer may try again.
	_, err = r.pay.InitiatePayment(ctx, tk.ID)
	assert.NoError(t, err)
}

func TestInitiateGatewayFailureChangesNothing(t *testing.T) {
	r := newPaymentRig(t, 0)
	r.gateway.err = errors.New("connection refused")
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")

	_, err := r.pay.InitiatePayment(ctx, tk.ID)
	assert.ErrorIs(t, err, ErrExternalDependency)

	got, _ := r.reserve.GetTicket(ctx, tk.ID)
	assert.Nil(t, got.OrderCode)
	assert.Zero(t, got.PaymentAttempts)
	assert.Equal(t, model.TicketPending, got.Status)
}

func TestOnlyLatestOrderCodeIsHonored(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")

	first, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)
	second, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderCode, second.OrderCode)

	got, _ := r.reserve.GetTicket(ctx, tk.ID)
	assert.Equal(t, uint32(2), got.PaymentAttempts)

	_, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: first.OrderCode, Success: true})
	assert.ErrorIs(t, err, ErrTicketNotFound)
	_, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: second.OrderCode, Success: true})
	assert.NoError(t, err)
	r.pay.Wait()
}

func TestInitiateRejectsNonPendingTickets(t *testing.T) {
	r := newPaymentRig(t, 15*time.Minute)
	ctx := context.Background()

	_, err := r.pay.InitiatePayment(ctx, 999)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	cancelled := r.pendingTicket(t, "A1")
	require.NoError(t, r.reserve.CancelTicket(ctx, cancelled.ID))
	_, err = r.pay.InitiatePayment(ctx, cancelled.ID)
	assert.ErrorIs(t, err, ErrTicketNotPayable)

	expired := r.pendingTicket(t, "A2")
	r.clock = now0.Add(time.Hour)
	_, err = r.pay.InitiatePayment(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrTicketNotPayable)
	assert.Empty(t, r.gateway.requests)
}

func TestNotificationFailureDoesNotUndoBooking(t *testing.T) {
	r := newPaymentRig(t, 0)
	r.notifier.err = errors.New("broker down")
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")
	sess, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)

	_, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: true})
	require.NoError(t, err)
	r.pay.Wait()

	got, _ := r.reserve.GetTicket(ctx, tk.ID)
	assert.Equal(t, model.TicketBooked, got.Status)
	assert.Equal(t, 1, r.notifier.count())
}

func TestConfirmOutlivesRequestContext(t *testing.T) {
	r := newPaymentRig(t, 0)
	tk := r.pendingTicket(t, "A1")
	sess, err := r.pay.InitiatePayment(context.Background(), tk.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: true})
	require.NoError(t, err)
	cancel()
	r.pay.Wait()
	assert.Equal(t, 1, r.notifier.count())
}

func TestConfirmAmountMismatch(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	tk := r.pendingTicket(t, "A1")
	sess, err := r.pay.InitiatePayment(ctx, tk.ID)
	require.NoError(t, err)

	_, err = r.pay.ConfirmPayment(ctx, PaymentCallback{OrderCode: sess.OrderCode, Success: true, Amount: 1})
	assert.ErrorIs(t, err, ErrValidation)
	got, _ := r.reserve.GetTicket(ctx, tk.ID)
	assert.Equal(t, model.TicketPending, got.Status)
}

// scriptedCodes returns codes in order and repeats the last one.
func scriptedCodes(codes ...int64) func() (int64, error) {
	var mu sync.Mutex
	return func() (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return c, nil
	}
}

func TestInitiateRetriesOrderCodeCollision(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	r.pay = NewPaymentService(ticketStore{r.db}, legStore{r.db}, r.gateway, r.notifier, PaymentOptions{
		Now:          func() time.Time { return r.clock },
		NewOrderCode: scriptedCodes(500000001, 500000001, 500000002),
	})
	first := r.pendingTicket(t, "A1")
	second := r.pendingTicket(t, "A2")

	_, err := r.pay.InitiatePayment(ctx, first.ID)
	require.NoError(t, err)

	sess, err := r.pay.InitiatePayment(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000002), sess.OrderCode)
	assert.Len(t, r.gateway.requests, 3)

	got, err := ticketStore{r.db}.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OrderCode)
	assert.Equal(t, int64(500000002), *got.OrderCode)
	assert.Equal(t, uint32(1), got.PaymentAttempts)
}

func TestInitiateGivesUpOnRepeatedCollision(t *testing.T) {
	r := newPaymentRig(t, 0)
	ctx := context.Background()
	r.pay = NewPaymentService(ticketStore{r.db}, legStore{r.db}, r.gateway, r.notifier, PaymentOptions{
		Now:          func() time.Time { return r.clock },
		NewOrderCode: scriptedCodes(500000001),
	})
	first := r.pendingTicket(t, "A1")
	second := r.pendingTicket(t, "A2")

	_, err := r.pay.InitiatePayment(ctx, first.ID)
	require.NoError(t, err)

	_, err = r.pay.InitiatePayment(ctx, second.ID)
	assert.ErrorIs(t, err, repository.ErrOrderCodeTaken)
	assert.NotErrorIs(t, err, repository.ErrPaymentRaced)

	got, err := ticketStore{r.db}.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OrderCode)
	assert.Zero(t, got.PaymentAttempts)
}
