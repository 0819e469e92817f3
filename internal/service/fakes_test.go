package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/payment"
	"github.com/travelhub/busticket/internal/queue"
	"github.com/travelhub/busticket/internal/repository"
	"github.com/travelhub/busticket/internal/route"
)

// memDB is an in-memory stand-in for MySQL.  The active-seat rule is
// checked under mu, mirroring the unique key.
type memDB struct {
	mu      sync.Mutex
	trips   map[uint64]model.Trip
	legs    map[uint64]model.Legs
	buses   map[uint64]model.Bus
	seats   map[uint64]model.Seat
	tickets map[uint64]*model.Ticket
	nextID  uint64
}

func newMemDB() *memDB {
	return &memDB{
		trips:   map[uint64]model.Trip{},
		legs:    map[uint64]model.Legs{},
		buses:   map[uint64]model.Bus{},
		seats:   map[uint64]model.Seat{},
		tickets: map[uint64]*model.Ticket{},
	}
}

func (db *memDB) addBus(id uint64, plate string, labels ...string) {
	db.buses[id] = model.Bus{ID: id, LicensePlate: plate}
	for i, l := range labels {
		sid := id*100 + uint64(i) + 1
		db.seats[sid] = model.Seat{ID: sid, BusID: id, Row: 0, Col: uint16(i), Label: l}
	}
}

func (db *memDB) seatID(busID uint64, label string) uint64 {
	for id, s := range db.seats {
		if s.BusID == busID && s.Label == label {
			return id
		}
	}
	return 0
}

type tripStore struct{ db *memDB }
type legStore struct{ db *memDB }
type seatStore struct{ db *memDB }
type ticketStore struct{ db *memDB }

func (s tripStore) GetByID(_ context.Context, id uint64) (model.Trip, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.trips[id]
	if !ok {
		return model.Trip{}, repository.ErrTripNotFound
	}
	return t, nil
}

func (s tripStore) SearchTrips(_ context.Context, f repository.TripSearchFilter) ([]repository.TripRow, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []repository.TripRow
	for id, t := range s.db.trips {
		if !route.Connects(s.db.legs[id], f.OriginCityID, f.DestinationCityID) {
			continue
		}
		if f.Date != nil {
			from, to := repository.DayWindow(*f.Date, f.Location)
			if t.DepartureAt.Before(from) || !t.DepartureAt.Before(to) {
				continue
			}
		}
		capacity := 0
		for _, seat := range s.db.seats {
			if t.BusID != nil && seat.BusID == *t.BusID {
				capacity++
			}
		}
		all = append(all, repository.TripRow{ID: id, BusID: t.BusID, DepartureAt: t.DepartureAt, Price: t.Price, Status: t.Status, Capacity: capacity})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].DepartureAt.Equal(all[j].DepartureAt) {
			return all[i].DepartureAt.Before(all[j].DepartureAt)
		}
		return all[i].ID < all[j].ID
	})
	start := (f.Page - 1) * f.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := min(start+f.PageSize, len(all))
	return all[start:end], int64(len(all)), nil
}

func (s legStore) SetLegs(_ context.Context, tripID uint64, in []model.LegInput) error {
	if err := repository.ValidateLegs(in); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.trips[tripID]; !ok {
		return repository.ErrTripNotFound
	}
	legs := make(model.Legs, 0, len(in))
	for i, l := range in {
		leg := model.Leg{TripID: tripID, StopID: l.StopID, CityID: l.StopID, Sequence: uint16(i + 1)}
		if i > 0 {
			d := uint32(*l.DurationMin)
			leg.DurationMin = &d
		}
		legs = append(legs, leg)
	}
	s.db.legs[tripID] = legs
	return nil
}

func (s legStore) GetLegs(_ context.Context, tripID uint64) (model.Legs, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return append(model.Legs{}, s.db.legs[tripID]...), nil
}

func (s legStore) LegsForTrips(_ context.Context, ids []uint64) (map[uint64]model.Legs, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[uint64]model.Legs{}
	for _, id := range ids {
		if l, ok := s.db.legs[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (s seatStore) GetByID(_ context.Context, id uint64) (model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seat, ok := s.db.seats[id]
	if !ok {
		return model.Seat{}, repository.ErrSeatNotFound
	}
	return seat, nil
}

func (s seatStore) GetByBus(_ context.Context, busID uint64) ([]model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Seat{}
	for _, seat := range s.db.seats {
		if seat.BusID == busID {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

func (s seatStore) GetBus(ctx context.Context, busID uint64) (model.Bus, error) {
	s.db.mu.Lock()
	b, ok := s.db.buses[busID]
	s.db.mu.Unlock()
	if !ok {
		return model.Bus{}, repository.ErrBusNotFound
	}
	b.Seats, _ = s.GetByBus(ctx, busID)
	return b, nil
}

func (s seatStore) OccupiedSeatIDs(_ context.Context, tripID uint64, now time.Time) ([]uint64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []uint64{}
	for _, t := range s.db.tickets {
		if t.TripID != tripID || t.Status == model.TicketCancelled || t.Expired(now) {
			continue
		}
		out = append(out, t.SeatID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s seatStore) CreateLayout(context.Context, uint64, int, int) ([]model.Seat, error) {
	return nil, nil
}

func (s seatStore) DeleteSeat(context.Context, uint64) error { return nil }

func (s ticketStore) CreatePending(_ context.Context, t *model.Ticket, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.tickets {
		if other.TripID != t.TripID || other.SeatID != t.SeatID || other.Status == model.TicketCancelled {
			continue
		}
		if other.Expired(now) {
			other.Status = model.TicketCancelled
			continue
		}
		return repository.ErrSeatTaken
	}
	s.db.nextID++
	t.ID = s.db.nextID
	t.Status = model.TicketPending
	cp := *t
	s.db.tickets[t.ID] = &cp
	return nil
}

func (s ticketStore) GetByID(_ context.Context, id uint64) (model.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return model.Ticket{}, repository.ErrTicketNotFound
	}
	return *t, nil
}

func (s ticketStore) byCode(code int64) *model.Ticket {
	for _, t := range s.db.tickets {
		if t.OrderCode != nil && *t.OrderCode == code {
			return t
		}
	}
	return nil
}

func (s ticketStore) GetByOrderCode(_ context.Context, code int64) (model.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t := s.byCode(code)
	if t == nil {
		return model.Ticket{}, repository.ErrTicketNotFound
	}
	return *t, nil
}

func (s ticketStore) GetDetail(_ context.Context, id uint64) (repository.TicketDetail, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return repository.TicketDetail{}, repository.ErrTicketNotFound
	}
	trip := s.db.trips[t.TripID]
	seat := s.db.seats[t.SeatID]
	return repository.TicketDetail{
		Ticket:       *t,
		SeatLabel:    seat.Label,
		LicensePlate: s.db.buses[seat.BusID].LicensePlate,
		DepartureAt:  trip.DepartureAt,
		FromCity:     "Hanoi",
		ToCity:       "Saigon",
	}, nil
}

func (s ticketStore) CancelPending(_ context.Context, id uint64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return false, repository.ErrTicketNotFound
	}
	if t.Status != model.TicketPending {
		return false, nil
	}
	t.Status = model.TicketCancelled
	return true, nil
}

func (s ticketStore) AttachOrderCode(_ context.Context, id uint64, code int64, prev uint32, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return repository.ErrTicketNotFound
	}
	if t.Status != model.TicketPending || t.Expired(now) {
		return repository.ErrTicketNotPayable
	}
	if s.byCode(code) != nil {
		return repository.ErrOrderCodeTaken
	}
	if t.PaymentAttempts != prev {
		return repository.ErrPaymentRaced
	}
	t.OrderCode = &code
	t.PaymentAttempts++
	return nil
}

func (s ticketStore) BookByOrderCode(_ context.Context, code int64, amount uint32) (model.Ticket, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t := s.byCode(code)
	if t == nil {
		return model.Ticket{}, false, repository.ErrTicketNotFound
	}
	if amount != 0 && amount != t.Price {
		return *t, false, repository.ErrAmountMismatch
	}
	switch t.Status {
	case model.TicketBooked:
		return *t, false, nil
	case model.TicketPending:
	default:
		return *t, false, repository.ErrTicketNotPayable
	}
	t.Status = model.TicketBooked
	t.ConfirmationSent = true
	t.ExpiresAt = nil
	return *t, true, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	requests []payment.SessionRequest
}

func (g *fakeGateway) CreatePaymentSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return payment.Session{}, g.err
	}
	return payment.Session{OrderCode: req.OrderCode, Amount: req.Amount, CheckoutURL: "https://pay.example/" + time.Now().Format("150405")}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	events []queue.TicketBookedEvent
}

func (n *fakeNotifier) TicketBooked(_ context.Context, ev queue.TicketBookedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// sequentialCodes hands out 100000001, 100000002, ...
func sequentialCodes() func() (int64, error) {
	var mu sync.Mutex
	next := int64(100_000_000)
	return func() (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return next, nil
	}
}
