package service

import (
	"context"
	"time"

	"github.com/travelhub/busticket/internal/model"
	"github.com/travelhub/busticket/internal/repository"
	"github.com/travelhub/busticket/internal/route"
	"github.com/travelhub/busticket/internal/telemetry"
)

// CatalogOptions tunes a CatalogService.
type CatalogOptions struct {
	PageSize     int
	Location     *time.Location
	QueryTimeout time.Duration
	Now          func() time.Time
	Metrics      *telemetry.Metrics
}

// CatalogService answers read-only questions about trips and seats and
// applies operator edits to paths and layouts.
type CatalogService struct {
	trips TripStore
	legs  LegStore
	seats SeatStore
	opts  CatalogOptions
}

// NewCatalogService wires the stores.  PageSize defaults to 5 and Location
// to UTC.
func NewCatalogService(trips TripStore, legs LegStore, seats SeatStore, opts CatalogOptions) *CatalogService {
	if opts.PageSize < 1 {
		opts.PageSize = 5
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CatalogService{trips: trips, legs: legs, seats: seats, opts: opts}
}

// SearchQuery is one trip search.  Date is a calendar day in the
// configured zone; nil searches every day.
type SearchQuery struct {
	FromCityID uint64
	ToCityID   uint64
	Date       *time.Time
	Page       int
}

// TripResult is one trip of a search page.  Board and Alight are the legs
// where the searched cities are matched; RideMinutes is the time between
// them.
type TripResult struct {
	ID          uint64     `json:"id"`
	BusID       *uint64    `json:"bus_id"`
	DepartureAt time.Time  `json:"departure_at"`
	ArrivalAt   time.Time  `json:"arrival_at"`
	Price       uint32     `json:"price"`
	Status      string     `json:"status"`
	Capacity    int        `json:"capacity"`
	Board       *model.Leg `json:"board,omitempty"`
	Alight      *model.Leg `json:"alight,omitempty"`
	RideMinutes uint32     `json:"ride_minutes"`
	Legs        model.Legs `json:"legs"`
}

// SearchPage is a page of results plus totals for the whole query.
type SearchPage struct {
	Trips      []TripResult `json:"trips"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int64        `json:"total_pages"`
}

// SearchTrips returns trips that reach ToCityID after FromCityID.
func (s *CatalogService) SearchTrips(ctx context.Context, q SearchQuery) (SearchPage, error) {
	if q.Page < 1 {
		return SearchPage{}, ErrInvalidPage
	}
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	rows, total, err := s.trips.SearchTrips(ctx, repository.TripSearchFilter{
		OriginCityID:      q.FromCityID,
		DestinationCityID: q.ToCityID,
		Date:              q.Date,
		Location:          s.opts.Location,
		Page:              q.Page,
		PageSize:          s.opts.PageSize,
	})
	if err != nil {
		return SearchPage{}, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	paths, err := s.legs.LegsForTrips(ctx, ids)
	if err != nil {
		return SearchPage{}, err
	}

	out := make([]TripResult, 0, len(rows))
	for _, r := range rows {
		legs := paths[r.ID]
		if legs == nil {
			legs = model.Legs{}
		}
		res := TripResult{
			ID:          r.ID,
			BusID:       r.BusID,
			DepartureAt: r.DepartureAt,
			ArrivalAt:   legs.ArrivalFrom(r.DepartureAt),
			Price:       r.Price,
			Status:      r.Status,
			Capacity:    r.Capacity,
			Legs:        legs,
		}
		// The path can change between the two queries; the row is still
		// returned, just without a matched segment.
		if seg, ok := route.Match(legs, q.FromCityID, q.ToCityID); ok {
			board, alight := seg.Board, seg.Alight
			res.Board, res.Alight = &board, &alight
			res.RideMinutes = seg.Minutes(legs)
		}
		out = append(out, res)
	}
	s.opts.Metrics.SearchResults(ctx, total)

	per := int64(s.opts.PageSize)
	return SearchPage{
		Trips:      out,
		Total:      total,
		Page:       q.Page,
		PerPage:    s.opts.PageSize,
		TotalPages: (total + per - 1) / per,
	}, nil
}

// TripDetail is a trip with its path and, when assigned, its bus layout.
type TripDetail struct {
	model.Trip
	ArrivalAt time.Time  `json:"arrival_at"`
	Legs      model.Legs `json:"legs"`
	Bus       *model.Bus `json:"bus"`
}

// GetTripDetail returns ErrTripNotFound for an unknown id.
func (s *CatalogService) GetTripDetail(ctx context.Context, id uint64) (TripDetail, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return TripDetail{}, err
	}
	legs, err := s.legs.GetLegs(ctx, id)
	if err != nil {
		return TripDetail{}, err
	}
	d := TripDetail{Trip: trip, ArrivalAt: legs.ArrivalFrom(trip.DepartureAt), Legs: legs}
	if trip.BusID != nil {
		bus, err := s.seats.GetBus(ctx, *trip.BusID)
		if err != nil {
			return TripDetail{}, err
		}
		d.Bus = &bus
	}
	return d, nil
}

// GetLegs returns a trip's path.
func (s *CatalogService) GetLegs(ctx context.Context, tripID uint64) (model.Legs, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.legs.GetLegs(ctx, tripID)
}

// SetLegs replaces a trip's path.
func (s *CatalogService) SetLegs(ctx context.Context, tripID uint64, in []model.LegInput) (model.Legs, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	if err := s.legs.SetLegs(ctx, tripID, in); err != nil {
		return nil, err
	}
	return s.legs.GetLegs(ctx, tripID)
}

// OccupiedSeats lists seat ids a new reservation cannot take.
func (s *CatalogService) OccupiedSeats(ctx context.Context, tripID uint64) ([]uint64, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.seats.OccupiedSeatIDs(ctx, tripID, s.opts.Now().UTC())
}

// BusSeats returns a bus's layout in (row, col) order.
func (s *CatalogService) BusSeats(ctx context.Context, busID uint64) (model.Bus, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.seats.GetBus(ctx, busID)
}

// CreateLayout generates a rows x cols layout for a bus without seats.
func (s *CatalogService) CreateLayout(ctx context.Context, busID uint64, rows, cols int) ([]model.Seat, error) {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.seats.CreateLayout(ctx, busID, rows, cols)
}

// DeleteSeat removes a seat that no ticket references.
func (s *CatalogService) DeleteSeat(ctx context.Context, seatID uint64) error {
	ctx, cancel := withTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	return s.seats.DeleteSeat(ctx, seatID)
}
