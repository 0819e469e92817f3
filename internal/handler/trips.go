package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/travelhub/busticket/internal/middleware"
    "github.com/travelhub/busticket/internal/service"
)

// TripHandler serves the public trip endpoints and seat reservation.
type TripHandler struct {
    Catalog      Catalog
    Reservations Reservations
    // Location is the zone search dates are read in.
    Location *time.Location
}

// NewTripHandler panics if a dependency is missing.
func NewTripHandler(catalog Catalog, reservations Reservations, loc *time.Location) *TripHandler {
    if catalog == nil || reservations == nil {
        panic("nil service passed to NewTripHandler")
    }
    if loc == nil {
        loc = time.UTC
    }
    return &TripHandler{Catalog: catalog, Reservations: reservations, Location: loc}
}

// maxSearchPage keeps (page-1)*size far from int overflow.
const maxSearchPage = 1 << 20

// Search handles GET /v1/trips/search?from=&to=&date=YYYY-MM-DD&page=.
// from and to are city ids; date is optional.
func (h *TripHandler) Search(c echo.Context) error {
    from, err := strconv.ParseUint(c.QueryParam("from"), 10, 64)
    if err != nil || from == 0 {
        return badRequest(c, "from must be a city id")
    }
    to, err := strconv.ParseUint(c.QueryParam("to"), 10, 64)
    if err != nil || to == 0 {
        return badRequest(c, "to must be a city id")
    }
    q := service.SearchQuery{FromCityID: from, ToCityID: to, Page: 1}
    if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
        d, err := time.ParseInLocation(time.DateOnly, raw, h.Location)
        if err != nil {
            return badRequest(c, "date must be YYYY-MM-DD")
        }
        q.Date = &d
    }
    if raw := c.QueryParam("page"); raw != "" {
        if q.Page, err = strconv.Atoi(raw); err != nil {
            return badRequest(c, "page must be a number")
        }
        if q.Page > maxSearchPage {
            return badRequest(c, "page is too large")
        }
    }

    page, err := h.Catalog.SearchTrips(c.Request().Context(), q)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/trips/:id.
func (h *TripHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    trip, err := h.Catalog.GetTripDetail(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, trip)
}

// OccupiedSeats handles GET /v1/trips/:id/occupied-seats.
func (h *TripHandler) OccupiedSeats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    seats, err := h.Catalog.OccupiedSeats(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"trip_id": id, "seat_ids": seats})
}

type reserveBody struct {
    SeatID uint64 `json:"seat_id"`
    Email  string `json:"email"`
    Phone  string `json:"phone"`
}

// Reserve handles POST /v1/trips/:id/tickets.  Guests may book; a valid
// token links the ticket to the caller.
func (h *TripHandler) Reserve(c echo.Context) error {
    tripID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    var body reserveBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.SeatID == 0 {
        return badRequest(c, "seat_id is required")
    }
    req := service.ReserveRequest{
        TripID:  tripID,
        SeatID:  body.SeatID,
        Contact: service.Contact{Email: body.Email, Phone: body.Phone},
    }
    if uid, ok := middleware.UserID(c); ok {
        req.UserID = &uid
    }

    t, err := h.Reservations.Reserve(c.Request().Context(), req)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, t)
}
