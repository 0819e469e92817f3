package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/travelhub/busticket/internal/model"
    "github.com/travelhub/busticket/internal/repository"
)

// AdminHandler serves the operator endpoints.  Role checks happen in the
// router.
type AdminHandler struct {
    Catalog Catalog
}

func NewAdminHandler(catalog Catalog) *AdminHandler {
    if catalog == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{Catalog: catalog}
}

type legsBody struct {
    Legs []model.LegInput `json:"legs" validate:"required,dive"`
}

// SetLegs handles PUT /v1/admin/trips/:id/legs.  The body replaces the
// trip's whole path.
func (h *AdminHandler) SetLegs(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    var body legsBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if err := c.Validate(&body); err != nil {
        return badRequest(c, err.Error())
    }
    legs, err := h.Catalog.SetLegs(c.Request().Context(), id, body.Legs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"trip_id": id, "legs": legs})
}

type layoutBody struct {
    Rows int `json:"rows" validate:"required,min=1"`
    Cols int `json:"cols" validate:"required,min=1"`
}

// CreateLayout handles POST /v1/admin/buses/:id/seats and generates
// rows x cols seats labelled A1, B1, ...
func (h *AdminHandler) CreateLayout(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid bus id")
    }
    var body layoutBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if err := c.Validate(&body); err != nil {
        return badRequest(c, err.Error())
    }
    if body.Rows > repository.MaxLayoutSide || body.Cols > repository.MaxLayoutSide {
        return badRequest(c, "rows and cols must be at most 26")
    }
    seats, err := h.Catalog.CreateLayout(c.Request().Context(), id, body.Rows, body.Cols)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"bus_id": id, "seats": seats})
}

// DeleteSeat handles DELETE /v1/admin/seats/:id.  Seats already sold on
// any ticket are kept.
func (h *AdminHandler) DeleteSeat(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid seat id")
    }
    if err := h.Catalog.DeleteSeat(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// BusSeats handles GET /v1/buses/:id/seats.
func (h *AdminHandler) BusSeats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid bus id")
    }
    bus, err := h.Catalog.BusSeats(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, bus)
}
