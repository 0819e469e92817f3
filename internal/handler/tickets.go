package handler

import (
    "bytes"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/travelhub/busticket/internal/model"
    "github.com/travelhub/busticket/internal/ticketpdf"
)

// TicketHandler serves ticket lookup, cancellation and payment start.
type TicketHandler struct {
    Reservations Reservations
    Payments     Payments
    Location     *time.Location
}

func NewTicketHandler(reservations Reservations, payments Payments, loc *time.Location) *TicketHandler {
    if reservations == nil || payments == nil {
        panic("nil service passed to NewTicketHandler")
    }
    if loc == nil {
        loc = time.UTC
    }
    return &TicketHandler{Reservations: reservations, Payments: payments, Location: loc}
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid ticket id")
    }
    v, err := h.Reservations.GetTicketView(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Cancel handles DELETE /v1/tickets/:id.  Only pending tickets can be
// cancelled; the seat is free again as soon as this returns.
func (h *TicketHandler) Cancel(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid ticket id")
    }
    if err := h.Reservations.CancelTicket(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// StartPayment handles POST /v1/tickets/:id/payment.  Every call issues a
// new order code and invalidates the previous one.
func (h *TicketHandler) StartPayment(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid ticket id")
    }
    sess, err := h.Payments.InitiatePayment(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, sess)
}

// PDF handles GET /v1/tickets/:id/pdf for booked tickets.
func (h *TicketHandler) PDF(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid ticket id")
    }
    v, err := h.Reservations.GetTicketView(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    if v.Ticket.Status != model.TicketBooked {
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": "ticket is not booked"})
    }
    doc := ticketpdf.Ticket{
        ID:           v.Ticket.ID,
        Email:        v.Ticket.Email,
        Phone:        v.Ticket.Phone,
        FromCity:     v.FromCity,
        ToCity:       v.ToCity,
        DepartureAt:  v.DepartureAt,
        ArrivalAt:    v.ArrivalAt,
        SeatLabel:    v.SeatLabel,
        LicensePlate: v.LicensePlate,
        Price:        v.Ticket.Price,
    }
    var buf bytes.Buffer
    if err := ticketpdf.Render(&buf, doc, h.Location); err != nil {
        return respondError(c, err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+ticketpdf.Filename(doc)+`"`)
    return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
