package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/travelhub/busticket/internal/repository"
    "github.com/travelhub/busticket/internal/service"
)

// respondError maps an error kind to its HTTP status.  It is the only
// place that decides status codes for service errors.
func respondError(c echo.Context, err error) error {
    var failed *service.PaymentFailedError
    switch {
    case errors.As(err, &failed):
        return c.JSON(http.StatusPaymentRequired, echo.Map{
            "error":     "payment_failed",
            "message":   failed.Error(),
            "ticket_id": failed.TicketID,
        })
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": err.Error()})
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid", "message": err.Error()})
    case errors.Is(err, service.ErrExternalDependency):
        slog.Warn("upstream failure", "path", c.Path(), "err", err)
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream_unavailable"})
    case errors.Is(err, context.DeadlineExceeded):
        slog.Warn("request timed out", "path", c.Path(), "err", err)
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
    }
    slog.Error("request failed", "path", c.Path(), "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}
