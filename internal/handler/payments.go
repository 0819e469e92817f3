package handler

import (
    "encoding/json"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/travelhub/busticket/internal/payment"
    "github.com/travelhub/busticket/internal/service"
)

// PaymentHandler receives gateway webhooks.
type PaymentHandler struct {
    Payments Payments
    // ChecksumKey verifies the webhook signature.  Empty skips the check.
    ChecksumKey string
}

func NewPaymentHandler(payments Payments, checksumKey string) *PaymentHandler {
    if payments == nil {
        panic("nil service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Payments: payments, ChecksumKey: checksumKey}
}

type webhookBody struct {
    Code      string          `json:"code"`
    Desc      string          `json:"desc"`
    Success   bool            `json:"success"`
    Data      json.RawMessage `json:"data"`
    Signature string          `json:"signature"`
}

type webhookData struct {
    OrderCode int64  `json:"orderCode"`
    Amount    uint32 `json:"amount"`
    Desc      string `json:"desc"`
}

// Callback handles POST /v1/payments/callback.  A payment counts as
// successful only when success is true and code is "00".
func (h *PaymentHandler) Callback(c echo.Context) error {
    var body webhookBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid webhook body")
    }
    if len(body.Data) == 0 {
        return badRequest(c, "missing data")
    }
    if h.ChecksumKey != "" {
        if err := payment.VerifyWebhook(h.ChecksumKey, body.Data, body.Signature); err != nil {
            slog.Warn("webhook rejected", "err", err)
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_signature"})
        }
    }
    var data webhookData
    if err := json.Unmarshal(body.Data, &data); err != nil || data.OrderCode <= 0 {
        return badRequest(c, "invalid orderCode")
    }

    cb := service.PaymentCallback{
        OrderCode: data.OrderCode,
        Success:   body.Success && body.Code == "00",
        Amount:    data.Amount,
        Reason:    data.Desc,
    }
    if cb.Reason == "" {
        cb.Reason = body.Desc
    }
    ticketID, err := h.Payments.ConfirmPayment(c.Request().Context(), cb)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ticket_id": ticketID, "status": "booked"})
}
