// Package payment talks to the hosted payment gateway: it opens checkout
// sessions for pending tickets and verifies the webhook the gateway calls
// back with.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/travelhub/busticket/internal/config"
)

var (
	// ErrGateway wraps every failure reaching or understanding the gateway.
	ErrGateway = errors.New("payment gateway")
	// ErrBadSignature is returned for a webhook whose signature does not
	// match its data.
	ErrBadSignature = errors.New("payment webhook signature mismatch")
)

// SessionRequest describes the checkout a customer is sent to.
type SessionRequest struct {
	OrderCode   int64
	Amount      uint32
	Description string
	ReturnURL   string
	CancelURL   string
}

// Session is the gateway's answer to a SessionRequest.
type Session struct {
	OrderCode     int64  `json:"order_code"`
	Amount        uint32 `json:"amount"`
	CheckoutURL   string `json:"checkout_url"`
	QRCode        string `json:"qr_code,omitempty"`
	PaymentLinkID string `json:"payment_link_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Client is an HTTP client for the gateway's payment-request API.
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	http        *http.Client
}

// NewClient builds a Client whose transport is traced with otelhttp.
func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createBody struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      uint32 `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature,omitempty"`
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

type createData struct {
	OrderCode     int64  `json:"orderCode"`
	Amount        uint32 `json:"amount"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
}

// CreatePaymentSession opens a checkout for req.  Any transport error,
// non-2xx status or gateway code other than "00" wraps ErrGateway.
func (c *Client) CreatePaymentSession(ctx context.Context, req SessionRequest) (Session, error) {
	body := createBody{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	}
	if c.checksumKey != "" {
		body.Signature = sign(c.checksumKey, map[string]string{
			"amount":      strconv.FormatUint(uint64(req.Amount), 10),
			"cancelUrl":   req.CancelURL,
			"description": req.Description,
			"orderCode":   strconv.FormatInt(req.OrderCode, 10),
			"returnUrl":   req.ReturnURL,
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Session{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/payment-requests", bytes.NewReader(payload))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("%w: read body: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Session{}, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Session{}, fmt.Errorf("%w: decode: %v", ErrGateway, err)
	}
	if env.Code != "00" {
		return Session{}, fmt.Errorf("%w: code %s: %s", ErrGateway, env.Code, env.Desc)
	}
	var data createData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Session{}, fmt.Errorf("%w: decode data: %v", ErrGateway, err)
	}
	return Session{
		OrderCode:     req.OrderCode,
		Amount:        req.Amount,
		CheckoutURL:   data.CheckoutURL,
		QRCode:        data.QRCode,
		PaymentLinkID: data.PaymentLinkID,
		Status:        data.Status,
	}, nil
}
