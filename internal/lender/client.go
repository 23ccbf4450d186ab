package lender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/logger"
)

const defaultTimeout = 12 * time.Second

// maxResponseBytes caps how much of a lender response is read.
const maxResponseBytes = 1 << 20

var (
	ErrMissingCredentials = errors.New("lender: missing api credentials")
	ErrMissingChargeID    = errors.New("lender: missing charge id")
)

// Credentials are the merchant's lender API keys, supplied per request by
// the platform.
type Credentials struct {
	PublicKey  string
	PrivateKey string
	Sandbox    bool
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.PublicKey) == "" || strings.TrimSpace(c.PrivateKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// API is the lender charge surface the reconciliation engine consumes.
type API interface {
	Authorize(ctx context.Context, creds Credentials, checkoutToken string, orderID string) (*ChargeResult, error)
	Capture(ctx context.Context, creds Credentials, chargeID string, orderID string, amountMinorUnits int64) (*ChargeResult, error)
	Refund(ctx context.Context, creds Credentials, chargeID string, amountMinorUnits int64) (*ChargeResult, error)
	Void(ctx context.Context, creds Credentials, chargeID string, amountMinorUnits *int64) (*ChargeResult, error)
	ReadCharge(ctx context.Context, creds Credentials, chargeID string) (*ChargeResult, error)
	FundingReport(ctx context.Context, privateToken string) (*FundingReport, error)
}

// Client calls the installment lender's charge API over HTTPS with basic
// auth. The sandbox flag in the credentials selects the base URL per call.
type Client struct {
	httpClient     *http.Client
	liveBaseURL    string
	sandboxBaseURL string
	fundingBaseURL string
}

// NewClient builds a lender client from configuration.
func NewClient(cfg config.LenderConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		liveBaseURL:    strings.TrimRight(cfg.LiveBaseURL, "/"),
		sandboxBaseURL: strings.TrimRight(cfg.SandboxBaseURL, "/"),
		fundingBaseURL: strings.TrimRight(cfg.FundingBaseURL, "/"),
	}
}

func (c *Client) baseURL(creds Credentials) string {
	if creds.Sandbox {
		return c.sandboxBaseURL
	}
	return c.liveBaseURL
}

// Authorize exchanges a one-time checkout token for a charge.
func (c *Client) Authorize(ctx context.Context, creds Credentials, checkoutToken string, orderID string) (*ChargeResult, error) {
	payload := map[string]string{
		"checkout_token": checkoutToken,
		"order_id":       orderID,
	}
	return c.doCharge(ctx, creds, http.MethodPost, c.baseURL(creds)+"/charges", payload)
}

// Capture settles an authorized charge.
func (c *Client) Capture(ctx context.Context, creds Credentials, chargeID string, orderID string, amountMinorUnits int64) (*ChargeResult, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, ErrMissingChargeID
	}
	payload := map[string]interface{}{
		"order_id": orderID,
		"amount":   amountMinorUnits,
	}
	return c.doCharge(ctx, creds, http.MethodPost, fmt.Sprintf("%s/charges/%s/capture", c.baseURL(creds), chargeID), payload)
}

// Refund returns part or all of a settled charge to the shopper.
func (c *Client) Refund(ctx context.Context, creds Credentials, chargeID string, amountMinorUnits int64) (*ChargeResult, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, ErrMissingChargeID
	}
	payload := map[string]interface{}{
		"amount": amountMinorUnits,
	}
	return c.doCharge(ctx, creds, http.MethodPost, fmt.Sprintf("%s/charges/%s/refund", c.baseURL(creds), chargeID), payload)
}

// Void cancels an unsettled charge; a nil amount voids the full charge, a
// non-nil amount voids only that sub-amount.
func (c *Client) Void(ctx context.Context, creds Credentials, chargeID string, amountMinorUnits *int64) (*ChargeResult, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, ErrMissingChargeID
	}
	payload := map[string]interface{}{}
	if amountMinorUnits != nil {
		payload["amount"] = *amountMinorUnits
	}
	return c.doCharge(ctx, creds, http.MethodPost, fmt.Sprintf("%s/charges/%s/void", c.baseURL(creds), chargeID), payload)
}

// ReadCharge fetches the current state of a charge.
func (c *Client) ReadCharge(ctx context.Context, creds Credentials, chargeID string) (*ChargeResult, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, ErrMissingChargeID
	}
	return c.doCharge(ctx, creds, http.MethodGet, fmt.Sprintf("%s/charges/%s/", c.baseURL(creds), chargeID), nil)
}

func (c *Client) doCharge(ctx context.Context, creds Credentials, method string, url string, payload interface{}) (*ChargeResult, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode lender request failed: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build lender request failed: %w", err)
	}
	request.SetBasicAuth(creds.PublicKey, creds.PrivateKey)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("lender request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read lender response failed: %w", err)
	}

	logger.Debugw("lender_api_call",
		"method", method,
		"url", url,
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result, err := decodeChargeResult(raw)
	if err != nil {
		return nil, fmt.Errorf("decode lender response (http %d) failed: %w", response.StatusCode, err)
	}
	return result, nil
}
