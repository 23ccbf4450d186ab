package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/constants"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/models"
)

const defaultTimeout = 8 * time.Second

const maxResponseBytes = 1 << 20

var (
	ErrMissingCredentials   = errors.New("platform: missing app key or token")
	ErrMissingTransactionID = errors.New("platform: missing transaction id")
	ErrMissingBaseURL       = errors.New("platform: transaction base url not configured")
)

// Credentials authenticate gateway calls back into the platform's
// transaction API; they come from stored merchant settings.
type Credentials struct {
	AppKey   string
	AppToken string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.AppKey) == "" || strings.TrimSpace(c.AppToken) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// API is the platform transaction surface the engine consumes.
type API interface {
	ListCancellationActions(ctx context.Context, creds Credentials, transactionID string) ([]models.CancellationAction, error)
	AttachNote(ctx context.Context, creds Credentials, transactionID string, note string) error
	PostCallback(ctx context.Context, callbackURL string, response *models.PaymentResponse) error
}

// Client calls the platform's transaction API and the per-payment callback
// URLs the platform hands out.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a platform client from configuration.
func NewClient(cfg config.PlatformConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.TransactionBaseURL, "/"),
	}
}

// cancellationListing is the wire shape of the cancellations endpoint.
type cancellationListing struct {
	Actions []models.CancellationAction `json:"actions"`
}

// ListCancellationActions returns the cancellation actions recorded on a
// platform transaction; an empty list means nothing was cancelled.
func (c *Client) ListCancellationActions(ctx context.Context, creds Credentials, transactionID string) ([]models.CancellationAction, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, ErrMissingTransactionID
	}
	if c.baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	endpoint := fmt.Sprintf("%s/transactions/%s/cancellations", c.baseURL, transactionID)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cancellations request failed: %w", err)
	}
	c.setAuthHeaders(request, creds)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("cancellations request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read cancellations response failed: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cancellations endpoint returned http %d: %s", response.StatusCode, strings.TrimSpace(string(raw)))
	}

	var listing cancellationListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode cancellations response failed: %w", err)
	}
	return listing.Actions, nil
}

// noteEntry is one additional-data item attached to a transaction.
type noteEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttachNote records a void summary in the transaction's additional data.
func (c *Client) AttachNote(ctx context.Context, creds Credentials, transactionID string, note string) error {
	if err := creds.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(transactionID) == "" {
		return ErrMissingTransactionID
	}
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}

	payload, err := json.Marshal([]noteEntry{{Name: "voidResponse", Value: note}})
	if err != nil {
		return fmt.Errorf("encode note failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/transactions/%s/additional-data", c.baseURL, transactionID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build note request failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(request, creds)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("note request failed: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("note endpoint returned http %d", response.StatusCode)
	}
	return nil
}

// PostCallback delivers an authorization result to the platform's callback
// URL. Platform-internal callbacks must travel plain HTTP with an upgrade
// header instead of HTTPS.
func (c *Client) PostCallback(ctx context.Context, callbackURL string, paymentResponse *models.PaymentResponse) error {
	if strings.TrimSpace(callbackURL) == "" {
		return errors.New("platform: empty callback url")
	}

	target, err := url.Parse(callbackURL)
	if err != nil {
		return fmt.Errorf("parse callback url failed: %w", err)
	}
	useHTTPS := target.Scheme == "https"
	if useHTTPS {
		target.Scheme = "http"
	}

	payload, err := json.Marshal(paymentResponse)
	if err != nil {
		return fmt.Errorf("encode callback payload failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if useHTTPS {
		request.Header.Set("X-Forwarded-Proto", "https")
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))

	logger.Infow("callback_posted",
		"url", target.String(),
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("callback returned http %d", response.StatusCode)
	}
	return nil
}

func (c *Client) setAuthHeaders(request *http.Request, creds Credentials) {
	request.Header.Set(constants.HeaderAppKey, creds.AppKey)
	request.Header.Set(constants.HeaderAppToken, creds.AppToken)
}
