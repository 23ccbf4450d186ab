package lender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paylater-gateway/internal/logger"

	"github.com/shopspring/decimal"
)

// ErrMissingFundingToken is returned when the funding partner token is not
// configured in merchant settings.
var ErrMissingFundingToken = errors.New("lender: missing funding partner token")

// FundingReport is the funding partner's settlement report; captures and
// refunds routed through the partner consult it for the per-order record.
type FundingReport struct {
	Meta    FundingMeta     `json:"meta"`
	Objects []FundingRecord `json:"objects"`
}

// FundingMeta is report pagination metadata.
type FundingMeta struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"total_count"`
}

// FundingRecord is one funded order in the report. Monetary fields are major
// units, unlike the charge API.
type FundingRecord struct {
	ApplicationID     int64           `json:"application_id"`
	FundingID         int64           `json:"funding_id"`
	OrderID           string          `json:"order_id"`
	Store             string          `json:"store"`
	Funded            string          `json:"funded"`
	FundedDate        string          `json:"funded_date"`
	EffectiveDate     string          `json:"effective_date"`
	LeaseStatus       string          `json:"lease_status"`
	Discount          decimal.Decimal `json:"discount"`
	ConsumerDiscount  decimal.Decimal `json:"consumer_discount"`
	BuyoutFee         decimal.Decimal `json:"buyout_fee"`
	Delivery          decimal.Decimal `json:"delivery"`
	Leasable          decimal.Decimal `json:"leasable"`
	Nonleasable       decimal.Decimal `json:"nonleasable"`
	GrossFunding      decimal.Decimal `json:"gross_funding_amount"`
	NetFunding        decimal.Decimal `json:"net_funding_amount"`
	Rebate            decimal.Decimal `json:"rebate"`
	TransactionDetail string          `json:"transaction_detail"`
}

// fundingEnvelope is the wire wrapper around the report.
type fundingEnvelope struct {
	FundingReport *FundingReport `json:"funding_report"`
}

// FindByOrderID returns the first record for the given platform order id.
func (r *FundingReport) FindByOrderID(orderID string) *FundingRecord {
	if r == nil || orderID == "" {
		return nil
	}
	for i := range r.Objects {
		if r.Objects[i].OrderID == orderID {
			return &r.Objects[i]
		}
	}
	return nil
}

// FundingReport fetches the funding partner's settlement report using the
// merchant's private partner token.
func (c *Client) FundingReport(ctx context.Context, privateToken string) (*FundingReport, error) {
	if strings.TrimSpace(privateToken) == "" {
		return nil, ErrMissingFundingToken
	}

	url := c.fundingBaseURL + "/funding-report/"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build funding request failed: %w", err)
	}
	request.Header.Set("Authorization", "Token "+privateToken)
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("funding request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read funding response failed: %w", err)
	}

	logger.Debugw("funding_report_call",
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("funding report returned http %d", response.StatusCode)
	}

	var envelope fundingEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode funding report failed: %w", err)
	}
	if envelope.FundingReport == nil {
		return nil, fmt.Errorf("funding report payload was empty")
	}
	return envelope.FundingReport, nil
}
