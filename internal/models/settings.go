package models

// MerchantSettings is merchant-level configuration stored by the platform and
// read-only from the engine's perspective.
type MerchantSettings struct {
	IsLive                          bool   `json:"isLive"`
	CompanyName                     string `json:"companyName,omitempty"`
	PublicAPIKey                    string `json:"publicApiKey,omitempty"`
	DelayToAutoSettle               int    `json:"delayToAutoSettle"`
	DelayToAutoSettleAfterAntifraud int    `json:"delayToAutoSettleAfterAntifraud"`
	DelayToCancel                   int    `json:"delayToCancel"`
	DelayInterval                   string `json:"delayInterval"`
	EnableFundingPartner            bool   `json:"enableFundingPartner"`
	FundingPartnerPublicToken       string `json:"fundingPartnerPublicToken,omitempty"`
	FundingPartnerPrivateToken      string `json:"fundingPartnerPrivateToken,omitempty"`
	EnablePartialCancellation       bool   `json:"enablePartialCancellation"`
	PlatformAppKey                  string `json:"platformAppKey,omitempty"`
	PlatformAppToken                string `json:"platformAppToken,omitempty"`
}

// VoidRecord records a partial void issued to the lender for a transaction.
// At most one record is stored per transaction id; its presence is the
// idempotency guard that prevents issuing the same partial void twice.
type VoidRecord struct {
	TransactionID string `json:"transactionId"`
	VoidID        string `json:"id,omitempty"`
	Type          string `json:"type,omitempty"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	Created       string `json:"created,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CancellationAction is one platform-side cancellation action on a
// transaction; only the summed value is consumed.
type CancellationAction struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Value int64  `json:"value"`
}
