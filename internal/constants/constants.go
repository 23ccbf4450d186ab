package constants

// Platform payment status constants
const (
	PaymentStatusUndefined = "undefined"
	PaymentStatusApproved  = "approved"
	PaymentStatusDenied    = "denied"
)

// Lender response sentinels
const (
	// LenderStatusAuthorized is the lender's canonical code for a charge that
	// is authorized; ReadCharge results are compared against it when the
	// direct authorize response is ambiguous.
	LenderStatusAuthorized = "authorized"
	// LenderTypeAlreadyCaptured marks a capture the lender already settled on
	// a previous attempt.
	LenderTypeAlreadyCaptured = "already_captured"
	// LenderCodeTokenUsed is returned when a checkout token was consumed by a
	// prior authorize call.
	LenderCodeTokenUsed = "checkout-token-used"
)

// CancellationNotAuthorized is returned as the cancellationId when there is
// no lender charge to void.
const CancellationNotAuthorized = "not_authorized"

// Platform protocol header names
const (
	HeaderAppKey       = "X-Provider-Api-AppKey"
	HeaderAppToken     = "X-Provider-Api-AppToken"
	HeaderIsProduction = "X-Provider-Workspace-Is-Production"
)

// FundingPartnerIDPrefix marks lender transaction ids that originated from the
// auxiliary funding partner; captures and refunds for these consult the
// funding report.
const FundingPartnerIDPrefix = "K"

// Delay interval units accepted in merchant settings
const (
	DelayIntervalMinutes = "Minutes"
	DelayIntervalHours   = "Hours"
	DelayIntervalDays    = "Days"
)

// MinimumDelayToCancelSeconds is the floor applied to delayToCancel so the
// platform's automatic authorization retry cannot fire before the shopper has
// completed the out-of-band checkout flow.
const MinimumDelayToCancelSeconds = 1800

// PaymentFlowAppName is advertised in paymentAppData so the storefront knows
// which payment app finishes the authorization.
const PaymentFlowAppName = "paylater-payment-flow"

// Queue constants
const (
	QueueDefault = "default"

	// TaskAttachVoidNote delivers a partial-void note to the platform
	// transaction ledger.
	TaskAttachVoidNote = "payment:attach_void_note"
)
