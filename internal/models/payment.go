package models

// PaymentRequest is the stored record of one payment attempt. It is created
// on CreatePayment and updated by Authorize once the lender issues a
// transaction id; capture, refund and void all require TransactionID to be
// populated. Records are never deleted.
type PaymentRequest struct {
	PaymentID     string `json:"paymentId"`
	Reference     string `json:"reference,omitempty"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Value         Money  `json:"value"`
	Currency      string `json:"currency,omitempty"`
	CallbackURL   string `json:"callbackUrl,omitempty"`
	ReturnURL     string `json:"returnUrl,omitempty"`
	SandboxMode   bool   `json:"sandboxMode"`
}

// Authorized reports whether the payment has been authorized with the lender
// at least once.
func (r *PaymentRequest) Authorized() bool {
	return r != nil && r.TransactionID != ""
}

// PaymentAppData tells the platform which payment app completes the
// out-of-band authorization and with which payload.
type PaymentAppData struct {
	AppName string `json:"appName"`
	Payload string `json:"payload"`
}

// AppPayload is the serialized content of PaymentAppData.Payload.
type AppPayload struct {
	PaymentIdentifier string `json:"paymentIdentifier"`
	PublicKey         string `json:"publicKey"`
	SandboxMode       bool   `json:"sandboxMode"`
}

// PaymentResponse is the externally visible status projection for a payment.
// Once persisted with an approved or denied status it is returned unchanged
// to retried CreatePayment calls; an undefined status is rewritten to denied
// on retry.
type PaymentResponse struct {
	PaymentID                       string          `json:"paymentId"`
	Status                          string          `json:"status"`
	TID                             string          `json:"tid,omitempty"`
	AuthorizationID                 string          `json:"authorizationId,omitempty"`
	Code                            string          `json:"code,omitempty"`
	Message                         string          `json:"message,omitempty"`
	DelayToAutoSettle               int             `json:"delayToAutoSettle,omitempty"`
	DelayToAutoSettleAfterAntifraud int             `json:"delayToAutoSettleAfterAntifraud,omitempty"`
	DelayToCancel                   int             `json:"delayToCancel,omitempty"`
	PaymentAppData                  *PaymentAppData `json:"paymentAppData,omitempty"`
}

// CapturePaymentRequest is the platform's settlement request.
type CapturePaymentRequest struct {
	PaymentID       string `json:"paymentId"`
	RequestID       string `json:"requestId"`
	TransactionID   string `json:"transactionId"`
	AuthorizationID string `json:"authorizationId"`
	Value           Money  `json:"value"`
	SandboxMode     bool   `json:"sandboxMode"`
}

// CapturePaymentResponse reports the settlement outcome.
type CapturePaymentResponse struct {
	PaymentID string `json:"paymentId"`
	SettleID  string `json:"settleId,omitempty"`
	Value     Money  `json:"value"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// RefundPaymentRequest is the platform's refund request; partial refunds are
// expected.
type RefundPaymentRequest struct {
	PaymentID       string `json:"paymentId"`
	RequestID       string `json:"requestId"`
	TransactionID   string `json:"transactionId"`
	AuthorizationID string `json:"authorizationId"`
	Value           Money  `json:"value"`
	SandboxMode     bool   `json:"sandboxMode"`
}

// RefundPaymentResponse reports the refund outcome.
type RefundPaymentResponse struct {
	PaymentID string `json:"paymentId"`
	RefundID  string `json:"refundId,omitempty"`
	Value     Money  `json:"value"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// CancelPaymentRequest is the platform's full-cancellation request.
type CancelPaymentRequest struct {
	PaymentID       string `json:"paymentId"`
	RequestID       string `json:"requestId"`
	TransactionID   string `json:"transactionId"`
	AuthorizationID string `json:"authorizationId"`
	SandboxMode     bool   `json:"sandboxMode"`
}

// CancelPaymentResponse reports the cancellation outcome. CancellationID is
// the sentinel "not_authorized" when there was no lender charge to void.
type CancelPaymentResponse struct {
	PaymentID      string `json:"paymentId"`
	CancellationID string `json:"cancellationId,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}
