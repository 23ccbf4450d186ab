package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paylater-gateway/internal/constants"
	"github.com/paylater-gateway/internal/lender"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/models"
	"github.com/paylater-gateway/internal/platform"
	"github.com/paylater-gateway/internal/queue"
	"github.com/paylater-gateway/internal/storage"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentIDRequired       = errors.New("payment id is required")
	ErrPaymentRequestNotFound  = errors.New("payment request not found")
	ErrPaymentNotAuthorized    = errors.New("payment has no lender transaction id")
	ErrCheckoutTokenRequired   = errors.New("checkout token is required")
	ErrPaymentIdentifierNeeded = errors.New("payment identifier is required")
)

// VoidNotePublisher queues delivery of void notes to the platform ledger.
// The queue client satisfies it; tests substitute a fake.
type VoidNotePublisher interface {
	EnqueueAttachVoidNote(payload queue.AttachVoidNotePayload, opts ...asynq.Option) error
}

// PaymentService is the reconciliation engine between the platform's payment
// protocol and the lender's charge API. It holds no mutable state of its
// own; every cross-call fact lives in the store.
type PaymentService struct {
	store                storage.Store
	lender               lender.API
	platform             platform.API
	voidNotes            VoidNotePublisher
	minimumDelayToCancel int
}

// NewPaymentService wires the engine.
func NewPaymentService(store storage.Store, lenderAPI lender.API, platformAPI platform.API, voidNotes VoidNotePublisher, minimumDelayToCancel int) *PaymentService {
	if minimumDelayToCancel <= 0 {
		minimumDelayToCancel = constants.MinimumDelayToCancelSeconds
	}
	return &PaymentService{
		store:                store,
		lender:               lenderAPI,
		platform:             platformAPI,
		voidNotes:            voidNotes,
		minimumDelayToCancel: minimumDelayToCancel,
	}
}

// CreatePayment starts (or replays) the payment flow for a platform payment
// id. A retried call that finds a stored response with undefined status
// reports denied: the shopper abandoned the out-of-band flow and the
// platform is asking again.
func (s *PaymentService) CreatePayment(ctx context.Context, request *models.PaymentRequest, merchantPublicKey string) (*models.PaymentResponse, error) {
	if request == nil || strings.TrimSpace(request.PaymentID) == "" {
		return nil, ErrPaymentIDRequired
	}

	stored, err := s.store.GetPaymentResponse(ctx, request.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment response failed: %w", err)
	}
	if stored != nil {
		if stored.Status == constants.PaymentStatusUndefined {
			stored.Status = constants.PaymentStatusDenied
			// A lot of these in one account means delayToCancel is too short.
			logger.Warnw("payment_denied_on_retry",
				"payment_id", stored.PaymentID,
				"tid", stored.TID,
			)
		}
		return stored, nil
	}

	paymentIdentifier := uuid.NewString()
	if err := s.store.SavePaymentRequest(ctx, paymentIdentifier, request); err != nil {
		return nil, fmt.Errorf("save payment request failed: %w", err)
	}

	payload, err := json.Marshal(models.AppPayload{
		PaymentIdentifier: paymentIdentifier,
		PublicKey:         merchantPublicKey,
		SandboxMode:       request.SandboxMode,
	})
	if err != nil {
		return nil, fmt.Errorf("encode app payload failed: %w", err)
	}

	response := &models.PaymentResponse{
		PaymentID: request.PaymentID,
		Status:    constants.PaymentStatusUndefined,
		PaymentAppData: &models.PaymentAppData{
			AppName: constants.PaymentFlowAppName,
			Payload: string(payload),
		},
		// Floor so the platform's automatic retry cannot fire before the
		// shopper finishes the checkout modal.
		DelayToCancel: s.minimumDelayToCancel,
	}

	settings, err := s.store.GetMerchantSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load merchant settings failed: %w", err)
	}
	s.applyDelaySettings(response, settings)

	if err := s.store.SavePaymentResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("save payment response failed: %w", err)
	}

	logger.Infow("payment_created",
		"payment_id", request.PaymentID,
		"payment_identifier", paymentIdentifier,
		"sandbox", request.SandboxMode,
	)
	return response, nil
}

func (s *PaymentService) applyDelaySettings(response *models.PaymentResponse, settings *models.MerchantSettings) {
	if settings == nil || settings.DelayInterval == "" {
		return
	}
	multiple := 1
	switch settings.DelayInterval {
	case constants.DelayIntervalMinutes:
		multiple = 60
	case constants.DelayIntervalHours:
		multiple = 60 * 60
	case constants.DelayIntervalDays:
		multiple = 60 * 60 * 24
	}
	response.DelayToAutoSettle = settings.DelayToAutoSettle * multiple
	response.DelayToAutoSettleAfterAntifraud = settings.DelayToAutoSettleAfterAntifraud * multiple
	if delayToCancel := settings.DelayToCancel * multiple; delayToCancel > s.minimumDelayToCancel {
		response.DelayToCancel = delayToCancel
	}
}

// AuthorizeParams carries everything the out-of-band flow hands back when
// the shopper finishes checkout with the lender.
type AuthorizeParams struct {
	PaymentIdentifier        string
	CheckoutToken            string
	CallbackURL              string
	OrderID                  string
	ExpectedAmountMinorUnits int64
	Credentials              lender.Credentials
}

// Authorize exchanges the one-time checkout token for a charge and resolves
// the outcome to approved or denied. An ambiguous or failed authorize that
// still points at an existing charge is settled by reading the charge back.
func (s *PaymentService) Authorize(ctx context.Context, params AuthorizeParams) (*models.PaymentResponse, error) {
	if strings.TrimSpace(params.PaymentIdentifier) == "" {
		return nil, ErrPaymentIdentifierNeeded
	}
	if strings.TrimSpace(params.CheckoutToken) == "" {
		return nil, ErrCheckoutTokenRequired
	}

	orderID := params.OrderID
	if orderID == "" {
		orderID = params.PaymentIdentifier
	}

	status := constants.PaymentStatusDenied
	result, err := s.lender.Authorize(ctx, params.Credentials, params.CheckoutToken, orderID)
	if err != nil {
		// Transport failure resolves to denied; the platform retries by
		// protocol, not us.
		logger.Warnw("authorize_transport_failed",
			"payment_identifier", params.PaymentIdentifier,
			"error", err,
		)
		response := &models.PaymentResponse{
			PaymentID: params.PaymentIdentifier,
			Status:    status,
			Message:   err.Error(),
		}
		s.postCallback(ctx, params.CallbackURL, response)
		return response, nil
	}

	if result.AmountEquals(params.ExpectedAmountMinorUnits) {
		status = constants.PaymentStatusApproved
	} else if chargeID := result.ChargeReference(); chargeID != "" {
		// The token was consumed by an earlier attempt but a charge exists.
		// The charge's own status is the tie-breaker; a failed read leaves
		// the payment denied.
		read, readErr := s.lender.ReadCharge(ctx, params.Credentials, chargeID)
		if readErr != nil {
			logger.Warnw("authorize_read_charge_failed",
				"payment_identifier", params.PaymentIdentifier,
				"charge_id", chargeID,
				"error", readErr,
			)
		} else {
			result = read
			if read.Status == constants.LenderStatusAuthorized {
				status = constants.PaymentStatusApproved
			}
		}
	}

	response := &models.PaymentResponse{
		PaymentID:       params.PaymentIdentifier,
		Status:          status,
		TID:             result.ID,
		AuthorizationID: result.CheckoutID,
		Code:            result.ResponseCode(),
		Message:         result.ResponseMessage(),
	}

	// Persist only a complete authorization; a partial one must not clobber
	// a prior good record.
	if result.ID != "" && orderID != "" {
		updated, loadErr := s.store.GetPaymentRequest(ctx, params.PaymentIdentifier)
		if loadErr != nil {
			return nil, fmt.Errorf("load payment request failed: %w", loadErr)
		}
		if updated == nil {
			updated = &models.PaymentRequest{PaymentID: params.PaymentIdentifier}
		}
		updated.TransactionID = result.ID
		updated.OrderID = orderID
		if err := s.store.SavePaymentRequest(ctx, params.PaymentIdentifier, updated); err != nil {
			return nil, fmt.Errorf("save payment request failed: %w", err)
		}
		if err := s.store.SavePaymentResponse(ctx, response); err != nil {
			return nil, fmt.Errorf("save payment response failed: %w", err)
		}
	}

	s.postCallback(ctx, params.CallbackURL, response)

	logger.Infow("payment_authorized",
		"payment_identifier", params.PaymentIdentifier,
		"status", status,
		"tid", response.TID,
	)
	return response, nil
}

func (s *PaymentService) postCallback(ctx context.Context, callbackURL string, response *models.PaymentResponse) {
	if callbackURL == "" || s.platform == nil {
		return
	}
	if err := s.platform.PostCallback(ctx, callbackURL, response); err != nil {
		logger.Warnw("authorize_callback_failed",
			"payment_id", response.PaymentID,
			"callback_url", callbackURL,
			"error", err,
		)
	}
}

// CapturePayment settles an authorized charge. It never fails hard: every
// problem is folded into the response message so the platform sees a result
// it can retry on.
func (s *PaymentService) CapturePayment(ctx context.Context, request *models.CapturePaymentRequest, creds lender.Credentials) *models.CapturePaymentResponse {
	response := &models.CapturePaymentResponse{
		PaymentID: request.PaymentID,
		RequestID: request.RequestID,
		Message:   "Unknown Error.",
	}

	stored, err := s.store.GetPaymentRequest(ctx, request.PaymentID)
	if err != nil {
		response.Message = fmt.Sprintf("CapturePayment Error: %v", err)
		logger.Errorw("capture_load_request_failed", "payment_id", request.PaymentID, "error", err)
		return response
	}
	if stored == nil {
		response.Message = "Could not load Payment Request."
		logger.Infow("capture_request_missing", "payment_id", request.PaymentID)
		return response
	}

	authorizationID := stored.TransactionID
	if authorizationID == "" {
		response.Message = "Missing authorizationId."
		logger.Infow("capture_missing_authorization", "payment_id", request.PaymentID)
		return response
	}

	// Items cancelled before settlement are voided on a side channel; the
	// capture amount itself is untouched.
	s.reconcilePartialCancellation(ctx, creds, authorizationID)

	result, err := s.lender.Capture(ctx, creds, authorizationID, stored.OrderID, request.Value.ToMinorUnits())
	if err != nil {
		response.Message = fmt.Sprintf("CapturePayment Error: %v", err)
		logger.Errorw("capture_failed", "payment_id", request.PaymentID, "transaction_id", authorizationID, "error", err)
		return response
	}

	if result.Type == constants.LenderTypeAlreadyCaptured {
		// A duplicate capture must read as success; reuse the requested
		// value when the lender echoes none.
		settleID := result.ID
		if settleID == "" {
			settleID = result.Type
		}
		response = &models.CapturePaymentResponse{
			PaymentID: request.PaymentID,
			SettleID:  settleID,
			Value:     amountOr(result.Amount, request.Value),
			Code:      result.Type,
			Message:   captureMessage(result),
			RequestID: request.RequestID,
		}
	} else {
		response = &models.CapturePaymentResponse{
			PaymentID: request.PaymentID,
			SettleID:  result.ID,
			Value:     amountOr(result.Amount, models.Money{}),
			Code:      result.Type,
			Message:   captureMessage(result),
			RequestID: request.RequestID,
		}
	}

	s.spliceFundingRecord(ctx, authorizationID, stored.OrderID, result, request.Value, response)

	logger.Infow("payment_captured",
		"payment_id", request.PaymentID,
		"transaction_id", authorizationID,
		"settle_id", response.SettleID,
	)
	return response
}

// spliceFundingRecord replaces the capture message with the funding
// partner's report record when the charge was routed through the partner.
func (s *PaymentService) spliceFundingRecord(ctx context.Context, authorizationID string, orderID string, result *lender.ChargeResult, requestedValue models.Money, response *models.CapturePaymentResponse) {
	if !strings.HasPrefix(authorizationID, constants.FundingPartnerIDPrefix) {
		return
	}
	settings, err := s.store.GetMerchantSettings(ctx)
	if err != nil || settings == nil || !settings.EnableFundingPartner {
		if err != nil {
			logger.Warnw("capture_funding_settings_failed", "transaction_id", authorizationID, "error", err)
		}
		return
	}

	response.Value = amountOr(result.Amount, requestedValue)

	report, err := s.lender.FundingReport(ctx, settings.FundingPartnerPrivateToken)
	if err != nil {
		logger.Warnw("capture_funding_report_failed", "transaction_id", authorizationID, "error", err)
		return
	}
	record := report.FindByOrderID(orderID)
	if record == nil {
		logger.Infow("capture_funding_record_missing", "transaction_id", authorizationID, "order_id", orderID)
		return
	}
	serialized, err := json.Marshal(record)
	if err != nil {
		logger.Warnw("capture_funding_record_encode_failed", "order_id", orderID, "error", err)
		return
	}
	response.Message = string(serialized)
	logger.Infow("capture_funding_record_spliced", "order_id", orderID)
}

// RefundPayment returns part or all of a settled charge. Unlike capture it
// fails fast when the payment was never authorized.
func (s *PaymentService) RefundPayment(ctx context.Context, request *models.RefundPaymentRequest, creds lender.Credentials) (*models.RefundPaymentResponse, error) {
	stored, err := s.store.GetPaymentRequest(ctx, request.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment request failed: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentRequestNotFound, request.PaymentID)
	}
	if stored.TransactionID == "" {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotAuthorized, request.PaymentID)
	}

	result, err := s.lender.Refund(ctx, creds, stored.TransactionID, request.Value.ToMinorUnits())
	if err != nil {
		return nil, fmt.Errorf("lender refund failed: %w", err)
	}

	refundID := result.ReferenceID
	if refundID == "" {
		refundID = result.ID
	}
	message := result.ErrMessage()
	if result.ID != "" {
		message = fmt.Sprintf("Id:%s Fee=%s", result.ID, minorUnitsFixed(result.FeeRefunded))
	}
	response := &models.RefundPaymentResponse{
		PaymentID: request.PaymentID,
		RefundID:  refundID,
		Value:     amountOr(result.Amount, models.Money{}),
		Code:      result.TypeOrErrCode(),
		Message:   message,
		RequestID: request.RequestID,
	}

	s.spliceFundingDiscount(ctx, stored, result, response)

	logger.Infow("payment_refunded",
		"payment_id", request.PaymentID,
		"transaction_id", stored.TransactionID,
		"refund_id", response.RefundID,
	)
	return response, nil
}

// spliceFundingDiscount swaps the refund fee annotation for the funding
// record's discount when the charge was routed through the funding partner.
func (s *PaymentService) spliceFundingDiscount(ctx context.Context, stored *models.PaymentRequest, result *lender.ChargeResult, response *models.RefundPaymentResponse) {
	if !strings.HasPrefix(stored.TransactionID, constants.FundingPartnerIDPrefix) {
		return
	}
	settings, err := s.store.GetMerchantSettings(ctx)
	if err != nil || settings == nil || !settings.EnableFundingPartner {
		if err != nil {
			logger.Warnw("refund_funding_settings_failed", "transaction_id", stored.TransactionID, "error", err)
		}
		return
	}
	report, err := s.lender.FundingReport(ctx, settings.FundingPartnerPrivateToken)
	if err != nil {
		logger.Warnw("refund_funding_report_failed", "transaction_id", stored.TransactionID, "error", err)
		return
	}
	record := report.FindByOrderID(stored.OrderID)
	if record == nil {
		logger.Infow("refund_funding_record_missing", "transaction_id", stored.TransactionID, "order_id", stored.OrderID)
		return
	}
	response.Message = fmt.Sprintf("Id:%s Fee=%s", result.ID, record.Discount.StringFixed(2))
}

// CancelPayment voids the full remaining charge. A payment that never
// reached the lender reports the not-authorized sentinel as a success.
func (s *PaymentService) CancelPayment(ctx context.Context, request *models.CancelPaymentRequest, creds lender.Credentials) (*models.CancelPaymentResponse, error) {
	response := &models.CancelPaymentResponse{
		PaymentID: request.PaymentID,
		RequestID: request.RequestID,
		Message:   "Empty",
	}

	stored, err := s.store.GetPaymentRequest(ctx, request.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment request failed: %w", err)
	}

	authorizationID := request.AuthorizationID
	if stored == nil {
		response.Message = fmt.Sprintf("Could not load Payment Request for Payment Id %s.", request.PaymentID)
		logger.Warnw("cancel_request_missing", "payment_id", request.PaymentID)
	} else {
		authorizationID = stored.TransactionID
	}

	if authorizationID == "" {
		// Nothing at the lender to void.
		response.CancellationID = constants.CancellationNotAuthorized
		return response, nil
	}

	result, err := s.lender.Void(ctx, creds, authorizationID, nil)
	if err != nil {
		return nil, fmt.Errorf("lender void failed: %w", err)
	}

	response = &models.CancelPaymentResponse{
		PaymentID:      request.PaymentID,
		CancellationID: result.ID,
		Code:           result.TypeOrErrCode(),
		Message:        result.CreatedOrErrMessage(),
		RequestID:      request.RequestID,
	}

	logger.Infow("payment_cancelled",
		"payment_id", request.PaymentID,
		"transaction_id", authorizationID,
		"cancellation_id", response.CancellationID,
	)
	return response, nil
}

// reconcilePartialCancellation voids the summed value of platform-side
// cancellation actions exactly once per transaction. Every failure here is
// logged and swallowed; it must never abort the enclosing capture.
func (s *PaymentService) reconcilePartialCancellation(ctx context.Context, creds lender.Credentials, transactionID string) {
	settings, err := s.store.GetMerchantSettings(ctx)
	if err != nil {
		logger.Warnw("partial_void_settings_failed", "transaction_id", transactionID, "error", err)
		return
	}
	if settings == nil || !settings.EnablePartialCancellation {
		logger.Debugw("partial_void_disabled", "transaction_id", transactionID)
		return
	}

	existing, err := s.store.GetVoidRecord(ctx, transactionID)
	if err != nil {
		logger.Warnw("partial_void_lookup_failed", "transaction_id", transactionID, "error", err)
		return
	}
	if existing != nil {
		logger.Infow("partial_void_already_done", "transaction_id", transactionID, "void_id", existing.VoidID)
		return
	}

	platformCreds := platform.Credentials{
		AppKey:   settings.PlatformAppKey,
		AppToken: settings.PlatformAppToken,
	}
	actions, err := s.platform.ListCancellationActions(ctx, platformCreds, transactionID)
	if err != nil {
		// A failed lookup counts as nothing cancelled.
		logger.Warnw("partial_void_actions_failed", "transaction_id", transactionID, "error", err)
		return
	}

	var cancelledAmount int64
	for _, action := range actions {
		cancelledAmount += action.Value
	}
	logger.Infow("partial_void_cancelled_amount", "transaction_id", transactionID, "amount", cancelledAmount)
	if cancelledAmount <= 0 {
		return
	}

	result, err := s.lender.Void(ctx, creds, transactionID, &cancelledAmount)
	if err != nil {
		logger.Warnw("partial_void_failed", "transaction_id", transactionID, "amount", cancelledAmount, "error", err)
		return
	}

	record := &models.VoidRecord{
		TransactionID: transactionID,
		VoidID:        result.ID,
		Type:          result.Type,
		Amount:        cancelledAmount,
		Currency:      result.Currency,
		Created:       result.Created,
		Code:          result.ErrCode(),
		Message:       result.ErrMessage(),
	}
	created, err := s.store.SaveVoidRecordIfAbsent(ctx, record)
	if err != nil {
		logger.Warnw("partial_void_persist_failed", "transaction_id", transactionID, "error", err)
		return
	}
	if !created {
		// A concurrent capture won the conditional write.
		logger.Infow("partial_void_lost_race", "transaction_id", transactionID)
		return
	}

	logger.Infow("partial_void_done",
		"transaction_id", transactionID,
		"void_id", record.VoidID,
		"amount", cancelledAmount,
	)

	if s.voidNotes == nil {
		return
	}
	serialized, err := json.Marshal(record)
	if err != nil {
		logger.Warnw("partial_void_note_encode_failed", "transaction_id", transactionID, "error", err)
		return
	}
	if err := s.voidNotes.EnqueueAttachVoidNote(queue.AttachVoidNotePayload{
		TransactionID: transactionID,
		Note:          string(serialized),
	}); err != nil {
		logger.Warnw("partial_void_note_enqueue_failed", "transaction_id", transactionID, "error", err)
	}
}

// GetPaymentRequest returns the stored request for a payment identifier.
func (s *PaymentService) GetPaymentRequest(ctx context.Context, paymentIdentifier string) (*models.PaymentRequest, error) {
	if strings.TrimSpace(paymentIdentifier) == "" {
		return nil, ErrPaymentIdentifierNeeded
	}
	return s.store.GetPaymentRequest(ctx, paymentIdentifier)
}

// GetSettings returns the active merchant settings, nil when none stored.
func (s *PaymentService) GetSettings(ctx context.Context) (*models.MerchantSettings, error) {
	return s.store.GetMerchantSettings(ctx)
}

// SaveSettings replaces the active merchant settings.
func (s *PaymentService) SaveSettings(ctx context.Context, settings *models.MerchantSettings) error {
	if settings == nil {
		return errors.New("settings are required")
	}
	return s.store.SaveMerchantSettings(ctx, settings)
}

// amountOr converts lender minor units to major units, falling back when
// the lender echoed no amount.
func amountOr(minorUnits *int64, fallback models.Money) models.Money {
	if minorUnits == nil {
		return fallback
	}
	return models.NewMoneyFromMinorUnits(*minorUnits)
}

// captureMessage builds the capture result message: a fee annotation when
// the lender returned an id, its error text otherwise.
func captureMessage(result *lender.ChargeResult) string {
	if result.ID != "" {
		return fmt.Sprintf("Fee=%s", minorUnitsFixed(result.Fee))
	}
	if result.Message != "" {
		return result.Message
	}
	return "Error"
}

// minorUnitsFixed renders optional minor units as a two-decimal major-unit
// string, treating absent or non-positive values as zero.
func minorUnitsFixed(minorUnits *int64) string {
	value := decimal.Zero
	if minorUnits != nil && *minorUnits > 0 {
		value = decimal.NewFromInt(*minorUnits).Shift(-2)
	}
	return value.StringFixed(2)
}
