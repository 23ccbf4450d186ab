package handlers

import (
	"net/http"

	"github.com/paylater-gateway/internal/constants"
	"github.com/paylater-gateway/internal/http/response"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/models"
	"github.com/paylater-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePayment starts the payment flow.
// POST /payments
func (h *Handler) CreatePayment(c *gin.Context) {
	var request models.PaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	publicKey := c.GetHeader(constants.HeaderAppKey)
	result, err := h.PaymentService.CreatePayment(c.Request.Context(), &request, publicKey)
	if err != nil {
		if err == service.ErrPaymentIDRequired {
			response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		logger.Errorw("http_create_payment_failed", "payment_id", request.PaymentID, "error", err)
		response.ProtocolError(c, http.StatusInternalServerError, "internal_error", "create payment failed")
		return
	}
	response.ProtocolPrivate(c, result)
}

// Authorize completes the out-of-band checkout: the payment app posts the
// one-time token back with the payment identifier it was minted under.
// POST /authorize/:paymentIdentifier
func (h *Handler) Authorize(c *gin.Context) {
	paymentIdentifier := c.Param("paymentIdentifier")
	token := c.Query("token")
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			token = body.Token
		}
	}

	stored, err := h.PaymentService.GetPaymentRequest(c.Request.Context(), paymentIdentifier)
	if err != nil {
		if err == service.ErrPaymentIdentifierNeeded {
			response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		logger.Errorw("http_authorize_load_failed", "payment_identifier", paymentIdentifier, "error", err)
		response.ProtocolError(c, http.StatusInternalServerError, "internal_error", "authorize failed")
		return
	}

	params := service.AuthorizeParams{
		PaymentIdentifier: paymentIdentifier,
		CheckoutToken:     token,
	}
	sandbox := false
	if stored != nil {
		params.CallbackURL = stored.CallbackURL
		params.OrderID = stored.OrderID
		params.ExpectedAmountMinorUnits = stored.Value.ToMinorUnits()
		sandbox = stored.SandboxMode
	}
	params.Credentials = lenderCredentials(c, sandbox)

	result, err := h.PaymentService.Authorize(c.Request.Context(), params)
	if err != nil {
		switch err {
		case service.ErrPaymentIdentifierNeeded, service.ErrCheckoutTokenRequired:
			response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
		default:
			logger.Errorw("http_authorize_failed", "payment_identifier", paymentIdentifier, "error", err)
			response.ProtocolError(c, http.StatusInternalServerError, "internal_error", "authorize failed")
		}
		return
	}
	response.ProtocolPrivate(c, result)
}

// GetPaymentRequest returns the stored request; the payment app reads it back
// to render the checkout.
// GET /payment-request/:paymentIdentifier
func (h *Handler) GetPaymentRequest(c *gin.Context) {
	paymentIdentifier := c.Param("paymentIdentifier")
	stored, err := h.PaymentService.GetPaymentRequest(c.Request.Context(), paymentIdentifier)
	if err != nil {
		if err == service.ErrPaymentIdentifierNeeded {
			response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		logger.Errorw("http_payment_request_load_failed", "payment_identifier", paymentIdentifier, "error", err)
		response.ProtocolError(c, http.StatusInternalServerError, "internal_error", "load failed")
		return
	}
	if stored == nil {
		response.ProtocolError(c, http.StatusNotFound, "not_found", "payment request not found")
		return
	}
	response.ProtocolPrivate(c, stored)
}

// CapturePayment settles an authorized payment.
// POST /payments/:paymentId/settlements
func (h *Handler) CapturePayment(c *gin.Context) {
	var request models.CapturePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if request.PaymentID == "" {
		request.PaymentID = c.Param("paymentId")
	}

	result := h.PaymentService.CapturePayment(c.Request.Context(), &request, lenderCredentials(c, request.SandboxMode))
	response.Protocol(c, result)
}

// RefundPayment refunds part or all of a settled payment.
// POST /payments/:paymentId/refunds
func (h *Handler) RefundPayment(c *gin.Context) {
	var request models.RefundPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if request.PaymentID == "" {
		request.PaymentID = c.Param("paymentId")
	}

	result, err := h.PaymentService.RefundPayment(c.Request.Context(), &request, lenderCredentials(c, request.SandboxMode))
	if err != nil {
		// A refund against an unknown or unauthorized payment is a protocol
		// violation by the caller, not a gateway fault.
		logger.Warnw("http_refund_rejected", "payment_id", request.PaymentID, "error", err)
		response.Protocol(c, &models.RefundPaymentResponse{
			PaymentID: request.PaymentID,
			RequestID: request.RequestID,
			Message:   err.Error(),
		})
		return
	}
	response.Protocol(c, result)
}

// CancelPayment voids the full remaining charge.
// POST /payments/:paymentId/cancellations
func (h *Handler) CancelPayment(c *gin.Context) {
	var request models.CancelPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.ProtocolError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if request.PaymentID == "" {
		request.PaymentID = c.Param("paymentId")
	}

	result, err := h.PaymentService.CancelPayment(c.Request.Context(), &request, lenderCredentials(c, request.SandboxMode))
	if err != nil {
		logger.Errorw("http_cancel_failed", "payment_id", request.PaymentID, "error", err)
		response.ProtocolError(c, http.StatusInternalServerError, "internal_error", "cancel failed")
		return
	}
	response.Protocol(c, result)
}
