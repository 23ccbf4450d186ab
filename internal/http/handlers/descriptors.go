package handlers

import (
	"github.com/paylater-gateway/internal/http/response"

	"github.com/gin-gonic/gin"
)

// paymentMethodNames are the method names announced to the platform. The
// second entry keeps legacy storefront configurations working.
var paymentMethodNames = []string{"PayLater", "Promissories"}

// PaymentMethods lists the methods this provider handles.
// GET /payment-methods
func (h *Handler) PaymentMethods(c *gin.Context) {
	response.ProtocolPrivate(c, gin.H{
		"paymentMethods": paymentMethodNames,
	})
}

// Manifest describes the provider to the platform.
// GET /manifest
func (h *Handler) Manifest(c *gin.Context) {
	methods := make([]gin.H, 0, len(paymentMethodNames))
	for _, name := range paymentMethodNames {
		methods = append(methods, gin.H{
			"name":        name,
			"allowsSplit": "onCapture",
		})
	}
	response.ProtocolPrivate(c, gin.H{
		"paymentMethods": methods,
		"customFields":   []gin.H{},
	})
}
