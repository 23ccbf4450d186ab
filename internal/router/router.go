package router

import (
	"github.com/paylater-gateway/internal/config"
	"github.com/paylater-gateway/internal/http/handlers"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine with the protocol and settings routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	h := handlers.New(c)

	// Payment-protocol surface, called by the platform.
	r.POST("/payments", h.CreatePayment)
	r.POST("/payments/:paymentId/settlements", h.CapturePayment)
	r.POST("/payments/:paymentId/refunds", h.RefundPayment)
	r.POST("/payments/:paymentId/cancellations", h.CancelPayment)
	r.GET("/payment-methods", h.PaymentMethods)
	r.GET("/manifest", h.Manifest)

	// Payment-app surface, called by the storefront flow.
	r.GET("/payment-request/:paymentIdentifier", h.GetPaymentRequest)
	r.POST("/authorize/:paymentIdentifier", h.Authorize)

	// Gateway configuration.
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.SaveSettings)

	return r
}
