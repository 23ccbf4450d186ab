package handlers

import (
	"github.com/paylater-gateway/internal/http/response"
	"github.com/paylater-gateway/internal/logger"
	"github.com/paylater-gateway/internal/models"

	"github.com/gin-gonic/gin"
)

// GetSettings returns the active merchant settings.
// GET /settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.PaymentService.GetSettings(c.Request.Context())
	if err != nil {
		logger.Errorw("http_get_settings_failed", "error", err)
		response.Internal(c, "load settings failed")
		return
	}
	if settings == nil {
		settings = &models.MerchantSettings{}
	}
	response.Success(c, settings)
}

// SaveSettings replaces the active merchant settings.
// PUT /settings
func (h *Handler) SaveSettings(c *gin.Context) {
	var settings models.MerchantSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.PaymentService.SaveSettings(c.Request.Context(), &settings); err != nil {
		logger.Errorw("http_save_settings_failed", "error", err)
		response.Internal(c, "save settings failed")
		return
	}
	response.Success(c, &settings)
}
