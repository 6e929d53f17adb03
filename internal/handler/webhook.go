package handler

import (
	"errors"
	"net/http"

	"github.com/carvdstudio/carvd-licensing/internal/handler/dto"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/carvdstudio/carvd-licensing/internal/service"
	"github.com/carvdstudio/carvd-licensing/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	service *service.IssuerService
	logger  *zap.Logger
}

func NewWebhookHandler(service *service.IssuerService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger.Named("WebhookHandler"),
	}
}

// Handle processes a payment-platform webhook delivery. The HMAC is
// computed over the exact raw body bytes, so the body must not pass
// through any binding or re-serialization first.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.Warn("Failed to read webhook request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	signature := c.GetHeader(webhook.SignatureHeader)

	outcome, err := h.service.HandleEvent(c.Request.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, ierr.ErrWebhookSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid webhook signature"})
		case errors.Is(err, ierr.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ierr.ErrSigningKeyAbsent):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "License signing is not configured"})
		default:
			h.logger.Error("Webhook processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		}
		return
	}

	if !outcome.Issued {
		c.JSON(http.StatusOK, dto.WebhookResponse{Message: "Event ignored"})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{
		Success:    true,
		LicenseKey: outcome.LicenseKey,
		Message:    "License key issued",
	})
}
