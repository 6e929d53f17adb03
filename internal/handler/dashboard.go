package handler

import (
	"net/http"

	"github.com/carvdstudio/carvd-licensing/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	issuanceService *service.IssuanceService
	logger          *zap.Logger
}

func NewDashboardHandler(issuanceService *service.IssuanceService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		issuanceService: issuanceService,
		logger:          logger.Named("DashboardHandler"),
	}
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	h.logger.Info("Received request for dashboard summary")

	summary, err := h.issuanceService.GetDashboardSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get dashboard summary from service", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
