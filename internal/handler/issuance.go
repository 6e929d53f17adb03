package handler

import (
	"errors"
	"net/http"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/carvdstudio/carvd-licensing/internal/handler/dto"
	"github.com/carvdstudio/carvd-licensing/internal/ierr"
	"github.com/carvdstudio/carvd-licensing/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IssuanceHandler struct {
	service *service.IssuanceService
	logger  *zap.Logger
}

func NewIssuanceHandler(service *service.IssuanceService, logger *zap.Logger) *IssuanceHandler {
	return &IssuanceHandler{
		service: service,
		logger:  logger.Named("IssuanceHandler"),
	}
}

func (h *IssuanceHandler) List(c *gin.Context) {
	h.logger.Debug("Received request to list issuance records")
	var req dto.ListIssuancesRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Failed to bind or validate query parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	records, totalCount, err := h.service.ListIssuances(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to list issuance records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issuance records"})
		return
	}

	responses := make([]*dto.IssuanceResponse, len(records))
	for i, rec := range records {
		responses[i] = dto.NewIssuanceResponse(rec)
	}

	c.JSON(http.StatusOK, dto.PaginatedIssuanceResponse{
		Issuances:  responses,
		TotalCount: totalCount,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

func (h *IssuanceHandler) GetByID(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Debug("Received request to get issuance record by ID", zap.String("id_param", idStr))

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format received", zap.String("id_param", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID format"})
		return
	}

	rec, err := h.service.GetIssuanceByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, issuance.ErrNotFound) {
			h.logger.Info("Issuance record not found", zap.String("id", idStr))
			c.JSON(http.StatusNotFound, gin.H{"error": "Issuance record not found"})
			return
		}

		h.logger.Error("Service failed to get issuance record by ID", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve issuance record"})
		return
	}

	c.JSON(http.StatusOK, dto.NewIssuanceResponse(rec))
}

func (h *IssuanceHandler) Revoke(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Debug("Received request to revoke issuance record", zap.String("id_param", idStr))

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for revoke", zap.String("id_param", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issuance ID format"})
		return
	}

	if err := h.service.RevokeIssuance(c.Request.Context(), id); err != nil {
		if errors.Is(err, issuance.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issuance record not found"})
			return
		}
		h.logger.Error("Service failed to revoke issuance record", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke issuance record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issuance record revoked"})
}

// Issue mints a license key manually, outside the webhook flow.
func (h *IssuanceHandler) Issue(c *gin.Context) {
	h.logger.Debug("Received request to issue license manually")
	var req dto.IssueLicenseRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind or validate manual issue request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	rec, err := h.service.ManualIssue(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ierr.ErrSigningKeyAbsent) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "License signing is not configured"})
			return
		}
		h.logger.Error("Service failed to issue license manually", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue license"})
		return
	}

	h.logger.Info("License issued manually via handler", zap.String("id", rec.ID.String()))
	c.JSON(http.StatusCreated, dto.NewIssuanceResponse(rec))
}
