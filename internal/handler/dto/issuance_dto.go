package dto

import (
	"time"

	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
	"github.com/google/uuid"
)

type ListIssuancesRequest struct {
	Status    *issuance.Status `form:"status" binding:"omitempty,oneof=issued expired revoked"`
	Email     *string          `form:"email" binding:"omitempty,email"`
	OrderID   *string          `form:"order_id"`
	Limit     int              `form:"limit,default=20" binding:"omitempty,gte=0"`
	Offset    int              `form:"offset,default=0" binding:"omitempty,gte=0"`
	SortBy    string           `form:"sort_by,default=created_at"`
	SortOrder string           `form:"sort_order,default=DESC" binding:"omitempty,oneof=ASC DESC"`
}

type IssuanceResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     string          `json:"order_id"`
	OrderNumber int64           `json:"order_number,omitempty"`
	Email       string          `json:"email"`
	EventName   string          `json:"event_name"`
	LicenseKey  string          `json:"license_key"`
	LicenseType string          `json:"license_type"`
	Status      issuance.Status `json:"status"`
	IssuedAt    time.Time       `json:"issued_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Note        *string         `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewIssuanceResponse(rec *issuance.Issuance) *IssuanceResponse {
	resp := &IssuanceResponse{
		ID:          rec.ID,
		OrderID:     rec.OrderID,
		OrderNumber: rec.OrderNumber,
		Email:       rec.Email,
		EventName:   rec.EventName,
		LicenseKey:  rec.LicenseKey,
		LicenseType: rec.LicenseType,
		Status:      rec.Status,
		IssuedAt:    rec.IssuedAt,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.ExpiresAt.Valid {
		resp.ExpiresAt = &rec.ExpiresAt.Time
	}
	if rec.Note.Valid {
		resp.Note = &rec.Note.String
	}
	return resp
}

type PaginatedIssuanceResponse struct {
	Issuances  []*IssuanceResponse `json:"issuances"`
	TotalCount int64               `json:"totalCount"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// IssueLicenseRequest mints a key outside the webhook flow. ExpiresAt is
// optional: omitting it issues a perpetual key, matching webhook
// issuance.
type IssueLicenseRequest struct {
	Email     string     `json:"email" binding:"required,email"`
	OrderID   string     `json:"order_id"`
	Note      string     `json:"note"`
	ExpiresAt *time.Time `json:"expires_at" binding:"omitempty,gt"`
}
