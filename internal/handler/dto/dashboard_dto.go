package dto

import (
	"github.com/carvdstudio/carvd-licensing/internal/domain/issuance"
)

type DashboardSummaryResponse struct {
	TotalIssuances int64                     `json:"totalIssuances"`
	StatusCounts   map[issuance.Status]int64 `json:"statusCounts"`
}
