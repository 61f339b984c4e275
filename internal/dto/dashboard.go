package dto

import (
	"time"

	"github.com/SiPilip/gathering-api/internal/models"
)

// DashboardSummary captures the aggregated admin dashboard payload.
type DashboardSummary struct {
	TotalRegistrants int                   `json:"total_registrants"`
	TotalExpected    int64                 `json:"total_expected"`
	TotalCollected   int64                 `json:"total_collected"`
	TotalUnpaid      int64                 `json:"total_unpaid"`
	ByStatus         []StatusBreakdown     `json:"by_status"`
	System           *models.SystemMetrics `json:"system,omitempty"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// StatusBreakdown is the registration count for one status.
type StatusBreakdown struct {
	Status models.RegistrationStatus `json:"status"`
	Count  int                       `json:"count"`
}
