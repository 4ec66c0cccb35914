package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignCorrelation is one campaign's ROI row for an analysis window.
// Ratio metrics are nil when their denominator is zero; the formatting layer
// renders nil as "N/A".
type CampaignCorrelation struct {
	CampaignID   uuid.UUID `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	Platform     string    `json:"platform"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	Targets      []string  `json:"targets"`

	BudgetSpent   float64 `json:"budget_spent"`
	TotalViewings int     `json:"total_viewings"`
	TotalSessions int     `json:"total_sessions"`
	TotalUsers    int     `json:"total_users"`

	CostPerViewing        *float64 `json:"cost_per_viewing"`
	CostPerSession        *float64 `json:"cost_per_session"`
	CostPerUser           *float64 `json:"cost_per_user"`
	ViewingConversionRate *float64 `json:"viewing_conversion_rate"`
}

// CorrelationReport aggregates every matching campaign over the window.
// Viewings attributed to more than one campaign are summed into the campaign
// rows as-is and surfaced in DoubleAttributed rather than silently hidden.
type CorrelationReport struct {
	WindowStart time.Time             `json:"window_start"`
	WindowEnd   time.Time             `json:"window_end"`
	Campaigns   []CampaignCorrelation `json:"campaigns"`

	TotalBudget   float64 `json:"total_budget"`
	TotalViewings int     `json:"total_viewings"`
	TotalSessions int     `json:"total_sessions"`

	// DoubleAttributed counts viewing requests claimed by two or more
	// overlapping campaigns; the aggregate totals above include each of
	// those once per claiming campaign.
	DoubleAttributed int `json:"double_attributed"`
}

// FormatRatio renders a nilable ratio metric for report output.
func FormatRatio(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
