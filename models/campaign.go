package models

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

// Campaign status is one-way: active campaigns can only become ended. Pauses
// and resumes are recorded in the activity log but never change the status
// column (see DESIGN.md for the resolution of this ambiguity).
const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusEnded  CampaignStatus = "ended"
)

type ActivityType string

const (
	ActivityTypeLaunched       ActivityType = "launched"
	ActivityTypePaused         ActivityType = "paused"
	ActivityTypeResumed        ActivityType = "resumed"
	ActivityTypeBudgetAdjusted ActivityType = "budget_adjusted"
	ActivityTypeEnded          ActivityType = "ended"
)

// MarketingCampaign is one paid or organic push across some set of listings.
// Targets live in the campaign_targets join table, referentially checked
// against property_listings at write time.
type MarketingCampaign struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Platform     string         `json:"platform" db:"platform"`
	CampaignType string         `json:"campaign_type" db:"campaign_type"`
	StartDate    time.Time      `json:"start_date" db:"start_date"`
	EndDate      *time.Time     `json:"end_date" db:"end_date"`
	BudgetSpent  float64        `json:"budget_spent" db:"budget_spent"`
	Status       CampaignStatus `json:"status" db:"status"`
	Notes        string         `json:"notes" db:"notes"`
	Targets      []string       `json:"targets" db:"-"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// ActiveInterval returns the campaign's active date range, using asOf (today
// for live queries) when the campaign has not ended.
func (c *MarketingCampaign) ActiveInterval(asOf time.Time) (time.Time, time.Time) {
	end := asOf
	if c.EndDate != nil {
		end = *c.EndDate
	}
	return c.StartDate, end
}

// ActivityLogEntry is one append-only timeline row for a campaign. Entries
// are never updated or deleted. A non-zero BudgetChange is applied additively
// to the campaign's budget_spent in the same transaction that appends it.
type ActivityLogEntry struct {
	ID           int64        `json:"id" db:"id"`
	CampaignID   uuid.UUID    `json:"campaign_id" db:"campaign_id"`
	ActivityDate time.Time    `json:"activity_date" db:"activity_date"`
	ActivityType ActivityType `json:"activity_type" db:"activity_type"`
	Description  string       `json:"description" db:"description"`
	BudgetChange float64      `json:"budget_change" db:"budget_change"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
