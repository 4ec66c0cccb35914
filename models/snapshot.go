package models

import "time"

// AnalyticsSnapshot is one (reference, report_date, period_days) row capturing
// a listing's traffic metrics and score. Upserted on every run; the
// traffic-source breakdown and recommendations are children replaced in the
// same transaction.
type AnalyticsSnapshot struct {
	ID               int64     `json:"id" db:"id"`
	Reference        string    `json:"reference" db:"reference"`
	ReportDate       time.Time `json:"report_date" db:"report_date"`
	PeriodDays       int       `json:"period_days" db:"period_days"`
	Pageviews        int       `json:"pageviews" db:"pageviews"`
	Users            int       `json:"users" db:"users"`
	Sessions         int       `json:"sessions" db:"sessions"`
	AvgDuration      float64   `json:"avg_session_duration" db:"avg_session_duration"`
	BounceRate       float64   `json:"bounce_rate" db:"bounce_rate"`
	PerformanceScore int       `json:"performance_score" db:"performance_score"`
	MatchedPage      string    `json:"matched_page" db:"matched_page"`
	MatchType        MatchType `json:"match_type" db:"match_type"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// SourceBreakdown is one canonical-channel session count under a snapshot.
type SourceBreakdown struct {
	AnalyticsID int64  `json:"analytics_id" db:"analytics_id"`
	Source      string `json:"source" db:"source"`
	Sessions    int    `json:"sessions" db:"sessions"`
}

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Recommendation is one prioritized marketing action for a listing. The set
// under a snapshot is fully replaced on each run; there is no history.
type Recommendation struct {
	AnalyticsID     int64    `json:"analytics_id" db:"analytics_id"`
	Priority        Priority `json:"priority" db:"priority"`
	Platform        string   `json:"platform" db:"platform"`
	Action          string   `json:"action" db:"action"`
	Reason          string   `json:"reason" db:"reason"`
	SuggestedBudget string   `json:"suggested_budget" db:"suggested_budget"`
	ExpectedImpact  string   `json:"expected_impact" db:"expected_impact"`
}

// ListingReport is the plain structure handed to the external formatting
// layer after a batch run: one listing's snapshot plus its children.
type ListingReport struct {
	Listing         PropertyListing   `json:"listing"`
	Snapshot        AnalyticsSnapshot `json:"snapshot"`
	Breakdown       []SourceBreakdown `json:"breakdown"`
	Recommendations []Recommendation  `json:"recommendations"`
}
