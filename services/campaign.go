package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"listing_pulse/models"
)

// CampaignStore is the slice of the store the campaign manager needs.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *models.MarketingCampaign, launch *models.ActivityLogEntry) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*models.MarketingCampaign, error)
	AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error
	EndCampaign(ctx context.Context, id uuid.UUID, endDate time.Time, entry *models.ActivityLogEntry) error
	GetCampaignActivity(ctx context.Context, id uuid.UUID) ([]models.ActivityLogEntry, error)
	KnownReferences(ctx context.Context, refs []string) ([]string, error)
}

// CampaignService manages marketing campaigns and their append-only activity
// timeline. Campaign status is binary and one-way: active until ended, ended
// forever. Paused and resumed entries live in the timeline only and never
// touch the status column.
type CampaignService struct {
	store CampaignStore
}

func NewCampaignService(store CampaignStore) *CampaignService {
	return &CampaignService{store: store}
}

// CreateCampaignParams carries the caller-supplied fields for a new campaign.
type CreateCampaignParams struct {
	Name         string
	Platform     string
	CampaignType string
	StartDate    time.Time
	Budget       float64
	Targets      []string
	Notes        string
}

// CreateCampaign validates the target references against the catalog, inserts
// the campaign with a "launched" activity entry carrying the initial budget,
// and returns the new campaign. The launch entry's budget change is what
// seeds budget_spent, so the campaign row and its timeline always agree.
func (s *CampaignService) CreateCampaign(ctx context.Context, p CreateCampaignParams) (*models.MarketingCampaign, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if strings.TrimSpace(p.Platform) == "" {
		return nil, fmt.Errorf("campaign platform is required")
	}
	if p.Budget < 0 {
		return nil, fmt.Errorf("campaign budget cannot be negative")
	}

	targets := normalizeTargets(p.Targets)
	if len(targets) > 0 {
		known, err := s.store.KnownReferences(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("validate targets: %w", err)
		}
		if unknown := missingRefs(targets, known); len(unknown) > 0 {
			return nil, fmt.Errorf("unknown property references: %s", strings.Join(unknown, ", "))
		}
	}

	campaign := &models.MarketingCampaign{
		ID:           uuid.New(),
		Name:         p.Name,
		Platform:     p.Platform,
		CampaignType: p.CampaignType,
		StartDate:    dateOnly(p.StartDate),
		Status:       models.CampaignStatusActive,
		Notes:        p.Notes,
		Targets:      targets,
	}

	launch := &models.ActivityLogEntry{
		CampaignID:   campaign.ID,
		ActivityDate: campaign.StartDate,
		ActivityType: models.ActivityTypeLaunched,
		Description:  "Campaign launched",
		BudgetChange: p.Budget,
	}

	if err := s.store.CreateCampaign(ctx, campaign, launch); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	campaign.BudgetSpent = p.Budget

	return campaign, nil
}

// LogActivity appends a timeline entry. A non-zero budget change is applied
// additively to the campaign's budget_spent in the same transaction. Ending
// a campaign goes through EndCampaign so the status transition and the
// timeline entry stay paired.
func (s *CampaignService) LogActivity(ctx context.Context, campaignID uuid.UUID, activityType models.ActivityType, date time.Time, description string, budgetChange float64) (*models.ActivityLogEntry, error) {
	switch activityType {
	case models.ActivityTypeLaunched, models.ActivityTypePaused, models.ActivityTypeResumed, models.ActivityTypeBudgetAdjusted:
	case models.ActivityTypeEnded:
		return nil, fmt.Errorf("use EndCampaign to end a campaign")
	default:
		return nil, fmt.Errorf("unknown activity type %q", activityType)
	}

	if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}

	entry := &models.ActivityLogEntry{
		CampaignID:   campaignID,
		ActivityDate: dateOnly(date),
		ActivityType: activityType,
		Description:  description,
		BudgetChange: budgetChange,
	}
	if err := s.store.AppendActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("log activity: %w", err)
	}
	return entry, nil
}

// EndCampaign transitions an active campaign to ended, sets its end date, and
// appends exactly one "ended" timeline entry. Ended campaigns stay ended.
func (s *CampaignService) EndCampaign(ctx context.Context, campaignID uuid.UUID, endDate time.Time) error {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	end := dateOnly(endDate)
	if end.Before(dateOnly(campaign.StartDate)) {
		return fmt.Errorf("end date %s precedes campaign start %s",
			end.Format("2006-01-02"), campaign.StartDate.Format("2006-01-02"))
	}

	entry := &models.ActivityLogEntry{
		CampaignID:   campaignID,
		ActivityDate: end,
		ActivityType: models.ActivityTypeEnded,
		Description:  "Campaign ended",
	}
	return s.store.EndCampaign(ctx, campaignID, end, entry)
}

// GetCampaign returns a campaign with its targets loaded.
func (s *CampaignService) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*models.MarketingCampaign, error) {
	return s.store.GetCampaign(ctx, campaignID)
}

// GetActivityTimeline returns the campaign's timeline in activity order.
func (s *CampaignService) GetActivityTimeline(ctx context.Context, campaignID uuid.UUID) ([]models.ActivityLogEntry, error) {
	return s.store.GetCampaignActivity(ctx, campaignID)
}

func normalizeTargets(refs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

func missingRefs(wanted, known []string) []string {
	have := make(map[string]bool, len(known))
	for _, ref := range known {
		have[ref] = true
	}
	var missing []string
	for _, ref := range wanted {
		if !have[ref] {
			missing = append(missing, ref)
		}
	}
	return missing
}
