package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"listing_pulse/models"
	"listing_pulse/storage"
)

// fakeCampaignStore records calls and serves one campaign.
type fakeCampaignStore struct {
	known    []string
	campaign *models.MarketingCampaign
	created  *models.MarketingCampaign
	launch   *models.ActivityLogEntry
	appended []*models.ActivityLogEntry
	ended    *models.ActivityLogEntry
	endDate  time.Time
}

func (f *fakeCampaignStore) CreateCampaign(ctx context.Context, c *models.MarketingCampaign, launch *models.ActivityLogEntry) error {
	f.created = c
	f.launch = launch
	return nil
}

func (f *fakeCampaignStore) GetCampaign(ctx context.Context, id uuid.UUID) (*models.MarketingCampaign, error) {
	if f.campaign == nil || f.campaign.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.campaign, nil
}

func (f *fakeCampaignStore) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeCampaignStore) EndCampaign(ctx context.Context, id uuid.UUID, endDate time.Time, entry *models.ActivityLogEntry) error {
	if f.campaign != nil && f.campaign.Status == models.CampaignStatusEnded {
		return storage.ErrCampaignEnded
	}
	f.endDate = endDate
	f.ended = entry
	if f.campaign != nil {
		f.campaign.Status = models.CampaignStatusEnded
		f.campaign.EndDate = &endDate
	}
	return nil
}

func (f *fakeCampaignStore) GetCampaignActivity(ctx context.Context, id uuid.UUID) ([]models.ActivityLogEntry, error) {
	var out []models.ActivityLogEntry
	for _, e := range f.appended {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeCampaignStore) KnownReferences(ctx context.Context, refs []string) ([]string, error) {
	var known []string
	for _, ref := range refs {
		for _, k := range f.known {
			if ref == k {
				known = append(known, ref)
			}
		}
	}
	return known, nil
}

func TestCreateCampaignLaunchEntry(t *testing.T) {
	store := &fakeCampaignStore{known: []string{"AB123", "CD456"}}
	svc := NewCampaignService(store)

	campaign, err := svc.CreateCampaign(context.Background(), CreateCampaignParams{
		Name:      "Spring push",
		Platform:  "Facebook",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Budget:    250,
		Targets:   []string{"AB123", "CD456", "AB123"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if campaign.Status != models.CampaignStatusActive {
		t.Fatalf("new campaign should be active, got %s", campaign.Status)
	}
	if len(store.created.Targets) != 2 {
		t.Fatalf("duplicate targets should be collapsed, got %v", store.created.Targets)
	}
	if store.launch == nil {
		t.Fatal("launch activity entry missing")
	}
	if store.launch.ActivityType != models.ActivityTypeLaunched {
		t.Fatalf("expected launched entry, got %s", store.launch.ActivityType)
	}
	if store.launch.BudgetChange != 250 {
		t.Fatalf("launch entry should carry the initial budget, got %.2f", store.launch.BudgetChange)
	}
	if campaign.BudgetSpent != 250 {
		t.Fatalf("budget_spent should reflect the launch entry, got %.2f", campaign.BudgetSpent)
	}
}

func TestCreateCampaignRejectsUnknownTargets(t *testing.T) {
	store := &fakeCampaignStore{known: []string{"AB123"}}
	svc := NewCampaignService(store)

	_, err := svc.CreateCampaign(context.Background(), CreateCampaignParams{
		Name:      "Typo campaign",
		Platform:  "Google",
		StartDate: time.Now(),
		Targets:   []string{"AB123", "XX000"},
	})
	if err == nil {
		t.Fatal("expected error for unknown reference")
	}
	if !strings.Contains(err.Error(), "XX000") {
		t.Fatalf("error should name the unknown reference, got: %v", err)
	}
	if store.created != nil {
		t.Fatal("campaign must not be created with unknown targets")
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	svc := NewCampaignService(&fakeCampaignStore{})

	if _, err := svc.CreateCampaign(context.Background(), CreateCampaignParams{Platform: "Google", StartDate: time.Now()}); err == nil {
		t.Fatal("expected error for missing name")
	}
	if _, err := svc.CreateCampaign(context.Background(), CreateCampaignParams{Name: "x", StartDate: time.Now()}); err == nil {
		t.Fatal("expected error for missing platform")
	}
	if _, err := svc.CreateCampaign(context.Background(), CreateCampaignParams{Name: "x", Platform: "y", Budget: -5, StartDate: time.Now()}); err == nil {
		t.Fatal("expected error for negative budget")
	}
}

func TestLogActivityBudgetAdjust(t *testing.T) {
	id := uuid.New()
	store := &fakeCampaignStore{
		campaign: &models.MarketingCampaign{
			ID:        id,
			Name:      "Live campaign",
			Status:    models.CampaignStatusActive,
			StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	svc := NewCampaignService(store)

	entry, err := svc.LogActivity(context.Background(), id, models.ActivityTypeBudgetAdjusted,
		time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), "Topped up", 75)
	if err != nil {
		t.Fatalf("log activity failed: %v", err)
	}
	if entry.BudgetChange != 75 {
		t.Fatalf("expected budget change 75, got %.2f", entry.BudgetChange)
	}
	if !entry.ActivityDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("activity date should be normalized to midnight, got %s", entry.ActivityDate)
	}
}

func TestLogActivityRejectsEndedType(t *testing.T) {
	id := uuid.New()
	store := &fakeCampaignStore{
		campaign: &models.MarketingCampaign{ID: id, Status: models.CampaignStatusActive},
	}
	svc := NewCampaignService(store)

	if _, err := svc.LogActivity(context.Background(), id, models.ActivityTypeEnded, time.Now(), "", 0); err == nil {
		t.Fatal("logging an ended entry directly should be rejected")
	}
	if _, err := svc.LogActivity(context.Background(), id, models.ActivityType("archived"), time.Now(), "", 0); err == nil {
		t.Fatal("unknown activity type should be rejected")
	}
}

func TestLogActivityUnknownCampaign(t *testing.T) {
	svc := NewCampaignService(&fakeCampaignStore{})
	if _, err := svc.LogActivity(context.Background(), uuid.New(), models.ActivityTypePaused, time.Now(), "", 0); err == nil {
		t.Fatal("expected error for unknown campaign")
	}
}

func TestEndCampaign(t *testing.T) {
	id := uuid.New()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeCampaignStore{
		campaign: &models.MarketingCampaign{ID: id, Name: "Spring push", Status: models.CampaignStatusActive, StartDate: start},
	}
	svc := NewCampaignService(store)

	end := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	if err := svc.EndCampaign(context.Background(), id, end); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if store.ended == nil || store.ended.ActivityType != models.ActivityTypeEnded {
		t.Fatal("ending must append an ended timeline entry")
	}
	if !store.endDate.Equal(end) {
		t.Fatalf("expected end date %s, got %s", end, store.endDate)
	}

	// Ended is terminal.
	if err := svc.EndCampaign(context.Background(), id, end.AddDate(0, 0, 5)); err == nil {
		t.Fatal("ending an ended campaign should fail")
	}
}

func TestEndCampaignBeforeStart(t *testing.T) {
	id := uuid.New()
	store := &fakeCampaignStore{
		campaign: &models.MarketingCampaign{
			ID:        id,
			Status:    models.CampaignStatusActive,
			StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	svc := NewCampaignService(store)

	if err := svc.EndCampaign(context.Background(), id, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("end date before start date should be rejected")
	}
}
