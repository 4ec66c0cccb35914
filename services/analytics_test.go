package services

import (
	"context"
	"errors"
	"testing"

	"listing_pulse/models"
)

type fakeSnapshotStore struct {
	listings []models.PropertyListing
	saved    []models.AnalyticsSnapshot
	recs     [][]models.Recommendation
	failRefs map[string]bool
}

func (f *fakeSnapshotStore) GetActiveListings(ctx context.Context) ([]models.PropertyListing, error) {
	return f.listings, nil
}

func (f *fakeSnapshotStore) ReplaceSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot, breakdown []models.SourceBreakdown, recs []models.Recommendation) error {
	if f.failRefs[snap.Reference] {
		return errors.New("simulated write failure")
	}
	snap.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *snap)
	f.recs = append(f.recs, recs)
	return nil
}

type fakeRunRecorder struct {
	runs []models.AnalysisRun
	logs []string
}

func (f *fakeRunRecorder) CreateRun(ctx context.Context, run *models.AnalysisRun) (int64, error) {
	f.runs = append(f.runs, *run)
	return int64(len(f.runs)), nil
}

func (f *fakeRunRecorder) UpdateRun(ctx context.Context, run *models.AnalysisRun) error {
	f.runs[run.ID-1] = *run
	return nil
}

func (f *fakeRunRecorder) Log(ctx context.Context, runID *int64, level models.LogLevel, message string) error {
	f.logs = append(f.logs, message)
	return nil
}

func testAnalytics(store *fakeSnapshotStore, runs *fakeRunRecorder) *AnalyticsService {
	matcher := NewMatcher(NewChannelMapper(nil), "/properties/", "Property Pages")
	return NewAnalyticsService(store, runs, matcher, NewRecommender(testHighValueThreshold), 30)
}

func TestAnalyzeBatch(t *testing.T) {
	store := &fakeSnapshotStore{
		listings: []models.PropertyListing{
			{Reference: "AB123", URLPath: "/properties/ab123-seaview-villa"},
			{Reference: "QQ111", URLPath: "/external/elsewhere"},
		},
	}
	runs := &fakeRunRecorder{}
	svc := testAnalytics(store, runs)

	reports, err := svc.Analyze(context.Background(), testTraffic())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 snapshots persisted, got %d", len(store.saved))
	}

	matched := store.saved[0]
	if matched.Reference != "AB123" || matched.MatchType != models.MatchTypeExact {
		t.Fatalf("unexpected first snapshot: %s/%s", matched.Reference, matched.MatchType)
	}
	if matched.Sessions != 50 {
		t.Fatalf("expected 50 sessions, got %d", matched.Sessions)
	}
	if matched.PeriodDays != 30 {
		t.Fatalf("snapshot must carry the period, got %d", matched.PeriodDays)
	}

	unmapped := store.saved[1]
	if unmapped.MatchType != models.MatchTypeUnmapped {
		t.Fatalf("expected unmapped snapshot, got %s", unmapped.MatchType)
	}
	// Unmapped listing still gets the zero-traffic recommendation.
	if len(store.recs[1]) != 1 || store.recs[1][0].Priority != models.PriorityCritical {
		t.Fatalf("unmapped listing should get the critical recommendation, got %v", store.recs[1])
	}

	run := runs.runs[0]
	if run.ListingsProcessed != 2 || run.ListingsMatched != 1 || run.ListingsUnmapped != 1 {
		t.Fatalf("run counters wrong: %+v", run)
	}
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
}

func TestAnalyzeSkipsFailedListing(t *testing.T) {
	store := &fakeSnapshotStore{
		listings: []models.PropertyListing{
			{Reference: "AB123", URLPath: "/properties/ab123-seaview-villa"},
			{Reference: "CD456", URLPath: "/properties/cd456"},
		},
		failRefs: map[string]bool{"AB123": true},
	}
	runs := &fakeRunRecorder{}
	svc := testAnalytics(store, runs)

	reports, err := svc.Analyze(context.Background(), testTraffic())
	if err != nil {
		t.Fatalf("batch must survive a single listing failure: %v", err)
	}
	if len(reports) != 1 || reports[0].Listing.Reference != "CD456" {
		t.Fatalf("expected only CD456 to succeed, got %d reports", len(reports))
	}

	run := runs.runs[0]
	if run.ErrorsCount != 1 {
		t.Fatalf("expected 1 error recorded, got %d", run.ErrorsCount)
	}
	if run.Status != models.RunStatusPartial {
		t.Fatalf("expected partial run, got %s", run.Status)
	}
	if len(runs.logs) != 1 {
		t.Fatalf("expected 1 run log entry, got %d", len(runs.logs))
	}
}
