package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"listing_pulse/models"
)

// SnapshotStore is the slice of the store the batch analyzer needs.
type SnapshotStore interface {
	GetActiveListings(ctx context.Context) ([]models.PropertyListing, error)
	ReplaceSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot, breakdown []models.SourceBreakdown, recs []models.Recommendation) error
}

// RunRecorder tracks batch run outcomes in the operational store.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *models.AnalysisRun) (int64, error)
	UpdateRun(ctx context.Context, run *models.AnalysisRun) error
	Log(ctx context.Context, runID *int64, level models.LogLevel, message string) error
}

// AnalyticsService runs the batch pipeline: match every active listing
// against the traffic aggregate, score it, generate recommendations, and
// persist the snapshot. One listing failing never aborts the batch.
type AnalyticsService struct {
	store       SnapshotStore
	runs        RunRecorder
	matcher     *Matcher
	recommender *Recommender
	periodDays  int
}

func NewAnalyticsService(store SnapshotStore, runs RunRecorder, matcher *Matcher, recommender *Recommender, periodDays int) *AnalyticsService {
	return &AnalyticsService{
		store:       store,
		runs:        runs,
		matcher:     matcher,
		recommender: recommender,
		periodDays:  periodDays,
	}
}

// Analyze processes every active listing against the given traffic aggregate
// and returns the per-listing reports for the formatting layer.
func (s *AnalyticsService) Analyze(ctx context.Context, traffic *models.TrafficAggregate) ([]models.ListingReport, error) {
	run := &models.AnalysisRun{
		RunType:   models.RunTypeAnalyze,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := s.runs.CreateRun(ctx, run)
	if err != nil {
		log.Printf("Warning: failed to record analysis run: %v", err)
	} else {
		run.ID = runID
	}

	listings, err := s.store.GetActiveListings(ctx)
	if err != nil {
		s.finishRun(ctx, run, models.RunStatusFailed)
		return nil, fmt.Errorf("load listings: %w", err)
	}

	reportDate := dateOnly(time.Now())
	var reports []models.ListingReport

	for i := range listings {
		listing := &listings[i]
		run.ListingsProcessed++

		matchType := s.matcher.Match(listing, traffic)
		if matchType == models.MatchTypeUnmapped {
			run.ListingsUnmapped++
		} else {
			run.ListingsMatched++
		}

		score := ScoreForPeriod(listing.Pageviews, listing.Users, listing.AvgDuration, listing.BounceRate, s.periodDays)
		recs := s.recommender.Recommend(listing, score)

		snap := models.AnalyticsSnapshot{
			Reference:        listing.Reference,
			ReportDate:       reportDate,
			PeriodDays:       s.periodDays,
			Pageviews:        listing.Pageviews,
			Users:            listing.Users,
			Sessions:         listing.Sessions,
			AvgDuration:      listing.AvgDuration,
			BounceRate:       listing.BounceRate,
			PerformanceScore: score.Value,
			MatchedPage:      listing.MatchedPage,
			MatchType:        listing.MatchType,
		}
		breakdown := breakdownRows(listing.TrafficSources)

		if err := s.store.ReplaceSnapshot(ctx, &snap, breakdown, recs); err != nil {
			run.ErrorsCount++
			log.Printf("Warning: failed to persist snapshot for %s: %v", listing.Reference, err)
			s.logRun(ctx, run, models.LogLevelError, fmt.Sprintf("snapshot %s: %v", listing.Reference, err))
			continue
		}

		for j := range recs {
			recs[j].AnalyticsID = snap.ID
		}
		for j := range breakdown {
			breakdown[j].AnalyticsID = snap.ID
		}

		reports = append(reports, models.ListingReport{
			Listing:         *listing,
			Snapshot:        snap,
			Breakdown:       breakdown,
			Recommendations: recs,
		})
	}

	status := models.RunStatusCompleted
	if run.ErrorsCount > 0 {
		status = models.RunStatusPartial
	}
	s.finishRun(ctx, run, status)

	log.Printf("Analysis run: %d processed, %d matched, %d unmapped, %d errors",
		run.ListingsProcessed, run.ListingsMatched, run.ListingsUnmapped, run.ErrorsCount)

	return reports, nil
}

func (s *AnalyticsService) finishRun(ctx context.Context, run *models.AnalysisRun, status models.RunStatus) {
	if run.ID == 0 {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.Printf("Warning: failed to finalize run %d: %v", run.ID, err)
	}
}

func (s *AnalyticsService) logRun(ctx context.Context, run *models.AnalysisRun, level models.LogLevel, message string) {
	var runID *int64
	if run.ID != 0 {
		runID = &run.ID
	}
	if err := s.runs.Log(ctx, runID, level, message); err != nil {
		log.Printf("Warning: failed to write run log: %v", err)
	}
}

// breakdownRows converts channel buckets into rows ordered by sessions
// descending, then channel name, so persisted breakdowns are stable.
func breakdownRows(sources map[string]int) []models.SourceBreakdown {
	rows := make([]models.SourceBreakdown, 0, len(sources))
	for source, sessions := range sources {
		rows = append(rows, models.SourceBreakdown{Source: source, Sessions: sessions})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sessions != rows[j].Sessions {
			return rows[i].Sessions > rows[j].Sessions
		}
		return rows[i].Source < rows[j].Source
	})
	return rows
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
