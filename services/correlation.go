package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"listing_pulse/models"
)

// CorrelationStore is the slice of the store the correlation analyzer needs.
type CorrelationStore interface {
	GetCampaignsOverlapping(ctx context.Context, start, end time.Time) ([]models.MarketingCampaign, error)
	CountViewings(ctx context.Context, refs []string, start, end time.Time) (int, error)
	ViewingKeys(ctx context.Context, refs []string, start, end time.Time) (map[string]int, error)
	TrafficTotals(ctx context.Context, refs []string, start, end time.Time) (sessions, users int, err error)
}

// CorrelationService joins campaigns, viewing requests, and traffic snapshots
// over an analysis window to compute ROI-style metrics per campaign.
type CorrelationService struct {
	store CorrelationStore
}

func NewCorrelationService(store CorrelationStore) *CorrelationService {
	return &CorrelationService{store: store}
}

// Analyze builds the correlation report for [start, end]. Each campaign's
// metrics cover the intersection of its active interval with the window.
// When two campaigns target overlapping references over overlapping windows,
// the shared viewings are summed into both rows; the report surfaces the
// double-attributed count instead of hiding it.
func (s *CorrelationService) Analyze(ctx context.Context, start, end time.Time) (*models.CorrelationReport, error) {
	start = dateOnly(start)
	end = dateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("analysis window end %s precedes start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	campaigns, err := s.store.GetCampaignsOverlapping(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}

	report := &models.CorrelationReport{
		WindowStart: start,
		WindowEnd:   end,
	}

	// claims counts how many campaigns attributed each (reference, date)
	// viewing key; counts remembers the key's request count.
	claims := make(map[string]int)
	counts := make(map[string]int)
	now := time.Now()

	for _, c := range campaigns {
		activeStart, activeEnd := c.ActiveInterval(now)
		winStart, winEnd := intersect(activeStart, activeEnd, start, end)
		if winEnd.Before(winStart) {
			continue
		}

		row := models.CampaignCorrelation{
			CampaignID:   c.ID,
			CampaignName: c.Name,
			Platform:     c.Platform,
			WindowStart:  winStart,
			WindowEnd:    winEnd,
			Targets:      c.Targets,
			BudgetSpent:  c.BudgetSpent,
		}

		if len(c.Targets) > 0 {
			viewings, err := s.store.CountViewings(ctx, c.Targets, winStart, winEnd)
			if err != nil {
				log.Printf("Warning: failed to count viewings for campaign %s: %v", c.Name, err)
				continue
			}
			sessions, users, err := s.store.TrafficTotals(ctx, c.Targets, winStart, winEnd)
			if err != nil {
				log.Printf("Warning: failed to sum traffic for campaign %s: %v", c.Name, err)
				continue
			}
			row.TotalViewings = viewings
			row.TotalSessions = sessions
			row.TotalUsers = users

			keys, err := s.store.ViewingKeys(ctx, c.Targets, winStart, winEnd)
			if err != nil {
				log.Printf("Warning: failed to load viewing keys for campaign %s: %v", c.Name, err)
			} else {
				for key, count := range keys {
					claims[key]++
					counts[key] = count
				}
			}
		}

		row.CostPerViewing = ratio(c.BudgetSpent, row.TotalViewings)
		row.CostPerSession = ratio(c.BudgetSpent, row.TotalSessions)
		row.CostPerUser = ratio(c.BudgetSpent, row.TotalUsers)
		if row.TotalSessions > 0 {
			rate := float64(row.TotalViewings) / float64(row.TotalSessions) * 100
			row.ViewingConversionRate = &rate
		}

		report.Campaigns = append(report.Campaigns, row)
		report.TotalBudget += c.BudgetSpent
		report.TotalViewings += row.TotalViewings
		report.TotalSessions += row.TotalSessions
	}

	for key, n := range claims {
		if n >= 2 {
			report.DoubleAttributed += counts[key]
		}
	}

	return report, nil
}

// ratio returns budget/denominator, or nil when the denominator is zero so
// the formatting layer can render "N/A" instead of dividing by zero.
func ratio(budget float64, denom int) *float64 {
	if denom == 0 {
		return nil
	}
	v := budget / float64(denom)
	return &v
}

func intersect(aStart, aEnd, bStart, bEnd time.Time) (time.Time, time.Time) {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return start, end
}
