package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"listing_pulse/models"
)

// SQLiteStore mirrors the domain schema for local single-host deployments and
// always carries the operational tables (analysis runs and logs), whichever
// backend holds the domain data.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS property_listings (
		id INTEGER PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		url_path TEXT NOT NULL,
		listing_type TEXT NOT NULL,
		status TEXT NOT NULL,
		price INTEGER,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		first_seen_at DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS property_analytics (
		id INTEGER PRIMARY KEY,
		reference TEXT NOT NULL,
		report_date DATETIME NOT NULL,
		period_days INTEGER NOT NULL,
		pageviews INTEGER NOT NULL DEFAULT 0,
		users INTEGER NOT NULL DEFAULT 0,
		sessions INTEGER NOT NULL DEFAULT 0,
		avg_session_duration REAL NOT NULL DEFAULT 0,
		bounce_rate REAL NOT NULL DEFAULT 0,
		performance_score INTEGER NOT NULL DEFAULT 0,
		matched_page TEXT NOT NULL DEFAULT '',
		match_type TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		UNIQUE (reference, report_date, period_days)
	);

	CREATE TABLE IF NOT EXISTS property_traffic_sources (
		id INTEGER PRIMARY KEY,
		analytics_id INTEGER NOT NULL REFERENCES property_analytics(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		sessions INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS property_marketing_recommendations (
		id INTEGER PRIMARY KEY,
		analytics_id INTEGER NOT NULL REFERENCES property_analytics(id) ON DELETE CASCADE,
		priority TEXT NOT NULL,
		platform TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		suggested_budget TEXT NOT NULL DEFAULT '',
		expected_impact TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS marketing_campaigns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		campaign_type TEXT NOT NULL DEFAULT '',
		start_date DATETIME NOT NULL,
		end_date DATETIME,
		budget_spent REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS campaign_targets (
		campaign_id TEXT NOT NULL REFERENCES marketing_campaigns(id) ON DELETE CASCADE,
		property_reference TEXT NOT NULL,
		UNIQUE (campaign_id, property_reference)
	);

	CREATE TABLE IF NOT EXISTS campaign_activity_log (
		id INTEGER PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES marketing_campaigns(id),
		activity_date DATETIME NOT NULL,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		budget_change REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS property_viewing_requests (
		id INTEGER PRIMARY KEY,
		reference TEXT NOT NULL,
		request_date DATETIME NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 1,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (reference, request_date)
	);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id INTEGER PRIMARY KEY,
		run_type TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		listings_processed INTEGER NOT NULL DEFAULT 0,
		listings_matched INTEGER NOT NULL DEFAULT 0,
		listings_unmapped INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS analysis_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_reference ON property_analytics(reference, report_date);
	CREATE INDEX IF NOT EXISTS idx_activity_campaign ON campaign_activity_log(campaign_id, activity_date);
	CREATE INDEX IF NOT EXISTS idx_viewings_reference ON property_viewing_requests(reference, request_date);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON analysis_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON analysis_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Property Listings (catalog)
// =============================================================================

func (s *SQLiteStore) UpsertListing(ctx context.Context, l *models.PropertyListing) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO property_listings (
			reference, name, url, url_path, listing_type, status, price,
			is_active, first_seen_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			url_path = excluded.url_path,
			listing_type = excluded.listing_type,
			status = excluded.status,
			price = excluded.price,
			is_active = TRUE,
			last_seen_at = excluded.last_seen_at
		RETURNING id`,
		l.Reference, l.Name, l.URL, l.URLPath, l.Type, l.Status, l.Price,
		l.FirstSeenAt, l.LastSeenAt,
	).Scan(&l.ID)
}

func (s *SQLiteStore) DeactivateListingsNotIn(ctx context.Context, seen []string) (int64, error) {
	query := `UPDATE property_listings SET is_active = FALSE WHERE is_active`
	args := []interface{}{}
	if len(seen) > 0 {
		query += ` AND reference NOT IN (` + placeholders(len(seen)) + `)`
		for _, ref := range seen {
			args = append(args, ref)
		}
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) GetActiveListings(ctx context.Context) ([]models.PropertyListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference, name, url, url_path, listing_type, status, price,
			is_active, first_seen_at, last_seen_at
		FROM property_listings
		WHERE is_active
		ORDER BY reference`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.PropertyListing
	for rows.Next() {
		var l models.PropertyListing
		if err := rows.Scan(
			&l.ID, &l.Reference, &l.Name, &l.URL, &l.URLPath, &l.Type, &l.Status,
			&l.Price, &l.IsActive, &l.FirstSeenAt, &l.LastSeenAt,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *SQLiteStore) KnownReferences(ctx context.Context, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(refs))
	for i, ref := range refs {
		args[i] = ref
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT reference FROM property_listings
		WHERE reference IN (`+placeholders(len(refs))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var known []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		known = append(known, ref)
	}
	return known, rows.Err()
}

// =============================================================================
// Analytics Snapshots
// =============================================================================

func (s *SQLiteStore) ReplaceSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot, breakdown []models.SourceBreakdown, recs []models.Recommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO property_analytics (
			reference, report_date, period_days, pageviews, users, sessions,
			avg_session_duration, bounce_rate, performance_score, matched_page,
			match_type, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference, report_date, period_days) DO UPDATE SET
			pageviews = excluded.pageviews,
			users = excluded.users,
			sessions = excluded.sessions,
			avg_session_duration = excluded.avg_session_duration,
			bounce_rate = excluded.bounce_rate,
			performance_score = excluded.performance_score,
			matched_page = excluded.matched_page,
			match_type = excluded.match_type,
			updated_at = excluded.updated_at
		RETURNING id`,
		snap.Reference, snap.ReportDate, snap.PeriodDays, snap.Pageviews,
		snap.Users, snap.Sessions, snap.AvgDuration, snap.BounceRate,
		snap.PerformanceScore, snap.MatchedPage, snap.MatchType, now,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	snap.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `DELETE FROM property_traffic_sources WHERE analytics_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("clear breakdown: %w", err)
	}
	for _, b := range breakdown {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO property_traffic_sources (analytics_id, source, sessions)
			VALUES (?, ?, ?)`, snap.ID, b.Source, b.Sessions); err != nil {
			return fmt.Errorf("insert breakdown: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM property_marketing_recommendations WHERE analytics_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO property_marketing_recommendations
				(analytics_id, priority, platform, action, reason, suggested_budget, expected_impact)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, r.Priority, r.Platform, r.Action, r.Reason, r.SuggestedBudget, r.ExpectedImpact); err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, reference string, reportDate time.Time, periodDays int) (*models.AnalyticsSnapshot, error) {
	var snap models.AnalyticsSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reference, report_date, period_days, pageviews, users, sessions,
			avg_session_duration, bounce_rate, performance_score, matched_page,
			match_type, updated_at
		FROM property_analytics
		WHERE reference = ? AND report_date = ? AND period_days = ?`,
		reference, reportDate, periodDays,
	).Scan(
		&snap.ID, &snap.Reference, &snap.ReportDate, &snap.PeriodDays,
		&snap.Pageviews, &snap.Users, &snap.Sessions, &snap.AvgDuration,
		&snap.BounceRate, &snap.PerformanceScore, &snap.MatchedPage,
		&snap.MatchType, &snap.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) GetSnapshotChildren(ctx context.Context, analyticsID int64) ([]models.SourceBreakdown, []models.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT analytics_id, source, sessions
		FROM property_traffic_sources WHERE analytics_id = ? ORDER BY sessions DESC`, analyticsID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var breakdown []models.SourceBreakdown
	for rows.Next() {
		var b models.SourceBreakdown
		if err := rows.Scan(&b.AnalyticsID, &b.Source, &b.Sessions); err != nil {
			return nil, nil, err
		}
		breakdown = append(breakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	recRows, err := s.db.QueryContext(ctx, `
		SELECT analytics_id, priority, platform, action, reason, suggested_budget, expected_impact
		FROM property_marketing_recommendations WHERE analytics_id = ? ORDER BY id`, analyticsID)
	if err != nil {
		return nil, nil, err
	}
	defer recRows.Close()

	var recs []models.Recommendation
	for recRows.Next() {
		var r models.Recommendation
		if err := recRows.Scan(&r.AnalyticsID, &r.Priority, &r.Platform, &r.Action,
			&r.Reason, &r.SuggestedBudget, &r.ExpectedImpact); err != nil {
			return nil, nil, err
		}
		recs = append(recs, r)
	}
	return breakdown, recs, recRows.Err()
}

func (s *SQLiteStore) TrafficTotals(ctx context.Context, refs []string, start, end time.Time) (sessions, users int, err error) {
	if len(refs) == 0 {
		return 0, 0, nil
	}
	args := []interface{}{}
	for _, ref := range refs {
		args = append(args, ref)
	}
	args = append(args, start, end)
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(sessions), 0), COALESCE(SUM(users), 0)
		FROM property_analytics
		WHERE reference IN (`+placeholders(len(refs))+`) AND report_date BETWEEN ? AND ?`,
		args...,
	).Scan(&sessions, &users)
	return sessions, users, err
}

// =============================================================================
// Marketing Campaigns
// =============================================================================

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *models.MarketingCampaign, launch *models.ActivityLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO marketing_campaigns
			(id, name, platform, campaign_type, start_date, end_date, budget_spent, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.Platform, c.CampaignType, c.StartDate, c.EndDate,
		c.BudgetSpent, c.Status, c.Notes, now, now)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	for _, ref := range c.Targets {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO campaign_targets (campaign_id, property_reference)
			VALUES (?, ?)`, c.ID.String(), ref); err != nil {
			return fmt.Errorf("insert target %s: %w", ref, err)
		}
	}

	if launch != nil {
		if err := s.insertActivityTx(ctx, tx, launch); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id uuid.UUID) (*models.MarketingCampaign, error) {
	var c models.MarketingCampaign
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, platform, campaign_type, start_date, end_date,
			budget_spent, status, notes, created_at, updated_at
		FROM marketing_campaigns WHERE id = ?`, id.String(),
	).Scan(
		&rawID, &c.Name, &c.Platform, &c.CampaignType, &c.StartDate, &c.EndDate,
		&c.BudgetSpent, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse campaign id: %w", err)
	}

	targets, err := s.campaignTargets(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Targets = targets
	return &c, nil
}

func (s *SQLiteStore) campaignTargets(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_reference FROM campaign_targets
		WHERE campaign_id = ? ORDER BY property_reference`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		targets = append(targets, ref)
	}
	return targets, rows.Err()
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertActivityTx(ctx, tx, e); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) insertActivityTx(ctx context.Context, tx *sql.Tx, e *models.ActivityLogEntry) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO campaign_activity_log
			(campaign_id, activity_date, activity_type, description, budget_change, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.CampaignID.String(), e.ActivityDate, e.ActivityType, e.Description, e.BudgetChange, time.Now())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	e.ID, _ = result.LastInsertId()

	if e.BudgetChange != 0 {
		result, err := tx.ExecContext(ctx, `
			UPDATE marketing_campaigns
			SET budget_spent = budget_spent + ?, updated_at = ?
			WHERE id = ?`, e.BudgetChange, time.Now(), e.CampaignID.String())
		if err != nil {
			return fmt.Errorf("apply budget change: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *SQLiteStore) EndCampaign(ctx context.Context, id uuid.UUID, endDate time.Time, entry *models.ActivityLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE marketing_campaigns
		SET status = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.CampaignStatusEnded, endDate, time.Now(), id.String(), models.CampaignStatusActive)
	if err != nil {
		return fmt.Errorf("end campaign: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM marketing_campaigns WHERE id = ?`, id.String()).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrCampaignEnded
	}

	if err := s.insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetCampaignActivity(ctx context.Context, id uuid.UUID) ([]models.ActivityLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, activity_date, activity_type, description, budget_change, created_at
		FROM campaign_activity_log
		WHERE campaign_id = ?
		ORDER BY activity_date, id`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLogEntry
	for rows.Next() {
		var e models.ActivityLogEntry
		var rawID string
		if err := rows.Scan(&e.ID, &rawID, &e.ActivityDate, &e.ActivityType,
			&e.Description, &e.BudgetChange, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CampaignID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse campaign id: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) GetCampaignsOverlapping(ctx context.Context, start, end time.Time) ([]models.MarketingCampaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, platform, campaign_type, start_date, end_date,
			budget_spent, status, notes, created_at, updated_at
		FROM marketing_campaigns
		WHERE start_date <= ? AND COALESCE(end_date, ?) >= ?
		ORDER BY start_date`, end, time.Now(), start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.MarketingCampaign
	for rows.Next() {
		var c models.MarketingCampaign
		var rawID string
		if err := rows.Scan(&rawID, &c.Name, &c.Platform, &c.CampaignType,
			&c.StartDate, &c.EndDate, &c.BudgetSpent, &c.Status, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse campaign id: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range campaigns {
		targets, err := s.campaignTargets(ctx, campaigns[i].ID)
		if err != nil {
			return nil, err
		}
		campaigns[i].Targets = targets
	}
	return campaigns, nil
}

// =============================================================================
// Viewing Requests
// =============================================================================

func (s *SQLiteStore) UpsertViewingRequest(ctx context.Context, reference string, date time.Time, notes string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_viewing_requests (reference, request_date, request_count, notes, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(reference, request_date) DO UPDATE SET
			request_count = request_count + 1,
			notes = CASE
				WHEN excluded.notes = '' THEN notes
				WHEN notes = '' THEN excluded.notes
				ELSE notes || '; ' || excluded.notes
			END,
			updated_at = excluded.updated_at`,
		reference, date, notes, now, now)
	return err
}

func (s *SQLiteStore) GetViewingRequestsForPeriod(ctx context.Context, reference string, days int) ([]models.ViewingRequest, error) {
	// Rows are keyed at midnight UTC, so the window start must be truncated
	// to start-of-day or a viewing logged exactly on day today-days falls
	// just before it.
	end := time.Now().UTC()
	start := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT reference, request_date, SUM(request_count),
			GROUP_CONCAT(NULLIF(notes, ''), '; ')
		FROM property_viewing_requests
		WHERE reference = ? AND request_date BETWEEN ? AND ?
		GROUP BY reference, request_date
		ORDER BY request_date`, reference, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.ViewingRequest
	for rows.Next() {
		var v models.ViewingRequest
		var notes sql.NullString
		if err := rows.Scan(&v.Reference, &v.RequestDate, &v.RequestCount, &notes); err != nil {
			return nil, err
		}
		v.Notes = notes.String
		requests = append(requests, v)
	}
	return requests, rows.Err()
}

func (s *SQLiteStore) CountViewings(ctx context.Context, refs []string, start, end time.Time) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	args := []interface{}{}
	for _, ref := range refs {
		args = append(args, ref)
	}
	args = append(args, start, end)

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(request_count), 0)
		FROM property_viewing_requests
		WHERE reference IN (`+placeholders(len(refs))+`) AND request_date BETWEEN ? AND ?`,
		args...,
	).Scan(&total)
	return total, err
}

func (s *SQLiteStore) ViewingKeys(ctx context.Context, refs []string, start, end time.Time) (map[string]int, error) {
	if len(refs) == 0 {
		return map[string]int{}, nil
	}
	args := []interface{}{}
	for _, ref := range refs {
		args = append(args, ref)
	}
	args = append(args, start, end)

	rows, err := s.db.QueryContext(ctx, `
		SELECT reference, request_date, request_count
		FROM property_viewing_requests
		WHERE reference IN (`+placeholders(len(refs))+`) AND request_date BETWEEN ? AND ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]int)
	for rows.Next() {
		var ref string
		var date time.Time
		var count int
		if err := rows.Scan(&ref, &date, &count); err != nil {
			return nil, err
		}
		keys[ref+"|"+date.Format("2006-01-02")] += count
	}
	return keys, rows.Err()
}

// =============================================================================
// Analysis Runs & Logs (operational)
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.AnalysisRun) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_type, started_at, status)
		VALUES (?, ?, ?)`,
		run.RunType, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.AnalysisRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs SET finished_at = ?, status = ?, listings_processed = ?,
			listings_matched = ?, listings_unmapped = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsProcessed,
		run.ListingsMatched, run.ListingsUnmapped, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message string) error {
	entry := models.AnalysisLog{
		RunID:     runID,
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_logs (run_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		entry.RunID, entry.Timestamp, entry.Level, entry.Message)
	return err
}

func (s *SQLiteStore) GetRecentLogs(ctx context.Context, limit int) ([]models.AnalysisLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, level, message
		FROM analysis_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AnalysisLog
	for rows.Next() {
		var l models.AnalysisLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) GetRecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_type, started_at, finished_at, status, listings_processed,
			listings_matched, listings_unmapped, errors_count
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var r models.AnalysisRun
		if err := rows.Scan(&r.ID, &r.RunType, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.ListingsProcessed, &r.ListingsMatched, &r.ListingsUnmapped, &r.ErrorsCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
