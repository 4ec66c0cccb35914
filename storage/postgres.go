package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"listing_pulse/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrCampaignEnded = errors.New("campaign already ended")
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate creates the domain schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS property_listings (
		id BIGSERIAL PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		url_path TEXT NOT NULL,
		listing_type TEXT NOT NULL,
		status TEXT NOT NULL,
		price BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS property_analytics (
		id BIGSERIAL PRIMARY KEY,
		reference TEXT NOT NULL,
		report_date DATE NOT NULL,
		period_days INT NOT NULL,
		pageviews INT NOT NULL DEFAULT 0,
		users INT NOT NULL DEFAULT 0,
		sessions INT NOT NULL DEFAULT 0,
		avg_session_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		bounce_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		performance_score INT NOT NULL DEFAULT 0,
		matched_page TEXT NOT NULL DEFAULT '',
		match_type TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (reference, report_date, period_days)
	);

	CREATE TABLE IF NOT EXISTS property_traffic_sources (
		id BIGSERIAL PRIMARY KEY,
		analytics_id BIGINT NOT NULL REFERENCES property_analytics(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		sessions INT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS property_marketing_recommendations (
		id BIGSERIAL PRIMARY KEY,
		analytics_id BIGINT NOT NULL REFERENCES property_analytics(id) ON DELETE CASCADE,
		priority TEXT NOT NULL,
		platform TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		suggested_budget TEXT NOT NULL DEFAULT '',
		expected_impact TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS marketing_campaigns (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		platform TEXT NOT NULL,
		campaign_type TEXT NOT NULL DEFAULT '',
		start_date DATE NOT NULL,
		end_date DATE,
		budget_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS campaign_targets (
		campaign_id UUID NOT NULL REFERENCES marketing_campaigns(id) ON DELETE CASCADE,
		property_reference TEXT NOT NULL REFERENCES property_listings(reference),
		UNIQUE (campaign_id, property_reference)
	);

	CREATE TABLE IF NOT EXISTS campaign_activity_log (
		id BIGSERIAL PRIMARY KEY,
		campaign_id UUID NOT NULL REFERENCES marketing_campaigns(id),
		activity_date DATE NOT NULL,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		budget_change DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS property_viewing_requests (
		id BIGSERIAL PRIMARY KEY,
		reference TEXT NOT NULL,
		request_date DATE NOT NULL,
		request_count INT NOT NULL DEFAULT 1,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (reference, request_date)
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_reference ON property_analytics(reference, report_date);
	CREATE INDEX IF NOT EXISTS idx_activity_campaign ON campaign_activity_log(campaign_id, activity_date);
	CREATE INDEX IF NOT EXISTS idx_viewings_reference ON property_viewing_requests(reference, request_date);
	CREATE INDEX IF NOT EXISTS idx_targets_reference ON campaign_targets(property_reference);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Property Listings (catalog)
// =============================================================================

func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.PropertyListing) error {
	query := `
		INSERT INTO property_listings (
			reference, name, url, url_path, listing_type, status, price,
			is_active, first_seen_at, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
		ON CONFLICT (reference) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			url_path = EXCLUDED.url_path,
			listing_type = EXCLUDED.listing_type,
			status = EXCLUDED.status,
			price = EXCLUDED.price,
			is_active = TRUE,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		l.Reference, l.Name, l.URL, l.URLPath, l.Type, l.Status, l.Price,
		l.FirstSeenAt, l.LastSeenAt,
	).Scan(&l.ID)
}

// DeactivateListingsNotIn marks every active listing whose reference is not
// in seen as inactive. Used by the wholesale catalog refresh.
func (s *PostgresStore) DeactivateListingsNotIn(ctx context.Context, seen []string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE property_listings SET is_active = FALSE
		WHERE is_active AND NOT (reference = ANY($1))`, seen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) GetActiveListings(ctx context.Context) ([]models.PropertyListing, error) {
	rows, err := s.pool.Query(ctx, `
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

// KnownReferences returns the subset of refs that exist in the catalog.
func (s *PostgresStore) KnownReferences(ctx context.Context, refs []string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reference FROM property_listings WHERE reference = ANY($1)`, refs)
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

// ReplaceSnapshot upserts the snapshot row and replaces its traffic-source
// breakdown and recommendations in a single transaction, so a failure mid-way
// can never leave a listing with a snapshot but no recommendations.
func (s *PostgresStore) ReplaceSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot, breakdown []models.SourceBreakdown, recs []models.Recommendation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO property_analytics (
			reference, report_date, period_days, pageviews, users, sessions,
			avg_session_duration, bounce_rate, performance_score, matched_page,
			match_type, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (reference, report_date, period_days) DO UPDATE SET
			pageviews = EXCLUDED.pageviews,
			users = EXCLUDED.users,
			sessions = EXCLUDED.sessions,
			avg_session_duration = EXCLUDED.avg_session_duration,
			bounce_rate = EXCLUDED.bounce_rate,
			performance_score = EXCLUDED.performance_score,
			matched_page = EXCLUDED.matched_page,
			match_type = EXCLUDED.match_type,
			updated_at = NOW()
		RETURNING id`,
		snap.Reference, snap.ReportDate, snap.PeriodDays, snap.Pageviews,
		snap.Users, snap.Sessions, snap.AvgDuration, snap.BounceRate,
		snap.PerformanceScore, snap.MatchedPage, snap.MatchType,
	).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM property_traffic_sources WHERE analytics_id = $1`, snap.ID); err != nil {
		return fmt.Errorf("clear breakdown: %w", err)
	}
	for _, b := range breakdown {
		if _, err := tx.Exec(ctx, `
			INSERT INTO property_traffic_sources (analytics_id, source, sessions)
			VALUES ($1, $2, $3)`, snap.ID, b.Source, b.Sessions); err != nil {
			return fmt.Errorf("insert breakdown: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM property_marketing_recommendations WHERE analytics_id = $1`, snap.ID); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}
	for _, r := range recs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO property_marketing_recommendations
				(analytics_id, priority, platform, action, reason, suggested_budget, expected_impact)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			snap.ID, r.Priority, r.Platform, r.Action, r.Reason, r.SuggestedBudget, r.ExpectedImpact); err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, reference string, reportDate time.Time, periodDays int) (*models.AnalyticsSnapshot, error) {
	var snap models.AnalyticsSnapshot
	err := s.pool.QueryRow(ctx, `
		SELECT id, reference, report_date, period_days, pageviews, users, sessions,
			avg_session_duration, bounce_rate, performance_score, matched_page,
			match_type, updated_at
		FROM property_analytics
		WHERE reference = $1 AND report_date = $2 AND period_days = $3`,
		reference, reportDate, periodDays,
	).Scan(
		&snap.ID, &snap.Reference, &snap.ReportDate, &snap.PeriodDays,
		&snap.Pageviews, &snap.Users, &snap.Sessions, &snap.AvgDuration,
		&snap.BounceRate, &snap.PerformanceScore, &snap.MatchedPage,
		&snap.MatchType, &snap.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *PostgresStore) GetSnapshotChildren(ctx context.Context, analyticsID int64) ([]models.SourceBreakdown, []models.Recommendation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT analytics_id, source, sessions
		FROM property_traffic_sources WHERE analytics_id = $1 ORDER BY sessions DESC`, analyticsID)
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

	recRows, err := s.pool.Query(ctx, `
		SELECT analytics_id, priority, platform, action, reason, suggested_budget, expected_impact
		FROM property_marketing_recommendations WHERE analytics_id = $1 ORDER BY id`, analyticsID)
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

// TrafficTotals sums sessions and users over snapshots for the given
// references whose report_date falls in [start, end].
func (s *PostgresStore) TrafficTotals(ctx context.Context, refs []string, start, end time.Time) (sessions, users int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(sessions), 0), COALESCE(SUM(users), 0)
		FROM property_analytics
		WHERE reference = ANY($1) AND report_date BETWEEN $2 AND $3`,
		refs, start, end,
	).Scan(&sessions, &users)
	return sessions, users, err
}

// =============================================================================
// Marketing Campaigns
// =============================================================================

// CreateCampaign inserts the campaign, its targets, and the launch activity
// entry in one transaction. The launch entry carries the initial budget as
// its budget change.
func (s *PostgresStore) CreateCampaign(ctx context.Context, c *models.MarketingCampaign, launch *models.ActivityLogEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO marketing_campaigns
			(id, name, platform, campaign_type, start_date, end_date, budget_spent, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		c.ID, c.Name, c.Platform, c.CampaignType, c.StartDate, c.EndDate,
		c.BudgetSpent, c.Status, c.Notes)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	for _, ref := range c.Targets {
		if _, err := tx.Exec(ctx, `
			INSERT INTO campaign_targets (campaign_id, property_reference)
			VALUES ($1, $2)
			ON CONFLICT (campaign_id, property_reference) DO NOTHING`, c.ID, ref); err != nil {
			return fmt.Errorf("insert target %s: %w", ref, err)
		}
	}

	if launch != nil {
		if err := insertActivityTx(ctx, tx, launch); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id uuid.UUID) (*models.MarketingCampaign, error) {
	var c models.MarketingCampaign
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, platform, campaign_type, start_date, end_date,
			budget_spent, status, notes, created_at, updated_at
		FROM marketing_campaigns WHERE id = $1`, id,
	).Scan(
		&c.ID, &c.Name, &c.Platform, &c.CampaignType, &c.StartDate, &c.EndDate,
		&c.BudgetSpent, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	targets, err := s.campaignTargets(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Targets = targets
	return &c, nil
}

func (s *PostgresStore) campaignTargets(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT property_reference FROM campaign_targets
		WHERE campaign_id = $1 ORDER BY property_reference`, id)
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

// AppendActivity appends an activity row and, when the entry carries a budget
// change, applies it to the campaign's budget_spent in the same transaction.
func (s *PostgresStore) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertActivityTx(ctx, tx, e); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertActivityTx(ctx context.Context, tx pgx.Tx, e *models.ActivityLogEntry) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO campaign_activity_log
			(campaign_id, activity_date, activity_type, description, budget_change, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`,
		e.CampaignID, e.ActivityDate, e.ActivityType, e.Description, e.BudgetChange,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	if e.BudgetChange != 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE marketing_campaigns
			SET budget_spent = budget_spent + $1, updated_at = NOW()
			WHERE id = $2`, e.BudgetChange, e.CampaignID)
		if err != nil {
			return fmt.Errorf("apply budget change: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// EndCampaign sets end_date and status=ended and appends the "ended" activity
// entry. The status transition is one-way; ending an ended campaign fails.
func (s *PostgresStore) EndCampaign(ctx context.Context, id uuid.UUID, endDate time.Time, entry *models.ActivityLogEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE marketing_campaigns
		SET status = $1, end_date = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.CampaignStatusEnded, endDate, id, models.CampaignStatusActive)
	if err != nil {
		return fmt.Errorf("end campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetCampaign(ctx, id); err == ErrNotFound {
			return ErrNotFound
		}
		return ErrCampaignEnded
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetCampaignActivity(ctx context.Context, id uuid.UUID) ([]models.ActivityLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, activity_date, activity_type, description, budget_change, created_at
		FROM campaign_activity_log
		WHERE campaign_id = $1
		ORDER BY activity_date, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActivityLogEntry
	for rows.Next() {
		var e models.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.ActivityDate, &e.ActivityType,
			&e.Description, &e.BudgetChange, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetCampaignsOverlapping returns campaigns whose active interval intersects
// [start, end], targets included.
func (s *PostgresStore) GetCampaignsOverlapping(ctx context.Context, start, end time.Time) ([]models.MarketingCampaign, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, platform, campaign_type, start_date, end_date,
			budget_spent, status, notes, created_at, updated_at
		FROM marketing_campaigns
		WHERE start_date <= $2 AND COALESCE(end_date, NOW()::date) >= $1
		ORDER BY start_date`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.MarketingCampaign
	for rows.Next() {
		var c models.MarketingCampaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Platform, &c.CampaignType,
			&c.StartDate, &c.EndDate, &c.BudgetSpent, &c.Status, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
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

// UpsertViewingRequest increments request_count and appends notes on repeat
// writes for the same (reference, request_date); empty notes are skipped.
func (s *PostgresStore) UpsertViewingRequest(ctx context.Context, reference string, date time.Time, notes string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO property_viewing_requests (reference, request_date, request_count, notes, created_at, updated_at)
		VALUES ($1, $2, 1, $3, NOW(), NOW())
		ON CONFLICT (reference, request_date) DO UPDATE SET
			request_count = property_viewing_requests.request_count + 1,
			notes = CASE
				WHEN EXCLUDED.notes = '' THEN property_viewing_requests.notes
				WHEN property_viewing_requests.notes = '' THEN EXCLUDED.notes
				ELSE property_viewing_requests.notes || '; ' || EXCLUDED.notes
			END,
			updated_at = NOW()`,
		reference, date, notes)
	return err
}

// GetViewingRequestsForPeriod returns rows within [today-days, today] grouped
// by date. The upsert should prevent duplicate rows per date, but the read
// path still groups and sums in case any slipped in.
func (s *PostgresStore) GetViewingRequestsForPeriod(ctx context.Context, reference string, days int) ([]models.ViewingRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reference, request_date, SUM(request_count)::int,
			STRING_AGG(NULLIF(notes, ''), '; ' ORDER BY id)
		FROM property_viewing_requests
		WHERE reference = $1 AND request_date >= NOW()::date - $2 AND request_date <= NOW()::date
		GROUP BY reference, request_date
		ORDER BY request_date`, reference, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.ViewingRequest
	for rows.Next() {
		var v models.ViewingRequest
		var notes *string
		if err := rows.Scan(&v.Reference, &v.RequestDate, &v.RequestCount, &notes); err != nil {
			return nil, err
		}
		if notes != nil {
			v.Notes = *notes
		}
		requests = append(requests, v)
	}
	return requests, rows.Err()
}

// CountViewings sums viewing requests for refs with request_date in [start, end].
func (s *PostgresStore) CountViewings(ctx context.Context, refs []string, start, end time.Time) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(request_count), 0)
		FROM property_viewing_requests
		WHERE reference = ANY($1) AND request_date BETWEEN $2 AND $3`,
		refs, start, end,
	).Scan(&total)
	return total, err
}

// ViewingKeys returns the distinct (reference, request_date) keys with their
// counts for refs in [start, end]. The correlation analyzer uses these to
// detect viewings attributed to more than one campaign.
func (s *PostgresStore) ViewingKeys(ctx context.Context, refs []string, start, end time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reference, request_date, request_count
		FROM property_viewing_requests
		WHERE reference = ANY($1) AND request_date BETWEEN $2 AND $3`,
		refs, start, end)
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
