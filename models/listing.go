package models

import "time"

type ListingType string

const (
	ListingTypeBuy  ListingType = "buy"
	ListingTypeRent ListingType = "rent"
)

type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusLet       ListingStatus = "let"
)

// PropertyListing is one catalog record. The catalog is refreshed wholesale
// from the external feed each run; this core never mutates reference/name/url.
type PropertyListing struct {
	ID          int64         `json:"id" db:"id"`
	Reference   string        `json:"reference" db:"reference"`
	Name        string        `json:"name" db:"name"`
	URL         string        `json:"url" db:"url"`
	URLPath     string        `json:"url_path" db:"url_path"`
	Type        ListingType   `json:"type" db:"listing_type"`
	Status      ListingStatus `json:"status" db:"status"`
	Price       *int64        `json:"price" db:"price"`
	IsActive    bool          `json:"is_active" db:"is_active"`
	FirstSeenAt time.Time     `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt  time.Time     `json:"last_seen_at" db:"last_seen_at"`

	// Filled in by the URL matcher for the current invocation; not persisted
	// on this table (snapshots carry the persisted copy).
	Pageviews      int            `json:"pageviews,omitempty" db:"-"`
	Users          int            `json:"users,omitempty" db:"-"`
	Sessions       int            `json:"sessions,omitempty" db:"-"`
	AvgDuration    float64        `json:"avg_duration,omitempty" db:"-"`
	BounceRate     float64        `json:"bounce_rate,omitempty" db:"-"`
	TrafficSources map[string]int `json:"traffic_sources,omitempty" db:"-"`
	MatchedPage    string         `json:"matched_page,omitempty" db:"-"`
	MatchType      MatchType      `json:"match_type,omitempty" db:"-"`
}

// HighValue reports whether the listing's price is strictly above the
// threshold. Listings with no price are never high-value.
func (l *PropertyListing) HighValue(threshold int64) bool {
	return l.Price != nil && *l.Price > threshold
}

type MatchType string

const (
	MatchTypeExact    MatchType = "exact"
	MatchTypePartial  MatchType = "partial"
	MatchTypeCategory MatchType = "category"
	MatchTypeUnmapped MatchType = "unmapped"
)
