package services

import (
	"strings"

	"listing_pulse/models"
)

// Matcher attributes aggregated page traffic to catalog listings by URL path.
type Matcher struct {
	channels   *ChannelMapper
	pathPrefix string
	defaultCat string
}

func NewMatcher(channels *ChannelMapper, pathPrefix, defaultCategory string) *Matcher {
	return &Matcher{
		channels:   channels,
		pathPrefix: pathPrefix,
		defaultCat: defaultCategory,
	}
}

// Match resolves a listing against the traffic aggregate and fills in the
// listing's ephemeral traffic fields. The partial scan walks the aggregate in
// insertion order and takes the first path where either string contains the
// other, so a stable aggregate yields the same match on every run.
//
// Match is idempotent: it resets the listing's traffic fields before matching,
// so calling it twice with the same inputs produces identical state.
func (m *Matcher) Match(listing *models.PropertyListing, traffic *models.TrafficAggregate) models.MatchType {
	listing.Pageviews = 0
	listing.Users = 0
	listing.Sessions = 0
	listing.AvgDuration = 0
	listing.BounceRate = 0
	listing.TrafficSources = nil
	listing.MatchedPage = ""
	listing.MatchType = models.MatchTypeUnmapped

	if page := traffic.Page(listing.URLPath); page != nil {
		m.apply(listing, page, models.MatchTypeExact)
		return models.MatchTypeExact
	}

	if listing.URLPath != "" {
		for _, path := range traffic.Paths() {
			if strings.Contains(path, listing.URLPath) || strings.Contains(listing.URLPath, path) {
				m.apply(listing, traffic.Page(path), models.MatchTypePartial)
				return models.MatchTypePartial
			}
		}
	}

	if m.pathPrefix != "" && strings.HasPrefix(listing.URLPath, m.pathPrefix) {
		listing.MatchedPage = m.defaultCat
		listing.MatchType = models.MatchTypeCategory
		listing.TrafficSources = map[string]int{}
		return models.MatchTypeCategory
	}

	listing.TrafficSources = map[string]int{}
	return models.MatchTypeUnmapped
}

func (m *Matcher) apply(listing *models.PropertyListing, page *models.PageTraffic, mt models.MatchType) {
	listing.Pageviews = page.Pageviews
	listing.Users = page.Users
	listing.Sessions = page.Sessions
	listing.AvgDuration = page.AvgDuration
	listing.BounceRate = page.BounceRate
	listing.TrafficSources = m.channels.Buckets(page.Sources)
	listing.MatchedPage = page.Path
	listing.MatchType = mt
}
