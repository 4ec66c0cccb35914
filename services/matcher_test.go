package services

import (
	"testing"

	"listing_pulse/models"
)

func testMatcher() *Matcher {
	return NewMatcher(NewChannelMapper(nil), "/properties/", "Property Pages")
}

func testTraffic() *models.TrafficAggregate {
	agg := models.NewTrafficAggregate()
	agg.Add("/properties/ab123-seaview-villa", models.SourceTraffic{
		Source: "google", Medium: "organic", Sessions: 40, Pageviews: 60, Users: 30,
		AvgDuration: 90, BounceRate: 0.4,
	})
	agg.Add("/properties/ab123-seaview-villa", models.SourceTraffic{
		Source: "facebook.com", Medium: "social", Sessions: 10, Pageviews: 12, Users: 8,
		AvgDuration: 30, BounceRate: 0.6,
	})
	agg.Add("/properties/cd456", models.SourceTraffic{
		Source: "(direct)", Medium: "(none)", Sessions: 5, Pageviews: 6, Users: 5,
	})
	return agg
}

func TestMatchExact(t *testing.T) {
	m := testMatcher()
	listing := &models.PropertyListing{Reference: "AB123", URLPath: "/properties/ab123-seaview-villa"}

	mt := m.Match(listing, testTraffic())
	if mt != models.MatchTypeExact {
		t.Fatalf("expected exact match, got %s", mt)
	}
	if listing.Sessions != 50 {
		t.Fatalf("expected 50 sessions, got %d", listing.Sessions)
	}
	if listing.Pageviews != 72 {
		t.Fatalf("expected 72 pageviews, got %d", listing.Pageviews)
	}
	if listing.TrafficSources[ChannelGoogleOrganic] != 40 {
		t.Fatalf("expected 40 organic sessions, got %d", listing.TrafficSources[ChannelGoogleOrganic])
	}
	if listing.TrafficSources[ChannelFacebook] != 10 {
		t.Fatalf("expected 10 facebook sessions, got %d", listing.TrafficSources[ChannelFacebook])
	}
	if listing.MatchedPage != "/properties/ab123-seaview-villa" {
		t.Fatalf("unexpected matched page %s", listing.MatchedPage)
	}
}

func TestMatchPartialFirstInOrder(t *testing.T) {
	m := testMatcher()
	// Short listing path contained by both traffic paths; the first page in
	// insertion order must win.
	agg := models.NewTrafficAggregate()
	agg.Add("/properties/xy789-cottage/photos", models.SourceTraffic{Source: "google", Medium: "organic", Sessions: 7, Pageviews: 9, Users: 6})
	agg.Add("/properties/xy789-cottage/floorplan", models.SourceTraffic{Source: "google", Medium: "organic", Sessions: 3, Pageviews: 4, Users: 2})

	listing := &models.PropertyListing{Reference: "XY789", URLPath: "/properties/xy789-cottage"}
	mt := m.Match(listing, agg)
	if mt != models.MatchTypePartial {
		t.Fatalf("expected partial match, got %s", mt)
	}
	if listing.MatchedPage != "/properties/xy789-cottage/photos" {
		t.Fatalf("expected first path in insertion order, got %s", listing.MatchedPage)
	}
	if listing.Sessions != 7 {
		t.Fatalf("expected 7 sessions, got %d", listing.Sessions)
	}
}

func TestMatchCategoryFallback(t *testing.T) {
	m := testMatcher()
	listing := &models.PropertyListing{Reference: "ZZ999", URLPath: "/properties/zz999-no-traffic"}

	mt := m.Match(listing, testTraffic())
	// "/properties/zz999-no-traffic" shares no containment with observed
	// paths but carries the configured prefix.
	if mt != models.MatchTypeCategory {
		t.Fatalf("expected category match, got %s", mt)
	}
	if listing.MatchedPage != "Property Pages" {
		t.Fatalf("expected default category, got %s", listing.MatchedPage)
	}
	if listing.Sessions != 0 {
		t.Fatalf("category match carries no metrics, got %d sessions", listing.Sessions)
	}
}

func TestMatchUnmapped(t *testing.T) {
	m := testMatcher()
	listing := &models.PropertyListing{Reference: "QQ111", URLPath: "/about-us"}

	mt := m.Match(listing, testTraffic())
	if mt != models.MatchTypeUnmapped {
		t.Fatalf("expected unmapped, got %s", mt)
	}
	if listing.MatchType != models.MatchTypeUnmapped {
		t.Fatalf("listing match type not set, got %s", listing.MatchType)
	}
}

func TestMatchEmptyPath(t *testing.T) {
	m := testMatcher()
	listing := &models.PropertyListing{Reference: "NP000", URL: "https://example.com"}

	// An empty URL path is contained by every traffic path, so the partial
	// scan must not consider it.
	mt := m.Match(listing, testTraffic())
	if mt != models.MatchTypeUnmapped {
		t.Fatalf("empty path should be unmapped, got %s", mt)
	}
	if listing.Sessions != 0 {
		t.Fatalf("empty path should carry no metrics, got %d sessions", listing.Sessions)
	}
}

func TestMatchIdempotent(t *testing.T) {
	m := testMatcher()
	agg := testTraffic()
	listing := &models.PropertyListing{Reference: "AB123", URLPath: "/properties/ab123-seaview-villa"}

	m.Match(listing, agg)
	firstSessions := listing.Sessions
	firstPageviews := listing.Pageviews
	firstSources := make(map[string]int)
	for k, v := range listing.TrafficSources {
		firstSources[k] = v
	}

	m.Match(listing, agg)
	if listing.Sessions != firstSessions || listing.Pageviews != firstPageviews {
		t.Fatalf("second match changed totals: %d/%d vs %d/%d",
			listing.Sessions, listing.Pageviews, firstSessions, firstPageviews)
	}
	if len(listing.TrafficSources) != len(firstSources) {
		t.Fatalf("second match changed breakdown size: %d vs %d",
			len(listing.TrafficSources), len(firstSources))
	}
	for k, v := range firstSources {
		if listing.TrafficSources[k] != v {
			t.Fatalf("second match changed %s: %d vs %d", k, listing.TrafficSources[k], v)
		}
	}
}
