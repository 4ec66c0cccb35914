package services

import (
	"testing"

	"listing_pulse/models"
)

const testHighValueThreshold = 500000

func scoredListing(sessions, pageviews, users int, bounce float64, sources map[string]int) *models.PropertyListing {
	return &models.PropertyListing{
		Reference:      "AB123",
		Sessions:       sessions,
		Pageviews:      pageviews,
		Users:          users,
		BounceRate:     bounce,
		TrafficSources: sources,
	}
}

func TestRecommendZeroTraffic(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	listing := scoredListing(0, 0, 0, 0, map[string]int{})
	score := ScoreForPeriod(0, 0, 0, 0, 30)

	recs := r.Recommend(listing, score)
	if len(recs) != 1 {
		t.Fatalf("zero traffic should yield exactly one recommendation, got %d", len(recs))
	}
	if recs[0].Priority != models.PriorityCritical {
		t.Fatalf("expected CRITICAL, got %s", recs[0].Priority)
	}
	if recs[0].Platform != "All Channels" {
		t.Fatalf("expected platform All Channels, got %s", recs[0].Platform)
	}
	if recs[0].Action != "Start marketing campaign" {
		t.Fatalf("unexpected action %s", recs[0].Action)
	}
}

func TestRecommendNeverEmpty(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	price := int64(750000)

	listings := []*models.PropertyListing{
		scoredListing(0, 0, 0, 0, nil),
		scoredListing(5, 3, 2, 0.9, map[string]int{ChannelDirect: 5}),
		scoredListing(200, 150, 60, 0.25, map[string]int{
			ChannelEmail: 40, ChannelGoogleOrganic: 80, ChannelGoogleAds: 30,
			ChannelFacebook: 20, ChannelInstagram: 15, ChannelLinkedIn: 10, ChannelSocial: 5,
		}),
		{Reference: "HV1", Price: &price, Sessions: 50, Pageviews: 60, Users: 30,
			TrafficSources: map[string]int{ChannelGoogleOrganic: 50}},
	}

	for i, l := range listings {
		score := ScoreForPeriod(l.Pageviews, l.Users, l.AvgDuration, l.BounceRate, 30)
		recs := r.Recommend(l, score)
		if len(recs) == 0 {
			t.Fatalf("listing %d: recommendations must never be empty", i)
		}
	}
}

func TestRecommendLowScorePaidPush(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	listing := scoredListing(8, 5, 3, 0.8, map[string]int{ChannelEmail: 8})
	score := ScoreForPeriod(5, 3, 10, 0.8, 30)
	if score.Value >= 30 {
		t.Fatalf("test setup: score %d should be below 30", score.Value)
	}

	recs := r.Recommend(listing, score)

	var paidPush, facebook, instagram bool
	for _, rec := range recs {
		if rec.Platform == ChannelGoogleAds && rec.Priority == models.PriorityHigh {
			paidPush = true
		}
		if rec.Platform == ChannelFacebook && rec.Priority == models.PriorityHigh {
			facebook = true
		}
		if rec.Platform == ChannelInstagram && rec.Priority == models.PriorityMedium {
			instagram = true
		}
	}
	if !paidPush {
		t.Fatal("low score should add a HIGH paid search recommendation")
	}
	if !facebook {
		t.Fatal("low score with <5 Facebook sessions should add a HIGH Facebook recommendation")
	}
	if !instagram {
		t.Fatal("low score with <5 Instagram sessions should add a MEDIUM Instagram recommendation")
	}
}

func TestRecommendNoEmailTraffic(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	listing := scoredListing(120, 130, 55, 0.3, map[string]int{ChannelGoogleOrganic: 120})
	score := ScoreForPeriod(130, 55, 90, 0.3, 30)

	recs := r.Recommend(listing, score)
	found := false
	for _, rec := range recs {
		if rec.Platform == ChannelEmail && rec.Priority == models.PriorityHigh {
			found = true
		}
	}
	if !found {
		t.Fatal("zero email sessions should add a HIGH email recommendation")
	}
}

func TestRecommendHighValueRules(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	price := int64(600000)
	listing := &models.PropertyListing{
		Reference: "HV2",
		Price:     &price,
		Sessions:  100,
		Pageviews: 120,
		Users:     60,
		TrafficSources: map[string]int{
			ChannelEmail:         20,
			ChannelGoogleOrganic: 80,
		},
	}
	score := ScoreForPeriod(120, 60, 130, 0.2, 30)

	recs := r.Recommend(listing, score)
	var paid, linkedin bool
	for _, rec := range recs {
		if rec.Platform == ChannelGoogleAds && rec.Priority == models.PriorityMedium {
			paid = true
		}
		if rec.Platform == ChannelLinkedIn {
			linkedin = true
		}
	}
	if !paid {
		t.Fatal("high-value listing with no paid sessions should add a paid search recommendation")
	}
	if !linkedin {
		t.Fatal("high-value listing with <3 LinkedIn sessions should add a LinkedIn recommendation")
	}
}

func TestRecommendHighValueThresholdBoundary(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	score := ScoreForPeriod(120, 60, 130, 0.2, 30)

	hasHighValueRecs := func(price int64) bool {
		listing := &models.PropertyListing{
			Reference: "HV3",
			Price:     &price,
			Sessions:  100,
			Pageviews: 120,
			Users:     60,
			TrafficSources: map[string]int{
				ChannelEmail:         20,
				ChannelGoogleOrganic: 80,
			},
		}
		for _, rec := range r.Recommend(listing, score) {
			if rec.Platform == ChannelGoogleAds || rec.Platform == ChannelLinkedIn {
				return true
			}
		}
		return false
	}

	if hasHighValueRecs(testHighValueThreshold) {
		t.Fatal("listing priced exactly at the threshold must not trigger high-value recommendations")
	}
	if !hasHighValueRecs(testHighValueThreshold + 1) {
		t.Fatal("listing priced above the threshold should trigger high-value recommendations")
	}
}

func TestRecommendHighScoreMaintain(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	listing := scoredListing(200, 150, 60, 0.25, map[string]int{
		ChannelEmail: 50, ChannelGoogleOrganic: 100, ChannelGoogleAds: 20,
		ChannelFacebook: 10, ChannelInstagram: 10, ChannelLinkedIn: 5, ChannelSocial: 5,
	})
	score := ScoreForPeriod(150, 60, 130, 0.25, 30)
	if score.Value != 100 {
		t.Fatalf("test setup: expected score 100, got %d", score.Value)
	}

	recs := r.Recommend(listing, score)
	found := false
	for _, rec := range recs {
		if rec.Action == "Maintain current strategy" && rec.Priority != models.PriorityLow {
			t.Fatalf("maintain recommendation should be LOW, got %s", rec.Priority)
		}
		if rec.Action == "Maintain current strategy" {
			found = true
		}
	}
	if !found {
		t.Fatal("score above 70 should add a maintain recommendation")
	}
}

func TestRecommendIdempotent(t *testing.T) {
	r := NewRecommender(testHighValueThreshold)
	listing := scoredListing(40, 30, 15, 0.6, map[string]int{ChannelGoogleOrganic: 40})
	score := ScoreForPeriod(30, 15, 45, 0.6, 30)

	first := r.Recommend(listing, score)
	second := r.Recommend(listing, score)
	if len(first) != len(second) {
		t.Fatalf("identical inputs produced %d then %d recommendations", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("recommendation %d differs between identical runs", i)
		}
	}
}
