package services

import (
	"fmt"

	"listing_pulse/models"
)

// Recommender turns a scored listing and its channel breakdown into
// prioritized marketing actions. Stateless; identical inputs always produce
// identical output, and persistence is a full replace rather than an append.
type Recommender struct {
	highValueThreshold int64
}

func NewRecommender(highValueThreshold int64) *Recommender {
	return &Recommender{highValueThreshold: highValueThreshold}
}

// Recommend evaluates the rule table in fixed order. Each rule independently
// appends; there is no early return except the zero-traffic shortcut. The
// result is never empty.
func (r *Recommender) Recommend(listing *models.PropertyListing, score PeriodScore) []models.Recommendation {
	sources := listing.TrafficSources
	if sources == nil {
		sources = map[string]int{}
	}

	total := listing.Sessions

	if total == 0 {
		return []models.Recommendation{{
			Priority:        models.PriorityCritical,
			Platform:        "All Channels",
			Action:          "Start marketing campaign",
			Reason:          "No traffic recorded for this listing in the reporting period",
			SuggestedBudget: "£150-300/month",
			ExpectedImpact:  "Establish baseline visibility across search and social",
		}}
	}

	var recs []models.Recommendation

	if sources[ChannelEmail] == 0 {
		recs = append(recs, models.Recommendation{
			Priority:        models.PriorityHigh,
			Platform:        ChannelEmail,
			Action:          "Launch email marketing campaign",
			Reason:          "No email-driven sessions in the reporting period",
			SuggestedBudget: "£50-100/month",
			ExpectedImpact:  "Email typically converts warm leads at 2-3x social rates",
		})
	}

	if score.Value < 30 {
		recs = append(recs, models.Recommendation{
			Priority:        models.PriorityHigh,
			Platform:        ChannelGoogleAds,
			Action:          "Run targeted paid search push",
			Reason:          fmt.Sprintf("Performance score %d is below the intervention threshold", score.Value),
			SuggestedBudget: "£200-400/month",
			ExpectedImpact:  "Paid search recovers visibility fastest for underperforming listings",
		})
		if sources[ChannelFacebook] < 5 {
			recs = append(recs, models.Recommendation{
				Priority:        models.PriorityHigh,
				Platform:        ChannelFacebook,
				Action:          "Boost listing posts to local audiences",
				Reason:          "Low score combined with minimal Facebook traffic",
				SuggestedBudget: "£75-150/month",
				ExpectedImpact:  "Local audience targeting lifts listing page sessions",
			})
		}
		if sources[ChannelInstagram] < 5 {
			recs = append(recs, models.Recommendation{
				Priority:        models.PriorityMedium,
				Platform:        ChannelInstagram,
				Action:          "Publish photo and reel content for this listing",
				Reason:          "Low score combined with minimal Instagram traffic",
				SuggestedBudget: "£50-100/month",
				ExpectedImpact:  "Visual content drives discovery for property listings",
			})
		}
	}

	if float64(sources[ChannelGoogleOrganic]) < 0.3*float64(total) {
		recs = append(recs, models.Recommendation{
			Priority:       models.PriorityMedium,
			Platform:       ChannelGoogleOrganic,
			Action:         "Improve on-page SEO for the listing page",
			Reason:         "Organic search contributes under 30% of sessions",
			ExpectedImpact: "Organic share reduces dependence on paid spend",
		})
	}

	highValue := listing.HighValue(r.highValueThreshold)

	if highValue && sources[ChannelGoogleAds] == 0 {
		recs = append(recs, models.Recommendation{
			Priority:        models.PriorityMedium,
			Platform:        ChannelGoogleAds,
			Action:          "Add paid search coverage for high-value listing",
			Reason:          "No paid sessions on a listing above the high-value threshold",
			SuggestedBudget: "£300-500/month",
			ExpectedImpact:  "High-value listings justify dedicated paid coverage",
		})
	}

	if highValue && sources[ChannelLinkedIn] < 3 {
		recs = append(recs, models.Recommendation{
			Priority:        models.PriorityMedium,
			Platform:        ChannelLinkedIn,
			Action:          "Promote to professional audiences on LinkedIn",
			Reason:          "High-value listing with negligible LinkedIn traffic",
			SuggestedBudget: "£100-200/month",
			ExpectedImpact:  "Professional audiences skew toward premium purchases",
		})
	}

	social := sources[ChannelFacebook] + sources[ChannelInstagram] + sources[ChannelLinkedIn] + sources[ChannelSocial]
	if social < 10 {
		recs = append(recs, models.Recommendation{
			Priority:       models.PriorityMedium,
			Platform:       "Social Media",
			Action:         "Increase posting frequency",
			Reason:         "Fewer than 10 social sessions across all platforms",
			ExpectedImpact: "Consistent posting sustains listing visibility between campaigns",
		})
	}

	if listing.BounceRate > 0.7 && listing.Pageviews > 20 {
		recs = append(recs, models.Recommendation{
			Priority:       models.PriorityMedium,
			Platform:       "Website",
			Action:         "Review listing page content and photos",
			Reason:         fmt.Sprintf("Bounce rate %.0f%% despite meaningful pageview volume", listing.BounceRate*100),
			ExpectedImpact: "Better page content converts existing traffic instead of buying more",
		})
	}

	if score.Value > 70 {
		recs = append(recs, models.Recommendation{
			Priority:       models.PriorityLow,
			Platform:       "All Channels",
			Action:         "Maintain current strategy",
			Reason:         fmt.Sprintf("Performance score %d indicates healthy traffic", score.Value),
			ExpectedImpact: "No intervention needed while metrics hold",
		})
	}

	if len(recs) == 0 {
		recs = append(recs, models.Recommendation{
			Priority:       models.PriorityLow,
			Platform:       "All Channels",
			Action:         "Monitor and optimize",
			Reason:         "Metrics are within normal ranges",
			ExpectedImpact: "Periodic review catches drift early",
		})
	}

	return recs
}
