package services

import (
	"strings"

	"listing_pulse/config"
	"listing_pulse/models"
)

// Canonical marketing channels. Every raw (source, medium) pair maps onto
// exactly one of these buckets before scoring or recommendations see it.
const (
	ChannelEmail         = "Email"
	ChannelFacebook      = "Facebook"
	ChannelInstagram     = "Instagram"
	ChannelLinkedIn      = "LinkedIn"
	ChannelGoogleOrganic = "Google Organic"
	ChannelGoogleAds     = "Google Ads"
	ChannelSocial        = "Social"
	ChannelDirect        = "Direct"
	ChannelOther         = "Other"
)

// ChannelMapper resolves raw analytics source/medium pairs to canonical
// channels. Config rules are checked before the built-in defaults so
// deployments can claim odd referrers (newsletter providers, portal sites)
// without a code change.
type ChannelMapper struct {
	rules []config.ChannelRule
}

func NewChannelMapper(rules []config.ChannelRule) *ChannelMapper {
	return &ChannelMapper{rules: rules}
}

// Resolve maps one source/medium pair to a canonical channel.
func (m *ChannelMapper) Resolve(source, medium string) string {
	src := strings.ToLower(strings.TrimSpace(source))
	med := strings.ToLower(strings.TrimSpace(medium))

	for _, rule := range m.rules {
		for _, s := range rule.Sources {
			if src == strings.ToLower(s) {
				return rule.Channel
			}
		}
		for _, mm := range rule.Mediums {
			if med == strings.ToLower(mm) {
				return rule.Channel
			}
		}
	}

	switch {
	case med == "email" || strings.Contains(src, "email") || strings.Contains(src, "mailchimp"):
		return ChannelEmail
	case strings.Contains(src, "facebook") || src == "fb" || src == "m.facebook.com":
		return ChannelFacebook
	case strings.Contains(src, "instagram") || src == "ig":
		return ChannelInstagram
	case strings.Contains(src, "linkedin"):
		return ChannelLinkedIn
	case strings.Contains(src, "google") && (med == "cpc" || med == "ppc" || med == "paid" || med == "paidsearch"):
		return ChannelGoogleAds
	case strings.Contains(src, "google") && med == "organic":
		return ChannelGoogleOrganic
	case med == "social" || strings.Contains(src, "twitter") || src == "x.com" || strings.Contains(src, "pinterest") || strings.Contains(src, "youtube"):
		return ChannelSocial
	case src == "(direct)" || med == "(none)" || med == "none":
		return ChannelDirect
	default:
		return ChannelOther
	}
}

// Buckets folds a page's raw source rows into canonical channel session
// counts.
func (m *ChannelMapper) Buckets(sources []models.SourceTraffic) map[string]int {
	buckets := make(map[string]int)
	for _, s := range sources {
		buckets[m.Resolve(s.Source, s.Medium)] += s.Sessions
	}
	return buckets
}
