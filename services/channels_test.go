package services

import (
	"testing"

	"listing_pulse/config"
	"listing_pulse/models"
)

func TestChannelDefaults(t *testing.T) {
	m := NewChannelMapper(nil)

	cases := []struct {
		source, medium, want string
	}{
		{"mailchimp", "email", ChannelEmail},
		{"newsletter-email", "referral", ChannelEmail},
		{"facebook.com", "social", ChannelFacebook},
		{"m.facebook.com", "referral", ChannelFacebook},
		{"instagram", "social", ChannelInstagram},
		{"linkedin.com", "social", ChannelLinkedIn},
		{"google", "organic", ChannelGoogleOrganic},
		{"google", "cpc", ChannelGoogleAds},
		{"google", "ppc", ChannelGoogleAds},
		{"twitter.com", "referral", ChannelSocial},
		{"(direct)", "(none)", ChannelDirect},
		{"some-blog.example", "referral", ChannelOther},
	}
	for _, c := range cases {
		if got := m.Resolve(c.source, c.medium); got != c.want {
			t.Fatalf("Resolve(%q, %q) = %q, want %q", c.source, c.medium, got, c.want)
		}
	}
}

func TestChannelConfigRulesWin(t *testing.T) {
	m := NewChannelMapper([]config.ChannelRule{
		{Channel: ChannelEmail, Sources: []string{"portal-digest.example"}},
		{Channel: ChannelGoogleAds, Mediums: []string{"display"}},
	})

	if got := m.Resolve("portal-digest.example", "referral"); got != ChannelEmail {
		t.Fatalf("config source rule ignored, got %q", got)
	}
	if got := m.Resolve("adnetwork.example", "display"); got != ChannelGoogleAds {
		t.Fatalf("config medium rule ignored, got %q", got)
	}
	// Defaults still apply when no rule matches.
	if got := m.Resolve("google", "organic"); got != ChannelGoogleOrganic {
		t.Fatalf("default mapping broken, got %q", got)
	}
}

func TestChannelBuckets(t *testing.T) {
	m := NewChannelMapper(nil)
	buckets := m.Buckets([]models.SourceTraffic{
		{Source: "google", Medium: "organic", Sessions: 30},
		{Source: "google", Medium: "cpc", Sessions: 10},
		{Source: "facebook.com", Medium: "social", Sessions: 5},
		{Source: "fb", Medium: "social", Sessions: 2},
	})

	if buckets[ChannelGoogleOrganic] != 30 {
		t.Fatalf("expected 30 organic, got %d", buckets[ChannelGoogleOrganic])
	}
	if buckets[ChannelGoogleAds] != 10 {
		t.Fatalf("expected 10 paid, got %d", buckets[ChannelGoogleAds])
	}
	if buckets[ChannelFacebook] != 7 {
		t.Fatalf("expected 7 facebook, got %d", buckets[ChannelFacebook])
	}
}
