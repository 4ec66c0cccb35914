package catalog

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"listing_pulse/models"
)

// FeedRecord is one listing as published in the agency catalog feed
type FeedRecord struct {
	Reference string
	Name      string
	URL       string
	Type      models.ListingType
	Status    models.ListingStatus
	Price     *int64
}

// ListingWriter is the slice of the store the refresher needs
type ListingWriter interface {
	UpsertListing(ctx context.Context, l *models.PropertyListing) error
	DeactivateListingsNotIn(ctx context.Context, seen []string) (int64, error)
}

// Refresher pulls the catalog feed and reconciles the listing table against it
type Refresher struct {
	store      ListingWriter
	httpClient *http.Client
	feedURL    string
}

func NewRefresher(store ListingWriter, client *http.Client, feedURL string) *Refresher {
	return &Refresher{
		store:      store,
		httpClient: client,
		feedURL:    feedURL,
	}
}

// Refresh fetches the feed and upserts every record, then deactivates
// listings that dropped out of the feed. Returns (upserted, deactivated).
func (r *Refresher) Refresh(ctx context.Context) (int, int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", r.feedURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return 0, 0, fmt.Errorf("unexpected feed status: %d", resp.StatusCode)
	}

	records, err := ParseFeed(resp.Body)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	var seen []string
	upserted := 0
	for _, rec := range records {
		l := models.PropertyListing{
			Reference:   rec.Reference,
			Name:        rec.Name,
			URL:         rec.URL,
			URLPath:     urlPath(rec.URL),
			Type:        rec.Type,
			Status:      rec.Status,
			Price:       rec.Price,
			IsActive:    true,
			FirstSeenAt: now,
			LastSeenAt:  now,
		}
		if err := r.store.UpsertListing(ctx, &l); err != nil {
			log.Printf("Warning: failed to upsert listing %s: %v", rec.Reference, err)
			continue
		}
		seen = append(seen, rec.Reference)
		upserted++
	}

	if len(seen) == 0 {
		// An empty feed is far more likely a bad fetch than a sold-out agency.
		return 0, 0, fmt.Errorf("feed produced no records, skipping deactivation")
	}

	deactivated, err := r.store.DeactivateListingsNotIn(ctx, seen)
	if err != nil {
		return upserted, 0, fmt.Errorf("deactivate listings: %w", err)
	}

	return upserted, deactivated, nil
}

var refPattern = regexp.MustCompile(`[A-Z]{2,}\d+`)

// ParseFeed extracts listing records from the catalog feed HTML
func ParseFeed(r io.Reader) ([]FeedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var records []FeedRecord
	doc.Find(".property-card").Each(func(i int, s *goquery.Selection) {
		ref := strings.TrimSpace(s.Find(".property-ref").Text())
		if ref == "" {
			// Fall back to the reference embedded in the data attribute
			if attr, ok := s.Attr("data-reference"); ok {
				ref = strings.TrimSpace(attr)
			}
		}
		if ref == "" || !refPattern.MatchString(ref) {
			return
		}

		href, _ := s.Find("a.property-link").Attr("href")
		name := strings.TrimSpace(s.Find(".property-title").Text())
		if name == "" {
			name = ref
		}

		records = append(records, FeedRecord{
			Reference: ref,
			Name:      name,
			URL:       href,
			Type:      parseType(s.Find(".property-type").Text()),
			Status:    parseStatus(s.Find(".property-status").Text()),
			Price:     parsePrice(s.Find(".property-price").Text()),
		})
	})

	return records, nil
}

func parseType(text string) models.ListingType {
	if strings.Contains(strings.ToLower(text), "rent") {
		return models.ListingTypeRent
	}
	return models.ListingTypeBuy
}

func parseStatus(text string) models.ListingStatus {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "sold":
		return models.ListingStatusSold
	case "let", "let agreed":
		return models.ListingStatusLet
	default:
		return models.ListingStatusAvailable
	}
}

var priceDigits = regexp.MustCompile(`[\d,]+`)

func parsePrice(text string) *int64 {
	match := priceDigits.FindString(text)
	if match == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
