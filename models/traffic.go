package models

// SourceTraffic is one (source, medium) row under a page path, as handed over
// by the external analytics collector.
type SourceTraffic struct {
	Source      string  `json:"source"`
	Medium      string  `json:"medium"`
	Sessions    int     `json:"sessions"`
	Pageviews   int     `json:"pageviews"`
	Users       int     `json:"users"`
	AvgDuration float64 `json:"avg_duration"`
	BounceRate  float64 `json:"bounce_rate"`
}

// PageTraffic aggregates every source row observed for one page path.
type PageTraffic struct {
	Path        string          `json:"path"`
	Sessions    int             `json:"sessions"`
	Pageviews   int             `json:"pageviews"`
	Users       int             `json:"users"`
	AvgDuration float64         `json:"avg_duration"`
	BounceRate  float64         `json:"bounce_rate"`
	Sources     []SourceTraffic `json:"sources"`
}

// TrafficAggregate is the per-invocation, in-memory traffic mapping. It keeps
// explicit insertion order so the matcher's first-containing-match scan is
// reproducible across runs (a hash map here would make partial matches depend
// on iteration order).
type TrafficAggregate struct {
	order []string
	pages map[string]*PageTraffic
}

func NewTrafficAggregate() *TrafficAggregate {
	return &TrafficAggregate{pages: make(map[string]*PageTraffic)}
}

// Add merges a source row into the page's aggregate, registering the path on
// first sight. Duration and bounce rate are session-weighted averages.
func (t *TrafficAggregate) Add(path string, row SourceTraffic) {
	page, ok := t.pages[path]
	if !ok {
		page = &PageTraffic{Path: path}
		t.pages[path] = page
		t.order = append(t.order, path)
	}

	prevSessions := page.Sessions
	page.Sessions += row.Sessions
	page.Pageviews += row.Pageviews
	page.Users += row.Users
	if page.Sessions > 0 {
		page.AvgDuration = (page.AvgDuration*float64(prevSessions) + row.AvgDuration*float64(row.Sessions)) / float64(page.Sessions)
		page.BounceRate = (page.BounceRate*float64(prevSessions) + row.BounceRate*float64(row.Sessions)) / float64(page.Sessions)
	}
	page.Sources = append(page.Sources, row)
}

// Page returns the aggregate for an exact path, or nil.
func (t *TrafficAggregate) Page(path string) *PageTraffic {
	return t.pages[path]
}

// Paths returns page paths in insertion order.
func (t *TrafficAggregate) Paths() []string {
	return t.order
}

func (t *TrafficAggregate) Len() int {
	return len(t.order)
}
