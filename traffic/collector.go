package traffic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"listing_pulse/models"
)

// Collector produces the aggregated traffic for a reporting period. The
// GA4-style wire client lives outside this repo; anything that can hand back
// a TrafficAggregate satisfies this seam.
type Collector interface {
	Collect(ctx context.Context, periodDays int) (*models.TrafficAggregate, error)
}

// pageRows is the on-disk exchange format: an ordered array of pages, each
// with its raw source rows. Array order becomes the aggregate's insertion
// order, which the matcher's partial scan depends on.
type pageRows struct {
	Path    string                 `json:"path"`
	Sources []models.SourceTraffic `json:"sources"`
}

// FileCollector reads a pre-aggregated traffic dump written by the external
// analytics client.
type FileCollector struct {
	path string
}

func NewFileCollector(path string) *FileCollector {
	return &FileCollector{path: path}
}

func (c *FileCollector) Collect(ctx context.Context, periodDays int) (*models.TrafficAggregate, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read traffic dump: %w", err)
	}
	return Parse(data)
}

// Parse decodes a traffic dump into an aggregate, preserving page order.
func Parse(data []byte) (*models.TrafficAggregate, error) {
	var pages []pageRows
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("decode traffic dump: %w", err)
	}

	agg := models.NewTrafficAggregate()
	for _, page := range pages {
		for _, row := range page.Sources {
			agg.Add(page.Path, row)
		}
	}
	return agg, nil
}
