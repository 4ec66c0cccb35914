package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"listing_pulse/models"
	"listing_pulse/storage"
)

// exportPayload is the JSON document handed to the external CSV/PDF
// formatting layer.
type exportPayload struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Listings    []models.ListingReport    `json:"listings,omitempty"`
	Correlation *models.CorrelationReport `json:"correlation,omitempty"`
}

// ExportWorker uploads finished reports to S3-compatible storage. Batch runs
// submit their results and the worker ships them in the background, so a slow
// or failing upload never blocks the pipeline.
type ExportWorker struct {
	uploader *storage.ReportUploader
	prefix   string

	mu      sync.Mutex
	pending *exportPayload
	trigger chan struct{}
}

func NewExportWorker(uploader *storage.ReportUploader, prefix string) *ExportWorker {
	return &ExportWorker{
		uploader: uploader,
		prefix:   prefix,
		trigger:  make(chan struct{}, 1),
	}
}

// Submit stages a report batch for upload. A newer submission replaces an
// unsent one; the formatting layer only ever wants the latest state.
func (w *ExportWorker) Submit(listings []models.ListingReport, correlation *models.CorrelationReport) {
	w.mu.Lock()
	w.pending = &exportPayload{
		GeneratedAt: time.Now(),
		Listings:    listings,
		Correlation: correlation,
	}
	w.mu.Unlock()
	w.Trigger()
}

// Trigger wakes the worker without waiting for the next tick.
func (w *ExportWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the export loop.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Export worker stopping")
			return
		case <-w.trigger:
			w.flush(ctx)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *ExportWorker) flush(ctx context.Context) {
	w.mu.Lock()
	payload := w.pending
	w.pending = nil
	w.mu.Unlock()

	if payload == nil {
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Printf("Export: marshal failed: %v", err)
		return
	}

	key := fmt.Sprintf("%s/report-%s.json", w.prefix, payload.GeneratedAt.UTC().Format("2006-01-02T15-04-05"))
	if err := w.uploader.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		log.Printf("Export: upload %s failed: %v", key, err)
		// Put the payload back so the next tick retries, unless a newer
		// batch arrived in the meantime.
		w.mu.Lock()
		if w.pending == nil {
			w.pending = payload
		}
		w.mu.Unlock()
		return
	}

	log.Printf("Export: uploaded %s (%d listings)", key, len(payload.Listings))
}
