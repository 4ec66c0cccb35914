package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"listing_pulse/models"
)

// ViewingStore is the slice of the store the viewing tracker needs.
type ViewingStore interface {
	UpsertViewingRequest(ctx context.Context, reference string, date time.Time, notes string) error
	GetViewingRequestsForPeriod(ctx context.Context, reference string, days int) ([]models.ViewingRequest, error)
}

// ViewingService records manually logged viewing requests. Writes are
// append/increment only; there is no deletion path.
type ViewingService struct {
	store ViewingStore
}

func NewViewingService(store ViewingStore) *ViewingService {
	return &ViewingService{store: store}
}

// AddViewingRequest upserts on (reference, date): a repeat write for the same
// key increments request_count and appends the notes with "; ". Empty notes
// are skipped, not appended as empty segments.
func (s *ViewingService) AddViewingRequest(ctx context.Context, reference string, date time.Time, notes string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return fmt.Errorf("viewing request reference is required")
	}
	return s.store.UpsertViewingRequest(ctx, reference, dateOnly(date), strings.TrimSpace(notes))
}

// GetViewingRequestsForPeriod returns the listing's viewing rows within
// [today-days, today], grouped by date with counts summed.
func (s *ViewingService) GetViewingRequestsForPeriod(ctx context.Context, reference string, days int) ([]models.ViewingRequest, error) {
	return s.store.GetViewingRequestsForPeriod(ctx, reference, days)
}
