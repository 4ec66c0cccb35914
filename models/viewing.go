package models

import "time"

// ViewingRequest is a manually logged real-world viewing inquiry, keyed by
// (reference, request_date). Repeat writes for the same key increment the
// count and concatenate notes; there is no deletion path.
type ViewingRequest struct {
	ID           int64     `json:"id" db:"id"`
	Reference    string    `json:"reference" db:"reference"`
	RequestDate  time.Time `json:"request_date" db:"request_date"`
	RequestCount int       `json:"request_count" db:"request_count"`
	Notes        string    `json:"notes" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
