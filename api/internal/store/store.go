package store

import (
	"context"
	"time"
)

// PendingResult is the OCR text held for a conversation until the user
// answers the file consent card.
type PendingResult struct {
	ResultID  string    `json:"resultId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ResultStore keeps at most one PendingResult per conversation; Put replaces
// whatever was stored before.
type ResultStore interface {
	Put(ctx context.Context, conversationID string, r PendingResult) error
	Get(ctx context.Context, conversationID string) (PendingResult, bool, error)
}

// expired reports whether r is older than maxAge. maxAge <= 0 disables expiry.
func expired(r PendingResult, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(r.CreatedAt) > maxAge
}
