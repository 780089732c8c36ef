package ports

import (
	"context"
	"time"
)

// SendLogData represents one durable send record
type SendLogData struct {
	RecipientID string
	Kind        string
	PeriodKey   string
	SentAt      time.Time
}

// SendLogRepository defines the contract for the durable send log.
type SendLogRepository interface {
	Exists(ctx context.Context, recipientID, kind, periodKey string) (bool, error)
	// InsertIfAbsent reports false when a record with the same
	// (recipientID, kind, periodKey) already exists.
	InsertIfAbsent(ctx context.Context, record *SendLogData) (bool, error)
	FindSince(ctx context.Context, since time.Time) ([]*SendLogData, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
