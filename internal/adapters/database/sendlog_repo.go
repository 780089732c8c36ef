package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// SendLogModel is one durable ledger record. The composite unique index makes
// a second insert for the same key a no-op.
type SendLogModel struct {
	ID          uint      `gorm:"primaryKey"`
	RecipientID string    `gorm:"not null;uniqueIndex:idx_send_logs_key,priority:1"`
	Kind        string    `gorm:"not null;uniqueIndex:idx_send_logs_key,priority:2"`
	PeriodKey   string    `gorm:"not null;uniqueIndex:idx_send_logs_key,priority:3"`
	SentAt      time.Time `gorm:"not null;index"`
}

func (SendLogModel) TableName() string {
	return "send_logs"
}

// SendLogRepositoryAdapter implements the SendLogRepository port using GORM
type SendLogRepositoryAdapter struct {
	db *gorm.DB
}

func NewSendLogRepositoryAdapter(db *gorm.DB) ports.SendLogRepository {
	return &SendLogRepositoryAdapter{db: db}
}

func (r *SendLogRepositoryAdapter) Exists(ctx context.Context, recipientID, kind, periodKey string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&SendLogModel{}).
		Where("recipient_id = ? AND kind = ? AND period_key = ?", recipientID, kind, periodKey).
		Count(&count)
	if result.Error != nil {
		return false, errors.NewDatabaseError("failed to check send log", result.Error)
	}
	return count > 0, nil
}

// InsertIfAbsent is a conditional insert: it reports false when the key was
// already recorded.
func (r *SendLogRepositoryAdapter) InsertIfAbsent(ctx context.Context, record *ports.SendLogData) (bool, error) {
	if record == nil {
		return false, errors.NewValidationError("send record cannot be nil")
	}
	if record.RecipientID == "" || record.Kind == "" || record.PeriodKey == "" {
		return false, errors.NewValidationError("send record key is incomplete")
	}

	model := &SendLogModel{
		RecipientID: record.RecipientID,
		Kind:        record.Kind,
		PeriodKey:   record.PeriodKey,
		SentAt:      record.SentAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		return false, errors.NewDatabaseError("failed to insert send record", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *SendLogRepositoryAdapter) FindSince(ctx context.Context, since time.Time) ([]*ports.SendLogData, error) {
	var models []SendLogModel
	result := r.db.WithContext(ctx).Where("sent_at >= ?", since.UTC()).Order("sent_at ASC").Find(&models)
	if result.Error != nil {
		return nil, errors.NewDatabaseError("failed to load send records", result.Error)
	}

	out := make([]*ports.SendLogData, 0, len(models))
	for _, m := range models {
		out = append(out, &ports.SendLogData{
			RecipientID: m.RecipientID,
			Kind:        m.Kind,
			PeriodKey:   m.PeriodKey,
			SentAt:      m.SentAt,
		})
	}
	return out, nil
}

func (r *SendLogRepositoryAdapter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("sent_at < ?", cutoff.UTC()).Delete(&SendLogModel{})
	if result.Error != nil {
		return 0, errors.NewDatabaseError("failed to delete expired send records", result.Error)
	}
	return result.RowsAffected, nil
}
