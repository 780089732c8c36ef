package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// RegistrationModel represents the database model for device registrations
type RegistrationModel struct {
	Token          string    `gorm:"primaryKey;size:512"`
	RecipientID    string    `gorm:"index;not null"`
	ContactAddress string    `gorm:"index"`
	Platform       string    `gorm:"not null;default:unknown"`
	CreatedAt      time.Time `gorm:"index"`
	LastUpdated    time.Time `gorm:"not null"`
}

func (RegistrationModel) TableName() string {
	return "device_registrations"
}

// RegistrationRepositoryAdapter implements the RegistrationRepository port using GORM
type RegistrationRepositoryAdapter struct {
	db *gorm.DB
}

// NewRegistrationRepositoryAdapter creates a new registration repository adapter
func NewRegistrationRepositoryAdapter(db *gorm.DB) ports.RegistrationRepository {
	return &RegistrationRepositoryAdapter{db: db}
}

// Upsert inserts the registration or, when the token exists, replaces its
// recipient, contact address, platform and update time. CreatedAt is kept.
func (r *RegistrationRepositoryAdapter) Upsert(ctx context.Context, reg *ports.RegistrationData) error {
	if reg == nil {
		return errors.NewValidationError("registration cannot be nil")
	}
	if reg.Token == "" {
		return errors.NewValidationError("token cannot be empty")
	}

	model := r.dataToModel(reg)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"recipient_id", "contact_address", "platform", "last_updated"}),
	}).Create(model)
	if result.Error != nil {
		return errors.NewDatabaseError("failed to upsert registration", result.Error)
	}

	var stored RegistrationModel
	if err := r.db.WithContext(ctx).Where("token = ?", reg.Token).First(&stored).Error; err != nil {
		return errors.NewDatabaseError("failed to reload registration", err)
	}
	*reg = *r.modelToData(&stored)
	return nil
}

// FindAll returns every registration, oldest first
func (r *RegistrationRepositoryAdapter) FindAll(ctx context.Context) ([]*ports.RegistrationData, error) {
	var models []RegistrationModel
	if err := r.ordered(ctx).Find(&models).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to list registrations", err)
	}
	return r.modelsToData(models), nil
}

// FindByFilter returns registrations matching any non-empty filter field
func (r *RegistrationRepositoryAdapter) FindByFilter(ctx context.Context, filter ports.RegistrationFilter) ([]*ports.RegistrationData, error) {
	if filter.IsEmpty() {
		return r.FindAll(ctx)
	}

	var (
		conds []string
		args  []interface{}
	)
	if len(filter.RecipientIDs) > 0 {
		conds = append(conds, "recipient_id IN ?")
		args = append(args, filter.RecipientIDs)
	}
	if len(filter.ContactAddresses) > 0 {
		conds = append(conds, "contact_address IN ?")
		args = append(args, filter.ContactAddresses)
	}
	if len(filter.Tokens) > 0 {
		conds = append(conds, "token IN ?")
		args = append(args, filter.Tokens)
	}

	var models []RegistrationModel
	if err := r.ordered(ctx).Where(strings.Join(conds, " OR "), args...).Find(&models).Error; err != nil {
		return nil, errors.NewDatabaseError("failed to filter registrations", err)
	}
	return r.modelsToData(models), nil
}

func (r *RegistrationRepositoryAdapter) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&RegistrationModel{}).Count(&count).Error; err != nil {
		return 0, errors.NewDatabaseError("failed to count registrations", err)
	}
	return count, nil
}

// DeleteByToken removes a registration. Deleting an unknown token is not an error.
func (r *RegistrationRepositoryAdapter) DeleteByToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.NewValidationError("token cannot be empty")
	}

	result := r.db.WithContext(ctx).Where("token = ?", token).Delete(&RegistrationModel{})
	if result.Error != nil {
		return errors.NewDatabaseError("failed to delete registration", result.Error)
	}
	return nil
}

func (r *RegistrationRepositoryAdapter) ordered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Order("created_at ASC").Order("token ASC")
}

func (r *RegistrationRepositoryAdapter) dataToModel(data *ports.RegistrationData) *RegistrationModel {
	return &RegistrationModel{
		Token:          data.Token,
		RecipientID:    data.RecipientID,
		ContactAddress: data.ContactAddress,
		Platform:       data.Platform,
		CreatedAt:      data.CreatedAt.UTC(),
		LastUpdated:    data.LastUpdated.UTC(),
	}
}

func (r *RegistrationRepositoryAdapter) modelToData(model *RegistrationModel) *ports.RegistrationData {
	return &ports.RegistrationData{
		Token:          model.Token,
		RecipientID:    model.RecipientID,
		ContactAddress: model.ContactAddress,
		Platform:       model.Platform,
		CreatedAt:      model.CreatedAt,
		LastUpdated:    model.LastUpdated,
	}
}

func (r *RegistrationRepositoryAdapter) modelsToData(models []RegistrationModel) []*ports.RegistrationData {
	out := make([]*ports.RegistrationData, 0, len(models))
	for i := range models {
		out = append(out, r.modelToData(&models[i]))
	}
	return out
}
