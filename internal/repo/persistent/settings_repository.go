package persistent

import (
	"context"

	"pulse-notify/internal/entity"
	"pulse-notify/internal/model"

	"gorm.io/gorm"
)

type SettingsRepository interface {
	GetDefaultPreferences(ctx context.Context) (entity.UserPreferences, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetDefaultPreferences(ctx context.Context) (entity.UserPreferences, error) {
	var settings model.SystemSettingsModel
	err := r.db.WithContext(ctx).Order("id").First(&settings).Error
	if err != nil {
		return entity.UserPreferences{}, err
	}
	return ToPreferencesEntity(&settings), nil
}
