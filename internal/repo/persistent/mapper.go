package persistent

import (
	"pulse-notify/internal/entity"
	"pulse-notify/internal/model"
)

func ToPreferencesEntity(settings *model.SystemSettingsModel) entity.UserPreferences {
	frequency := entity.Frequency(settings.Frequency)
	if frequency == "" {
		frequency = entity.FrequencyRealtime
	}

	return entity.UserPreferences{
		Channels: entity.ChannelSettings{
			Email: settings.EmailEnabled,
			Push:  settings.PushEnabled,
			SMS:   settings.SMSEnabled,
			InApp: settings.InAppEnabled,
		},
		Categories: entity.CategorySettings{
			Marketing: settings.MarketingEnabled,
			Updates:   settings.UpdatesEnabled,
			Security:  settings.SecurityEnabled,
			Social:    settings.SocialEnabled,
			Reminders: settings.RemindersEnabled,
		},
		Frequency: frequency,
		UpdatedAt: settings.UpdatedAt,
	}
}
