package model

import "time"

// SystemSettingsModel is the persisted system-wide default preferences row.
type SystemSettingsModel struct {
	ID uint `gorm:"primaryKey"`

	EmailEnabled bool `gorm:"column:email_enabled;default:true"`
	PushEnabled  bool `gorm:"column:push_enabled;default:true"`
	SMSEnabled   bool `gorm:"column:sms_enabled;default:false"`
	InAppEnabled bool `gorm:"column:in_app_enabled;default:true"`

	MarketingEnabled bool `gorm:"column:marketing_enabled;default:true"`
	UpdatesEnabled   bool `gorm:"column:updates_enabled;default:true"`
	SecurityEnabled  bool `gorm:"column:security_enabled;default:true"`
	SocialEnabled    bool `gorm:"column:social_enabled;default:true"`
	RemindersEnabled bool `gorm:"column:reminders_enabled;default:true"`

	Frequency string    `gorm:"column:frequency;default:realtime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SystemSettingsModel) TableName() string {
	return "system_settings"
}
