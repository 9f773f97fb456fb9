package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyRealtime Frequency = "realtime"
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
)

type ChannelSettings struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
	InApp bool `json:"in_app"`
}

type CategorySettings struct {
	Marketing bool `json:"marketing"`
	Updates   bool `json:"updates"`
	Security  bool `json:"security"`
	Social    bool `json:"social"`
	Reminders bool `json:"reminders"`
}

// QuietHours is a per-user suppression window. Start and End are "HH:MM"
// clock times in the configured timezone; a window with Start > End wraps
// past midnight.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Contains reports whether now falls inside the [Start, End) window.
func (q *QuietHours) Contains(now time.Time) bool {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	current := local.Hour()*60 + local.Minute()

	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}

	if start > end {
		// Window wraps past midnight, e.g. 22:00-08:00.
		return current >= start || current < end
	}
	return current >= start && current < end
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

type UserPreferences struct {
	UserID     string           `json:"user_id"`
	Channels   ChannelSettings  `json:"channels"`
	Categories CategorySettings `json:"categories"`
	QuietHours *QuietHours      `json:"quiet_hours,omitempty"`
	Frequency  Frequency        `json:"frequency"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// DefaultPreferences is what a user gets before they ever save anything:
// every channel and category enabled, realtime delivery, no quiet hours.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID: userID,
		Channels: ChannelSettings{
			Email: true,
			Push:  true,
			SMS:   false,
			InApp: true,
		},
		Categories: CategorySettings{
			Marketing: true,
			Updates:   true,
			Security:  true,
			Social:    true,
			Reminders: true,
		},
		Frequency: FrequencyRealtime,
		UpdatedAt: time.Now().UTC(),
	}
}

// ChannelEnabled maps a notification type to its delivery channel toggle.
func (p *UserPreferences) ChannelEnabled(t NotificationType) bool {
	switch t {
	case TypeEmail:
		return p.Channels.Email
	case TypePush:
		return p.Channels.Push
	case TypeInApp:
		return p.Channels.InApp
	}
	return false
}

func (p *UserPreferences) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryMarketing:
		return p.Categories.Marketing
	case CategoryUpdates:
		return p.Categories.Updates
	case CategorySecurity:
		return p.Categories.Security
	case CategorySocial:
		return p.Categories.Social
	case CategoryReminders:
		return p.Categories.Reminders
	}
	return false
}

// ChannelUpdate and CategoryUpdate carry partial toggles; nil fields are
// left untouched on merge.
type ChannelUpdate struct {
	Email *bool `json:"email,omitempty"`
	Push  *bool `json:"push,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
	InApp *bool `json:"in_app,omitempty"`
}

type CategoryUpdate struct {
	Marketing *bool `json:"marketing,omitempty"`
	Updates   *bool `json:"updates,omitempty"`
	Security  *bool `json:"security,omitempty"`
	Social    *bool `json:"social,omitempty"`
	Reminders *bool `json:"reminders,omitempty"`
}

type PreferencesUpdate struct {
	Channels   *ChannelUpdate  `json:"channels,omitempty"`
	Categories *CategoryUpdate `json:"categories,omitempty"`
	QuietHours *QuietHours     `json:"quiet_hours,omitempty"`
	Frequency  *Frequency      `json:"frequency,omitempty"`
}

// Apply merges a partial update into the preferences. Channel and category
// toggles merge key by key; quiet hours are replaced wholesale when present.
func (p *UserPreferences) Apply(update PreferencesUpdate) {
	if update.Channels != nil {
		applyBool(&p.Channels.Email, update.Channels.Email)
		applyBool(&p.Channels.Push, update.Channels.Push)
		applyBool(&p.Channels.SMS, update.Channels.SMS)
		applyBool(&p.Channels.InApp, update.Channels.InApp)
	}
	if update.Categories != nil {
		applyBool(&p.Categories.Marketing, update.Categories.Marketing)
		applyBool(&p.Categories.Updates, update.Categories.Updates)
		applyBool(&p.Categories.Security, update.Categories.Security)
		applyBool(&p.Categories.Social, update.Categories.Social)
		applyBool(&p.Categories.Reminders, update.Categories.Reminders)
	}
	if update.QuietHours != nil {
		quietHours := *update.QuietHours
		p.QuietHours = &quietHours
	}
	if update.Frequency != nil {
		p.Frequency = *update.Frequency
	}
	p.UpdatedAt = time.Now().UTC()
}

func applyBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}
