package domain

// WorkingDay is the configured schedule for one weekday.
type WorkingDay struct {
	Start     string `json:"start" yaml:"start"` // HH:MM
	End       string `json:"end" yaml:"end"`     // HH:MM
	IsWorkDay bool   `json:"isWorkDay" yaml:"isWorkDay"`
}

// Settings is the per-user time tracking configuration.
type Settings struct {
	UserID                       string             `json:"userId"`
	DefaultBillableRate          *float64           `json:"defaultBillableRate"`
	Currency                     string             `json:"currency"`
	RoundingInterval             int                `json:"roundingInterval"`             // minutes, 0 = none
	AutoStopTimerAfterInactivity int                `json:"autoStopTimerAfterInactivity"` // minutes, 0 = disabled
	ReminderInterval             int                `json:"reminderInterval"`             // minutes, 0 = disabled
	WorkingHours                 map[int]WorkingDay `json:"workingHours"`
}

// DefaultSettings returns the settings used for users without a stored row.
func DefaultSettings(userID string) Settings {
	hours := make(map[int]WorkingDay, 7)
	for d := 0; d < 7; d++ {
		hours[d] = WorkingDay{Start: "09:00", End: "17:00", IsWorkDay: d >= 1 && d <= 5}
	}
	return Settings{
		UserID:                       userID,
		Currency:                     DefaultCurrency,
		RoundingInterval:             15,
		AutoStopTimerAfterInactivity: 30,
		ReminderInterval:             0,
		WorkingHours:                 hours,
	}
}

// SettingsUpdate is a partial settings payload. Nil fields keep their value and
// WorkingHours entries replace only the weekdays they name.
type SettingsUpdate struct {
	UserID                       *string            `json:"userId,omitempty"`
	DefaultBillableRate          *float64           `json:"defaultBillableRate,omitempty"`
	Currency                     *string            `json:"currency,omitempty"`
	RoundingInterval             *int               `json:"roundingInterval,omitempty"`
	AutoStopTimerAfterInactivity *int               `json:"autoStopTimerAfterInactivity,omitempty"`
	ReminderInterval             *int               `json:"reminderInterval,omitempty"`
	WorkingHours                 map[int]WorkingDay `json:"workingHours,omitempty"`
}

// Apply merges u over s and returns the result. s is not modified.
func (u SettingsUpdate) Apply(s Settings) Settings {
	out := s
	out.WorkingHours = make(map[int]WorkingDay, len(s.WorkingHours)+len(u.WorkingHours))
	for d, wd := range s.WorkingHours {
		out.WorkingHours[d] = wd
	}
	for d, wd := range u.WorkingHours {
		out.WorkingHours[d] = wd
	}
	if u.DefaultBillableRate != nil {
		v := *u.DefaultBillableRate
		out.DefaultBillableRate = &v
	}
	if u.Currency != nil {
		out.Currency = *u.Currency
	}
	if u.RoundingInterval != nil {
		out.RoundingInterval = *u.RoundingInterval
	}
	if u.AutoStopTimerAfterInactivity != nil {
		out.AutoStopTimerAfterInactivity = *u.AutoStopTimerAfterInactivity
	}
	if u.ReminderInterval != nil {
		out.ReminderInterval = *u.ReminderInterval
	}
	return out
}
