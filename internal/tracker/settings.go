package tracker

// Settings is the persisted tracker configuration, stored through the host's
// settings facility and carried across reloads. The zero value is unusable;
// load through Backfilled or start from DefaultSettings.
type Settings struct {
	// Enabled gates all tracker behavior. When false the extension stays
	// registered but ignores every event.
	Enabled bool `json:"enabled"`

	// ScanDepth is how many earlier messages the fallback resolver may
	// inspect when the current message leaves a field blank. Always at
	// least 1 once loaded through Backfilled.
	ScanDepth int `json:"scan_depth"`

	// DefaultHeartPoints seeds the heart meter for chats that have never
	// seen a heart tag.
	DefaultHeartPoints int `json:"default_heart_points"`

	// PromptDepth is where the tracker instruction block is injected,
	// counted in messages from the end of the prompt.
	PromptDepth int `json:"prompt_depth"`

	// TrackCharacters switches scene-participant tracking on. When false,
	// char tags are ignored end to end: not resolved, not rendered, not
	// taught to the model.
	TrackCharacters bool `json:"track_characters"`

	// ShowTime through ShowCharacters toggle individual header lines
	// without affecting what gets tracked.
	ShowTime       bool `json:"show_time"`
	ShowLocation   bool `json:"show_location"`
	ShowWeather    bool `json:"show_weather"`
	ShowHeart      bool `json:"show_heart"`
	ShowCharacters bool `json:"show_characters"`

	// Current is the last resolved snapshot, persisted so a fresh session
	// resumes with known state instead of "Unknown" everywhere.
	Current Snapshot `json:"current"`
}

// DefaultSettings returns the configuration used for a chat that has never
// been tracked.
func DefaultSettings() Settings {
	return Settings{
		Enabled:            true,
		ScanDepth:          10,
		DefaultHeartPoints: 0,
		PromptDepth:        4,
		TrackCharacters:    true,
		ShowTime:           true,
		ShowLocation:       true,
		ShowWeather:        true,
		ShowHeart:          true,
		ShowCharacters:     true,
		Current:            Snapshot{},
	}
}

// Backfilled returns a copy of s with fields introduced after the settings
// were first saved raised to their defaults. Saved settings never lose
// values; only zero ScanDepth and PromptDepth are treated as "missing"
// because neither is a useful running value.
func (s Settings) Backfilled() Settings {
	def := DefaultSettings()
	if s.ScanDepth <= 0 {
		s.ScanDepth = def.ScanDepth
	}
	if s.PromptDepth <= 0 {
		s.PromptDepth = def.PromptDepth
	}
	if s.Current.HeartPoints < 0 {
		s.Current.HeartPoints = 0
	}
	return s
}
