package ops

import (
	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// SettingsPatch contains the settings fields Update can change. Nil fields
// keep their current values.
type SettingsPatch struct {
	Enabled            *bool
	ScanDepth          *int
	DefaultHeartPoints *int
	PromptDepth        *int
	TrackCharacters    *bool
	ShowTime           *bool
	ShowLocation       *bool
	ShowWeather        *bool
	ShowHeart          *bool
	ShowCharacters     *bool
}

func (p SettingsPatch) empty() bool {
	return p.Enabled == nil && p.ScanDepth == nil && p.DefaultHeartPoints == nil &&
		p.PromptDepth == nil && p.TrackCharacters == nil && p.ShowTime == nil &&
		p.ShowLocation == nil && p.ShowWeather == nil && p.ShowHeart == nil &&
		p.ShowCharacters == nil
}

func (p SettingsPatch) apply(s *tracker.Settings) {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.ScanDepth != nil {
		s.ScanDepth = *p.ScanDepth
	}
	if p.DefaultHeartPoints != nil {
		s.DefaultHeartPoints = *p.DefaultHeartPoints
	}
	if p.PromptDepth != nil {
		s.PromptDepth = *p.PromptDepth
	}
	if p.TrackCharacters != nil {
		s.TrackCharacters = *p.TrackCharacters
	}
	if p.ShowTime != nil {
		s.ShowTime = *p.ShowTime
	}
	if p.ShowLocation != nil {
		s.ShowLocation = *p.ShowLocation
	}
	if p.ShowWeather != nil {
		s.ShowWeather = *p.ShowWeather
	}
	if p.ShowHeart != nil {
		s.ShowHeart = *p.ShowHeart
	}
	if p.ShowCharacters != nil {
		s.ShowCharacters = *p.ShowCharacters
	}
}

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	Session string
	Patch   SettingsPatch
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Settings tracker.Settings `json:"settings"`
}

// Update changes a session's tracker settings. The updated settings take
// effect immediately: headers are re-rendered and the prompt block is
// reinjected or withdrawn to match.
func Update(mgr *session.Manager, input UpdateInput) (*UpdateOutput, error) {
	if input.Patch.empty() {
		return nil, errors.NewInvalidRequest("at least one settings field must be provided")
	}
	if input.Patch.ScanDepth != nil && *input.Patch.ScanDepth < 1 {
		return nil, errors.NewInvalidRequest("scan_depth must be at least 1")
	}
	if input.Patch.PromptDepth != nil && *input.Patch.PromptDepth < 0 {
		return nil, errors.NewInvalidRequest("prompt_depth must not be negative")
	}
	if input.Patch.DefaultHeartPoints != nil && *input.Patch.DefaultHeartPoints < 0 {
		return nil, errors.NewInvalidRequest("default_heart_points must not be negative")
	}

	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}

	settings := rt.Router.Settings()
	input.Patch.apply(&settings)
	if err := rt.Router.ApplySettings(settings); err != nil {
		return nil, err
	}

	return &UpdateOutput{Settings: rt.Router.Settings()}, nil
}

// SettingsInput contains parameters for the Settings operation.
type SettingsInput struct {
	Session string
}

// SettingsOutput contains the result of the Settings operation.
type SettingsOutput struct {
	Settings tracker.Settings `json:"settings"`
}

// Settings reads a session's tracker settings without changing them. Works
// whether or not the tracker is enabled; callers need the read to find out.
func Settings(mgr *session.Manager, input SettingsInput) (*SettingsOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Settings: rt.Router.Settings()}, nil
}

// SetStateInput contains parameters for the SetState operation.
type SetStateInput struct {
	Session string
	Edits   session.FieldEdits
}

// SetStateOutput contains the result of the SetState operation.
type SetStateOutput struct {
	Snapshot tracker.Snapshot `json:"snapshot"`
	Header   string           `json:"header"`
}

// SetState overwrites fields of the live tracked state directly, without
// going through a message. The latest AI message's header and stored
// snapshot are updated to match.
func SetState(mgr *session.Manager, input SetStateInput) (*SetStateOutput, error) {
	if input.Edits.Empty() {
		return nil, errors.NewInvalidRequest("at least one field must be set")
	}

	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}
	if !rt.Router.Settings().Enabled {
		return nil, errors.NewTrackerDisabled(row.NameRaw)
	}

	next := input.Edits.Apply(rt.Router.Current())
	if err := rt.Router.ApplyCurrent(next); err != nil {
		return nil, err
	}

	if msg, err := db.LatestAIMessage(mgr.DB(), row.ID); err == nil {
		if err := persistSnapshot(mgr.DB(), rt, msg.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	return &SetStateOutput{
		Snapshot: rt.Router.Current(),
		Header:   rt.Router.HeaderText(),
	}, nil
}
