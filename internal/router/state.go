package router

import (
	"fmt"

	"github.com/Kuma3D/PTTracker/internal/prompt"
	"github.com/Kuma3D/PTTracker/internal/render"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// Settings returns a copy of the live settings.
func (r *Router) Settings() tracker.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.settings
	s.Current = r.store.Current()
	return s
}

// ApplySettings replaces the live settings, persists them, and brings the
// visible header and injected prompt in line with the new toggles.
func (r *Router) ApplySettings(s tracker.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s = s.Backfilled()
	if !s.TrackCharacters {
		s.Current.Characters = nil
	}
	r.settings = s
	r.store.SetCurrent(s.Current)

	if err := r.host.SaveSettings(r.settings); err != nil {
		return fmt.Errorf("persisting settings: %w", err)
	}
	if r.settings.Enabled {
		if err := r.rerenderLatest(); err != nil {
			return err
		}
	}
	return r.refreshPrompt()
}

// Current returns a copy of the live snapshot.
func (r *Router) Current() tracker.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Current()
}

// ApplyCurrent overwrites the live snapshot with a manual correction and
// propagates it to the latest header, the persisted settings, and the
// prompt.
func (r *Router) ApplyCurrent(snap tracker.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.HeartPoints < 0 {
		snap.HeartPoints = 0
	}
	if !r.settings.TrackCharacters {
		snap.Characters = nil
	}

	if err := r.commitCurrent(snap); err != nil {
		return err
	}

	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if msg, ok := latestAI(msgs); ok {
		r.store.Record(msg.ID, snap)
		if err := r.host.SetHeader(msg.Index, render.Header(snap, r.settings)); err != nil {
			return fmt.Errorf("setting header: %w", err)
		}
	}
	return r.refreshPrompt()
}

// SnapshotFor returns the cached snapshot for a message, if one exists.
func (r *Router) SnapshotFor(messageID string) (tracker.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Get(messageID)
}

// HeaderText renders the live snapshot with the live settings.
func (r *Router) HeaderText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return render.Header(r.store.Current(), r.settings)
}

// PromptText builds the instruction block currently being injected.
func (r *Router) PromptText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return prompt.Build(r.store.Current(), r.settings)
}

// Reset drops all cached snapshots, returns the live state to its starting
// values, clears every AI header, and persists the result.
func (r *Router) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Clear()
	fresh := tracker.Snapshot{HeartPoints: r.settings.DefaultHeartPoints}
	if err := r.commitCurrent(fresh); err != nil {
		return err
	}

	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	for _, m := range msgs {
		if m.IsUser {
			continue
		}
		if err := r.host.ClearHeader(m.Index); err != nil {
			return fmt.Errorf("clearing header: %w", err)
		}
	}
	return r.refreshPrompt()
}

// rerenderLatest repaints the newest AI header after a settings change.
// Callers hold r.mu.
func (r *Router) rerenderLatest() error {
	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	msg, ok := latestAI(msgs)
	if !ok {
		return nil
	}
	snap, ok := r.store.Get(msg.ID)
	if !ok {
		snap = r.store.Current()
	}
	if err := r.host.SetHeader(msg.Index, render.Header(snap, r.settings)); err != nil {
		return fmt.Errorf("setting header: %w", err)
	}
	return nil
}
