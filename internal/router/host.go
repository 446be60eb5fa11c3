// Package router dispatches host lifecycle events to the tracker core:
// extraction, fallback resolution, header rendering, and prompt injection.
// It owns the live settings and the per-message snapshot cache for whichever
// chat the host currently has open.
package router

import (
	"context"

	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// Message is one entry of the host's visible history. ID must be stable for
// the life of the message; Index is the host's current position for it and
// is renumbered when earlier messages are deleted.
type Message struct {
	ID     string
	Index  int
	IsUser bool
	Text   string
}

// Host is the platform facade the router drives. Implementations persist
// settings, own the message list, and render whatever the router hands them.
type Host interface {
	// Settings returns the persisted settings for this extension. ok is
	// false when nothing has been saved yet.
	Settings() (s tracker.Settings, ok bool, err error)

	// SaveSettings persists the settings object. Called immediately after
	// every mutation; there is no batching.
	SaveSettings(s tracker.Settings) error

	// Messages returns the visible history in position order.
	Messages() ([]Message, error)

	// SetHeader renders a status header above the message at index.
	SetHeader(index int, header string) error

	// ClearHeader removes the header at index, if any.
	ClearHeader(index int) error

	// RegisterOutputFilter installs a regex the host applies to strip tag
	// text from rendered message bubbles. Runs after the router has already
	// seen the original text.
	RegisterOutputFilter(pattern string) error

	// SetSystemPrompt replaces the injected instruction block at the given
	// lookback depth from the end of the prompt.
	SetSystemPrompt(text string, depth int) error

	// SetButtons swaps the header button set for the generating state.
	SetButtons(generating bool) error

	// GenerateQuiet asks the model for hidden text outside the chat.
	GenerateQuiet(ctx context.Context, prompt string) (string, error)

	// RequestEdits opens the field-correction dialog pre-filled with snap.
	// ok is false when the user cancels.
	RequestEdits(snap tracker.Snapshot) (edited tracker.Snapshot, ok bool, err error)
}

// MessageEvent is the payload for message-received and message-edited.
type MessageEvent struct {
	Text   string
	Index  int
	IsUser bool
}

// IndexEvent is the payload for message-deleted and header-long-press.
type IndexEvent struct {
	MessageIndex int
}

// ActionEvent is the payload for button-clicked.
type ActionEvent struct {
	Action string
}

// Button actions the router understands.
const (
	ActionEdit       = "edit"
	ActionRegenerate = "regenerate"
)
