// Package session is the bundled host: chat sessions stored in SQLite,
// exposed to the tracker through the router.Host facade. A frontend
// embedding the tracker brings its own host; this one exists so the MCP
// server, the CLI, and the web inspector have a real chat to drive.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/llm"
	"github.com/Kuma3D/PTTracker/internal/router"
	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// Session is one stored chat implementing router.Host on top of the
// database. Messages, headers, and settings persist across restarts; the
// prompt text, filter pattern, and button state live in memory the way a
// frontend would hold them.
type Session struct {
	database *sql.DB
	gen      *llm.Client
	id       string

	mu          sync.Mutex
	promptText  string
	promptDepth int
	filter      string
	generating  bool
	pending     *FieldEdits
}

// FieldEdits carries the values a user submitted in the correction dialog.
// Nil fields keep the snapshot's existing value. Characters follows the
// whole-list rule: a non-nil slice replaces the cast outright, and an empty
// non-nil slice clears it.
type FieldEdits struct {
	Time        *string              `json:"time,omitempty"`
	Location    *string              `json:"location,omitempty"`
	Weather     *string              `json:"weather,omitempty"`
	HeartPoints *int                 `json:"heart_points,omitempty"`
	Characters  []tag.CharacterEntry `json:"characters,omitempty"`
}

// Empty reports whether the edits change nothing.
func (e FieldEdits) Empty() bool {
	return e.Time == nil && e.Location == nil && e.Weather == nil &&
		e.HeartPoints == nil && e.Characters == nil
}

// Apply folds the edits into a snapshot.
func (e FieldEdits) Apply(snap tracker.Snapshot) tracker.Snapshot {
	out := snap.Clone()
	if e.Time != nil {
		out.Time = *e.Time
	}
	if e.Location != nil {
		out.Location = *e.Location
	}
	if e.Weather != nil {
		out.Weather = *e.Weather
	}
	if e.HeartPoints != nil {
		out.HeartPoints = *e.HeartPoints
	}
	if e.Characters != nil {
		out.Characters = append([]tag.CharacterEntry(nil), e.Characters...)
	}
	return out
}

// ID returns the session's ULID.
func (s *Session) ID() string {
	return s.id
}

// Settings loads the persisted tracker settings. ok is false when the
// session has never saved any.
func (s *Session) Settings() (tracker.Settings, bool, error) {
	row, err := db.GetSessionByID(s.database, s.id, false)
	if err != nil {
		return tracker.Settings{}, false, err
	}
	if row.SettingsJSON == "" {
		return tracker.Settings{}, false, nil
	}

	var out tracker.Settings
	if err := json.Unmarshal([]byte(row.SettingsJSON), &out); err != nil {
		return tracker.Settings{}, false, errors.NewInternal(err)
	}
	return out, true, nil
}

// SaveSettings persists the tracker settings immediately.
func (s *Session) SaveSettings(set tracker.Settings) error {
	buf, err := json.Marshal(set)
	if err != nil {
		return errors.NewInternal(err)
	}
	return db.UpdateSessionSettings(s.database, s.id, string(buf))
}

// Messages returns the chat in position order.
func (s *Session) Messages() ([]router.Message, error) {
	rows, err := db.ListMessages(s.database, s.id)
	if err != nil {
		return nil, err
	}
	out := make([]router.Message, len(rows))
	for i, m := range rows {
		out[i] = router.Message{ID: m.ID, Index: m.Index, IsUser: m.IsUser, Text: m.Text}
	}
	return out, nil
}

// SetHeader stores the rendered status block on the message at index.
func (s *Session) SetHeader(index int, header string) error {
	m, err := db.GetMessageByIndex(s.database, s.id, index)
	if err != nil {
		return err
	}
	return db.UpdateMessageHeader(s.database, m.ID, &header)
}

// ClearHeader removes the status block from the message at index.
func (s *Session) ClearHeader(index int) error {
	m, err := db.GetMessageByIndex(s.database, s.id, index)
	if err != nil {
		return err
	}
	return db.UpdateMessageHeader(s.database, m.ID, nil)
}

// RegisterOutputFilter remembers the strip pattern a frontend would apply
// to displayed messages.
func (s *Session) RegisterOutputFilter(pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = pattern
	return nil
}

// SetSystemPrompt stores the injected instruction block and its depth.
func (s *Session) SetSystemPrompt(text string, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptText = text
	s.promptDepth = depth
	return nil
}

// SetButtons records whether the header buttons are in their generating
// state.
func (s *Session) SetButtons(generating bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = generating
	return nil
}

// GenerateQuiet sends a hidden prompt to the configured model.
func (s *Session) GenerateQuiet(ctx context.Context, prompt string) (string, error) {
	if s.gen == nil {
		return "", errors.NewGenerationFailed(stderrors.New("no generation backend configured"))
	}
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", errors.NewGenerationFailed(err)
	}
	return text, nil
}

// RequestEdits consumes edits staged by StageEdits. With nothing staged it
// reports the dialog as cancelled.
func (s *Session) RequestEdits(snap tracker.Snapshot) (tracker.Snapshot, bool, error) {
	s.mu.Lock()
	edits := s.pending
	s.pending = nil
	s.mu.Unlock()

	if edits == nil {
		return snap, false, nil
	}
	return edits.Apply(snap), true, nil
}

// StageEdits arms the next RequestEdits call with dialog values. The MCP
// and CLI adapters have no interactive dialog, so corrections arrive ahead
// of the edit action instead of during it.
func (s *Session) StageEdits(e FieldEdits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &e
}

// PromptText returns the instruction block most recently injected.
func (s *Session) PromptText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptText
}

// PromptDepth returns the injection depth most recently requested.
func (s *Session) PromptDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promptDepth
}

// FilterPattern returns the registered strip pattern.
func (s *Session) FilterPattern() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Generating reports the current button state.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// AppendMessage stores a new message at the end of the chat.
func (s *Session) AppendMessage(isUser bool, text string) (router.Message, error) {
	idx, err := db.NextIndex(s.database, s.id)
	if err != nil {
		return router.Message{}, err
	}
	id, err := NewID()
	if err != nil {
		return router.Message{}, err
	}

	now := time.Now().Unix()
	m := &db.Message{
		ID:        id,
		SessionID: s.id,
		Index:     idx,
		IsUser:    isUser,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.InsertMessage(s.database, m); err != nil {
		return router.Message{}, err
	}
	if err := db.TouchSession(s.database, s.id); err != nil {
		return router.Message{}, err
	}

	return router.Message{ID: id, Index: idx, IsUser: isUser, Text: text}, nil
}

// EditMessageText replaces the text of the message at index.
func (s *Session) EditMessageText(index int, text string) (router.Message, error) {
	m, err := db.GetMessageByIndex(s.database, s.id, index)
	if err != nil {
		return router.Message{}, err
	}
	if err := db.UpdateMessageText(s.database, m.ID, text); err != nil {
		return router.Message{}, err
	}
	return router.Message{ID: m.ID, Index: m.Index, IsUser: m.IsUser, Text: text}, nil
}

// RemoveMessage deletes the message at index. Later positions are
// renumbered by the database layer, matching how a frontend renumbers after
// a deletion.
func (s *Session) RemoveMessage(index int) (router.Message, error) {
	m, err := db.GetMessageByIndex(s.database, s.id, index)
	if err != nil {
		return router.Message{}, err
	}
	if err := db.DeleteMessage(s.database, m.ID); err != nil {
		return router.Message{}, err
	}
	return router.Message{ID: m.ID, Index: m.Index, IsUser: m.IsUser, Text: m.Text}, nil
}

// Header returns the stored status block for the message at index, or ""
// when none has been rendered.
func (s *Session) Header(index int) (string, error) {
	m, err := db.GetMessageByIndex(s.database, s.id, index)
	if err != nil {
		return "", err
	}
	if m.Header == nil {
		return "", nil
	}
	return *m.Header, nil
}
