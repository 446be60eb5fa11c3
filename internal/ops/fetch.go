package ops

import (
	"database/sql"
	"encoding/json"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	Session     string
	IncludeText *bool // default: true
}

// MessageView is one message as returned by Fetch.
type MessageView struct {
	ID       string            `json:"id"`
	Index    int               `json:"index"`
	Role     string            `json:"role"`
	Text     string            `json:"text,omitempty"`
	Header   string            `json:"header,omitempty"`
	Snapshot *tracker.Snapshot `json:"snapshot,omitempty"`
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	CharacterName string           `json:"character_name,omitempty"`
	Settings      tracker.Settings `json:"settings"`
	Messages      []MessageView    `json:"messages"`
	CreatedAt     int64            `json:"created_at"`
	UpdatedAt     int64            `json:"updated_at"`
}

// Fetch retrieves a session with its full message history, including stored
// headers and per-message snapshots.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	row, err := ResolveSession(database, input.Session)
	if err != nil {
		return nil, err
	}

	includeText := true
	if input.IncludeText != nil {
		includeText = *input.IncludeText
	}

	settings := tracker.DefaultSettings()
	if row.SettingsJSON != "" {
		if err := json.Unmarshal([]byte(row.SettingsJSON), &settings); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	msgs, err := db.ListMessages(database, row.ID)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, len(msgs))
	for i, m := range msgs {
		v := MessageView{
			ID:    m.ID,
			Index: m.Index,
			Role:  roleString(m.IsUser),
		}
		if includeText {
			v.Text = m.Text
		}
		if m.Header != nil {
			v.Header = *m.Header
		}
		if m.SnapshotJSON != nil {
			var snap tracker.Snapshot
			if err := json.Unmarshal([]byte(*m.SnapshotJSON), &snap); err == nil {
				v.Snapshot = &snap
			}
		}
		views[i] = v
	}

	out := &FetchOutput{
		ID:        row.ID,
		Name:      row.NameRaw,
		Settings:  settings,
		Messages:  views,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.CharacterName != nil {
		out.CharacterName = *row.CharacterName
	}
	return out, nil
}
