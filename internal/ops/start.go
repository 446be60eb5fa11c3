package ops

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// StartInput contains parameters for the Start operation.
type StartInput struct {
	Name          string            // required
	CharacterName *string           // optional
	Settings      *tracker.Settings // optional, defaults applied when nil
}

// StartOutput contains the result of the Start operation.
type StartOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// Start creates a tracked chat session. Session names are unique
// case-insensitively among active sessions.
func Start(database *sql.DB, input StartInput) (*StartOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	input.CharacterName = cleanOptionalString(input.CharacterName)

	settings := tracker.DefaultSettings()
	settings.Current.HeartPoints = settings.DefaultHeartPoints
	if input.Settings != nil {
		settings = input.Settings.Backfilled()
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	id, err := session.NewID()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	row := &db.Session{
		ID:            id,
		NameRaw:       name,
		NameNorm:      db.NormalizeName(name),
		CharacterName: input.CharacterName,
		SettingsJSON:  string(settingsJSON),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.InsertSession(database, row); err != nil {
		if stderrors.Is(err, db.ErrUniqueConstraint) {
			return nil, errors.NewSessionExists(name)
		}
		return nil, err
	}

	return &StartOutput{
		ID:        id,
		Name:      name,
		CreatedAt: now,
	}, nil
}
