package ops

import (
	"database/sql"
	"fmt"

	"github.com/Kuma3D/PTTracker/internal/db"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays *int // optional, only purge sessions deleted more than N days ago
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted sessions and their messages.
func Purge(database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	count, err := db.PurgeDeletedSessions(database, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No deleted sessions to purge"
	}

	sessionWord := "session"
	if count > 1 {
		sessionWord = "sessions"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, sessionWord)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
