package ops

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Message roles accepted by operations that take one.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ResolveSession resolves a session reference to its database row. The
// reference is either a session ULID or a session name; names are matched
// case-insensitively.
func ResolveSession(database *sql.DB, ref string) (*db.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewInvalidRequest("session is required")
	}

	// A well-formed ULID is tried as an ID first. A 26-character name that
	// happens to parse is still reachable by the name lookup below.
	if _, err := ulid.Parse(ref); err == nil {
		s, err := db.GetSessionByID(database, ref, false)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	return db.GetSessionByName(database, db.NormalizeName(ref))
}

// parseRole validates a message role string.
func parseRole(role string) (isUser bool, err error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleUser:
		return true, nil
	case RoleAI:
		return false, nil
	default:
		return false, errors.NewInvalidRequest("role must be one of: user, ai")
	}
}

// roleString returns the wire form of a message's role.
func roleString(isUser bool) string {
	if isUser {
		return RoleUser
	}
	return RoleAI
}

// cleanOptionalString trims an optional string, converting empty results to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// persistSnapshot copies the runtime's cached snapshot for a message into
// its database row, so exports and the web view show the same state the
// header does. A message with no cached snapshot gets its stored one
// cleared.
func persistSnapshot(database *sql.DB, rt *session.Runtime, messageID string) error {
	snap, ok := rt.Router.SnapshotFor(messageID)
	if !ok {
		return db.UpdateMessageSnapshot(database, messageID, nil)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.NewInternal(err)
	}
	blob := string(data)
	return db.UpdateMessageSnapshot(database, messageID, &blob)
}
