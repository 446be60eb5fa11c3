package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/Kuma3D/PTTracker/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.TrackerError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Session is one tracked chat: a name, an optional AI character, and the
// settings blob the tracker persists for it.
type Session struct {
	ID            string
	NameRaw       string
	NameNorm      string
	CharacterName *string
	SettingsJSON  string
	CreatedAt     int64
	UpdatedAt     int64
	DeletedAt     *int64
}

// Message is one chat message. Index is the host-visible position, which is
// renumbered when earlier messages are deleted; ID is stable for the life of
// the message. Header holds the rendered status block, SnapshotJSON the
// resolved state, both nil until the message has been processed.
type Message struct {
	ID           string
	SessionID    string
	Index        int
	IsUser       bool
	Text         string
	Header       *string
	SnapshotJSON *string
	CreatedAt    int64
	UpdatedAt    int64
}

// NormalizeName lowercases and trims a session name for the uniqueness index.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// InsertSession stores a new session.
func InsertSession(db *sql.DB, s *Session) error {
	query := `
		INSERT INTO sessions (
			id, name_raw, name_norm, character_name, settings_json,
			created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.Exec(query,
		s.ID, s.NameRaw, s.NameNorm, toNullString(s.CharacterName),
		s.SettingsJSON, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetSessionByID retrieves a session by its ULID.
// If includeDeleted is false, soft-deleted sessions are excluded.
func GetSessionByID(db *sql.DB, id string, includeDeleted bool) (*Session, error) {
	query := `
		SELECT id, name_raw, name_norm, character_name, settings_json,
			created_at, updated_at, deleted_at
		FROM sessions
		WHERE id = ?
	`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	row := db.QueryRow(query, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}

// GetSessionByName retrieves an active session by normalized name.
func GetSessionByName(db *sql.DB, nameNorm string) (*Session, error) {
	query := `
		SELECT id, name_raw, name_norm, character_name, settings_json,
			created_at, updated_at, deleted_at
		FROM sessions
		WHERE name_norm = ? AND deleted_at IS NULL
	`

	row := db.QueryRow(query, nameNorm)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}

// SessionSummary is one row of ListSessions output.
type SessionSummary struct {
	ID            string
	Name          string
	CharacterName *string
	MessageCount  int
	UpdatedAt     int64
}

// ListSessions returns all active sessions, most recently updated first.
func ListSessions(db *sql.DB) ([]SessionSummary, error) {
	query := `
		SELECT s.id, s.name_raw, s.character_name, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count
		FROM sessions s
		WHERE s.deleted_at IS NULL
		ORDER BY s.updated_at DESC, s.id DESC
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum       SessionSummary
			character sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &character, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, errors.NewInternal(err)
		}
		sum.CharacterName = fromNullString(character)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

// UpdateSessionSettings replaces the persisted settings blob and bumps
// updated_at.
func UpdateSessionSettings(db *sql.DB, id, settingsJSON string) error {
	now := time.Now().Unix()

	query := `
		UPDATE sessions
		SET settings_json = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := db.Exec(query, settingsJSON, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("session", id)
	}

	return nil
}

// TouchSession bumps a session's updated_at without other changes.
func TouchSession(db *sql.DB, id string) error {
	_, err := db.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SoftDeleteSession marks a session as deleted by setting deleted_at.
// Its messages are left in place for a later purge.
func SoftDeleteSession(db *sql.DB, id string) error {
	now := time.Now().Unix()

	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := db.Exec(query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("session", id)
	}

	return nil
}

// InsertMessage appends a message row.
func InsertMessage(db *sql.DB, m *Message) error {
	query := `
		INSERT INTO messages (
			id, session_id, idx, is_user, text, header, snapshot_json,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		m.ID, m.SessionID, m.Index, boolToInt(m.IsUser), m.Text,
		toNullString(m.Header), toNullString(m.SnapshotJSON),
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// GetMessage retrieves a message by its ULID.
func GetMessage(db *sql.DB, id string) (*Message, error) {
	row := db.QueryRow(messageSelect+" WHERE id = ?", id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("message", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// GetMessageByIndex retrieves the message at a host-visible position.
func GetMessageByIndex(db *sql.DB, sessionID string, index int) (*Message, error) {
	row := db.QueryRow(messageSelect+" WHERE session_id = ? AND idx = ?", sessionID, index)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("message", sessionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// ListMessages returns a session's messages in position order.
func ListMessages(db *sql.DB, sessionID string) ([]*Message, error) {
	rows, err := db.Query(messageSelect+" WHERE session_id = ? ORDER BY idx ASC", sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ListEarlierAIMessages returns AI messages strictly before the given
// position, nearest first, capped at limit. This is the fallback resolver's
// history window.
func ListEarlierAIMessages(db *sql.DB, sessionID string, beforeIndex, limit int) ([]*Message, error) {
	rows, err := db.Query(
		messageSelect+" WHERE session_id = ? AND idx < ? AND is_user = 0 ORDER BY idx DESC LIMIT ?",
		sessionID, beforeIndex, limit,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// LatestAIMessage returns the most recent AI message in a session, or a
// NOT_FOUND error when the session has none.
func LatestAIMessage(db *sql.DB, sessionID string) (*Message, error) {
	row := db.QueryRow(messageSelect+" WHERE session_id = ? AND is_user = 0 ORDER BY idx DESC LIMIT 1", sessionID)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("message", sessionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// NextIndex returns the position for the next appended message.
func NextIndex(db *sql.DB, sessionID string) (int, error) {
	var maxIdx sql.NullInt64
	err := db.QueryRow(`SELECT MAX(idx) FROM messages WHERE session_id = ?`, sessionID).Scan(&maxIdx)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if !maxIdx.Valid {
		return 0, nil
	}
	return int(maxIdx.Int64) + 1, nil
}

// UpdateMessageText replaces a message's text and bumps updated_at.
func UpdateMessageText(db *sql.DB, id, text string) error {
	return updateMessage(db, id, `SET text = ?, updated_at = ?`, text)
}

// UpdateMessageHeader sets or clears the rendered header.
func UpdateMessageHeader(db *sql.DB, id string, header *string) error {
	return updateMessage(db, id, `SET header = ?, updated_at = ?`, toNullString(header))
}

// UpdateMessageSnapshot sets or clears the stored snapshot blob.
func UpdateMessageSnapshot(db *sql.DB, id string, snapshotJSON *string) error {
	return updateMessage(db, id, `SET snapshot_json = ?, updated_at = ?`, toNullString(snapshotJSON))
}

func updateMessage(db *sql.DB, id, setClause string, value any) error {
	now := time.Now().Unix()

	result, err := db.Exec(`UPDATE messages `+setClause+` WHERE id = ?`, value, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("message", id)
	}

	return nil
}

// DeleteMessage removes a message and renumbers everything after it, the
// same way the host renumbers visible positions after a deletion.
func DeleteMessage(db *sql.DB, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var (
		sessionID string
		idx       int
	)
	err = tx.QueryRow(`SELECT session_id, idx FROM messages WHERE id = ?`, id).Scan(&sessionID, &idx)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("message", id)
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.Exec(
		`UPDATE messages SET idx = idx - 1 WHERE session_id = ? AND idx > ?`,
		sessionID, idx,
	); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteSessionMessages removes every message in a session.
func DeleteSessionMessages(db *sql.DB, sessionID string) error {
	if _, err := db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ClearMessageState nulls the stored header and snapshot on every message in
// a session. Message text is untouched.
func ClearMessageState(db *sql.DB, sessionID string) error {
	_, err := db.Exec(
		`UPDATE messages SET header = NULL, snapshot_json = NULL, updated_at = ? WHERE session_id = ?`,
		time.Now().Unix(), sessionID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PurgeDeletedSessions permanently removes soft-deleted sessions and their
// messages. When olderThanDays is set, only sessions deleted before the
// cutoff are removed. Returns the number of sessions purged.
func PurgeDeletedSessions(db *sql.DB, olderThanDays *int) (int, error) {
	where := `deleted_at IS NOT NULL`
	var args []any
	if olderThanDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*olderThanDays).Unix()
		where += ` AND deleted_at < ?`
		args = append(args, cutoff)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM messages WHERE session_id IN (SELECT id FROM sessions WHERE `+where+`)`,
		args...,
	); err != nil {
		return 0, errors.NewInternal(err)
	}

	result, err := tx.Exec(`DELETE FROM sessions WHERE `+where, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(purged), nil
}

// CountMessages returns how many messages a session holds.
func CountMessages(db *sql.DB, sessionID string) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// SearchResult is one row of SearchMessages output.
type SearchResult struct {
	Message
	SessionName string
}

// SearchMessages finds messages whose text contains the query as a
// case-insensitive substring, newest first. Messages of soft-deleted
// sessions are excluded.
func SearchMessages(db *sql.DB, query string, sessionID *string, isUser *bool, limit, offset int) ([]SearchResult, int, error) {
	pattern := "%" + escapeLike(query) + "%"

	where := ` FROM messages m JOIN sessions s ON s.id = m.session_id
		WHERE m.text LIKE ? ESCAPE '\' AND s.deleted_at IS NULL`
	args := []any{pattern}
	if sessionID != nil {
		where += " AND m.session_id = ?"
		args = append(args, *sessionID)
	}
	if isUser != nil {
		where += " AND m.is_user = ?"
		args = append(args, boolToInt(*isUser))
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*)"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`
		SELECT m.id, m.session_id, m.idx, m.is_user, m.text, m.header, m.snapshot_json,
			m.created_at, m.updated_at, s.name_raw`+where+`
		ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r        SearchResult
			isUserDB int
			header   sql.NullString
			snapshot sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Index, &isUserDB, &r.Text,
			&header, &snapshot, &r.CreatedAt, &r.UpdatedAt, &r.SessionName); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		r.IsUser = isUserDB != 0
		r.Header = fromNullString(header)
		r.SnapshotJSON = fromNullString(snapshot)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return out, total, nil
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

const messageSelect = `
	SELECT id, session_id, idx, is_user, text, header, snapshot_json,
		created_at, updated_at
	FROM messages`

// scanSession scans a single row into a Session struct.
func scanSession(row *sql.Row) (*Session, error) {
	var (
		s         Session
		character sql.NullString
		deletedAt sql.NullInt64
	)

	err := row.Scan(
		&s.ID, &s.NameRaw, &s.NameNorm, &character, &s.SettingsJSON,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.CharacterName = fromNullString(character)
	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Int64
	}

	return &s, nil
}

// rowScanner lets scanMessage work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMessage scans a single row into a Message struct.
func scanMessage(row rowScanner) (*Message, error) {
	var (
		m        Message
		isUser   int
		header   sql.NullString
		snapshot sql.NullString
	)

	err := row.Scan(
		&m.ID, &m.SessionID, &m.Index, &isUser, &m.Text, &header, &snapshot,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.IsUser = isUser != 0
	m.Header = fromNullString(header)
	m.SnapshotJSON = fromNullString(snapshot)

	return &m, nil
}

func collectMessages(rows *sql.Rows) ([]*Message, error) {
	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
