package ops

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryChars      = 200
	MaxSnippetChars    = 160
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query   string  // required
	Session *string // optional filter by session ID or name
	Role    *string // optional filter ("user" or "ai")
	Limit   int     // default: 20, max: 100
	Offset  int     // default: 0
}

// SearchMatch is one matching message.
type SearchMatch struct {
	SessionID   string `json:"session_id"`
	SessionName string `json:"session_name"`
	MessageID   string `json:"message_id"`
	Index       int    `json:"index"`
	Role        string `json:"role"`
	Snippet     string `json:"snippet"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchMatch `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// Search finds messages containing the query text, newest first. The match
// is a case-insensitive substring match across all active sessions unless a
// session filter narrows it.
func Search(database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryChars))
	}

	var sessionID *string
	if input.Session != nil && strings.TrimSpace(*input.Session) != "" {
		row, err := ResolveSession(database, *input.Session)
		if err != nil {
			return nil, err
		}
		sessionID = &row.ID
	}

	var isUser *bool
	if input.Role != nil && strings.TrimSpace(*input.Role) != "" {
		u, err := parseRole(*input.Role)
		if err != nil {
			return nil, err
		}
		isUser = &u
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	offset := max(input.Offset, 0)

	results, total, err := db.SearchMessages(database, query, sessionID, isUser, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SearchMatch, len(results))
	for i, r := range results {
		items[i] = SearchMatch{
			SessionID:   r.SessionID,
			SessionName: r.SessionName,
			MessageID:   r.ID,
			Index:       r.Index,
			Role:        roleString(r.IsUser),
			Snippet:     snippetAround(r.Text, query, MaxSnippetChars),
		}
	}

	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "newest_first",
	}, nil
}

// snippetAround returns a window of text around the first occurrence of
// query, case-insensitively. Cuts land on rune boundaries and trimmed edges
// are marked with ellipses. The snippet is plain text; rendering layers do
// their own escaping.
func snippetAround(text, query string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}

	matchAt := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if matchAt < 0 {
		matchAt = 0
	}

	// Start a third of the window before the match so some leading context
	// survives.
	start := matchAt - maxChars/3
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}

	end := start + maxChars
	if end >= len(text) {
		end = len(text)
	} else {
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
	}

	snippet := text[start:end]

	// Prefer cutting at word boundaries when not much content is lost.
	if start > 0 {
		if firstSpace := strings.IndexByte(snippet, ' '); firstSpace >= 0 && firstSpace < len(snippet)/4 {
			snippet = snippet[firstSpace+1:]
		}
	}
	if end < len(text) {
		if lastSpace := strings.LastIndexByte(snippet, ' '); lastSpace > len(snippet)*3/4 {
			snippet = snippet[:lastSpace]
		}
	}

	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
