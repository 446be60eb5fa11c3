package ops

import (
	"database/sql"

	"github.com/Kuma3D/PTTracker/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// SessionItem is one session as returned by List.
type SessionItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CharacterName string `json:"character_name,omitempty"`
	MessageCount  int    `json:"message_count"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []SessionItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// List retrieves active sessions with pagination, most recently updated
// first.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	summaries, err := db.ListSessions(database)
	if err != nil {
		return nil, err
	}
	total := len(summaries)

	// The session count stays small enough to page in memory.
	page := summaries[min(offset, total):min(offset+limit, total)]

	items := make([]SessionItem, len(page))
	for i, s := range page {
		items[i] = SessionItem{
			ID:           s.ID,
			Name:         s.Name,
			MessageCount: s.MessageCount,
			UpdatedAt:    s.UpdatedAt,
		}
		if s.CharacterName != nil {
			items[i].CharacterName = *s.CharacterName
		}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
