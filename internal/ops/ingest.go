package ops

import (
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/router"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Session string // session ID or name, required
	Role    string // "user" or "ai", required
	Text    string // required
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	MessageID string            `json:"message_id"`
	Index     int               `json:"index"`
	Header    string            `json:"header,omitempty"`
	Snapshot  *tracker.Snapshot `json:"snapshot,omitempty"`
	Stripped  string            `json:"stripped"`
}

// Ingest appends a chat message to a session and runs it through the
// tracker. AI messages get their tags extracted, a header rendered, and the
// live state advanced; user messages are stored as-is. Stripped is the
// message text with tag expressions removed, which is what a reader should
// see.
func Ingest(mgr *session.Manager, input IngestInput) (*IngestOutput, error) {
	if input.Text == "" {
		return nil, errors.NewInvalidRequest("text is required")
	}
	isUser, err := parseRole(input.Role)
	if err != nil {
		return nil, err
	}

	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}

	msg, err := rt.Session.AppendMessage(isUser, input.Text)
	if err != nil {
		return nil, err
	}
	if err := rt.Router.MessageReceived(router.MessageEvent{
		Text:   msg.Text,
		Index:  msg.Index,
		IsUser: isUser,
	}); err != nil {
		return nil, err
	}

	header, err := rt.Session.Header(msg.Index)
	if err != nil {
		return nil, err
	}
	if err := persistSnapshot(mgr.DB(), rt, msg.ID); err != nil {
		return nil, err
	}

	out := &IngestOutput{
		MessageID: msg.ID,
		Index:     msg.Index,
		Header:    header,
		Stripped:  tag.Strip(msg.Text),
	}
	if snap, ok := rt.Router.SnapshotFor(msg.ID); ok {
		out.Snapshot = &snap
	}
	return out, nil
}
