package ops

import (
	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/router"
	"github.com/Kuma3D/PTTracker/internal/session"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Session string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete soft-deletes a session. Its messages stay in place for Purge to
// remove later; the cached runtime is dropped so the name can be reused
// immediately.
func Delete(mgr *session.Manager, input DeleteInput) (*DeleteOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}

	if err := db.SoftDeleteSession(mgr.DB(), row.ID); err != nil {
		return nil, err
	}
	mgr.DropRuntime(row.ID)

	return &DeleteOutput{
		Deleted: true,
		ID:      row.ID,
	}, nil
}

// RemoveMessageInput contains parameters for the RemoveMessage operation.
type RemoveMessageInput struct {
	Session string
	Index   int
}

// RemoveMessageOutput contains the result of the RemoveMessage operation.
type RemoveMessageOutput struct {
	Removed   bool   `json:"removed"`
	MessageID string `json:"message_id"`
}

// RemoveMessage deletes one message and renumbers the ones after it. The
// tracker drops its per-message snapshot cache; the live state is kept.
func RemoveMessage(mgr *session.Manager, input RemoveMessageInput) (*RemoveMessageOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}

	removed, err := rt.Session.RemoveMessage(input.Index)
	if err != nil {
		return nil, err
	}
	if err := rt.Router.MessageDeleted(router.IndexEvent{MessageIndex: input.Index}); err != nil {
		return nil, err
	}

	return &RemoveMessageOutput{
		Removed:   true,
		MessageID: removed.ID,
	}, nil
}
