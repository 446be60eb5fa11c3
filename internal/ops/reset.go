package ops

import (
	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// ResetInput contains parameters for the Reset operation.
type ResetInput struct {
	Session string
}

// ResetOutput contains the result of the Reset operation.
type ResetOutput struct {
	Snapshot tracker.Snapshot `json:"snapshot"`
}

// Reset clears all tracked state for a session: the live snapshot returns
// to defaults, message headers come down, and stored per-message snapshots
// are dropped. Message text is untouched.
func Reset(mgr *session.Manager, input ResetInput) (*ResetOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}

	if err := rt.Router.Reset(); err != nil {
		return nil, err
	}
	if err := db.ClearMessageState(mgr.DB(), row.ID); err != nil {
		return nil, err
	}

	return &ResetOutput{Snapshot: rt.Router.Current()}, nil
}
