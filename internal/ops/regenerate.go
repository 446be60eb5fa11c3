package ops

import (
	"context"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// RegenerateInput contains parameters for the Regenerate operation.
type RegenerateInput struct {
	Session string
}

// RegenerateOutput contains the result of the Regenerate operation.
type RegenerateOutput struct {
	MessageID string            `json:"message_id"`
	Header    string            `json:"header"`
	Snapshot  *tracker.Snapshot `json:"snapshot,omitempty"`
}

// Regenerate asks the configured model to re-derive the latest AI message's
// tags and waits for the result. A response with no usable tags leaves
// state untouched and returns an EMPTY_GENERATION error.
func Regenerate(ctx context.Context, mgr *session.Manager, input RegenerateInput) (*RegenerateOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}
	if !rt.Router.Settings().Enabled {
		return nil, errors.NewTrackerDisabled(row.NameRaw)
	}

	msg, err := db.LatestAIMessage(mgr.DB(), row.ID)
	if err != nil {
		return nil, err
	}

	applied, err := rt.Router.RegenerateNow(ctx)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, errors.NewEmptyGeneration()
	}

	header, err := rt.Session.Header(msg.Index)
	if err != nil {
		return nil, err
	}
	if err := persistSnapshot(mgr.DB(), rt, msg.ID); err != nil {
		return nil, err
	}

	out := &RegenerateOutput{
		MessageID: msg.ID,
		Header:    header,
	}
	if snap, ok := rt.Router.SnapshotFor(msg.ID); ok {
		out.Snapshot = &snap
	}
	return out, nil
}
