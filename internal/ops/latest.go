package ops

import (
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Session       string
	IncludePrompt bool
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Snapshot tracker.Snapshot `json:"snapshot"`
	Header   string           `json:"header"`
	Prompt   string           `json:"prompt,omitempty"`
}

// Latest returns the live tracked state for a session: the current
// snapshot, its rendered header, and optionally the prompt block the model
// would be shown.
func Latest(mgr *session.Manager, input LatestInput) (*LatestOutput, error) {
	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}
	rt, err := mgr.Runtime(row.ID)
	if err != nil {
		return nil, err
	}

	out := &LatestOutput{
		Snapshot: rt.Router.Current(),
		Header:   rt.Router.HeaderText(),
	}
	if input.IncludePrompt {
		out.Prompt = rt.Router.PromptText()
	}
	return out, nil
}
