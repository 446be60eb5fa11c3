package ops

import (
	"strconv"

	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/router"
	"github.com/Kuma3D/PTTracker/internal/session"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// EditInput contains parameters for the Edit operation.
type EditInput struct {
	Session string
	Index   *int // nil targets the latest AI message
	Edits   session.FieldEdits
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	MessageID string            `json:"message_id"`
	Header    string            `json:"header"`
	Snapshot  *tracker.Snapshot `json:"snapshot,omitempty"`
	Promoted  bool              `json:"promoted"`
}

// Edit applies field-level corrections to a message's tracked state, the
// same flow the header's edit dialog drives. Promoted reports whether the
// target was the latest AI message, in which case the corrections also
// advance the live state.
func Edit(mgr *session.Manager, input EditInput) (*EditOutput, error) {
	if input.Edits.Empty() {
		return nil, errors.NewInvalidRequest("at least one field must be edited")
	}

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

	msgs, err := rt.Session.Messages()
	if err != nil {
		return nil, err
	}
	msg, latest, err := editTarget(msgs, input.Index)
	if err != nil {
		return nil, err
	}

	rt.Session.StageEdits(input.Edits)
	if input.Index != nil {
		err = rt.Router.HeaderLongPressed(router.IndexEvent{MessageIndex: msg.Index})
	} else {
		err = rt.Router.ButtonClicked(router.ActionEvent{Action: router.ActionEdit})
	}
	if err != nil {
		return nil, err
	}

	header, err := rt.Session.Header(msg.Index)
	if err != nil {
		return nil, err
	}
	if err := persistSnapshot(mgr.DB(), rt, msg.ID); err != nil {
		return nil, err
	}

	out := &EditOutput{
		MessageID: msg.ID,
		Header:    header,
		Promoted:  latest,
	}
	if snap, ok := rt.Router.SnapshotFor(msg.ID); ok {
		out.Snapshot = &snap
	}
	return out, nil
}

// editTarget picks the message the edit applies to: the one at index, or
// the latest AI message when index is nil. latest reports whether the
// target is the newest AI message.
func editTarget(msgs []router.Message, index *int) (msg router.Message, latest bool, err error) {
	var newest router.Message
	haveNewest := false
	for _, m := range msgs {
		if m.IsUser {
			continue
		}
		if !haveNewest || m.Index > newest.Index {
			newest = m
			haveNewest = true
		}
	}

	if index == nil {
		if !haveNewest {
			return router.Message{}, false, errors.NewNotFound("message", "latest")
		}
		return newest, true, nil
	}

	for _, m := range msgs {
		if m.Index != *index {
			continue
		}
		if m.IsUser {
			return router.Message{}, false, errors.NewInvalidRequest("user messages carry no tracked state")
		}
		return m, haveNewest && m.ID == newest.ID, nil
	}
	return router.Message{}, false, errors.NewNotFound("message", strconv.Itoa(*index))
}
