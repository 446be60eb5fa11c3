package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Kuma3D/PTTracker/internal/render"
	"github.com/Kuma3D/PTTracker/internal/tag"
)

// editLatest opens the correction dialog for the most recent AI message.
// Callers hold r.mu.
func (r *Router) editLatest() error {
	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	msg, ok := latestAI(msgs)
	if !ok {
		r.log.Debug("edit requested with no AI messages")
		return nil
	}
	return r.edit(msgs, msg)
}

// editAt opens the correction dialog for the message at a specific
// position. Callers hold r.mu.
func (r *Router) editAt(index int) error {
	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	msg, ok := messageAt(msgs, index)
	if !ok || msg.IsUser {
		r.log.Debug("edit requested for unusable message", zap.Int("index", index))
		return nil
	}
	return r.edit(msgs, msg)
}

// edit prefills the dialog with the message's cached snapshot (falling back
// to the live state), applies the submitted values, and promotes them only
// if the message is still the latest AI message when the dialog closes.
func (r *Router) edit(msgs []Message, msg Message) error {
	snap, ok := r.store.Get(msg.ID)
	if !ok {
		snap = r.store.Current()
	}

	edited, submitted, err := r.host.RequestEdits(snap)
	if err != nil {
		return fmt.Errorf("edit dialog: %w", err)
	}
	if !submitted {
		return nil
	}

	if edited.HeartPoints < 0 {
		edited.HeartPoints = 0
	}
	if !r.settings.TrackCharacters {
		edited.Characters = nil
	}

	r.store.Record(msg.ID, edited)
	if isLatestAI(msgs, msg.ID) {
		if err := r.commitCurrent(edited); err != nil {
			return err
		}
		if err := r.refreshPrompt(); err != nil {
			return err
		}
	}
	if err := r.host.SetHeader(msg.Index, render.Header(edited, r.settings)); err != nil {
		return fmt.Errorf("setting header: %w", err)
	}
	return nil
}

// regenerateLatest asks the model to re-derive tags for the most recent AI
// message. The request runs in the background; the event loop stays free.
// Callers hold r.mu.
func (r *Router) regenerateLatest() error {
	req, messageID, ok, err := r.prepareRegenLocked()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		resp, err := r.host.GenerateQuiet(r.genCtx, req)
		if err != nil {
			r.log.Warn("regenerate request failed", zap.Error(err))
			return
		}
		if _, err := r.applyRegenerated(messageID, resp); err != nil {
			r.log.Error("applying regenerated state", zap.Error(err))
		}
	}()
	return nil
}

// RegenerateNow re-derives tags for the most recent AI message and waits
// for the result instead of handing it to the background worker. It reports
// whether the model produced usable tags.
func (r *Router) RegenerateNow(ctx context.Context) (bool, error) {
	r.mu.Lock()
	req, messageID, ok, err := r.prepareRegenLocked()
	r.mu.Unlock()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	resp, err := r.host.GenerateQuiet(ctx, req)
	if err != nil {
		return false, fmt.Errorf("regeneration request: %w", err)
	}
	return r.applyRegenerated(messageID, resp)
}

// prepareRegenLocked builds the regeneration request for the latest AI
// message. ok is false when there is nothing to regenerate. Callers hold
// r.mu.
func (r *Router) prepareRegenLocked() (req, messageID string, ok bool, err error) {
	msgs, err := r.host.Messages()
	if err != nil {
		return "", "", false, fmt.Errorf("loading history: %w", err)
	}
	msg, found := latestAI(msgs)
	if !found {
		r.log.Debug("regenerate requested with no AI messages")
		return "", "", false, nil
	}
	return regenPrompt(msg.Text, r.continuityHint(msgs, msg)), msg.ID, true, nil
}

// continuityHint renders the snapshot of the AI message preceding msg, so
// the regeneration prompt can anchor on the last known state. Callers hold
// r.mu.
func (r *Router) continuityHint(msgs []Message, msg Message) string {
	var (
		prev  Message
		found bool
	)
	for _, m := range msgs {
		if m.IsUser || m.Index >= msg.Index {
			continue
		}
		if !found || m.Index > prev.Index {
			prev = m
			found = true
		}
	}
	if !found {
		return ""
	}
	snap, ok := r.store.Get(prev.ID)
	if !ok {
		return ""
	}
	return snap.TagText()
}

// applyRegenerated folds a regeneration result back into the tracker. The
// chat may have moved on while the model was thinking, so everything is
// re-checked under the lock before anything is written. It reports whether
// the response carried usable tags for a message that still exists.
func (r *Router) applyRegenerated(messageID, resp string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := tag.Extract(resp)
	if tags.Empty() {
		r.log.Warn("regeneration produced no usable tags, keeping state")
		return false, nil
	}

	msgs, err := r.host.Messages()
	if err != nil {
		return false, fmt.Errorf("loading history after regeneration: %w", err)
	}
	msg, ok := messageByID(msgs, messageID)
	if !ok {
		r.log.Warn("regenerated message no longer exists", zap.String("message_id", messageID))
		return false, nil
	}

	snap := r.resolve(tags, msgs, msg.Index)
	r.store.Record(messageID, snap)
	if isLatestAI(msgs, messageID) {
		if err := r.commitCurrent(snap); err != nil {
			return true, err
		}
		if err := r.refreshPrompt(); err != nil {
			return true, err
		}
	}
	if err := r.host.SetHeader(msg.Index, render.Header(snap, r.settings)); err != nil {
		return true, fmt.Errorf("setting header: %w", err)
	}
	return true, nil
}

// regenPrompt builds the hidden request sent to the model when the user
// asks for the tags of a scene to be re-derived.
func regenPrompt(sceneText, continuityHint string) string {
	var b strings.Builder
	b.WriteString("Read the scene below and state its current time, location, weather, ")
	b.WriteString("heart points, and any present characters using bracketed tags, one per line, ")
	b.WriteString("in the form [time: ...], [location: ...], [weather: ...], [heart: ...], ")
	b.WriteString("[char: Name | outfit: ... | state: ... | position: ...]. ")
	b.WriteString("Output only the tags.\n")
	if continuityHint != "" {
		b.WriteString("\nState before this scene: ")
		b.WriteString(continuityHint)
		b.WriteString("\n")
	}
	b.WriteString("\nScene:\n")
	b.WriteString(sceneText)
	return b.String()
}
