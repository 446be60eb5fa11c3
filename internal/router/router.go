package router

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Kuma3D/PTTracker/internal/prompt"
	"github.com/Kuma3D/PTTracker/internal/render"
	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// Router wires host lifecycle events into the tracker pipeline. Event
// methods serialize on an internal mutex, mirroring the host's
// one-event-at-a-time delivery; the asynchronous regenerate flow re-acquires
// the mutex before applying its result, so it tolerates settings and cache
// having moved underneath it (last write wins).
type Router struct {
	host Host
	log  *zap.Logger

	mu       sync.Mutex
	settings tracker.Settings
	store    *tracker.Store

	genCtx    context.Context
	genCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New loads (or creates) settings through the host, registers the output
// filter, and injects the initial prompt. The returned router is ready for
// events.
func New(host Host, log *zap.Logger) (*Router, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s, ok, err := host.Settings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if !ok {
		s = tracker.DefaultSettings()
		s.Current.HeartPoints = s.DefaultHeartPoints
		if err := host.SaveSettings(s); err != nil {
			return nil, fmt.Errorf("saving initial settings: %w", err)
		}
		log.Info("created default settings")
	}
	s = s.Backfilled()

	genCtx, genCancel := context.WithCancel(context.Background())
	r := &Router{
		host:      host,
		log:       log,
		settings:  s,
		store:     tracker.NewStore(s.Current),
		genCtx:    genCtx,
		genCancel: genCancel,
	}

	if err := host.RegisterOutputFilter(tag.StripExpr()); err != nil {
		genCancel()
		return nil, fmt.Errorf("registering output filter: %w", err)
	}
	if err := host.SetButtons(false); err != nil {
		genCancel()
		return nil, fmt.Errorf("installing buttons: %w", err)
	}
	if err := r.refreshPrompt(); err != nil {
		genCancel()
		return nil, err
	}

	return r, nil
}

// Close cancels any in-flight regeneration and waits for it to finish.
func (r *Router) Close() {
	r.genCancel()
	r.wg.Wait()
}

// MessageReceived handles a newly rendered message. Only AI messages carry
// tags; user messages are ignored.
func (r *Router) MessageReceived(ev MessageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled || ev.IsUser {
		return nil
	}
	return r.processAt(ev.Index, ev.Text)
}

// MessageEdited re-parses an edited AI message. Editing a user message
// instead drops any header and cached snapshot attached to it.
func (r *Router) MessageEdited(ev MessageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}

	if ev.IsUser {
		msgs, err := r.host.Messages()
		if err != nil {
			return fmt.Errorf("loading history: %w", err)
		}
		if msg, ok := messageAt(msgs, ev.Index); ok {
			r.store.Delete(msg.ID)
		}
		return r.host.ClearHeader(ev.Index)
	}
	return r.processAt(ev.Index, ev.Text)
}

// MessageDeleted drops the whole per-message cache: positions after the
// deleted message have been renumbered by the host, and stale entries are
// worse than a rescan.
func (r *Router) MessageDeleted(ev IndexEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}
	r.store.Clear()
	r.log.Debug("cleared snapshot cache after deletion", zap.Int("index", ev.MessageIndex))
	return nil
}

// GenerationStarted swaps the header buttons to their generating state.
func (r *Router) GenerationStarted() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}
	return r.host.SetButtons(true)
}

// GenerationStopped restores the idle button set.
func (r *Router) GenerationStopped() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}
	return r.host.SetButtons(false)
}

// ChatChanged reloads settings for the newly opened chat, clears the cache,
// and rescans recent history so header and prompt reflect the new chat.
func (r *Router) ChatChanged() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload()
}

// CharacterChanged behaves like a chat switch.
func (r *Router) CharacterChanged() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reload()
}

// ButtonClicked routes manual header actions.
func (r *Router) ButtonClicked(ev ActionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}

	switch ev.Action {
	case ActionEdit:
		return r.editLatest()
	case ActionRegenerate:
		return r.regenerateLatest()
	default:
		r.log.Debug("ignoring unknown action", zap.String("action", ev.Action))
		return nil
	}
}

// HeaderLongPressed opens the correction dialog for a specific message.
func (r *Router) HeaderLongPressed(ev IndexEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.Enabled {
		return nil
	}
	return r.editAt(ev.MessageIndex)
}

// processAt runs the full pipeline for the message at index: extract,
// resolve, cache, persist, render, reinject. Text with no tags at all is
// skipped entirely. Callers hold r.mu.
func (r *Router) processAt(index int, text string) error {
	tags := tag.Extract(text)
	if tags.Empty() {
		r.log.Debug("message carries no tags, skipping", zap.Int("index", index))
		return nil
	}

	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	msg, ok := messageAt(msgs, index)
	if !ok {
		r.log.Warn("event for unknown message index", zap.Int("index", index))
		return nil
	}

	snap := r.resolve(tags, msgs, index)
	r.store.Record(msg.ID, snap)
	if err := r.commitCurrent(snap); err != nil {
		return err
	}
	if err := r.host.SetHeader(index, render.Header(snap, r.settings)); err != nil {
		return fmt.Errorf("setting header: %w", err)
	}
	return r.refreshPrompt()
}

// resolve fills the gaps in tags from earlier AI messages (up to the
// configured scan depth) and the live current snapshot. Callers hold r.mu.
func (r *Router) resolve(tags tag.TagSet, msgs []Message, index int) tracker.Snapshot {
	var earlier []tag.TagSet
	seen := 0
	for i := index - 1; i >= 0 && seen < r.settings.ScanDepth; i-- {
		m, ok := messageAt(msgs, i)
		if !ok || m.IsUser {
			continue
		}
		earlier = append(earlier, tag.Extract(m.Text))
		seen++
	}

	snap := tracker.Resolve(tags, earlier, r.store.Current())
	if !r.settings.TrackCharacters {
		snap.Characters = nil
	}
	return snap
}

// commitCurrent promotes snap to the live state and persists it
// immediately. Callers hold r.mu.
func (r *Router) commitCurrent(snap tracker.Snapshot) error {
	r.store.SetCurrent(snap)
	r.settings.Current = snap.Clone()
	if err := r.host.SaveSettings(r.settings); err != nil {
		return fmt.Errorf("persisting settings: %w", err)
	}
	return nil
}

// refreshPrompt reinjects the instruction block built from the live state.
// A disabled tracker injects nothing, clearing any earlier block. Callers
// hold r.mu.
func (r *Router) refreshPrompt() error {
	text := ""
	if r.settings.Enabled {
		text = prompt.Build(r.store.Current(), r.settings)
	}
	if err := r.host.SetSystemPrompt(text, r.settings.PromptDepth); err != nil {
		return fmt.Errorf("injecting prompt: %w", err)
	}
	return nil
}

// reload re-reads settings and rescans the freshly opened chat. Callers
// hold r.mu.
func (r *Router) reload() error {
	s, ok, err := r.host.Settings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if !ok {
		s = tracker.DefaultSettings()
		s.Current.HeartPoints = s.DefaultHeartPoints
		if err := r.host.SaveSettings(s); err != nil {
			return fmt.Errorf("saving initial settings: %w", err)
		}
	}
	r.settings = s.Backfilled()
	r.store.Clear()
	r.store.SetCurrent(r.settings.Current)

	if !r.settings.Enabled {
		return nil
	}

	msgs, err := r.host.Messages()
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser {
			continue
		}
		if err := r.processAt(msgs[i].Index, msgs[i].Text); err != nil {
			return err
		}
		break
	}
	return r.refreshPrompt()
}

// messageAt finds the message at a host-visible position.
func messageAt(msgs []Message, index int) (Message, bool) {
	for _, m := range msgs {
		if m.Index == index {
			return m, true
		}
	}
	return Message{}, false
}

// messageByID finds a message by its stable identifier.
func messageByID(msgs []Message, id string) (Message, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// latestAI returns the AI message with the highest position.
func latestAI(msgs []Message) (Message, bool) {
	var (
		best  Message
		found bool
	)
	for _, m := range msgs {
		if m.IsUser {
			continue
		}
		if !found || m.Index > best.Index {
			best = m
			found = true
		}
	}
	return best, found
}

// isLatestAI reports whether id is still the most recent AI message. The
// check runs at apply time, not at request time, so renumbered or deleted
// messages cannot smuggle stale state into settings.
func isLatestAI(msgs []Message, id string) bool {
	m, ok := latestAI(msgs)
	return ok && m.ID == id
}
