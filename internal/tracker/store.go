package tracker

import "sync"

// Store is the in-memory snapshot cache for one chat. Snapshots are keyed by
// message ID rather than index, so host-side deletions and swipes that
// renumber messages cannot mismatch cached state. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	byMessage map[string]Snapshot
	current   Snapshot
}

// NewStore returns an empty cache seeded with the given current snapshot,
// normally the one persisted in settings.
func NewStore(current Snapshot) *Store {
	return &Store{
		byMessage: make(map[string]Snapshot),
		current:   current.Clone(),
	}
}

// Record caches the resolved snapshot for a message. It never touches the
// current state: promotion is a separate SetCurrent call, because corrections
// to older messages and stale regeneration results must update only their own
// entry.
func (s *Store) Record(messageID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMessage[messageID] = snap.Clone()
}

// Get returns the cached snapshot for a message, if one was recorded.
func (s *Store) Get(messageID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byMessage[messageID]
	if !ok {
		return Snapshot{}, false
	}
	return snap.Clone(), true
}

// Delete drops the cached snapshot for a message. The current state is left
// alone; the next rendered message re-resolves it.
func (s *Store) Delete(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byMessage, messageID)
}

// Current returns the latest resolved snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// SetCurrent replaces the current snapshot without touching the per-message
// cache. Used when state is edited directly rather than derived from text.
func (s *Store) SetCurrent(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap.Clone()
}

// Clear drops every per-message entry. Used on chat switch, character
// switch, and message deletion, when cached positions can no longer be
// trusted. The current snapshot is left for the caller to reseed.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMessage = make(map[string]Snapshot)
}

// Len reports how many message snapshots are cached.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMessage)
}
