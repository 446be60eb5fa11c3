package session

import (
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/llm"
	"github.com/Kuma3D/PTTracker/internal/router"
)

// Runtime is a live session: the stored chat plus the router processing its
// events. The manager caches one per session so the in-memory snapshot
// cache and prompt state survive across tool calls.
type Runtime struct {
	Session *Session
	Router  *router.Router
}

// Manager hands out sessions and their routers. It does not own the
// database handle; the caller closes it after Close.
type Manager struct {
	database *sql.DB
	gen      *llm.Client
	log      *zap.Logger

	mu     sync.Mutex
	active map[string]*Runtime
}

// NewManager builds a manager. gen may be nil, in which case regeneration
// reports the backend as unavailable. log may be nil.
func NewManager(database *sql.DB, gen *llm.Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		database: database,
		gen:      gen,
		log:      log,
		active:   make(map[string]*Runtime),
	}
}

// DB exposes the database handle for operations that query directly.
func (m *Manager) DB() *sql.DB {
	return m.database
}

// Session returns the Host view of a stored session without starting its
// router.
func (m *Manager) Session(id string) *Session {
	return &Session{database: m.database, gen: m.gen, id: id}
}

// Runtime returns the live runtime for a session, starting its router on
// first use.
func (m *Manager) Runtime(id string) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.active[id]; ok {
		return rt, nil
	}

	if _, err := db.GetSessionByID(m.database, id, false); err != nil {
		return nil, err
	}

	sess := m.Session(id)
	r, err := router.New(sess, m.log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Session: sess, Router: r}
	m.active[id] = rt
	return rt, nil
}

// DropRuntime shuts down and forgets a session's router, if one is live.
func (m *Manager) DropRuntime(id string) {
	m.mu.Lock()
	rt, ok := m.active[id]
	delete(m.active, id)
	m.mu.Unlock()

	if ok {
		rt.Router.Close()
	}
}

// Close shuts down every live router. The database handle stays open.
func (m *Manager) Close() {
	m.mu.Lock()
	active := m.active
	m.active = make(map[string]*Runtime)
	m.mu.Unlock()

	for _, rt := range active {
		rt.Router.Close()
	}
}

// NewID generates a ULID for sessions and messages.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}
