package memory

import (
	"sync"

	"agri-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds per-session accumulated context and bounded
// exchange history for the life of the process. Sessions never expire;
// unbounded growth across distinct session keys is accepted.
//
// Two levels of locking: the turn lock (Lock) serializes whole
// read-modify-write turns per session, while each entry carries its own
// mutex so reads like the history endpoint are safe without holding the
// turn lock.
type SessionRepository struct {
	cache *cache.Cache
	locks sync.Map // session id -> *sync.Mutex
}

// sessionEntry guards the shared session record. Every public method
// reads or writes the session under this mutex.
type sessionEntry struct {
	mu      sync.RWMutex
	session *store.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Lock acquires the per-session turn mutex and returns its release
// func. Concurrent turns for the same session id serialize on this;
// turns for different session ids run independently.
func (r *SessionRepository) Lock(sessionID string) func() {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// GetContext returns a copy of the session's accumulated context, empty
// for an unknown session.
func (r *SessionRepository) GetContext(sessionID string) store.Context {
	if e, found := r.get(sessionID); found {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return e.session.Context.Clone()
	}
	return store.Context{}
}

// PutContext replaces the session's accumulated context.
func (r *SessionRepository) PutContext(sessionID string, ctx store.Context) {
	e := r.getOrCreate(sessionID)
	e.mu.Lock()
	e.session.Context = ctx.Clone()
	e.mu.Unlock()
}

// AppendExchange appends one (user, bot) pair, evicting the oldest
// exchange once the history bound is exceeded.
func (r *SessionRepository) AppendExchange(sessionID, userMsg, botMsg string) {
	e := r.getOrCreate(sessionID)
	e.mu.Lock()
	e.session.History = append(e.session.History, store.Exchange{User: userMsg, Bot: botMsg})
	if len(e.session.History) > store.HistoryCapacity {
		e.session.History = e.session.History[len(e.session.History)-store.HistoryCapacity:]
	}
	e.mu.Unlock()
}

// GetHistory returns the stored exchanges oldest-first, at most the
// history capacity.
func (r *SessionRepository) GetHistory(sessionID string) []store.Exchange {
	if e, found := r.get(sessionID); found {
		e.mu.RLock()
		defer e.mu.RUnlock()
		out := make([]store.Exchange, len(e.session.History))
		copy(out, e.session.History)
		return out
	}
	return []store.Exchange{}
}

func (r *SessionRepository) get(sessionID string) (*sessionEntry, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*sessionEntry), true
	}
	return nil, false
}

func (r *SessionRepository) getOrCreate(sessionID string) *sessionEntry {
	if e, found := r.get(sessionID); found {
		return e
	}
	e := &sessionEntry{session: &store.Session{ID: sessionID, Context: store.Context{}}}
	if err := r.cache.Add(sessionID, e, cache.NoExpiration); err != nil {
		// Lost the insert race; take the entry that won
		e, _ = r.get(sessionID)
	}
	return e
}
