package session

import (
	"sync"
	"time"

	"cvcoach/internal/errors"

	"github.com/google/uuid"
)

// Store keeps the live sessions of the process and evicts idle ones
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
	idleTTL  time.Duration
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// NewStore creates a store. With cleanupInterval > 0 a goroutine evicts
// sessions idle for longer than idleTTL until Close is called.
func NewStore(idleTTL, cleanupInterval time.Duration, logger *errors.Logger) *Store {
	if logger == nil {
		logger = errors.Discard()
	}
	st := &Store{
		sessions: make(map[string]*Session),
		lastSeen: make(map[string]time.Time),
		idleTTL:  idleTTL,
		done:     make(chan struct{}),
		logger:   logger,
	}
	if cleanupInterval > 0 && idleTTL > 0 {
		go st.cleanupRoutine(cleanupInterval)
	}
	return st
}

// Create registers a new session with a random ID
func (st *Store) Create() *Session {
	s := New(uuid.NewString())
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
	st.lastSeen[s.ID] = time.Now()
	return s
}

// Get returns the session with id
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound,
			"Sessão não encontrada ou expirada", nil).WithContext("session_id", id)
	}
	st.lastSeen[id] = time.Now()
	return s, nil
}

// Delete drops the session with id
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	delete(st.lastSeen, id)
	return ok
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// GetStats returns store statistics
func (st *Store) GetStats() map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	return map[string]any{
		"active_sessions": len(st.sessions),
		"idle_ttl":        st.idleTTL.String(),
	}
}

func (st *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.Evict(time.Now())
		case <-st.done:
			return
		}
	}
}

// Evict removes sessions idle since before now-idleTTL and returns how many
func (st *Store) Evict(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, seen := range st.lastSeen {
		if now.Sub(seen) > st.idleTTL {
			delete(st.sessions, id)
			delete(st.lastSeen, id)
			removed++
		}
	}
	if removed > 0 {
		st.logger.Debug("Evicted idle sessions", "removed", removed, "remaining", len(st.sessions))
	}
	return removed
}

// Close stops the cleanup goroutine
func (st *Store) Close() {
	st.once.Do(func() { close(st.done) })
}
