package session

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	entries    []Entry
	lastAppend time.Time
}

// MemoryStore keeps sessions in process. A session idle for longer than ttl
// is dropped; a zero ttl keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if ttl > 0 {
		s.ticker = time.NewTicker(sweepInterval(ttl))
		go s.cleanup()
	}

	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Second), 5*time.Minute)
}

func (s *MemoryStore) Open(sessionID string) Log {
	return &memoryLog{store: s, id: sessionID}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) cleanup() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.evictIdle()
		}
	}
}

func (s *MemoryStore) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) expired(sess *memorySession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastAppend) > s.ttl
}

func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.done)
	})
}

type memoryLog struct {
	store *MemoryStore
	id    string
}

func (l *memoryLog) Append(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	now := l.store.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	sess, ok := l.store.sessions[l.id]
	if !ok || l.store.expired(sess, now) {
		sess = &memorySession{}
		l.store.sessions[l.id] = sess
	}
	sess.entries = append(sess.entries, e)
	sess.lastAppend = now
	return nil
}

// Entries reads like an expired Redis key once the session has gone idle,
// even before the sweeper removes it.
func (l *memoryLog) Entries(_ context.Context) ([]Entry, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	sess, ok := l.store.sessions[l.id]
	if !ok || l.store.expired(sess, l.store.now()) {
		return []Entry{}, nil
	}
	return append([]Entry{}, sess.entries...), nil
}
