package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/state"
)

// Sessions hands out carts by session id. Calls for the same session run one
// at a time; different sessions do not block each other.
type Sessions struct {
	backend state.Backend
	log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessions(backend state.Backend, log *zap.Logger) *Sessions {
	return &Sessions{
		backend: backend,
		log:     logging.OrNop(log),
		locks:   make(map[string]*sessionLock),
	}
}

// With loads the session's cart and runs fn against it while holding the
// session lock. The store must not be used after fn returns.
func (s *Sessions) With(ctx context.Context, sessionID string, fn func(*Store) error) error {
	l := s.acquire(sessionID)
	defer s.release(sessionID, l)

	st := New(state.Scoped(s.backend, sessionID), s.log.With(zap.String("session", sessionID)))
	st.Load(ctx)
	return fn(st)
}

func (s *Sessions) acquire(id string) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Sessions) release(id string, l *sessionLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}
