// Package state is the per-session key/value store standing in for the
// browser's local and session storage.
package state

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys.
const (
	KeyCart     = "cart"
	KeyLanguage = "language"
	KeyAdmin    = "adminAuthenticated"
)

var ErrNotFound = errors.New("state: key not found")

// Backend stores raw values under a session namespace.
type Backend interface {
	Get(ctx context.Context, session, key string) ([]byte, error)
	Set(ctx context.Context, session, key string, value []byte) error
	Delete(ctx context.Context, session, key string) error
}

// Store is a Backend bound to one session.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type scoped struct {
	b       Backend
	session string
}

// Scoped binds b to a single session.
func Scoped(b Backend, session string) Store {
	return scoped{b: b, session: session}
}

func (s scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.b.Get(ctx, s.session, key)
}

func (s scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.b.Set(ctx, s.session, key, value)
}

func (s scoped) Delete(ctx context.Context, key string) error {
	return s.b.Delete(ctx, s.session, key)
}

// Memory keeps state in process. Values are copied in and out.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

var _ Backend = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, session, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[session][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, session, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[session]
	if !ok {
		ns = make(map[string][]byte)
		m.data[session] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, session, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[session], key)
	if len(m.data[session]) == 0 {
		delete(m.data, session)
	}
	return nil
}
