package credentials

import (
	"context"
	"sync"
)

// Memory is an in-process credential store. The zero value is not usable;
// call NewMemory.
type Memory struct {
	mu    sync.RWMutex
	token string
	role  string
	paths map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{paths: make(map[string]string)}
}

// Token returns the stored token, or "" when none is set.
func (m *Memory) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

// SetToken replaces the stored token.
func (m *Memory) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// ClearToken removes the token and keeps the role and paths.
func (m *Memory) ClearToken(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// LastRole returns the role of the most recent session, or "".
func (m *Memory) LastRole(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.role, nil
}

// SetLastRole records role as the most recent session role.
func (m *Memory) SetLastRole(_ context.Context, role string) error {
	m.mu.Lock()
	m.role = role
	m.mu.Unlock()
	return nil
}

// LastVisitedPath returns the remembered path for role, or "".
func (m *Memory) LastVisitedPath(_ context.Context, role string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths[role], nil
}

// SetLastVisitedPath remembers path for role.
func (m *Memory) SetLastVisitedPath(_ context.Context, role, path string) error {
	m.mu.Lock()
	m.paths[role] = path
	m.mu.Unlock()
	return nil
}

// ClearAllLastVisitedPaths forgets every remembered path.
func (m *Memory) ClearAllLastVisitedPaths(context.Context) error {
	m.mu.Lock()
	clear(m.paths)
	m.mu.Unlock()
	return nil
}

// Clear resets the store to empty. It never fails.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.role = ""
	clear(m.paths)
	m.mu.Unlock()
	return nil
}
