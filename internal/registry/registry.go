// Package registry tracks active recording sessions by stream id.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"liverec/internal/domain"
)

// Registry maps a stream id to its session. At most one session exists per id.
type Registry[S any] struct {
	mu       sync.RWMutex
	sessions map[string]S
}

func New[S any]() *Registry[S] {
	return &Registry[S]{sessions: make(map[string]S)}
}

// Register adds a session. It never replaces an existing entry.
func (r *Registry[S]) Register(streamID string, session S) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[streamID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSession, streamID)
	}
	r.sessions[streamID] = session
	return nil
}

func (r *Registry[S]) Find(streamID string) (S, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[streamID]
	return session, ok
}

// Remove deletes the entry for streamID. Removing an absent id is a no-op.
// It reports whether this call removed the entry.
func (r *Registry[S]) Remove(streamID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[streamID]; !exists {
		return false
	}
	delete(r.sessions, streamID)
	return true
}

func (r *Registry[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the registered stream ids sorted for display.
func (r *Registry[S]) IDs() []string {
	r.mu.RLock()
	ids := lo.Keys(r.sessions)
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Snapshot returns the registered sessions in no particular order.
func (r *Registry[S]) Snapshot() []S {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}
