package subscriber

import (
	"context"
	"sync"
)

// Store holds the current subscriber set. Membership is a set: adding an
// existing subscriber or removing an unknown one is a no-op, and the set has
// no ordering semantics. Entries leave only through Remove, whether from an
// unsubscribe command or the transport reporting the recipient gone.
type Store interface {
	Add(ctx context.Context, chatID int64) (bool, error)
	Remove(ctx context.Context, chatID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

// MemoryStore is the default, volatile subscriber set
type MemoryStore struct {
	mu      sync.RWMutex
	members map[int64]struct{}
}

// NewMemoryStore creates an empty in-memory subscriber set
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[int64]struct{})}
}

// Add inserts a subscriber; reports whether it was newly added
func (s *MemoryStore) Add(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[chatID]; ok {
		return false, nil
	}
	s.members[chatID] = struct{}{}
	return true, nil
}

// Remove deletes a subscriber; reports whether it was present
func (s *MemoryStore) Remove(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[chatID]; !ok {
		return false, nil
	}
	delete(s.members, chatID)
	return true, nil
}

// List returns a snapshot of the current members
func (s *MemoryStore) List(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]int64, 0, len(s.members))
	for id := range s.members {
		members = append(members, id)
	}
	return members, nil
}

// Count reports the current membership size
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members), nil
}
