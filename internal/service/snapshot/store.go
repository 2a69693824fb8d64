package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	analysis "github.com/claritycoach/backend/internal/analysis/snapshot"
)

var (
	ErrSnapshotEmpty    = errors.New("snapshot has no content")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Saved is a snapshot the user chose to keep.
type Saved struct {
	ID        string            `json:"id"`
	Snapshot  analysis.Snapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Store keeps saved snapshots in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.RWMutex
	items map[string]Saved
	limit int
	order []string
}

// NewStore creates a store holding at most limit snapshots; the oldest entry is
// evicted once the limit is reached. A limit below one means unbounded.
func NewStore(limit int) *Store {
	return &Store{
		items: make(map[string]Saved),
		limit: limit,
	}
}

// Save stores a snapshot and returns it with its new identifier.
func (s *Store) Save(_ context.Context, snap analysis.Snapshot) (Saved, error) {
	if snap.Empty() {
		return Saved{}, ErrSnapshotEmpty
	}

	saved := Saved{
		ID:        uuid.NewString(),
		Snapshot:  snap,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.items[saved.ID] = saved
	s.order = append(s.order, saved.ID)

	return saved, nil
}

// Get retrieves a snapshot by identifier.
func (s *Store) Get(_ context.Context, id string) (Saved, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved, ok := s.items[id]
	if !ok {
		return Saved{}, ErrSnapshotNotFound
	}
	return saved, nil
}

// Len reports how many snapshots are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
