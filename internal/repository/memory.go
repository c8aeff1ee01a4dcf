package repository

import (
	"context"
	"sync"
	"time"

	"fleetdesk/internal/models"
)

// MemoryChatStateRepository keeps chat states in process memory. It backs
// single-instance runs and the failover path when Redis is unavailable.
type MemoryChatStateRepository struct {
	mu         sync.Mutex
	states     map[int64]memoryState
	rateLimits map[int64]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryState struct {
	state     models.ChatState
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryChatStateRepository(ttl time.Duration) *MemoryChatStateRepository {
	return &MemoryChatStateRepository{
		states:     make(map[int64]memoryState),
		rateLimits: make(map[int64]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryChatStateRepository) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.states[chatID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		delete(r.states, chatID)
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (r *MemoryChatStateRepository) SetState(ctx context.Context, state *models.ChatState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryState{state: *state}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.states[state.ChatID] = entry
	return nil
}

func (r *MemoryChatStateRepository) ClearState(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, chatID)
	return nil
}

func (r *MemoryChatStateRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[chatID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[chatID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
