package repo

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/model"
)

// MemorySessionRepository keeps sessions in a process-local map. Nothing is
// ever evicted, so memory grows with the number of distinct sessions; that is
// the accepted trade-off for single-instance deployments, and the Redis
// driver with TTL is the answer when it is not.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.SessionState
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*model.SessionState),
	}
}

func (r *MemorySessionRepository) GetOrCreate(ctx context.Context, sessionID string) (*model.SessionState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.sessions[sessionID]; ok {
		return cloneSession(state), false, nil
	}

	now := time.Now().UTC()
	state := &model.SessionState{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.sessions[sessionID] = state
	return cloneSession(state), true, nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return cloneSession(state), nil
}

func (r *MemorySessionRepository) Save(ctx context.Context, state *model.SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneSession(state)
	stored.UpdatedAt = time.Now().UTC()
	if existing, ok := r.sessions[state.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	r.sessions[state.ID] = stored
	return nil
}

// cloneSession copies the state with fresh slices so callers cannot alias the
// stored session across the repository boundary.
func cloneSession(state *model.SessionState) *model.SessionState {
	out := *state
	out.Messages = append([]*schema.Message(nil), state.Messages...)
	out.Order = append([]string(nil), state.Order...)
	return &out
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
