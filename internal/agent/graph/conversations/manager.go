package conversations

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/model"
)

// greetingMessage stands in for an empty first message so a brand-new session
// opens with the barista's greeting.
const greetingMessage = "Hello!"

// SessionManager mediates all session access for the graph: it loads and
// saves state through the repository and serializes turns per session id so
// two concurrent requests for the same session cannot interleave their
// read-modify-write cycles. Distinct sessions proceed in parallel.
type SessionManager struct {
	repo model.SessionRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionManager(repo model.SessionRepository) *SessionManager {
	return &SessionManager{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-session mutex and returns the release func. Lock
// entries are never evicted; they are a few bytes per session, the same
// lifetime trade-off the in-memory session store makes.
func (m *SessionManager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// BeginTurn loads (or creates) the session and resolves the effective user
// message: an empty message on a brand-new session is treated as a request
// for the opening greeting; on an existing session it is passed through
// literally.
func (m *SessionManager) BeginTurn(ctx context.Context, sessionID, message string) (*model.SessionState, string, error) {
	state, created, err := m.repo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}

	if created && strings.TrimSpace(message) == "" {
		message = greetingMessage
	}
	return state, message, nil
}

// CompleteTurn persists the turn's outcome: the updated message history
// (without the system prompt) and the order state.
func (m *SessionManager) CompleteTurn(ctx context.Context, sessionID string, messages []*schema.Message, lines []string, finished bool) error {
	state, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	if state == nil {
		state = &model.SessionState{ID: sessionID}
	}

	state.Messages = messages
	state.Order = lines
	state.Finished = finished

	if err := m.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
