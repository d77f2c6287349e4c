package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// SessionState holds one customer's conversation: the full message history
// (user, assistant, and tool-result messages, without the system prompt,
// which is re-rendered every turn), the accumulated order lines, and the
// placed flag.
type SessionState struct {
	ID        string            `json:"id"`
	Messages  []*schema.Message `json:"messages"`
	Order     []string          `json:"order"`
	Finished  bool              `json:"finished"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionRepository persists per-session conversation state.
type SessionRepository interface {
	// GetOrCreate returns the session for the given id, creating and
	// persisting a fresh empty one if it does not exist yet. The bool
	// reports whether a new session was created.
	GetOrCreate(ctx context.Context, sessionID string) (*SessionState, bool, error)

	// Get returns the session or nil when the id is unknown.
	Get(ctx context.Context, sessionID string) (*SessionState, error)

	// Save persists the session state.
	Save(ctx context.Context, state *SessionState) error
}
