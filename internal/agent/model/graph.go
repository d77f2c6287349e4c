package model

import (
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/order"
)

// AppState stores per-turn state for the Eino graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
//   - Persistence goes through the SessionManager, never through this struct.
type AppState struct {
	SessionID            string
	History              []*schema.Message // mutated only inside Eino state handlers
	Order                order.State       // working copy of the session's order
	ToolCallCount        int               // maintained in handlers (reset/increment)
	ToolCallLimitReached bool              // set when tool call limit is exceeded
	ToolCallIDSeq        int               // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// TurnInput represents one incoming user message for a session.
type TurnInput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Finished  bool   `json:"finished"`
}
