package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/graph/conversations"
	"github.com/barista-agent-poc/server/internal/agent/graph/prompts"
	"github.com/barista-agent-poc/server/internal/agent/model"
	"github.com/barista-agent-poc/server/internal/agent/order"
	logx "github.com/barista-agent-poc/server/pkg/logger"
)

// Node name constants for the barista conversation graph.
const (
	NodeSessionLoader    = "session_loader"
	NodeBaristaChatModel = "barista_chat_model"
	NodeOrderExecutor    = "order_executor"
	NodeToolExecutor     = "tool_executor"
	NodeFinalizer        = "finalizer"
)

// fallbackResponse covers the rare case where the model produces an empty
// final message (e.g. after hitting the tool call limit).
const fallbackResponse = "I'm sorry, I lost my train of thought. Could you say that again?"

// NewSessionLoaderPreHandler creates the pre-handler for the SessionLoader node
func NewSessionLoaderPreHandler() func(context.Context, model.TurnInput, *model.AppState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.AppState) (model.TurnInput, error) {
		if s.SessionID == "" {
			s.SessionID = in.SessionID
		}
		// Reset tool call counter and limit flag for each new turn
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		// Reset accumulated total cost for each new turn
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewSessionLoaderNode creates the SessionLoader node. It loads (or creates)
// the session, seeds the working order state, and assembles the model context:
// system prompt, persisted history, then the effective user message.
func NewSessionLoaderNode(
	sm *conversations.SessionManager,
	promptCfg *model.PromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.TurnInput) ([]*schema.Message, error) {
		sess, message, err := sm.BeginTurn(ctx, input.SessionID, input.Message)
		if err != nil {
			return nil, fmt.Errorf("error beginning turn: %w", err)
		}

		// Generate system prompt via Eino prompt component (enables prompt callbacks)
		systemPrompt, err := prompts.RenderBaristaSystem(ctx, promptCfg)
		if err != nil {
			return nil, fmt.Errorf("render barista system prompt: %w", err)
		}

		// Seed the working copy of the order so dispatched tools mutate the
		// same lines this session already holds.
		err = compose.ProcessState(ctx, func(_ context.Context, s *model.AppState) error {
			s.Order = order.State{
				Lines:    append([]string(nil), sess.Order...),
				Finished: sess.Finished,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed order state: %w", err)
		}

		messages := make([]*schema.Message, 0, len(sess.Messages)+2)
		messages = append(messages, schema.SystemMessage(systemPrompt))
		messages = append(messages, sess.Messages...)
		messages = append(messages, schema.UserMessage(message))

		return messages, nil
	})
}

// NewBaristaChatModelPreHandler creates the pre-handler for the barista chat
// model node. It folds incoming messages into the running history and injects
// a wrap-up notice once the tool call limit has been reached.
func NewBaristaChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Heuristic fix for providers that drop tool_call_id on tool results
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					id := msg.ToolCalls[0].ID
					if strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please wrap up the conversation using the information you already have, "+
						"and let the customer know if anything is still pending.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Msg("Barista thinking...")

		return state.History, nil
	}
}

// NewBaristaChatModelPostHandler creates the post-handler for the barista
// chat model node: usage cost accounting, tool_call_id normalization, and
// history bookkeeping.
func NewBaristaChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		// Compute usage cost if available
		if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":          "USD",
				"model":             modelName,
				"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
				"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
				"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
				"input_cost":        inC,
				"output_cost":       outC,
				"total_cost":        totalC,
			}
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("node", NodeBaristaChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			// Accumulate only total cost into state
			state.TotalCostUSD += totalC
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		}

		// Normalize tool calls: some providers may omit tool_call IDs.
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("Barista response ready")
		}

		return out, nil
	}
}

// NewBaristaRouteCondition creates the condition that routes the barista's
// output: no tool calls (or limit reached) ends the loop; a batch containing
// any order tool goes to the order executor so the whole batch runs against
// order state in call order; everything else goes to the stateless executor.
func NewBaristaRouteCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to finalizer")
			return NodeFinalizer, nil
		}

		if len(input.ToolCalls) == 0 {
			logx.Debug().Msg("No tool calls - routing to finalizer")
			return NodeFinalizer, nil
		}

		for _, tc := range input.ToolCalls {
			if order.IsStateful(tc.Function.Name) {
				logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to OrderExecutor")
				return NodeOrderExecutor, nil
			}
		}

		logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
		return NodeToolExecutor, nil
	}
}

// NewToolExecutorPreHandler creates the shared pre-handler for both executor
// nodes. It counts one execution round per model round trip.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("session_id", state.SessionID).
			Msg("Tool execution attempt")

		if exceeded {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", maxToolCalls).
				Str("session_id", state.SessionID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}

// NewOrderExecutorNode creates the OrderExecutor node. The whole tool call
// batch is dispatched sequentially against the session's order state, stateless
// and unknown names included, so results keep the model's call order.
func NewOrderExecutorNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input *schema.Message) ([]*schema.Message, error) {
		results := make([]*schema.Message, 0, len(input.ToolCalls))

		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			for _, tc := range input.ToolCalls {
				args := map[string]any{}
				if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
					if err := json.Unmarshal([]byte(raw), &args); err != nil {
						logx.Warn().
							Str("tool_name", tc.Function.Name).
							Str("arguments", tc.Function.Arguments).
							Err(err).
							Msg("Malformed tool arguments; dispatching with empty args")
						args = map[string]any{}
					}
				}

				resp := state.Order.Dispatch(order.Invocation{
					Name:   tc.Function.Name,
					Args:   args,
					CallID: tc.ID,
				})
				results = append(results, schema.ToolMessage(resp, tc.ID, schema.WithToolName(tc.Function.Name)))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		return results, nil
	})
}

// NewFinalizerNode creates the Finalizer node. It persists the turn outcome
// through the session manager and shapes the public result.
func NewFinalizerNode(sm *conversations.SessionManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input *schema.Message) (*model.TurnResult, error) {
		var (
			sessionID string
			history   []*schema.Message
			lines     []string
			finished  bool
			totalCost float64
		)
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			sessionID = state.SessionID
			history = state.History
			lines = append([]string(nil), state.Order.Lines...)
			finished = state.Order.Finished
			totalCost = state.TotalCostUSD
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		// Persist the history without system messages: the prompt is rendered
		// fresh each turn and wrap-up notices are turn-local.
		persisted := make([]*schema.Message, 0, len(history))
		for _, msg := range history {
			if msg == nil || msg.Role == schema.System {
				continue
			}
			persisted = append(persisted, msg)
		}

		if err := sm.CompleteTurn(ctx, sessionID, persisted, lines, finished); err != nil {
			return nil, fmt.Errorf("error completing turn: %w", err)
		}

		response := ""
		if input != nil {
			response = strings.TrimSpace(input.Content)
		}
		if response == "" {
			response = fallbackResponse
		}

		logx.Debug().
			Str("session_id", sessionID).
			Bool("finished", finished).
			Float64("total_cost_usd", totalCost).
			Msg("Turn completed")

		return &model.TurnResult{
			SessionID: sessionID,
			Response:  response,
			Finished:  finished,
		}, nil
	})
}
