package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/graph/conversations"
	"github.com/barista-agent-poc/server/internal/agent/model"
	"github.com/barista-agent-poc/server/internal/agent/order"
	"github.com/barista-agent-poc/server/internal/agent/graph/tools"
	"github.com/barista-agent-poc/server/internal/agent/repo"
)

// scriptedModel returns canned responses in order and records every message
// context it was asked to complete.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	calls     [][]*schema.Message
	idx       int
}

func (m *scriptedModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]*schema.Message, len(in))
	copy(snapshot, in)
	m.calls = append(m.calls, snapshot)

	if m.idx >= len(m.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", m.idx+1)
	}
	out := m.responses[m.idx]
	m.idx++
	return out, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func newTestRunnable(t *testing.T, fake *scriptedModel, store model.SessionRepository) (runnableFunc, model.SessionRepository) {
	t.Helper()

	sessions := conversations.NewSessionManager(store)
	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		BaristaModel:     fake,
		BaristaModelName: "scripted",
		Sessions:         sessions,
		PromptConfig:     &model.PromptConfig{ShopName: "the corner coffee shop"},
		ToolMaxCalls:     10,
	})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	return func(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
		return runnable.Invoke(ctx, in)
	}, store
}

type runnableFunc func(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)

func TestTurnPlainResponse(t *testing.T) {
	t.Parallel()

	fake := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("Welcome in! What can I get you?", nil),
	}}
	run, store := newTestRunnable(t, fake, repo.NewMemorySessionRepository())

	out, err := run(context.Background(), model.TurnInput{SessionID: "s-1", Message: ""})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Response != "Welcome in! What can I get you?" {
		t.Fatalf("response = %q", out.Response)
	}
	if out.Finished {
		t.Fatal("plain turn must not finish the session")
	}

	// Empty first message on a new session becomes the greeting trigger.
	first := fake.calls[0]
	last := first[len(first)-1]
	if last.Role != schema.User || last.Content != "Hello!" {
		t.Fatalf("model saw %s %q, want the greeting", last.Role, last.Content)
	}
	if first[0].Role != schema.System || !strings.Contains(first[0].Content, "barista") {
		t.Fatalf("model context must open with the barista system prompt, got %s", first[0].Role)
	}

	// Persisted history excludes the system prompt.
	state, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("persisted %d messages, want user+assistant", len(state.Messages))
	}
	for _, msg := range state.Messages {
		if msg.Role == schema.System {
			t.Fatal("system prompt must not be persisted")
		}
	}
}

func TestTurnOrderToolLoop(t *testing.T) {
	t.Parallel()

	fake := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", order.ToolAddToOrder, `{"item":"Latte with oat milk"}`),
			toolCall("call-2", order.ToolAddToOrder, `{"item":"Cookie"}`),
		}),
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-3", order.ToolConfirmOrder, `{}`),
		}),
		schema.AssistantMessage("Here's your order, shall I place it?", nil),
	}}
	run, store := newTestRunnable(t, fake, repo.NewMemorySessionRepository())

	out, err := run(context.Background(), model.TurnInput{SessionID: "s-1", Message: "a latte with oat milk and a cookie"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Response != "Here's your order, shall I place it?" {
		t.Fatalf("response = %q", out.Response)
	}
	if out.Finished {
		t.Fatal("confirm must not finish the session")
	}

	// The confirm call runs against the order built by the same turn's adds.
	if len(fake.calls) != 3 {
		t.Fatalf("model called %d times, want 3", len(fake.calls))
	}
	third := fake.calls[2]
	confirmResult := third[len(third)-1]
	if confirmResult.Role != schema.Tool {
		t.Fatalf("last message = %s, want tool result", confirmResult.Role)
	}
	if !strings.Contains(confirmResult.Content, "Total: $7.75") {
		t.Fatalf("confirm result = %q, want the running total", confirmResult.Content)
	}
	if !strings.Contains(confirmResult.Content, "Is this correct?") {
		t.Fatalf("confirm result = %q", confirmResult.Content)
	}

	state, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(state.Order) != 2 || state.Order[0] != "Latte with oat milk" {
		t.Fatalf("persisted order = %v", state.Order)
	}
}

func TestTurnPlaceOrderFinishes(t *testing.T) {
	t.Parallel()

	fake := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", order.ToolAddToOrder, `{"item":"Espresso"}`),
			toolCall("call-2", order.ToolPlaceOrder, `{}`),
		}),
		schema.AssistantMessage("Order placed, see you soon!", nil),
	}}
	run, store := newTestRunnable(t, fake, repo.NewMemorySessionRepository())

	out, err := run(context.Background(), model.TurnInput{SessionID: "s-1", Message: "an espresso, and yes place it"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !out.Finished {
		t.Fatal("placing the order must finish the session")
	}

	state, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Finished {
		t.Fatal("finished flag must persist")
	}
}

func TestMixedBatchRunsThroughOrderExecutor(t *testing.T) {
	t.Parallel()

	// A batch mixing a stateless tool with an order tool is dispatched as a
	// whole by the order executor, so call order is preserved and the
	// stateless name surfaces as an unknown-tool result.
	fake := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", tools.ToolGetMenu, `{}`),
			toolCall("call-2", order.ToolAddToOrder, `{"item":"Mocha"}`),
		}),
		schema.AssistantMessage("Added a mocha.", nil),
	}}
	run, store := newTestRunnable(t, fake, repo.NewMemorySessionRepository())

	if _, err := run(context.Background(), model.TurnInput{SessionID: "s-1", Message: "menu and a mocha"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	second := fake.calls[1]
	var menuResult, addResult *schema.Message
	for _, msg := range second {
		if msg.Role != schema.Tool {
			continue
		}
		switch msg.ToolCallID {
		case "call-1":
			menuResult = msg
		case "call-2":
			addResult = msg
		}
	}
	if menuResult == nil || addResult == nil {
		t.Fatal("both tool results must reach the model")
	}
	if menuResult.Content != "Unknown tool: get_menu" {
		t.Fatalf("menu result in mixed batch = %q", menuResult.Content)
	}
	if !strings.Contains(addResult.Content, "Added 'Mocha'") {
		t.Fatalf("add result = %q", addResult.Content)
	}

	state, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(state.Order) != 1 || state.Order[0] != "Mocha" {
		t.Fatalf("persisted order = %v", state.Order)
	}
}

func TestStatelessMenuTool(t *testing.T) {
	t.Parallel()

	fake := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", tools.ToolGetMenu, `{}`),
		}),
		schema.AssistantMessage("Here's what we have.", nil),
	}}
	run, _ := newTestRunnable(t, fake, repo.NewMemorySessionRepository())

	if _, err := run(context.Background(), model.TurnInput{SessionID: "s-1", Message: "what do you have?"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	second := fake.calls[1]
	menuResult := second[len(second)-1]
	if menuResult.Role != schema.Tool {
		t.Fatalf("last message = %s, want tool result", menuResult.Role)
	}
	if !strings.Contains(menuResult.Content, "Espresso") || !strings.Contains(menuResult.Content, "Oat milk") {
		t.Fatalf("menu result = %q", menuResult.Content)
	}
}

func TestToolCallLimitEndsTurn(t *testing.T) {
	t.Parallel()

	// A model that never stops requesting tools. The per-turn cap must cut
	// the loop, warn the model, and still end the turn with a response.
	responses := make([]*schema.Message, 0, 8)
	for i := 0; i < 8; i++ {
		responses = append(responses, schema.AssistantMessage("", []schema.ToolCall{
			toolCall(fmt.Sprintf("call-%d", i+1), order.ToolAddToOrder, `{"item":"Latte"}`),
		}))
	}
	fake := &scriptedModel{responses: responses}

	store := repo.NewMemorySessionRepository()
	sessions := conversations.NewSessionManager(store)
	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		BaristaModel:     fake,
		BaristaModelName: "scripted",
		Sessions:         sessions,
		PromptConfig:     &model.PromptConfig{ShopName: "the corner coffee shop"},
		ToolMaxCalls:     3,
	})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	out, err := runnable.Invoke(context.Background(), model.TurnInput{SessionID: "s-1", Message: "lattes forever"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	// Three tool rounds run, then one final model call past the cap.
	if len(fake.calls) != 4 {
		t.Fatalf("model called %d times, want 4 with the cap at 3", len(fake.calls))
	}

	// The final model call carries the wrap-up notice.
	last := fake.calls[len(fake.calls)-1]
	var noticed bool
	for _, msg := range last[1:] {
		if msg.Role == schema.System && strings.Contains(msg.Content, "maximum tool call limit") {
			noticed = true
			break
		}
	}
	if !noticed {
		t.Fatal("capped turn must inject the wrap-up notice into the model context")
	}

	// The model never produced text, so the caller gets the fallback line.
	if strings.TrimSpace(out.Response) == "" {
		t.Fatal("capped turn must still return a response")
	}
	if out.Finished {
		t.Fatal("hitting the cap must not finish the order")
	}

	// Only the rounds before the cap mutated the order.
	state, err := store.Get(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(state.Order) != 3 {
		t.Fatalf("persisted %d order lines, want the 3 executed before the cap", len(state.Order))
	}
}

func TestTurnCarriesOrderAcrossTurns(t *testing.T) {
	t.Parallel()

	store := repo.NewMemorySessionRepository()

	fake1 := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", order.ToolAddToOrder, `{"item":"Latte"}`),
		}),
		schema.AssistantMessage("One latte, anything else?", nil),
	}}
	run1, _ := newTestRunnable(t, fake1, store)
	if _, err := run1(context.Background(), model.TurnInput{SessionID: "s-1", Message: "a latte"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}

	fake2 := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{
			toolCall("call-1", order.ToolCalculateTotal, `{}`),
		}),
		schema.AssistantMessage("That's $4.50.", nil),
	}}
	run2, _ := newTestRunnable(t, fake2, store)
	if _, err := run2(context.Background(), model.TurnInput{SessionID: "s-1", Message: "how much?"}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	second := fake2.calls[1]
	totalResult := second[len(second)-1]
	if !strings.Contains(totalResult.Content, "$4.50") {
		t.Fatalf("total across turns = %q, want the first turn's latte priced in", totalResult.Content)
	}
}
