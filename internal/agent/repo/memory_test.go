package repo

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/model"
)

func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	r := NewMemorySessionRepository()
	ctx := context.Background()

	state, created, err := r.GetOrCreate(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Fatal("first GetOrCreate should create the session")
	}
	if state.ID != "s-1" || len(state.Messages) != 0 || len(state.Order) != 0 || state.Finished {
		t.Fatalf("fresh session has unexpected contents: %+v", state)
	}

	again, created, err := r.GetOrCreate(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if created {
		t.Fatal("second GetOrCreate should return the existing session")
	}
	if again.ID != "s-1" {
		t.Fatalf("session id = %q", again.ID)
	}
}

func TestGetUnknownSessionReturnsNil(t *testing.T) {
	t.Parallel()

	r := NewMemorySessionRepository()
	state, err := r.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil for unknown session, got %+v", state)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	r := NewMemorySessionRepository()
	ctx := context.Background()

	state, _, err := r.GetOrCreate(ctx, "s-2")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	state.Messages = append(state.Messages,
		schema.UserMessage("I'd like a latte"),
		schema.AssistantMessage("Coming right up!", nil),
	)
	state.Order = append(state.Order, "Latte")
	state.Finished = true

	if err := r.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := r.Get(ctx, "s-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded == nil {
		t.Fatal("saved session not found")
	}
	if len(loaded.Messages) != 2 || len(loaded.Order) != 1 || !loaded.Finished {
		t.Fatalf("loaded session mismatch: %+v", loaded)
	}
}

func TestSavedStateDoesNotAliasCallerSlices(t *testing.T) {
	t.Parallel()

	r := NewMemorySessionRepository()
	ctx := context.Background()

	state := &model.SessionState{ID: "s-3", Order: []string{"Espresso"}}
	if err := r.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	state.Order[0] = "mutated after save"

	loaded, err := r.Get(ctx, "s-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Order[0] != "Espresso" {
		t.Fatalf("stored order aliased caller slice: %q", loaded.Order[0])
	}
}
