package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/barista-agent-poc/server/internal/agent/graph/conversations"
	"github.com/barista-agent-poc/server/internal/agent/graph/nodes"
	"github.com/barista-agent-poc/server/internal/agent/graph/observers"
	"github.com/barista-agent-poc/server/internal/agent/graph/tools"
	"github.com/barista-agent-poc/server/internal/agent/model"
	logx "github.com/barista-agent-poc/server/pkg/logger"
)

// Runner executes one conversation turn against the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the full barista graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat
// model and the session manager.
type Config struct {
	APIKey       string
	BaseURL      string
	BaristaModel model.BaristaModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	SessionRepo  model.SessionRepository
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	BaristaModel     einomodel.ToolCallingChatModel
	BaristaModelName string
	Sessions         *conversations.SessionManager
	PromptConfig     *model.PromptConfig
	ToolMaxCalls     int
}

// GraphBuilder handles the construction of the barista conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnResult]
}

type graphRunner struct {
	runnable    compose.Runnable[model.TurnInput, *model.TurnResult]
	sessions    *conversations.SessionManager
	turnTimeout time.Duration
}

// Invoke runs one turn. Turns for the same session are serialized: the
// per-session lock is held for the whole load-think-act-save cycle so
// concurrent requests cannot interleave their state updates.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	unlock := r.sessions.Lock(in.SessionID)
	defer unlock()

	if r.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.turnTimeout)
		defer cancel()
	}

	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// BuildBaristaGraph composes the chat model and session manager, builds the
// graph, and returns a Runner.
func BuildBaristaGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.SessionRepo == nil {
		return nil, fmt.Errorf("session repo is nil")
	}

	turnTimeout, err := time.ParseDuration(cfg.Conversation.TurnTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid turn timeout %q: %w", cfg.Conversation.TurnTimeout, err)
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Barista: &cfg.BaristaModel,
	})
	if err != nil {
		return nil, err
	}

	sessions := conversations.NewSessionManager(cfg.SessionRepo)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		BaristaModel:     cms.Barista,
		BaristaModelName: cms.BaristaModelName,
		Sessions:         sessions,
		PromptConfig:     &cfg.Prompt,
		ToolMaxCalls:     cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Barista graph built successfully")
	return &graphRunner{runnable: runnable, sessions: sessions, turnTimeout: turnTimeout}, nil
}

// BuildGraph constructs and returns the compiled barista graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.BaristaModel == nil {
		return nil, fmt.Errorf("barista model is not initialized")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("session manager is nil")
	}
	if config.PromptConfig == nil {
		return nil, fmt.Errorf("prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the full tool catalog to the barista model and wires the
// stateless executor node. Order tools are declared to the model here but run
// in the order executor node, which owns the session's order state.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	statelessTools := tools.GetStatelessTools()
	toolInfos, err := tools.GetToolInfos(ctx, statelessTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}
	toolInfos = append(toolInfos, tools.StatefulToolInfos()...)

	bound, err := b.config.BaristaModel.WithTools(toolInfos)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to barista model")
		return fmt.Errorf("failed to bind tools to barista model: %w", err)
	}
	b.config.BaristaModel = bound

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               statelessTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("Unknown tool: %s", name), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeSessionLoader,
		nodes.NewSessionLoaderNode(b.config.Sessions, b.config.PromptConfig),
		compose.WithStatePreHandler(nodes.NewSessionLoaderPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeBaristaChatModel,
		b.config.BaristaModel,
		compose.WithStatePreHandler(nodes.NewBaristaChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewBaristaChatModelPostHandler(b.config.BaristaModelName)),
	)

	b.graph.AddLambdaNode(nodes.NodeOrderExecutor,
		nodes.NewOrderExecutorNode(),
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	b.graph.AddLambdaNode(nodes.NodeFinalizer,
		nodes.NewFinalizerNode(b.config.Sessions),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeSessionLoader},
		{nodes.NodeSessionLoader, nodes.NodeBaristaChatModel},
		{nodes.NodeOrderExecutor, nodes.NodeBaristaChatModel},
		{nodes.NodeToolExecutor, nodes.NodeBaristaChatModel},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewBaristaRouteCondition(),
		map[string]bool{
			nodes.NodeFinalizer:     true,
			nodes.NodeOrderExecutor: true,
			nodes.NodeToolExecutor:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeBaristaChatModel, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding barista route branch")
		return fmt.Errorf("error adding barista route branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
