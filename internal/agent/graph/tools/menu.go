package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/order"
)

// ===================================
// Menu Tool (stateless)
// ===================================

const ToolGetMenu = "get_menu"

// menuTool implements tool.InvokableTool directly so the result is the plain
// catalog text, the same shape the order tools produce, rather than a
// JSON-wrapped struct.
type menuTool struct{}

func (menuTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        ToolGetMenu,
		Desc:        "Get the coffee shop menu with drinks, food, and modifiers. Use this tool whenever the customer asks what's available or what something costs.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

func (menuTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	return order.Menu, nil
}

func createGetMenuTool() tool.BaseTool {
	return menuTool{}
}
