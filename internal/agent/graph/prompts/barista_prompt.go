package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/graph/tools"
	"github.com/barista-agent-poc/server/internal/agent/model"
	"github.com/barista-agent-poc/server/internal/agent/order"
)

//go:embed template/barista_prompt.txt
var baristaSystemPrompt string

// RenderBaristaSystem renders the barista persona prompt via the Eino prompt
// component (Go template) to both format and emit prompt callbacks.
func RenderBaristaSystem(ctx context.Context, config *model.PromptConfig) (string, error) {
	if config == nil {
		return "", fmt.Errorf("prompt config is nil")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(baristaSystemPrompt),
	)
	vars := map[string]any{
		"ShopName":    config.ShopName,
		"MenuTool":    tools.ToolGetMenu,
		"AddItemTool": order.ToolAddToOrder,
		"ConfirmTool": order.ToolConfirmOrder,
		"PlaceTool":   order.ToolPlaceOrder,
		"TotalTool":   order.ToolCalculateTotal,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("barista prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("barista prompt render: empty result")
	}
	return msgs[0].Content, nil
}
