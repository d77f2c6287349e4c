package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/barista-agent-poc/server/internal/agent/order"
)

// GetStatelessTools returns the tools executed by the generic tool node.
// Stateful order tools are declared to the model via StatefulToolInfos but
// executed by the order node, which owns the session's order state.
func GetStatelessTools() []tool.BaseTool {
	return []tool.BaseTool{
		createGetMenuTool(),
	}
}

// GetToolInfos extracts ToolInfo from each tool for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// StatefulToolInfos declares the order-mutating tools to the model.
func StatefulToolInfos() []*schema.ToolInfo {
	noParams := schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{})

	return []*schema.ToolInfo{
		{
			Name: order.ToolAddToOrder,
			Desc: "Add an item to the customer's order.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"item": {
					Type:     "string",
					Desc:     `The item to add, including any modifiers (e.g., "Latte with oat milk").`,
					Required: true,
				},
			}),
		},
		{
			Name:        order.ToolGetOrder,
			Desc:        "Get the current order.",
			ParamsOneOf: noParams,
		},
		{
			Name:        order.ToolConfirmOrder,
			Desc:        "Show the order to the customer and ask for confirmation before placing.",
			ParamsOneOf: noParams,
		},
		{
			Name:        order.ToolPlaceOrder,
			Desc:        "Place the final order after the customer confirms.",
			ParamsOneOf: noParams,
		},
		{
			Name:        order.ToolClearOrder,
			Desc:        "Clear all items from the current order.",
			ParamsOneOf: noParams,
		},
		{
			Name:        order.ToolCalculateTotal,
			Desc:        "Calculate the total price of the current order with a per-item breakdown.",
			ParamsOneOf: noParams,
		},
	}
}
