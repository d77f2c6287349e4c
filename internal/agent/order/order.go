package order

import (
	"fmt"
	"strings"
)

// Tool names the barista model may request against the order state.
const (
	ToolAddToOrder     = "add_to_order"
	ToolGetOrder       = "get_order"
	ToolConfirmOrder   = "confirm_order"
	ToolPlaceOrder     = "place_order"
	ToolClearOrder     = "clear_order"
	ToolCalculateTotal = "calculate_total"
)

// ToolKind is the closed set of stateful order operations.
type ToolKind int

const (
	ToolUnknown ToolKind = iota
	ToolKindAddItem
	ToolKindListOrder
	ToolKindConfirmOrder
	ToolKindPlaceOrder
	ToolKindClearOrder
	ToolKindCalculateTotal
)

// KindOf maps a requested tool name onto the closed enumeration.
func KindOf(name string) ToolKind {
	switch name {
	case ToolAddToOrder:
		return ToolKindAddItem
	case ToolGetOrder:
		return ToolKindListOrder
	case ToolConfirmOrder:
		return ToolKindConfirmOrder
	case ToolPlaceOrder:
		return ToolKindPlaceOrder
	case ToolClearOrder:
		return ToolKindClearOrder
	case ToolCalculateTotal:
		return ToolKindCalculateTotal
	default:
		return ToolUnknown
	}
}

// IsStateful reports whether the tool name belongs to the order dispatcher.
func IsStateful(name string) bool {
	return KindOf(name) != ToolUnknown
}

// Invocation is one tool call requested by the model. CallID pairs the
// invocation with the tool-result message it produces.
type Invocation struct {
	Name   string
	Args   map[string]any
	CallID string
}

// State holds one session's order: free-text lines in insertion order plus
// the placed flag. Only Dispatch mutates it.
type State struct {
	Lines    []string
	Finished bool
}

// Dispatch executes one invocation against the order and returns the
// human-readable tool result. Domain-invalid actions (placing an empty order,
// unknown tool names) produce normal conversational responses, never errors;
// only infrastructure failures abort a turn.
//
// Finished is touched exclusively by place_order, so when several invocations
// arrive in one assistant turn the last place_order outcome wins and other
// tools in between leave the flag alone.
func (s *State) Dispatch(inv Invocation) string {
	switch KindOf(inv.Name) {
	case ToolKindAddItem:
		item := stringArg(inv.Args, "item")
		s.Lines = append(s.Lines, item)
		return fmt.Sprintf("Added '%s' to your order.", item)

	case ToolKindListOrder:
		if len(s.Lines) == 0 {
			return "Your order is empty."
		}
		return "Current order:\n" + itemList(s.Lines)

	case ToolKindConfirmOrder:
		if len(s.Lines) == 0 {
			return "Order is empty, nothing to confirm."
		}
		total := TotalOf(s.Lines)
		return fmt.Sprintf("Here's your order:\n%s\n\nTotal: $%.2f\n\nIs this correct?", itemList(s.Lines), total)

	case ToolKindPlaceOrder:
		if len(s.Lines) == 0 {
			s.Finished = false
			return "Cannot place empty order."
		}
		s.Finished = true
		return fmt.Sprintf("Order placed! Your total is $%.2f. Thank you for your order!", TotalOf(s.Lines))

	case ToolKindClearOrder:
		s.Lines = nil
		return "Order cleared. Starting fresh!"

	case ToolKindCalculateTotal:
		if len(s.Lines) == 0 {
			return "Order is empty. Total: $0.00"
		}
		var b strings.Builder
		b.WriteString("Order breakdown:\n")
		total := 0.0
		for i, line := range s.Lines {
			price := PriceOf(line)
			total += price
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "  - %s: $%.2f", line, price)
		}
		fmt.Fprintf(&b, "\n\nTotal: $%.2f", total)
		return b.String()

	default:
		return fmt.Sprintf("Unknown tool: %s", inv.Name)
	}
}

func itemList(lines []string) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = "  - " + line
	}
	return strings.Join(parts, "\n")
}

// stringArg fetches a string argument, coercing non-string values instead of
// failing the turn on a malformed tool call.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
