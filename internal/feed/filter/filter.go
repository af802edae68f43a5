// Package filter evaluates a configured expression against each fetched item to
// decide whether it proceeds to the dedup and delivery stages.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/oharling/newsrelay/internal/feed"
)

// Action decides what happens to items the rule matches.
type Action string

const (
	// ActionKeep retains only matching items.
	ActionKeep Action = "keep"
	// ActionDrop removes matching items.
	ActionDrop Action = "drop"
)

type Filter struct {
	rule    string
	action  Action
	program *vm.Program
}

// New compiles the rule expression. The expression must evaluate to a bool; it
// sees the item as title/description maps with value and length fields, plus the
// raw url string.
func New(rule string, action Action) (*Filter, error) {
	if rule == "" {
		return nil, fmt.Errorf("filter rule is required")
	}
	switch action {
	case ActionKeep, ActionDrop:
	case "":
		action = ActionDrop
	default:
		return nil, fmt.Errorf("unknown filter action %q", action)
	}
	program, err := expr.Compile(rule, expr.Env(map[string]interface{}{}))
	if err != nil {
		return nil, fmt.Errorf("compile filter rule: %w", err)
	}
	return &Filter{rule: rule, action: action, program: program}, nil
}

// Apply returns the items that survive the rule, preserving input order. An item
// whose evaluation errors is retained; filtering is advisory and must not become
// a second dedup gate.
func (f *Filter) Apply(items []feed.Item) ([]feed.Item, error) {
	kept := make([]feed.Item, 0, len(items))
	for _, item := range items {
		result, err := expr.Run(f.program, filterEnv(item))
		if err != nil {
			kept = append(kept, item)
			continue
		}
		matched, ok := result.(bool)
		if !ok {
			return nil, fmt.Errorf("filter rule %q did not return bool", f.rule)
		}
		if matched == (f.action == ActionKeep) {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func filterEnv(item feed.Item) map[string]interface{} {
	return map[string]interface{}{
		"title": map[string]interface{}{
			"value":  item.Title,
			"length": len(item.Title),
		},
		"description": map[string]interface{}{
			"value":  item.Description,
			"length": len(item.Description),
		},
		"url": item.URL,
	}
}
