package rules

import (
	"context"
	"fmt"
	"strings"
)

// Rule is one stored validation rule. Field names a numeric attribute of
// the posting subject; the rule triggers when the comparison holds.
type Rule struct {
	ID       int64
	Name     string
	Event    Event
	Action   Action
	Field    string
	Operator string
	Value    float64
	Message  string
	IsActive bool
}

// Fields rules may inspect.
const (
	FieldGrandTotal = "grand_total"
	FieldLineCount  = "line_count"
	FieldStockLines = "has_stock_lines"
	FieldPartySet   = "party_set"
)

// Matches evaluates the rule's condition against the subject. Unknown
// fields or operators never match; a broken rule must not block postings.
func (r Rule) Matches(subject Subject) bool {
	var actual float64
	switch r.Field {
	case FieldGrandTotal:
		actual = subject.GrandTotal
	case FieldLineCount:
		actual = float64(subject.LineCount)
	case FieldStockLines:
		if subject.HasStockLines {
			actual = 1
		}
	case FieldPartySet:
		if subject.PartyID != nil && *subject.PartyID != 0 {
			actual = 1
		}
	default:
		return false
	}

	switch strings.ToLower(r.Operator) {
	case "gt", ">":
		return actual > r.Value
	case "ge", ">=":
		return actual >= r.Value
	case "lt", "<":
		return actual < r.Value
	case "le", "<=":
		return actual <= r.Value
	case "eq", "=", "==":
		return actual == r.Value
	case "ne", "!=":
		return actual != r.Value
	default:
		return false
	}
}

// RuleSource loads active rules for an event.
type RuleSource interface {
	ActiveRules(ctx context.Context, event Event) ([]Rule, error)
}

// Engine evaluates stored rules against posting subjects.
type Engine struct {
	source RuleSource
}

// NewEngine constructs the rule engine.
func NewEngine(source RuleSource) *Engine {
	return &Engine{source: source}
}

// Evaluate implements Validator.
func (e *Engine) Evaluate(ctx context.Context, event Event, subject Subject) ([]Result, error) {
	if e == nil || e.source == nil {
		return nil, nil
	}
	rules, err := e.source.ActiveRules(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("rules: load for %s: %w", event, err)
	}
	var results []Result
	for _, rule := range rules {
		if !rule.IsActive || !rule.Matches(subject) {
			continue
		}
		results = append(results, Result{
			RuleName: rule.Name,
			Action:   rule.Action,
			Message:  rule.Message,
		})
	}
	return results, nil
}
