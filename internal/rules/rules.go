package rules

import (
	"context"
	"time"
)

// Event names the lifecycle point a rule runs at.
type Event string

const (
	EventBeforeSave   Event = "before_save"
	EventBeforeUpdate Event = "before_update"
)

// Action is the effect a triggered rule has on the posting.
type Action string

const (
	// ActionBlock rejects the voucher outright.
	ActionBlock Action = "BLOCK"
	// ActionWarn lets the voucher through but surfaces the message.
	ActionWarn Action = "WARN"
	// ActionAutoCorrect records that the rule adjusted the input.
	ActionAutoCorrect Action = "AUTO_CORRECT"
)

// Result is one triggered rule outcome.
type Result struct {
	RuleName string `json:"rule_name"`
	Action   Action `json:"action"`
	Message  string `json:"message"`
}

// Subject carries the voucher fields rules inspect. It is a snapshot;
// rules must not mutate it.
type Subject struct {
	VoucherTypeID int64
	PartyID       *int64
	Date          time.Time
	GrandTotal    float64
	LineCount     int
	HasStockLines bool
}

// Validator evaluates business rules for a voucher at one event.
type Validator interface {
	Evaluate(ctx context.Context, event Event, subject Subject) ([]Result, error)
}

// Func adapts a plain function to Validator.
type Func func(ctx context.Context, event Event, subject Subject) ([]Result, error)

// Evaluate implements Validator.
func (f Func) Evaluate(ctx context.Context, event Event, subject Subject) ([]Result, error) {
	return f(ctx, event, subject)
}

// Nop triggers no rules. It is the default when no rule engine is wired.
type Nop struct{}

// Evaluate implements Validator.
func (Nop) Evaluate(context.Context, Event, Subject) ([]Result, error) {
	return nil, nil
}

// Blocking reports whether any result blocks the posting.
func Blocking(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Action == ActionBlock {
			return r, true
		}
	}
	return Result{}, false
}
