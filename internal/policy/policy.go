// Package policy evaluates the business preconditions of order operations as
// govaluate expressions, so the allowed states can be changed from
// configuration without a rebuild.
package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Knetic/govaluate"
)

// Rule IDs understood by the bridge.
const (
	RuleCancel = "cancel"
	RuleRefund = "refund"
)

// Default expressions. Parameters are lower-cased and trimmed by the caller.
const (
	DefaultCancelExpression = "orderStatus == 'created'"
	DefaultRefundExpression = "paymentStatus == 'approved' || paymentStatus == 'paid'"
)

// Rule is a named boolean expression.
type Rule struct {
	ID         string
	Expression string
}

// Enforcer holds compiled rules keyed by ID.
type Enforcer struct {
	rules map[string]*govaluate.EvaluableExpression
}

// NewEnforcer compiles rules. A later rule with the same ID replaces an earlier one.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	e := &Enforcer{rules: make(map[string]*govaluate.EvaluableExpression, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Expression) == "" {
			return nil, fmt.Errorf("policy rule ID '%s' has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule ID '%s': %w", r.ID, err)
		}
		e.rules[r.ID] = expr
	}
	return e, nil
}

// DefaultRules returns the built-in cancel and refund rules.
func DefaultRules() []Rule {
	return []Rule{
		{ID: RuleCancel, Expression: DefaultCancelExpression},
		{ID: RuleRefund, Expression: DefaultRefundExpression},
	}
}

// WithOverrides returns the default rules with non-blank expressions replacing
// the cancel and refund defaults.
func WithOverrides(cancelExpr, refundExpr string) []Rule {
	rules := DefaultRules()
	if s := strings.TrimSpace(cancelExpr); s != "" {
		rules[0].Expression = s
	}
	if s := strings.TrimSpace(refundExpr); s != "" {
		rules[1].Expression = s
	}
	return rules
}

var defaultEnforcer = sync.OnceValue(func() *Enforcer {
	e, err := NewEnforcer(DefaultRules())
	if err != nil {
		panic(err)
	}
	return e
})

// Default returns the shared enforcer for DefaultRules.
func Default() *Enforcer {
	return defaultEnforcer()
}

// Allows evaluates ruleID with params. Unknown rules, evaluation failures and
// non-boolean results are errors.
func (e *Enforcer) Allows(ruleID string, params map[string]interface{}) (bool, error) {
	expr, ok := e.rules[ruleID]
	if !ok {
		return false, fmt.Errorf("policy: unknown rule ID '%s'", ruleID)
	}
	out, err := expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("policy: evaluating rule ID '%s': %w", ruleID, err)
	}
	allowed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("policy: rule ID '%s' returned %T, want bool", ruleID, out)
	}
	return allowed, nil
}

// Has reports whether a rule is compiled.
func (e *Enforcer) Has(ruleID string) bool {
	_, ok := e.rules[ruleID]
	return ok
}
