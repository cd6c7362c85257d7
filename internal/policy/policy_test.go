package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnforcer_EmptyAndNilRules(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)
	assert.Empty(t, e.rules)

	e, err = NewEnforcer([]Rule{})
	require.NoError(t, err)
	assert.Empty(t, e.rules)
}

func TestNewEnforcer_CompilationError(t *testing.T) {
	rules := []Rule{
		{ID: RuleCancel, Expression: "orderStatus == 'created'"},
		{ID: RuleRefund, Expression: "paymentStatus =="},
	}
	_, err := NewEnforcer(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile rule ID 'refund'")
	assert.Contains(t, err.Error(), "Unexpected end of expression")
}

func TestNewEnforcer_UndefinedFunction(t *testing.T) {
	_, err := NewEnforcer([]Rule{{ID: "bad_func", Expression: "isPaid(paymentStatus)"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile rule ID 'bad_func'")
	assert.Contains(t, err.Error(), "Undefined function isPaid")
}

func TestNewEnforcer_EmptyExpression(t *testing.T) {
	_, err := NewEnforcer([]Rule{{ID: "empty_expr_rule", Expression: "  "}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy rule ID 'empty_expr_rule' has an empty expression")
}

func TestDefault_CancelRule(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"created", true},
		{"processing", false},
		{"expired", false},
		{"canceled", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			allowed, err := Default().Allows(RuleCancel, map[string]interface{}{"orderStatus": tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestDefault_RefundRule(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"approved", true},
		{"paid", true},
		{"pending", false},
		{"rejected", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			allowed, err := Default().Allows(RuleRefund, map[string]interface{}{"paymentStatus": tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestEnforcer_Allows_Errors(t *testing.T) {
	e, err := NewEnforcer([]Rule{
		{ID: "missing_param_rule", Expression: "undefinedParam == 'x'"},
		{ID: "not_bool", Expression: "amount + 1"},
	})
	require.NoError(t, err)

	t.Run("UnknownRule", func(t *testing.T) {
		_, err := e.Allows(RuleCancel, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown rule ID 'cancel'")
	})

	t.Run("ParameterNotFound", func(t *testing.T) {
		_, err := e.Allows("missing_param_rule", map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No parameter 'undefinedParam' found.")
	})

	t.Run("NonBooleanResult", func(t *testing.T) {
		_, err := e.Allows("not_bool", map[string]interface{}{"amount": 1.0})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want bool")
	})
}

func TestWithOverrides(t *testing.T) {
	rules := WithOverrides(" orderStatus == 'created' || orderStatus == 'action_required' ", "")
	require.Len(t, rules, 2)
	assert.Equal(t, "orderStatus == 'created' || orderStatus == 'action_required'", rules[0].Expression)
	assert.Equal(t, DefaultRefundExpression, rules[1].Expression)

	e, err := NewEnforcer(rules)
	require.NoError(t, err)
	assert.True(t, e.Has(RuleCancel))

	allowed, err := e.Allows(RuleCancel, map[string]interface{}{"orderStatus": "action_required"})
	require.NoError(t, err)
	assert.True(t, allowed)
}
