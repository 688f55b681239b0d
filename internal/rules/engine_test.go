package rules_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(amount string) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:          "tx-1",
		Type:        domain.TransactionTypeBank,
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: "Monthly AWS invoice",
		Reference:   "AWS-2025-03",
		ContactName: "Amazon Web Services",
		AccountCode: "463",
		Status:      domain.TransactionStatusPending,
		Metadata: domain.Metadata{
			"source": domain.StringValue("bank-feed"),
			"vendor": domain.MapValue(map[string]domain.Value{
				"tier": domain.NumberValue(2),
			}),
		},
	}
}

func cond(field string, op domain.Operator, v domain.Value) domain.Condition {
	return domain.Condition{Field: field, Operator: op, Value: v}
}

func TestEvaluateConditions_AmountGreaterThan(t *testing.T) {
	conditions := []domain.Condition{cond("amount", domain.OpGreaterThan, domain.NumberValue(1000))}

	assert.True(t, rules.EvaluateConditions(newRecord("1500"), conditions))
	assert.False(t, rules.EvaluateConditions(newRecord("500"), conditions))
}

func TestEvaluateConditions_EmptyNeverMatches(t *testing.T) {
	assert.False(t, rules.EvaluateConditions(newRecord("1500"), nil))
	assert.False(t, rules.EvaluateConditions(newRecord("1500"), []domain.Condition{}))
}

func TestEvaluate_Operators(t *testing.T) {
	tx := newRecord("-250.50")

	tests := []struct {
		name string
		c    domain.Condition
		want bool
	}{
		{"equals string", cond("accountCode", domain.OpEquals, domain.StringValue("463")), true},
		{"equals wrong kind", cond("accountCode", domain.OpEquals, domain.NumberValue(463)), false},
		{"equals number", cond("amount", domain.OpEquals, domain.NumberValue(-250.5)), true},
		{"notEquals", cond("contactName", domain.OpNotEquals, domain.StringValue("Google")), true},
		{"notEquals on missing field fails", cond("contactId", domain.OpNotEquals, domain.StringValue("x")), false},
		{"contains is case-insensitive", cond("description", domain.OpContains, domain.StringValue("aws")), true},
		{"notContains", cond("description", domain.OpNotContains, domain.StringValue("azure")), true},
		{"startsWith", cond("reference", domain.OpStartsWith, domain.StringValue("aws-")), true},
		{"endsWith", cond("contactName", domain.OpEndsWith, domain.StringValue("SERVICES")), true},
		{"contains on number field fails", cond("amount", domain.OpContains, domain.StringValue("250")), false},
		{"contains with numeric operand fails", cond("description", domain.OpContains, domain.NumberValue(1)), false},
		{"lessThan", cond("amount", domain.OpLessThan, domain.NumberValue(0)), true},
		{"greaterThanOrEqual boundary", cond("amount", domain.OpGreaterThanOrEqual, domain.NumberValue(-250.5)), true},
		{"lessThanOrEqual boundary", cond("amount", domain.OpLessThanOrEqual, domain.NumberValue(-250.5)), true},
		{"numeric op on string field fails", cond("description", domain.OpGreaterThan, domain.NumberValue(1)), false},
		{"in", cond("accountCode", domain.OpIn, domain.ListValue(domain.StringValue("400"), domain.StringValue("463"))), true},
		{"in without array fails", cond("accountCode", domain.OpIn, domain.StringValue("463")), false},
		{"notIn", cond("accountCode", domain.OpNotIn, domain.ListValue(domain.StringValue("400"))), true},
		{"notIn without array fails", cond("accountCode", domain.OpNotIn, domain.StringValue("400")), false},
		{"metadata key", cond("metadata.source", domain.OpEquals, domain.StringValue("bank-feed")), true},
		{"nested metadata key", cond("metadata.vendor.tier", domain.OpGreaterThan, domain.NumberValue(1)), true},
		{"missing metadata key", cond("metadata.missing", domain.OpEquals, domain.StringValue("x")), false},
		{"unknown field", cond("colour", domain.OpEquals, domain.StringValue("red")), false},
		{"unknown operator", cond("description", domain.Operator("matches"), domain.StringValue(".*")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Evaluate(tx, tt.c))
		})
	}
}

func TestEvaluateConditions_AllMustHold(t *testing.T) {
	conditions := []domain.Condition{
		cond("description", domain.OpContains, domain.StringValue("aws")),
		cond("amount", domain.OpGreaterThan, domain.NumberValue(1000)),
	}

	assert.True(t, rules.EvaluateConditions(newRecord("1200"), conditions))
	assert.False(t, rules.EvaluateConditions(newRecord("900"), conditions))
}

func TestFindMatchingRule_LowestPriorityWins(t *testing.T) {
	matchAll := []domain.Condition{cond("amount", domain.OpGreaterThan, domain.NumberValue(0))}
	ruleSet := []domain.CategoryRule{
		{ID: "r-100", Priority: 100, CategoryID: "cat-b", Conditions: matchAll},
		{ID: "r-10", Priority: 10, CategoryID: "cat-a", Conditions: matchAll},
		{ID: "r-50", Priority: 50, CategoryID: "cat-c", Conditions: []domain.Condition{
			cond("amount", domain.OpLessThan, domain.NumberValue(0)),
		}},
	}

	rule, ok := rules.FindMatchingRule(newRecord("1500"), ruleSet)
	require.True(t, ok)
	assert.Equal(t, "r-10", rule.ID)

	// input slice is left untouched
	assert.Equal(t, "r-100", ruleSet[0].ID)
}

func TestFindMatchingRule_NoMatch(t *testing.T) {
	ruleSet := []domain.CategoryRule{
		{ID: "empty", Priority: 1},
		{ID: "neg", Priority: 2, Conditions: []domain.Condition{cond("amount", domain.OpLessThan, domain.NumberValue(0))}},
	}

	rule, ok := rules.FindMatchingRule(newRecord("10"), ruleSet)
	assert.False(t, ok)
	assert.Nil(t, rule)
}

func TestValidateConditions(t *testing.T) {
	valid := []domain.Condition{
		cond("description", domain.OpContains, domain.StringValue("rent")),
		cond("amount", domain.OpLessThan, domain.NumberValue(0)),
		cond("metadata.source", domain.OpIn, domain.ListValue(domain.StringValue("bank-feed"))),
	}
	require.NoError(t, rules.ValidateConditions(valid))

	invalid := map[string][]domain.Condition{
		"empty":            nil,
		"unknown field":    {cond("colour", domain.OpEquals, domain.StringValue("red"))},
		"bare metadata":    {cond("metadata.", domain.OpEquals, domain.StringValue("x"))},
		"unknown operator": {cond("amount", domain.Operator("between"), domain.NumberValue(1))},
		"numeric operand":  {cond("amount", domain.OpGreaterThan, domain.StringValue("1000"))},
		"string operand":   {cond("description", domain.OpStartsWith, domain.NumberValue(1))},
		"list operand":     {cond("accountCode", domain.OpNotIn, domain.StringValue("400"))},
		"missing value":    {cond("accountCode", domain.OpEquals, domain.Value{})},
	}
	for name, conditions := range invalid {
		t.Run(name, func(t *testing.T) {
			err := rules.ValidateConditions(conditions)
			var verr *domain.ErrValidation
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestConditionsFromJSON(t *testing.T) {
	raw := `[{"field":"amount","operator":"greaterThan","value":1000},
	         {"field":"accountCode","operator":"in","value":["463","464"]}]`

	var conditions []domain.Condition
	require.NoError(t, json.Unmarshal([]byte(raw), &conditions))
	require.NoError(t, rules.ValidateConditions(conditions))

	assert.True(t, rules.EvaluateConditions(newRecord("1500"), conditions))
}
