// Package rules evaluates categorization rules against transaction records.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// EvaluateConditions reports whether every condition holds for tx. An empty
// condition list never matches.
func EvaluateConditions(tx *domain.TransactionRecord, conditions []domain.Condition) bool {
	if len(conditions) == 0 {
		return false
	}
	for _, c := range conditions {
		if !Evaluate(tx, c) {
			return false
		}
	}
	return true
}

// Evaluate checks a single condition. Type mismatches, missing fields and
// unknown operators all fail closed.
func Evaluate(tx *domain.TransactionRecord, c domain.Condition) bool {
	field, ok := ResolveField(tx, c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case domain.OpEquals:
		return field.Equal(c.Value)
	case domain.OpNotEquals:
		return !field.Equal(c.Value)
	case domain.OpContains, domain.OpNotContains, domain.OpStartsWith, domain.OpEndsWith:
		return compareStrings(c.Operator, field, c.Value)
	case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
		return compareNumbers(c.Operator, field, c.Value)
	case domain.OpIn:
		list, ok := c.Value.List()
		return ok && contains(list, field)
	case domain.OpNotIn:
		list, ok := c.Value.List()
		return ok && !contains(list, field)
	}
	return false
}

func compareStrings(op domain.Operator, field, operand domain.Value) bool {
	s, ok := field.Str()
	if !ok {
		return false
	}
	want, ok := operand.Str()
	if !ok {
		return false
	}
	s, want = strings.ToLower(s), strings.ToLower(want)

	switch op {
	case domain.OpContains:
		return strings.Contains(s, want)
	case domain.OpNotContains:
		return !strings.Contains(s, want)
	case domain.OpStartsWith:
		return strings.HasPrefix(s, want)
	case domain.OpEndsWith:
		return strings.HasSuffix(s, want)
	}
	return false
}

func compareNumbers(op domain.Operator, field, operand domain.Value) bool {
	n, ok := field.Num()
	if !ok {
		return false
	}
	want, ok := operand.Num()
	if !ok {
		return false
	}

	switch op {
	case domain.OpGreaterThan:
		return n > want
	case domain.OpLessThan:
		return n < want
	case domain.OpGreaterThanOrEqual:
		return n >= want
	case domain.OpLessThanOrEqual:
		return n <= want
	}
	return false
}

func contains(list []domain.Value, v domain.Value) bool {
	for _, item := range list {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

// FindMatchingRule returns the first rule, by ascending priority, whose
// conditions all hold. Rules with equal priority keep their input order.
func FindMatchingRule(tx *domain.TransactionRecord, rules []domain.CategoryRule) (*domain.CategoryRule, bool) {
	ordered := make([]domain.CategoryRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for i := range ordered {
		if EvaluateConditions(tx, ordered[i].Conditions) {
			rule := ordered[i]
			return &rule, true
		}
	}
	return nil, false
}

// ValidateConditions rejects conditions that could never evaluate
// meaningfully: empty lists, unknown fields or operators and operands of
// the wrong shape.
func ValidateConditions(conditions []domain.Condition) error {
	if len(conditions) == 0 {
		return &domain.ErrValidation{Field: "conditions", Message: "at least one condition is required"}
	}
	for i, c := range conditions {
		field := fmt.Sprintf("conditions[%d]", i)
		if !KnownField(c.Field) {
			return &domain.ErrValidation{Field: field + ".field", Message: fmt.Sprintf("unknown field %q", c.Field)}
		}
		switch c.Operator {
		case domain.OpEquals, domain.OpNotEquals:
			if c.Value.IsNull() {
				return &domain.ErrValidation{Field: field + ".value", Message: "value is required"}
			}
		case domain.OpContains, domain.OpNotContains, domain.OpStartsWith, domain.OpEndsWith:
			if _, ok := c.Value.Str(); !ok {
				return &domain.ErrValidation{Field: field + ".value", Message: fmt.Sprintf("%s expects a string", c.Operator)}
			}
		case domain.OpGreaterThan, domain.OpLessThan, domain.OpGreaterThanOrEqual, domain.OpLessThanOrEqual:
			if _, ok := c.Value.Num(); !ok {
				return &domain.ErrValidation{Field: field + ".value", Message: fmt.Sprintf("%s expects a number", c.Operator)}
			}
		case domain.OpIn, domain.OpNotIn:
			if _, ok := c.Value.List(); !ok {
				return &domain.ErrValidation{Field: field + ".value", Message: fmt.Sprintf("%s expects an array", c.Operator)}
			}
		default:
			return &domain.ErrValidation{Field: field + ".operator", Message: fmt.Sprintf("unknown operator %q", c.Operator)}
		}
	}
	return nil
}
