package campaign

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldSource resolves a condition field to its value on a record. Lookup
// precedence is owned by the implementor: the extra-details map is consulted
// before fixed attributes. A missing field yields nil.
type FieldSource interface {
	FieldValue(field string) any
}

// MapSource adapts a plain field map (e.g. an imported, mapped row) to a
// FieldSource.
type MapSource map[string]any

func (m MapSource) FieldValue(field string) any {
	v, ok := m[field]
	if !ok {
		return nil
	}
	return v
}

// Evaluate applies one condition operator to a record field value. A nil
// field value is false for every operator. String operators compare the
// stringified value verbatim and case-sensitively; numeric operators parse
// both sides and treat unparseable or NaN operands as a non-match.
func Evaluate(fieldValue any, op Operator, comparisonValue string) bool {
	if fieldValue == nil {
		return false
	}

	switch op {
	case OpEquals:
		return stringify(fieldValue) == comparisonValue
	case OpNotEquals:
		return stringify(fieldValue) != comparisonValue
	case OpContains:
		return strings.Contains(stringify(fieldValue), comparisonValue)
	case OpNotContains:
		return !strings.Contains(stringify(fieldValue), comparisonValue)
	case OpGreaterThan, OpLessThan:
		left, lok := toFloat(fieldValue)
		right, rok := toFloat(comparisonValue)
		if !lok || !rok || math.IsNaN(left) || math.IsNaN(right) {
			return false
		}
		if op == OpGreaterThan {
			return left > right
		}
		return left < right
	default:
		return false
	}
}

// SatisfiedBy reports whether every condition of the requirement holds for
// the record. An empty condition set is always satisfied.
func (r *GoalRequirement) SatisfiedBy(src FieldSource) bool {
	for _, cond := range r.Conditions {
		if !Evaluate(src.FieldValue(cond.Field), cond.Operator, cond.ComparisonValue) {
			return false
		}
	}
	return true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", v)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}
