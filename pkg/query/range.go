// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package query

import "fmt"

// RangeCondition matches documents whose field falls inside an interval.
// Bound setters return copies, so a partially built range can be shared and
// specialized along different branches.
type RangeCondition struct {
	field     string
	operators map[string]interface{}
	boost     *float64
}

var _ Condition = (*RangeCondition)(nil)

// Range starts a range condition on the given field. At least one bound must
// be set before the condition is built.
func Range(field string) *RangeCondition {
	return &RangeCondition{field: field}
}

// Gt bounds the range to values strictly greater than v.
func (r *RangeCondition) Gt(v interface{}) *RangeCondition { return r.with("gt", v) }

// Gte bounds the range to values greater than or equal to v.
func (r *RangeCondition) Gte(v interface{}) *RangeCondition { return r.with("gte", v) }

// Lt bounds the range to values strictly less than v.
func (r *RangeCondition) Lt(v interface{}) *RangeCondition { return r.with("lt", v) }

// Lte bounds the range to values less than or equal to v.
func (r *RangeCondition) Lte(v interface{}) *RangeCondition { return r.with("lte", v) }

func (r *RangeCondition) with(op string, v interface{}) *RangeCondition {
	operators := make(map[string]interface{}, len(r.operators)+1)
	for k, val := range r.operators {
		operators[k] = val
	}
	operators[op] = v
	return &RangeCondition{field: r.field, operators: operators, boost: r.boost}
}

func (r *RangeCondition) Build() (map[string]interface{}, error) {
	if len(r.operators) == 0 {
		return nil, fmt.Errorf("range condition on field %q has no bounds", r.field)
	}
	inner := make(map[string]interface{}, len(r.operators)+1)
	for k, v := range r.operators {
		inner[k] = v
	}
	if r.boost != nil {
		inner["boost"] = *r.boost
	}
	return map[string]interface{}{
		"range": map[string]interface{}{r.field: inner},
	}, nil
}

func (r *RangeCondition) Boost(factor float64) Condition {
	out := &RangeCondition{field: r.field, operators: r.operators, boost: &factor}
	return out
}

func (r *RangeCondition) And(other Condition) Condition { return leafAnd(r, other) }
func (r *RangeCondition) Or(other Condition) Condition  { return leafOr(r, other) }
func (r *RangeCondition) Not() Condition                { return &BoolCondition{mustNot: []Condition{r}} }
