// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package query

import "errors"

// ErrEmptyBool is returned when a compound condition with no clauses is built.
var ErrEmptyBool = errors.New("bool condition has no clauses")

// clause names, in the canonical order they appear in compiled documents.
const (
	clauseMust    = "must"
	clauseFilter  = "filter"
	clauseShould  = "should"
	clauseMustNot = "must_not"
)

var clauseOrder = []string{clauseMust, clauseFilter, clauseShould, clauseMustNot}

// BoolCondition is the compound node of the algebra: conjunction via must
// and filter, disjunction via should, negation via must_not. Clause order
// within each list is preserved through every transformation.
type BoolCondition struct {
	must    []Condition
	filter  []Condition
	should  []Condition
	mustNot []Condition
	boost   *float64
}

var _ Condition = (*BoolCondition)(nil)

// BoolClause populates one clause list of a compound condition.
type BoolClause func(*BoolCondition)

// Must adds clauses that all matching documents must satisfy.
func Must(conditions ...Condition) BoolClause {
	return func(b *BoolCondition) { b.must = append(b.must, conditions...) }
}

// Filter adds clauses that must match without contributing to scores.
func Filter(conditions ...Condition) BoolClause {
	return func(b *BoolCondition) { b.filter = append(b.filter, conditions...) }
}

// Should adds clauses of which at least one must match.
func Should(conditions ...Condition) BoolClause {
	return func(b *BoolCondition) { b.should = append(b.should, conditions...) }
}

// MustNot adds clauses that matching documents must not satisfy.
func MustNot(conditions ...Condition) BoolClause {
	return func(b *BoolCondition) { b.mustNot = append(b.mustNot, conditions...) }
}

// Bool builds a compound condition from clause lists:
//
//	query.Bool(query.Must(a, b), query.MustNot(c))
func Bool(clauses ...BoolClause) *BoolCondition {
	b := &BoolCondition{}
	for _, clause := range clauses {
		clause(b)
	}
	return b
}

func (b *BoolCondition) clauses(name string) []Condition {
	switch name {
	case clauseMust:
		return b.must
	case clauseFilter:
		return b.filter
	case clauseShould:
		return b.should
	default:
		return b.mustNot
	}
}

// explode flattens the condition relative to a destination clause: the
// destination's own clauses pass through unchanged and every other populated
// clause list is re-wrapped as a single-clause compound. This keeps
// conjunction and disjunction from nesting one level per combinator.
func (b *BoolCondition) explode(dest string) []Condition {
	out := append([]Condition{}, b.clauses(dest)...)
	for _, name := range clauseOrder {
		if name == dest {
			continue
		}
		list := b.clauses(name)
		if len(list) == 0 {
			continue
		}
		wrapped := &BoolCondition{}
		switch name {
		case clauseMust:
			wrapped.must = append([]Condition{}, list...)
		case clauseFilter:
			wrapped.filter = append([]Condition{}, list...)
		case clauseShould:
			wrapped.should = append([]Condition{}, list...)
		default:
			wrapped.mustNot = append([]Condition{}, list...)
		}
		out = append(out, wrapped)
	}
	return out
}

// And returns the conjunction of both operands, flattened into a single
// must list.
func (b *BoolCondition) And(other Condition) Condition {
	ob := asBool(other)
	return &BoolCondition{must: append(b.explode(clauseMust), ob.explode(clauseMust)...)}
}

// Or returns the disjunction of both operands, flattened into a single
// should list.
func (b *BoolCondition) Or(other Condition) Condition {
	ob := asBool(other)
	return &BoolCondition{should: append(b.explode(clauseShould), ob.explode(clauseShould)...)}
}

// Not inverts the condition by De Morgan's laws: should clauses negate into
// must, must and filter clauses negate into should, and must_not clauses
// move to must unchanged. Inverting twice restores the original document.
func (b *BoolCondition) Not() Condition {
	out := &BoolCondition{}
	for _, s := range b.should {
		out.must = append(out.must, negate(s))
	}
	out.must = append(out.must, b.mustNot...)
	for _, m := range b.must {
		out.should = append(out.should, negate(m))
	}
	for _, f := range b.filter {
		out.should = append(out.should, negate(f))
	}
	return out
}

// Merge concatenates the clause lists of both operands pairwise. Non-compound
// operands are treated as single-must compounds. Unlike And, Merge keeps
// filter clauses in the filter context.
func Merge(a, b Condition) Condition {
	ab, bb := asBool(a), asBool(b)
	return &BoolCondition{
		must:    concat(ab.must, bb.must),
		filter:  concat(ab.filter, bb.filter),
		should:  concat(ab.should, bb.should),
		mustNot: concat(ab.mustNot, bb.mustNot),
	}
}

func concat(a, b []Condition) []Condition {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	return append(append([]Condition{}, a...), b...)
}

func asBool(c Condition) *BoolCondition {
	if b, ok := c.(*BoolCondition); ok {
		return b
	}
	return &BoolCondition{must: []Condition{c}}
}

func (b *BoolCondition) populated() int {
	n := 0
	for _, name := range clauseOrder {
		if len(b.clauses(name)) > 0 {
			n++
		}
	}
	return n
}

// Build compiles the condition. A compound holding exactly one must clause
// and nothing else collapses to that clause's document, with any boost pushed
// down onto it.
func (b *BoolCondition) Build() (map[string]interface{}, error) {
	populated := b.populated()
	if populated == 0 {
		return nil, ErrEmptyBool
	}

	if populated == 1 && len(b.must) == 1 {
		inner := b.must[0]
		if b.boost != nil {
			inner = inner.Boost(*b.boost)
		}
		return inner.Build()
	}

	params := make(map[string]interface{}, 5)
	for _, name := range clauseOrder {
		list := b.clauses(name)
		if len(list) == 0 {
			continue
		}
		docs := make([]interface{}, len(list))
		for i, c := range list {
			doc, err := c.Build()
			if err != nil {
				return nil, err
			}
			docs[i] = doc
		}
		params[name] = docs
	}
	if b.boost != nil {
		params["boost"] = *b.boost
	}
	return map[string]interface{}{"bool": params}, nil
}

func (b *BoolCondition) Boost(factor float64) Condition {
	out := *b
	out.boost = &factor
	return &out
}
