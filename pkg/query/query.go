// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

// Package query implements a composable condition algebra that compiles to
// the search engine's query DSL.
//
// Conditions are immutable values. Combinators (And, Or, Not, Boost) return
// new conditions and never modify their operands, so a condition can be
// reused across any number of dataframes. Nothing touches the network here:
// Build is a pure function from a condition tree to the JSON-shaped
// map[string]interface{} the engine expects.
package query

// Condition is a single node of a query expression tree.
type Condition interface {
	// Build compiles the condition into its wire document. Building the
	// same condition twice yields equal documents.
	Build() (map[string]interface{}, error)

	// Boost returns a copy of the condition weighted by the given factor.
	Boost(factor float64) Condition

	// And returns a condition matching documents that satisfy both operands.
	And(other Condition) Condition

	// Or returns a condition matching documents that satisfy either operand.
	Or(other Condition) Condition

	// Not returns the logical inverse of the condition.
	Not() Condition
}

// Invalid returns a condition that fails with err when built. Typed field
// handles use it to defer operator/type mismatches to compile time while
// keeping the builder API chainable.
func Invalid(err error) Condition {
	return &invalidCondition{err: err}
}

type invalidCondition struct {
	err error
}

func (c *invalidCondition) Build() (map[string]interface{}, error) { return nil, c.err }
func (c *invalidCondition) Boost(float64) Condition                { return c }
func (c *invalidCondition) And(Condition) Condition                { return c }
func (c *invalidCondition) Or(Condition) Condition                 { return c }
func (c *invalidCondition) Not() Condition                         { return c }

// negate inverts a single clause. Compound conditions invert structurally,
// anything else is wrapped in a must_not.
func negate(c Condition) Condition {
	if b, ok := c.(*BoolCondition); ok {
		return b.Not()
	}
	return &BoolCondition{mustNot: []Condition{c}}
}

// leafAnd implements conjunction for non-bool conditions.
func leafAnd(self, other Condition) Condition {
	if b, ok := other.(*BoolCondition); ok {
		return (&BoolCondition{must: []Condition{self}}).And(b)
	}
	return &BoolCondition{must: []Condition{self, other}}
}

// leafOr implements disjunction for non-bool conditions.
func leafOr(self, other Condition) Condition {
	if b, ok := other.(*BoolCondition); ok {
		return (&BoolCondition{should: []Condition{self}}).Or(b)
	}
	return &BoolCondition{should: []Condition{self, other}}
}
