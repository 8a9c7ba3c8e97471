// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package query

const painlessLang = "painless"

// leafKind selects the wire clause a leaf condition compiles to. The boosted
// shape differs per kind, so Build switches on it.
type leafKind string

const (
	kindTerm     leafKind = "term"
	kindTerms    leafKind = "terms"
	kindMatch    leafKind = "match"
	kindRegexp   leafKind = "regexp"
	kindWildcard leafKind = "wildcard"
	kindPrefix   leafKind = "prefix"
	kindExists   leafKind = "exists"
)

// leaf is a single-clause condition on one field.
type leaf struct {
	kind  leafKind
	field string
	value interface{}
	boost *float64
}

var _ Condition = (*leaf)(nil)

// Term matches documents whose field holds exactly the given value.
func Term(field string, value interface{}) Condition {
	return &leaf{kind: kindTerm, field: field, value: value}
}

// Terms matches documents whose field holds any of the given values.
func Terms(field string, values ...interface{}) Condition {
	copied := make([]interface{}, len(values))
	copy(copied, values)
	return &leaf{kind: kindTerms, field: field, value: copied}
}

// Match runs the engine's analyzed full-text match on the field.
func Match(field, text string) Condition {
	return &leaf{kind: kindMatch, field: field, value: text}
}

// Regexp matches the field against a regular expression.
func Regexp(field, pattern string) Condition {
	return &leaf{kind: kindRegexp, field: field, value: pattern}
}

// Wildcard matches the field against a pattern with * and ? placeholders.
func Wildcard(field, pattern string) Condition {
	return &leaf{kind: kindWildcard, field: field, value: pattern}
}

// Prefix matches documents whose field starts with the given string.
func Prefix(field, prefix string) Condition {
	return &leaf{kind: kindPrefix, field: field, value: prefix}
}

// Exists matches documents where the field has any non-null value.
func Exists(field string) Condition {
	return &leaf{kind: kindExists, field: field}
}

func (l *leaf) Build() (map[string]interface{}, error) {
	if l.kind == kindExists {
		inner := map[string]interface{}{"field": l.field}
		if l.boost != nil {
			inner["boost"] = *l.boost
		}
		return map[string]interface{}{string(kindExists): inner}, nil
	}

	if l.boost == nil {
		return map[string]interface{}{
			string(l.kind): map[string]interface{}{l.field: l.value},
		}, nil
	}

	var inner map[string]interface{}
	switch l.kind {
	case kindMatch:
		inner = map[string]interface{}{
			l.field: map[string]interface{}{"query": l.value, "boost": *l.boost},
		}
	case kindTerms:
		inner = map[string]interface{}{l.field: l.value, "boost": *l.boost}
	default:
		inner = map[string]interface{}{
			l.field: map[string]interface{}{"value": l.value, "boost": *l.boost},
		}
	}
	return map[string]interface{}{string(l.kind): inner}, nil
}

func (l *leaf) Boost(factor float64) Condition {
	out := *l
	out.boost = &factor
	return &out
}

func (l *leaf) And(other Condition) Condition { return leafAnd(l, other) }
func (l *leaf) Or(other Condition) Condition  { return leafOr(l, other) }
func (l *leaf) Not() Condition                { return &BoolCondition{mustNot: []Condition{l}} }

// script is a condition evaluated by a stored-script predicate.
type script struct {
	source string
	boost  *float64
}

var _ Condition = (*script)(nil)

// Script matches documents for which the given painless expression is true.
func Script(source string) Condition {
	return &script{source: source}
}

func (s *script) Build() (map[string]interface{}, error) {
	inner := map[string]interface{}{
		"script": map[string]interface{}{
			"source": s.source,
			"lang":   painlessLang,
		},
	}
	if s.boost != nil {
		inner["boost"] = *s.boost
	}
	return map[string]interface{}{"script": inner}, nil
}

func (s *script) Boost(factor float64) Condition {
	out := *s
	out.boost = &factor
	return &out
}

func (s *script) And(other Condition) Condition { return leafAnd(s, other) }
func (s *script) Or(other Condition) Condition  { return leafOr(s, other) }
func (s *script) Not() Condition                { return &BoolCondition{mustNot: []Condition{s}} }
