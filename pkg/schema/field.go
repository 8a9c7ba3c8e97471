// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package schema

import (
	"time"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/query"
)

// Value types a mapped field resolves to.
const (
	DtypeInteger = "integer"
	DtypeFloat   = "float"
	DtypeDecimal = "decimal"
	DtypeBoolean = "boolean"
	DtypeString  = "string"
	DtypeDate    = "date"
	DtypeDummy   = "dummy"
)

// dtypeMapping translates engine mapping types to field dtypes. Unknown
// mapping types fall back to dummy, which still supports equality and
// existence conditions.
var dtypeMapping = map[string]string{
	"integer":      DtypeInteger,
	"long":         DtypeInteger,
	"short":        DtypeInteger,
	"byte":         DtypeInteger,
	"float":        DtypeFloat,
	"double":       DtypeFloat,
	"half_float":   DtypeFloat,
	"scaled_float": DtypeDecimal,
	"boolean":      DtypeBoolean,
	"keyword":      DtypeString,
	"text":         DtypeString,
	"date":         DtypeDate,
}

// Field is a typed handle on one leaf of the mapping. Condition builders are
// pure and respect the handle's inversion flag; operators the dtype does not
// support yield conditions that fail when built.
type Field struct {
	name     string
	parent   *Namespace
	dtype    string
	inverted bool
}

func newField(name string, parent *Namespace, mappingType string) *Field {
	dtype, ok := dtypeMapping[mappingType]
	if !ok {
		dtype = DtypeDummy
	}
	return &Field{name: name, parent: parent, dtype: dtype}
}

// Name returns the dot-joined path of the field.
func (f *Field) Name() string {
	if f.parent == nil || f.parent.name == "" {
		return f.name
	}
	return f.parent.Path() + "." + f.name
}

// Dtype returns the field's value type.
func (f *Field) Dtype() string {
	return f.dtype
}

// Not returns a handle whose conditions are inverted.
func (f *Field) Not() *Field {
	out := *f
	out.inverted = !f.inverted
	return &out
}

// wrap applies the handle's inversion to a built condition.
func (f *Field) wrap(c query.Condition) query.Condition {
	if f.inverted {
		return query.Bool(query.MustNot(c))
	}
	return c
}

func (f *Field) badOperator(op string) query.Condition {
	return query.Invalid(&contracts.BadOperatorError{
		Operator: op,
		Field:    f.Name(),
		Dtype:    f.dtype,
	})
}

func (f *Field) supportsRange() bool {
	switch f.dtype {
	case DtypeInteger, DtypeFloat, DtypeDecimal, DtypeDate:
		return true
	}
	return false
}

// Exists matches documents where the field has any value.
func (f *Field) Exists() query.Condition {
	return f.wrap(query.Exists(f.Name()))
}

// Eq matches documents whose field equals the value exactly.
func (f *Field) Eq(value interface{}) query.Condition {
	return f.wrap(query.Term(f.Name(), value))
}

// Neq matches documents whose field differs from the value. On an inverted
// handle the two negations cancel out.
func (f *Field) Neq(value interface{}) query.Condition {
	c := query.Term(f.Name(), value)
	if f.inverted {
		return c
	}
	return query.Bool(query.MustNot(c))
}

// IsIn matches documents whose field equals any of the values.
func (f *Field) IsIn(values ...interface{}) query.Condition {
	return f.wrap(query.Terms(f.Name(), values...))
}

// Lt matches field values below the given bound.
func (f *Field) Lt(value interface{}) query.Condition {
	if !f.supportsRange() {
		return f.badOperator("lt")
	}
	return f.wrap(query.Range(f.Name()).Lt(value))
}

// Lte matches field values at or below the given bound.
func (f *Field) Lte(value interface{}) query.Condition {
	if !f.supportsRange() {
		return f.badOperator("lte")
	}
	return f.wrap(query.Range(f.Name()).Lte(value))
}

// Gt matches field values above the given bound.
func (f *Field) Gt(value interface{}) query.Condition {
	if !f.supportsRange() {
		return f.badOperator("gt")
	}
	return f.wrap(query.Range(f.Name()).Gt(value))
}

// Gte matches field values at or above the given bound.
func (f *Field) Gte(value interface{}) query.Condition {
	if !f.supportsRange() {
		return f.badOperator("gte")
	}
	return f.wrap(query.Range(f.Name()).Gte(value))
}

// Match runs the engine's analyzed match on a string field.
func (f *Field) Match(text string) query.Condition {
	if f.dtype != DtypeString {
		return f.badOperator("match")
	}
	return f.wrap(query.Match(f.Name(), text))
}

// Regexp matches a string field against a regular expression.
func (f *Field) Regexp(pattern string) query.Condition {
	if f.dtype != DtypeString {
		return f.badOperator("regexp")
	}
	return f.wrap(query.Regexp(f.Name(), pattern))
}

// Contains matches string fields holding the substring. Slower than a match
// on analyzed fields, since it expands to a leading wildcard.
func (f *Field) Contains(substring string) query.Condition {
	if f.dtype != DtypeString {
		return f.badOperator("contains")
	}
	return f.wrap(query.Wildcard(f.Name(), "*"+substring+"*"))
}

// StartsWith matches string fields beginning with the prefix.
func (f *Field) StartsWith(prefix string) query.Condition {
	if f.dtype != DtypeString {
		return f.badOperator("startswith")
	}
	return f.wrap(query.Prefix(f.Name(), prefix))
}

// EndsWith matches string fields ending with the suffix.
func (f *Field) EndsWith(suffix string) query.Condition {
	if f.dtype != DtypeString {
		return f.badOperator("endswith")
	}
	return f.wrap(query.Wildcard(f.Name(), "*"+suffix))
}

// Age reinterprets a date field as an age in whole days since today.
func (f *Field) Age() *AgeField {
	return &AgeField{field: f}
}

// AgeField builds conditions over a date field expressed as an age in days.
// Comparisons flip because a larger age means an earlier date.
type AgeField struct {
	field *Field
}

var _ contracts.IAgeField = (*AgeField)(nil)

// cutoff converts an age in days to the corresponding date.
func (a *AgeField) cutoff(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

func (a *AgeField) check() query.Condition {
	if a.field.dtype != DtypeDate {
		return a.field.badOperator("age")
	}
	return nil
}

// Eq matches dates exactly the given number of days old.
func (a *AgeField) Eq(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Eq(a.cutoff(days))
}

// Neq matches dates not exactly the given number of days old.
func (a *AgeField) Neq(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Neq(a.cutoff(days))
}

// Lt matches ages below the bound, i.e. dates after the cutoff.
func (a *AgeField) Lt(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Gt(a.cutoff(days))
}

// Lte matches ages at or below the bound.
func (a *AgeField) Lte(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Gte(a.cutoff(days))
}

// Gt matches ages above the bound, i.e. dates before the cutoff.
func (a *AgeField) Gt(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Lt(a.cutoff(days))
}

// Gte matches ages at or above the bound.
func (a *AgeField) Gte(days int) query.Condition {
	if bad := a.check(); bad != nil {
		return bad
	}
	return a.field.Lte(a.cutoff(days))
}
