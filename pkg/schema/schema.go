// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

// Package schema turns an index mapping into a tree of typed field handles.
// The tree is pure: resolving namespaces and building conditions never talks
// to the cluster.
package schema

import (
	"sort"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/query"
)

// reservedRootNames are dataframe attribute names a mapping's root-level
// fields may not shadow.
var reservedRootNames = map[string]struct{}{
	"index":      {},
	"fields":     {},
	"namespaces": {},
	"dtypes":     {},
	"collect":    {},
	"filter":     {},
	"limit":      {},
	"count":      {},
	"take":       {},
	"get":        {},
	"body":       {},
	"query":      {},
	"execute":    {},
}

// Schema is the parsed mapping of one index.
type Schema struct {
	index string
	root  *Namespace
}

// Parse builds a schema from the mapping properties of an index.
func Parse(index string, properties map[string]contracts.MappingProperty) (*Schema, error) {
	if len(properties) == 0 {
		return nil, &contracts.MissingMappingError{Index: index}
	}

	root := newNamespace("", nil)
	for name, definition := range properties {
		if _, reserved := reservedRootNames[name]; reserved {
			return nil, &contracts.FieldConflictError{Field: name}
		}
		// A root property carrying both a type and nested properties would
		// answer to the same name as a field and as a namespace.
		if definition.Type != "" && definition.Properties != nil {
			return nil, &contracts.FieldConflictError{Field: name}
		}
	}
	parseProperties(root, properties)
	return &Schema{index: index, root: root}, nil
}

func parseProperties(ns *Namespace, properties map[string]contracts.MappingProperty) {
	for name, definition := range properties {
		if definition.Type != "" {
			ns.fields[name] = newField(name, ns, definition.Type)
		}
		if definition.Properties != nil {
			child := newNamespace(name, ns)
			parseProperties(child, definition.Properties)
			ns.namespaces[name] = child
		}
	}
}

// Index returns the name of the index the schema was parsed from.
func (s *Schema) Index() string {
	return s.index
}

// Fields lists the mapping's root-level leaf fields.
func (s *Schema) Fields() []string {
	return s.root.Fields()
}

// Namespaces lists the mapping's root-level namespaces.
func (s *Schema) Namespaces() []string {
	return s.root.Namespaces()
}

// Dtypes returns the mapping as a nested name -> dtype tree.
func (s *Schema) Dtypes() map[string]interface{} {
	return s.root.dtypes()
}

// Namespace resolves a root-level namespace by name.
func (s *Schema) Namespace(name string) (*Namespace, error) {
	ns, ok := s.root.namespaces[name]
	if !ok {
		return nil, &contracts.UnknownFieldError{Index: s.index, Path: name}
	}
	return ns, nil
}

// Field resolves a dot-joined path to a leaf field handle.
func (s *Schema) Field(path string) (*Field, error) {
	ns := s.root
	rest := path
	for {
		head, tail, nested := cutPath(rest)
		if !nested {
			break
		}
		child, ok := ns.namespaces[head]
		if !ok {
			return nil, &contracts.UnknownFieldError{Index: s.index, Path: path}
		}
		ns = child
		rest = tail
	}
	f, ok := ns.fields[rest]
	if !ok {
		return nil, &contracts.UnknownFieldError{Index: s.index, Path: path}
	}
	return f, nil
}

func cutPath(path string) (head, tail string, nested bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}

// Namespace is a non-leaf mapping node holding fields and nested namespaces.
type Namespace struct {
	name       string
	parent     *Namespace
	inverted   bool
	fields     map[string]*Field
	namespaces map[string]*Namespace
}

func newNamespace(name string, parent *Namespace) *Namespace {
	return &Namespace{
		name:       name,
		parent:     parent,
		fields:     map[string]*Field{},
		namespaces: map[string]*Namespace{},
	}
}

// Name returns the namespace's own name.
func (n *Namespace) Name() string {
	return n.name
}

// Path returns the dot-joined path from the mapping root.
func (n *Namespace) Path() string {
	if n.parent == nil || n.parent.name == "" {
		return n.name
	}
	return n.parent.Path() + "." + n.name
}

// Fields lists the names of the namespace's leaf children, sorted.
func (n *Namespace) Fields() []string {
	out := make([]string, 0, len(n.fields))
	for name := range n.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Namespaces lists the names of the nested namespaces, sorted.
func (n *Namespace) Namespaces() []string {
	out := make([]string, 0, len(n.namespaces))
	for name := range n.namespaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Field resolves a direct leaf child.
func (n *Namespace) Field(name string) (*Field, error) {
	f, ok := n.fields[name]
	if !ok {
		return nil, &contracts.UnknownFieldError{Path: n.childPath(name)}
	}
	return f, nil
}

// Namespace resolves a direct nested namespace.
func (n *Namespace) Namespace(name string) (*Namespace, error) {
	ns, ok := n.namespaces[name]
	if !ok {
		return nil, &contracts.UnknownFieldError{Path: n.childPath(name)}
	}
	return ns, nil
}

func (n *Namespace) childPath(name string) string {
	if p := n.Path(); p != "" {
		return p + "." + name
	}
	return name
}

// Exists matches documents holding any value under the namespace. Respects
// inversion set via Not.
func (n *Namespace) Exists() query.Condition {
	c := query.Exists(n.Path())
	if n.inverted {
		return query.Bool(query.MustNot(c))
	}
	return c
}

// Not returns a handle whose own conditions are inverted. Child fields
// resolved through the handle are not affected.
func (n *Namespace) Not() *Namespace {
	out := *n
	out.inverted = !n.inverted
	return &out
}

func (n *Namespace) dtypes() map[string]interface{} {
	out := make(map[string]interface{}, len(n.fields)+len(n.namespaces))
	for name, f := range n.fields {
		out[name] = f.dtype
	}
	for name, ns := range n.namespaces {
		out[name] = ns.dtypes()
	}
	return out
}
