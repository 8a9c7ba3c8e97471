// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by connections and dataframes.
var (
	// ErrConnectionClosed is returned when an operation is attempted on a
	// connection that has already been closed.
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrMissingQuery is returned when an operation requires a query to be
	// defined on the dataframe and none is (e.g. inverting an unfiltered frame).
	ErrMissingQuery = errors.New("no query defined on dataframe")

	// ErrNotFound is returned when a document lookup by id finds nothing.
	ErrNotFound = errors.New("document not found")
)

// BadOperatorError indicates an operator was applied to a field whose mapped
// type does not support it (e.g. a range comparison on a boolean field).
type BadOperatorError struct {
	Operator string
	Field    string
	Dtype    string
}

func (e *BadOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported for %s field %q", e.Operator, e.Dtype, e.Field)
}

// FieldConflictError indicates an index mapping declares a top-level field
// whose name collides with a reserved dataframe attribute, or with a
// namespace of the same name.
type FieldConflictError struct {
	Field string
}

func (e *FieldConflictError) Error() string {
	return fmt.Sprintf("field %q conflicts with an existing dataframe attribute", e.Field)
}

// MissingMappingError indicates the index mapping carries no properties, so no
// schema can be derived for it.
type MissingMappingError struct {
	Index string
}

func (e *MissingMappingError) Error() string {
	return fmt.Sprintf("index %q has no mapping properties", e.Index)
}

// UnknownFieldError indicates a field or namespace path does not exist in the
// index mapping.
type UnknownFieldError struct {
	Index string
	Path  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("index %q has no field or namespace %q", e.Index, e.Path)
}

// TransportError wraps a non-2xx response from the search cluster.
type TransportError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
