// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package bamboo

import (
	"go.uber.org/zap"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/internal"
	"github.com/juvoinc/bamboo/pkg/schema"
)

// NewDataFrame builds a dataframe from an already known mapping, without
// fetching it from the cluster. Useful for building queries offline and
// for tests.
func NewDataFrame(index string, properties map[string]contracts.MappingProperty, executor contracts.IExecutor, logger *zap.Logger) (contracts.IDataFrame, error) {
	parsed, err := schema.Parse(index, properties)
	if err != nil {
		return nil, err
	}
	return internal.NewDataFrame(index, parsed, executor, logger), nil
}

// FlattenRow rewrites nested row objects into dot-joined top-level keys.
func FlattenRow(row contracts.Row) contracts.Row {
	return internal.FlattenRow(row)
}
