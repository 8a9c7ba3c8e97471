// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

func TestToArrowBuildsFlatRecord(t *testing.T) {
	executor := &fakeExecutor{
		responses: []*contracts.SearchResponse{{
			Hits: contracts.HitsResult{Hits: []contracts.Hit{
				hit("a1", 0, `{"name": "jon", "balance": 10.5, "user": {"age": 30}}`),
				hit("a2", 0, `{"name": "ann", "user": {"age": 25, "created": "2020-01-01"}}`),
			}},
		}},
	}
	df := testFrame(t, executor)

	record, err := df.Limit(2).ToArrow(context.Background(), nil)
	require.NoError(t, err)
	defer record.Release()

	assert.Equal(t, int64(2), record.NumRows())

	recordSchema := record.Schema()
	columns := make(map[string]int)
	for i, field := range recordSchema.Fields() {
		columns[field.Name] = i
	}
	require.Len(t, columns, 4)

	names := record.Column(columns["name"]).(*array.String)
	assert.Equal(t, "jon", names.Value(0))
	assert.Equal(t, "ann", names.Value(1))

	balances := record.Column(columns["balance"]).(*array.Float64)
	assert.InDelta(t, 10.5, balances.Value(0), 1e-9)
	assert.True(t, balances.IsNull(1), "missing balance must be null")

	ages := record.Column(columns["user.age"]).(*array.Int64)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, recordSchema.Field(columns["user.age"]).Type)
	assert.Equal(t, int64(30), ages.Value(0))

	created := record.Column(columns["user.created"])
	assert.True(t, created.IsNull(0))
	assert.False(t, created.IsNull(1))
	assert.Equal(t, arrow.FixedWidthTypes.Timestamp_ms, recordSchema.Field(columns["user.created"]).Type)
}

func TestToArrowSyntheticColumns(t *testing.T) {
	executor := &fakeExecutor{
		responses: []*contracts.SearchResponse{{
			Hits: contracts.HitsResult{Hits: []contracts.Hit{
				hit("a1", 1.5, `{"name": "jon"}`),
			}},
		}},
	}
	df := testFrame(t, executor)

	record, err := df.Limit(1).ToArrow(context.Background(), &contracts.CollectOptions{
		IncludeScore: true,
		IncludeID:    true,
	})
	require.NoError(t, err)
	defer record.Release()

	columns := make(map[string]int)
	for i, field := range record.Schema().Fields() {
		columns[field.Name] = i
	}

	scores := record.Column(columns[contracts.ScoreColumn]).(*array.Float64)
	assert.InDelta(t, 1.5, scores.Value(0), 1e-9)

	ids := record.Column(columns[contracts.IDColumn]).(*array.String)
	assert.Equal(t, "a1", ids.Value(0))
}

func TestToArrowEmptyResult(t *testing.T) {
	executor := &fakeExecutor{
		responses: []*contracts.SearchResponse{{}},
	}
	df := testFrame(t, executor)

	record, err := df.Limit(1).ToArrow(context.Background(), nil)
	require.NoError(t, err)
	defer record.Release()

	assert.Equal(t, int64(0), record.NumRows())
	assert.Equal(t, 0, len(record.Schema().Fields()))
}
