// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package contracts

import (
	"context"
	"time"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/juvoinc/bamboo/pkg/query"
)

// IDataFrame is a lazy view over one index. Filtering operations return new
// frames and never touch the cluster; only the terminal operations (Collect,
// Count, Take, aggregations) execute requests.
type IDataFrame interface {
	// Index returns the name of the index the frame is bound to.
	Index() string

	// Where returns a copy of the frame with the condition AND-ed into its
	// query.
	Where(condition query.Condition) IDataFrame

	// Filter returns a copy of the frame with the conditions appended to the
	// query's filter context. Filter clauses match without contributing to
	// relevance scores.
	Filter(conditions ...query.Condition) IDataFrame

	// And combines the queries of two frames over the same index.
	And(other IDataFrame) IDataFrame

	// Or combines the queries of two frames over the same index.
	Or(other IDataFrame) IDataFrame

	// Not returns a copy of the frame with its query inverted. Fails with
	// ErrMissingQuery when no query is set.
	Not() (IDataFrame, error)

	// Limit returns a copy of the frame capped to n rows. A zero cap is
	// valid and collects no rows.
	Limit(n int) IDataFrame

	// Query returns the frame's current query condition, or nil.
	Query() query.Condition

	// Body compiles the frame into the search body it would execute.
	Body() (map[string]interface{}, error)

	// Collect executes the frame and returns all matching rows. Without a
	// limit the frame is drained through a scroll scan.
	Collect(ctx context.Context, options *CollectOptions) ([]Row, error)

	// CollectAsync streams matching rows on a channel. The error channel
	// yields at most one error and both channels close when the scan ends.
	CollectAsync(ctx context.Context, options *CollectOptions) (<-chan Row, <-chan error)

	// Take returns up to n rows without altering the frame's limit.
	Take(ctx context.Context, n int, fields ...string) ([]Row, error)

	// Count returns the number of documents matching the frame's query.
	Count(ctx context.Context) (int64, error)

	// Get fetches a single document by id, bypassing the frame's query.
	Get(ctx context.Context, id string, fields ...string) (Row, error)

	// Field resolves a dot-joined path to a typed field handle.
	Field(path string) (IField, error)

	// Namespace resolves a top-level namespace of the mapping.
	Namespace(name string) (INamespace, error)

	// Fields lists the names of the mapping's root-level leaf fields.
	Fields() []string

	// Namespaces lists the top-level namespaces of the mapping.
	Namespaces() []string

	// Dtypes returns the mapping as a nested path -> type tree.
	Dtypes() map[string]interface{}

	// ToArrow executes the frame and converts the rows to a flat Arrow
	// record with dot-joined column names.
	ToArrow(ctx context.Context, options *CollectOptions) (arrow.Record, error)
}

// INamespace is a non-leaf node of an index mapping.
type INamespace interface {
	// Name returns the namespace's own name.
	Name() string

	// Path returns the dot-joined path from the mapping root.
	Path() string

	// Fields lists the names of the namespace's leaf children.
	Fields() []string

	// Namespaces lists the names of the namespace's nested namespaces.
	Namespaces() []string

	// Field resolves a direct leaf child.
	Field(name string) (IField, error)

	// Namespace resolves a direct nested namespace.
	Namespace(name string) (INamespace, error)

	// Exists matches documents holding any value under the namespace.
	Exists() query.Condition

	// Not returns a handle whose own conditions are inverted.
	Not() INamespace
}

// IField is a typed handle on one leaf field of an index mapping. Condition
// builders are pure; aggregations execute against the frame the handle was
// resolved from. Operators that the field's mapped type does not support
// yield conditions that fail at compile time with a BadOperatorError.
type IField interface {
	// Name returns the dot-joined path of the field.
	Name() string

	// Dtype returns the mapped value type of the field.
	Dtype() string

	// Not returns a handle whose conditions are inverted.
	Not() IField

	// Exists matches documents where the field has any value.
	Exists() query.Condition

	Eq(value interface{}) query.Condition
	Neq(value interface{}) query.Condition
	IsIn(values ...interface{}) query.Condition

	// Range comparisons, valid for numeric and date fields.
	Lt(value interface{}) query.Condition
	Lte(value interface{}) query.Condition
	Gt(value interface{}) query.Condition
	Gte(value interface{}) query.Condition

	// Text operators, valid for string fields.
	Match(text string) query.Condition
	Regexp(pattern string) query.Condition
	Contains(substring string) query.Condition
	StartsWith(prefix string) query.Condition
	EndsWith(suffix string) query.Condition

	// Age reinterprets a date field as an age in whole days.
	Age() IAgeField

	// ValueCounts buckets the field's values by document count, most
	// frequent first.
	ValueCounts(ctx context.Context, options *ValueCountsOptions) ([]ValueCount, error)

	// NUnique approximates the number of distinct values. A zero
	// precisionThreshold uses DefaultPrecisionThreshold.
	NUnique(ctx context.Context, precisionThreshold int) (int64, error)

	Avg(ctx context.Context) (float64, error)
	Min(ctx context.Context) (float64, error)
	Max(ctx context.Context) (float64, error)
	Sum(ctx context.Context, options *SumOptions) (float64, error)

	// Date metric variants, decoding the engine's epoch-millis values.
	AvgTime(ctx context.Context) (time.Time, error)
	MinTime(ctx context.Context) (time.Time, error)
	MaxTime(ctx context.Context) (time.Time, error)

	Percentiles(ctx context.Context, options *PercentilesOptions) ([]Percentile, error)
	PercentileRanks(ctx context.Context, options *PercentileRanksOptions) ([]Percentile, error)

	// Describe returns summary statistics for the field.
	Describe(ctx context.Context, options *DescribeOptions) (*Stats, error)

	Histogram(ctx context.Context, options *HistogramOptions) ([]HistogramBin, error)
	MedianAbsoluteDeviation(ctx context.Context, options *DeviationOptions) (float64, error)
}

// IAgeField builds conditions over a date field expressed as an age in days.
// Comparisons are flipped internally: an age of at least n days means a date
// at or before n days ago.
type IAgeField interface {
	Eq(days int) query.Condition
	Neq(days int) query.Condition
	Lt(days int) query.Condition
	Lte(days int) query.Condition
	Gt(days int) query.Condition
	Gte(days int) query.Condition
}

// DefaultPrecisionThreshold is the cardinality precision used when none is
// given.
const DefaultPrecisionThreshold = 3000

// ValueCountsOptions configures a value-counts aggregation.
type ValueCountsOptions struct {
	// Size caps the number of buckets. Zero means 10.
	Size int

	// Missing substitutes a value for documents lacking the field.
	Missing interface{}

	// Normalize reports bucket fractions of the total document count.
	Normalize bool
}

// SumOptions configures a sum aggregation.
type SumOptions struct {
	Missing interface{}
}

// PercentilesOptions configures a percentiles aggregation.
type PercentilesOptions struct {
	// Percents overrides the engine's default percentile set.
	Percents []float64

	// Compression tunes the tdigest accuracy/memory trade-off. Zero means
	// 100.
	Compression float64

	// Missing substitutes a value for documents lacking the field.
	Missing interface{}
}

// PercentileRanksOptions configures a percentile_ranks aggregation.
type PercentileRanksOptions struct {
	// Values are the probed values; at least one is required.
	Values []float64

	// Compression tunes the tdigest accuracy/memory trade-off. Zero means
	// 100.
	Compression float64

	// Missing substitutes a value for documents lacking the field.
	Missing interface{}
}

// DescribeOptions configures a stats aggregation.
type DescribeOptions struct {
	// Extended adds variance, squared sums and deviation bounds.
	Extended bool

	// Missing substitutes a value for documents lacking the field.
	Missing interface{}
}

// HistogramOptions configures a histogram aggregation.
type HistogramOptions struct {
	// Interval is the bin width. Zero means 50.
	Interval float64

	// MinDocCount drops bins below the threshold. Defaults to 1 so empty
	// bins are omitted.
	MinDocCount *int

	// Missing substitutes a value for documents lacking the field.
	Missing interface{}
}

// DeviationOptions configures a median-absolute-deviation aggregation.
type DeviationOptions struct {
	Compression float64
	Missing     interface{}
}
