// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/schema"
)

const (
	defaultBucketSize     = 10
	defaultHistogramWidth = 50.0
	defaultTDigestComp    = 100.0
	defaultDeviationComp  = 1000.0
)

// fieldHandle binds a schema field to the frame it was resolved from, so
// aggregations execute with the frame's query applied.
type fieldHandle struct {
	*schema.Field
	frame *DataFrame
}

var _ contracts.IField = (*fieldHandle)(nil)

func newFieldHandle(field *schema.Field, frame *DataFrame) *fieldHandle {
	return &fieldHandle{Field: field, frame: frame}
}

// Not returns a handle whose conditions are inverted.
func (h *fieldHandle) Not() contracts.IField {
	return newFieldHandle(h.Field.Not(), h.frame)
}

// Age reinterprets the date field as an age in whole days.
func (h *fieldHandle) Age() contracts.IAgeField {
	return h.Field.Age()
}

// namespaceHandle binds a schema namespace to a frame so resolved fields
// can aggregate.
// schemaNamespace aliases schema.Namespace so it can be embedded without the
// field name colliding with the Namespace method.
type schemaNamespace = schema.Namespace

type namespaceHandle struct {
	*schemaNamespace
	frame *DataFrame
}

var _ contracts.INamespace = (*namespaceHandle)(nil)

func newNamespaceHandle(namespace *schema.Namespace, frame *DataFrame) *namespaceHandle {
	return &namespaceHandle{schemaNamespace: namespace, frame: frame}
}

func (h *namespaceHandle) Field(name string) (contracts.IField, error) {
	resolved, err := h.schemaNamespace.Field(name)
	if err != nil {
		return nil, err
	}
	return newFieldHandle(resolved, h.frame), nil
}

func (h *namespaceHandle) Namespace(name string) (contracts.INamespace, error) {
	resolved, err := h.schemaNamespace.Namespace(name)
	if err != nil {
		return nil, err
	}
	return newNamespaceHandle(resolved, h.frame), nil
}

func (h *namespaceHandle) Not() contracts.INamespace {
	return newNamespaceHandle(h.schemaNamespace.Not(), h.frame)
}

// runAgg executes a single named aggregation over the frame's query and
// returns the raw aggregation result.
func (h *fieldHandle) runAgg(ctx context.Context, name string, agg map[string]interface{}) (json.RawMessage, error) {
	frame := h.frame
	if frame.limit != nil {
		frame.logger.Warn("frame limit is ignored, aggregations run over all matching documents",
			zap.String("index", frame.index),
			zap.String("aggregation", name))
	}

	body, err := frame.Body()
	if err != nil {
		return nil, err
	}
	body["aggs"] = map[string]interface{}{name: agg}

	size := 0
	response, err := frame.executor.Search(ctx, frame.index, body, &contracts.SearchOptions{Size: &size})
	if err != nil {
		return nil, err
	}

	raw, ok := response.Aggregations[name]
	if !ok {
		return nil, fmt.Errorf("aggregation %s missing from response", name)
	}
	return raw, nil
}

func (h *fieldHandle) numericOnly(op string) error {
	switch h.Dtype() {
	case schema.DtypeInteger, schema.DtypeFloat, schema.DtypeDecimal:
		return nil
	}
	return &contracts.BadOperatorError{Operator: op, Field: h.Name(), Dtype: h.Dtype()}
}

func (h *fieldHandle) dateOnly(op string) error {
	if h.Dtype() == schema.DtypeDate {
		return nil
	}
	return &contracts.BadOperatorError{Operator: op, Field: h.Name(), Dtype: h.Dtype()}
}

// metricValue runs a single-value metric and decodes its value.
func (h *fieldHandle) metricValue(ctx context.Context, name string, params map[string]interface{}) (float64, error) {
	body := map[string]interface{}{"field": h.Name()}
	for key, value := range params {
		body[key] = value
	}

	raw, err := h.runAgg(ctx, name, map[string]interface{}{name: body})
	if err != nil {
		return 0, err
	}

	var result struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	if result.Value == nil {
		return 0, fmt.Errorf("%s over field %s matched no values", name, h.Name())
	}
	return *result.Value, nil
}

// ValueCounts buckets the field's values by document count, most frequent
// first. Residual documents beyond the bucket cap are reported under the
// OTHER key.
func (h *fieldHandle) ValueCounts(ctx context.Context, options *contracts.ValueCountsOptions) ([]contracts.ValueCount, error) {
	if options == nil {
		options = &contracts.ValueCountsOptions{}
	}
	size := options.Size
	if size <= 0 {
		size = defaultBucketSize
	}

	terms := map[string]interface{}{
		"field": h.Name(),
		"size":  size,
	}
	if options.Missing != nil {
		terms["missing"] = options.Missing
	}

	raw, err := h.runAgg(ctx, "value_counts", map[string]interface{}{"terms": terms})
	if err != nil {
		return nil, err
	}

	var result struct {
		DocCountErrorUpperBound int64 `json:"doc_count_error_upper_bound"`
		SumOtherDocCount        int64 `json:"sum_other_doc_count"`
		Buckets                 []struct {
			Key      interface{} `json:"key"`
			DocCount int64       `json:"doc_count"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode value_counts result: %w", err)
	}

	if result.DocCountErrorUpperBound > 0 {
		h.frame.logger.Warn("bucket counts are approximate",
			zap.String("field", h.Name()),
			zap.Int64("doc_count_error_upper_bound", result.DocCountErrorUpperBound))
	}

	counts := make([]contracts.ValueCount, 0, len(result.Buckets)+1)
	var total int64
	for _, bucket := range result.Buckets {
		counts = append(counts, contracts.ValueCount{Key: bucket.Key, Count: bucket.DocCount})
		total += bucket.DocCount
	}
	if result.SumOtherDocCount > 0 {
		counts = append(counts, contracts.ValueCount{Key: contracts.OtherBucketKey, Count: result.SumOtherDocCount})
		total += result.SumOtherDocCount
	}

	if options.Normalize && total > 0 {
		for i := range counts {
			counts[i].Fraction = float64(counts[i].Count) / float64(total)
		}
	}
	return counts, nil
}

// NUnique approximates the number of distinct values in the field.
func (h *fieldHandle) NUnique(ctx context.Context, precisionThreshold int) (int64, error) {
	if precisionThreshold <= 0 {
		precisionThreshold = contracts.DefaultPrecisionThreshold
	}

	raw, err := h.runAgg(ctx, "nunique", map[string]interface{}{
		"cardinality": map[string]interface{}{
			"field":               h.Name(),
			"precision_threshold": precisionThreshold,
		},
	})
	if err != nil {
		return 0, err
	}

	var result struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("failed to decode cardinality result: %w", err)
	}
	return result.Value, nil
}

func (h *fieldHandle) Avg(ctx context.Context) (float64, error) {
	if err := h.numericOnly("avg"); err != nil {
		return 0, err
	}
	return h.metricValue(ctx, "avg", nil)
}

func (h *fieldHandle) Min(ctx context.Context) (float64, error) {
	if err := h.numericOnly("min"); err != nil {
		return 0, err
	}
	return h.metricValue(ctx, "min", nil)
}

func (h *fieldHandle) Max(ctx context.Context) (float64, error) {
	if err := h.numericOnly("max"); err != nil {
		return 0, err
	}
	return h.metricValue(ctx, "max", nil)
}

func (h *fieldHandle) Sum(ctx context.Context, options *contracts.SumOptions) (float64, error) {
	if err := h.numericOnly("sum"); err != nil {
		return 0, err
	}
	params := map[string]interface{}{}
	if options != nil && options.Missing != nil {
		params["missing"] = options.Missing
	}
	return h.metricValue(ctx, "sum", params)
}

// Date metric variants. The engine reports date metrics as epoch millis.

func (h *fieldHandle) AvgTime(ctx context.Context) (time.Time, error) {
	return h.timeMetric(ctx, "avg")
}

func (h *fieldHandle) MinTime(ctx context.Context) (time.Time, error) {
	return h.timeMetric(ctx, "min")
}

func (h *fieldHandle) MaxTime(ctx context.Context) (time.Time, error) {
	return h.timeMetric(ctx, "max")
}

func (h *fieldHandle) timeMetric(ctx context.Context, name string) (time.Time, error) {
	if err := h.dateOnly(name); err != nil {
		return time.Time{}, err
	}
	millis, err := h.metricValue(ctx, name, nil)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(millis)).UTC(), nil
}

// Percentiles estimates value percentiles through a tdigest sketch.
func (h *fieldHandle) Percentiles(ctx context.Context, options *contracts.PercentilesOptions) ([]contracts.Percentile, error) {
	if err := h.numericOnly("percentiles"); err != nil {
		return nil, err
	}
	if options == nil {
		options = &contracts.PercentilesOptions{}
	}
	compression := options.Compression
	if compression <= 0 {
		compression = defaultTDigestComp
	}

	agg := map[string]interface{}{
		"field":   h.Name(),
		"keyed":   false,
		"tdigest": map[string]interface{}{"compression": compression},
	}
	if len(options.Percents) > 0 {
		agg["percents"] = options.Percents
	}
	if options.Missing != nil {
		agg["missing"] = options.Missing
	}

	raw, err := h.runAgg(ctx, "percentiles", map[string]interface{}{"percentiles": agg})
	if err != nil {
		return nil, err
	}
	return decodePercentileArray(raw, false)
}

// PercentileRanks reports, for each given value, the percentage of field
// values at or below it.
func (h *fieldHandle) PercentileRanks(ctx context.Context, options *contracts.PercentileRanksOptions) ([]contracts.Percentile, error) {
	if err := h.numericOnly("percentile_ranks"); err != nil {
		return nil, err
	}
	if options == nil || len(options.Values) == 0 {
		return nil, fmt.Errorf("percentile_ranks over field %s needs at least one value", h.Name())
	}
	compression := options.Compression
	if compression <= 0 {
		compression = defaultTDigestComp
	}

	agg := map[string]interface{}{
		"field":   h.Name(),
		"values":  options.Values,
		"keyed":   false,
		"tdigest": map[string]interface{}{"compression": compression},
	}
	if options.Missing != nil {
		agg["missing"] = options.Missing
	}

	raw, err := h.runAgg(ctx, "percentile_ranks", map[string]interface{}{"percentile_ranks": agg})
	if err != nil {
		return nil, err
	}
	return decodePercentileArray(raw, true)
}

// decodePercentileArray decodes an unkeyed percentiles result. For rank
// results the key holds the probed value and the value holds the percent.
func decodePercentileArray(raw json.RawMessage, ranks bool) ([]contracts.Percentile, error) {
	var result struct {
		Values []struct {
			Key   float64 `json:"key"`
			Value float64 `json:"value"`
		} `json:"values"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode percentiles result: %w", err)
	}

	percentiles := make([]contracts.Percentile, len(result.Values))
	for i, entry := range result.Values {
		if ranks {
			percentiles[i] = contracts.Percentile{Percent: entry.Value, Value: entry.Key}
		} else {
			percentiles[i] = contracts.Percentile{Percent: entry.Key, Value: entry.Value}
		}
	}
	return percentiles, nil
}

// Describe returns summary statistics for the field. With Extended set the
// variance, squared sums and deviation bounds are included.
func (h *fieldHandle) Describe(ctx context.Context, options *contracts.DescribeOptions) (*contracts.Stats, error) {
	if err := h.numericOnly("describe"); err != nil {
		return nil, err
	}
	if options == nil {
		options = &contracts.DescribeOptions{}
	}
	name := "stats"
	if options.Extended {
		name = "extended_stats"
	}

	agg := map[string]interface{}{"field": h.Name()}
	if options.Missing != nil {
		agg["missing"] = options.Missing
	}

	raw, err := h.runAgg(ctx, "describe", map[string]interface{}{name: agg})
	if err != nil {
		return nil, err
	}

	var stats contracts.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", name, err)
	}
	return &stats, nil
}

// Histogram bins the field's values into fixed-width ranges.
func (h *fieldHandle) Histogram(ctx context.Context, options *contracts.HistogramOptions) ([]contracts.HistogramBin, error) {
	if h.Dtype() == schema.DtypeDate {
		return nil, fmt.Errorf("histogram over date field %s is not supported", h.Name())
	}
	if err := h.numericOnly("histogram"); err != nil {
		return nil, err
	}
	if options == nil {
		options = &contracts.HistogramOptions{}
	}
	interval := options.Interval
	if interval <= 0 {
		interval = defaultHistogramWidth
	}
	minDocCount := 1
	if options.MinDocCount != nil {
		minDocCount = *options.MinDocCount
	}

	agg := map[string]interface{}{
		"field":         h.Name(),
		"interval":      interval,
		"min_doc_count": minDocCount,
	}
	if options.Missing != nil {
		agg["missing"] = options.Missing
	}

	raw, err := h.runAgg(ctx, "histogram", map[string]interface{}{"histogram": agg})
	if err != nil {
		return nil, err
	}

	var result struct {
		Buckets []struct {
			Key      float64 `json:"key"`
			DocCount int64   `json:"doc_count"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode histogram result: %w", err)
	}

	bins := make([]contracts.HistogramBin, len(result.Buckets))
	for i, bucket := range result.Buckets {
		bins[i] = contracts.HistogramBin{
			Range: fmt.Sprintf("[%g, %g)", bucket.Key, bucket.Key+interval),
			Lower: bucket.Key,
			Count: bucket.DocCount,
		}
	}
	return bins, nil
}

// MedianAbsoluteDeviation estimates the field's spread around its median.
func (h *fieldHandle) MedianAbsoluteDeviation(ctx context.Context, options *contracts.DeviationOptions) (float64, error) {
	if err := h.numericOnly("median_absolute_deviation"); err != nil {
		return 0, err
	}
	if options == nil {
		options = &contracts.DeviationOptions{}
	}
	compression := options.Compression
	if compression <= 0 {
		compression = defaultDeviationComp
	}

	params := map[string]interface{}{"compression": compression}
	if options.Missing != nil {
		params["missing"] = options.Missing
	}
	return h.metricValue(ctx, "median_absolute_deviation", params)
}
