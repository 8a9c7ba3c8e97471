// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

// aggFrame wires a frame whose next search returns the given aggregation
// payload under the given name.
func aggFrame(t *testing.T, name, payload string) (*DataFrame, *fakeExecutor) {
	t.Helper()

	executor := &fakeExecutor{
		responses: []*contracts.SearchResponse{{
			Aggregations: map[string]json.RawMessage{
				name: json.RawMessage(payload),
			},
		}},
	}
	return testFrame(t, executor), executor
}

// aggRequest digs the aggregation definition out of the recorded search.
func aggRequest(t *testing.T, executor *fakeExecutor, name string) map[string]interface{} {
	t.Helper()

	require.Len(t, executor.searches, 1)
	call := executor.searches[0]
	require.NotNil(t, call.options.Size)
	assert.Equal(t, 0, *call.options.Size, "aggregations must not fetch hits")

	aggs, ok := call.body["aggs"].(map[string]interface{})
	require.True(t, ok, "body missing aggs: %v", call.body)
	agg, ok := aggs[name].(map[string]interface{})
	require.True(t, ok, "aggs missing %s: %v", name, aggs)
	return agg
}

func TestValueCounts(t *testing.T) {
	df, executor := aggFrame(t, "value_counts", `{
		"doc_count_error_upper_bound": 0,
		"sum_other_doc_count": 5,
		"buckets": [
			{"key": "android", "doc_count": 60},
			{"key": "ios", "doc_count": 35}
		]
	}`)
	name, _ := df.Field("name")

	counts, err := name.ValueCounts(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, counts, 3)
	assert.Equal(t, "android", counts[0].Key)
	assert.Equal(t, int64(60), counts[0].Count)
	assert.Equal(t, contracts.OtherBucketKey, counts[2].Key)
	assert.Equal(t, int64(5), counts[2].Count)

	agg := aggRequest(t, executor, "value_counts")
	terms := agg["terms"].(map[string]interface{})
	assert.Equal(t, "name", terms["field"])
	assert.Equal(t, 10, terms["size"])
}

func TestValueCountsNormalized(t *testing.T) {
	df, _ := aggFrame(t, "value_counts", `{
		"sum_other_doc_count": 0,
		"buckets": [
			{"key": "android", "doc_count": 75},
			{"key": "ios", "doc_count": 25}
		]
	}`)
	name, _ := df.Field("name")

	counts, err := name.ValueCounts(context.Background(), &contracts.ValueCountsOptions{Normalize: true})
	require.NoError(t, err)

	require.Len(t, counts, 2)
	assert.InDelta(t, 0.75, counts[0].Fraction, 1e-9)
	assert.InDelta(t, 0.25, counts[1].Fraction, 1e-9)
}

func TestValueCountsMissingSubstitute(t *testing.T) {
	df, executor := aggFrame(t, "value_counts", `{"buckets": []}`)
	name, _ := df.Field("name")

	_, err := name.ValueCounts(context.Background(), &contracts.ValueCountsOptions{Size: 3, Missing: "unknown"})
	require.NoError(t, err)

	terms := aggRequest(t, executor, "value_counts")["terms"].(map[string]interface{})
	assert.Equal(t, 3, terms["size"])
	assert.Equal(t, "unknown", terms["missing"])
}

func TestNUnique(t *testing.T) {
	df, executor := aggFrame(t, "nunique", `{"value": 12}`)
	name, _ := df.Field("name")

	distinct, err := name.NUnique(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), distinct)

	cardinality := aggRequest(t, executor, "nunique")["cardinality"].(map[string]interface{})
	assert.Equal(t, contracts.DefaultPrecisionThreshold, cardinality["precision_threshold"])
}

func TestAvg(t *testing.T) {
	df, executor := aggFrame(t, "avg", `{"value": 12.5}`)
	balance, _ := df.Field("balance")

	mean, err := balance.Avg(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.5, mean, 1e-9)

	avg := aggRequest(t, executor, "avg")["avg"].(map[string]interface{})
	assert.Equal(t, "balance", avg["field"])
}

func TestAvgRejectsStringField(t *testing.T) {
	df, _ := aggFrame(t, "avg", `{"value": 1}`)
	name, _ := df.Field("name")

	_, err := name.Avg(context.Background())
	var bad *contracts.BadOperatorError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "avg", bad.Operator)
	assert.Equal(t, "name", bad.Field)
}

func TestSumWithMissing(t *testing.T) {
	df, executor := aggFrame(t, "sum", `{"value": 100}`)
	balance, _ := df.Field("balance")

	total, err := balance.Sum(context.Background(), &contracts.SumOptions{Missing: 0})
	require.NoError(t, err)
	assert.InDelta(t, 100, total, 1e-9)

	sum := aggRequest(t, executor, "sum")["sum"].(map[string]interface{})
	assert.Equal(t, 0, sum["missing"])
}

func TestMaxTimeDecodesEpochMillis(t *testing.T) {
	df, _ := aggFrame(t, "max", `{"value": 1262304000000.0}`)
	created, err := df.Field("user.created")
	require.NoError(t, err)

	latest, err := created.MaxTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), latest)
}

func TestMaxTimeRejectsNumericField(t *testing.T) {
	df, _ := aggFrame(t, "max", `{"value": 1}`)
	balance, _ := df.Field("balance")

	_, err := balance.MaxTime(context.Background())
	var bad *contracts.BadOperatorError
	require.ErrorAs(t, err, &bad)
}

func TestPercentiles(t *testing.T) {
	df, executor := aggFrame(t, "percentiles", `{
		"values": [
			{"key": 25.0, "value": 10.0},
			{"key": 50.0, "value": 20.0},
			{"key": 75.0, "value": 40.0}
		]
	}`)
	balance, _ := df.Field("balance")

	percentiles, err := balance.Percentiles(context.Background(), &contracts.PercentilesOptions{
		Percents: []float64{25, 50, 75},
	})
	require.NoError(t, err)

	require.Len(t, percentiles, 3)
	assert.Equal(t, contracts.Percentile{Percent: 50, Value: 20}, percentiles[1])

	agg := aggRequest(t, executor, "percentiles")["percentiles"].(map[string]interface{})
	assert.Equal(t, false, agg["keyed"])
	assert.Equal(t, []float64{25, 50, 75}, agg["percents"])
	tdigest := agg["tdigest"].(map[string]interface{})
	assert.InDelta(t, 100, tdigest["compression"].(float64), 1e-9)
}

func TestPercentileRanks(t *testing.T) {
	df, executor := aggFrame(t, "percentile_ranks", `{
		"values": [
			{"key": 500.0, "value": 55.0}
		]
	}`)
	balance, _ := df.Field("balance")

	ranks, err := balance.PercentileRanks(context.Background(), &contracts.PercentileRanksOptions{
		Values:  []float64{500},
		Missing: 0,
	})
	require.NoError(t, err)

	require.Len(t, ranks, 1)
	assert.InDelta(t, 55, ranks[0].Percent, 1e-9)
	assert.InDelta(t, 500, ranks[0].Value, 1e-9)

	agg := aggRequest(t, executor, "percentile_ranks")["percentile_ranks"].(map[string]interface{})
	assert.Equal(t, false, agg["keyed"])
	assert.Equal(t, []float64{500}, agg["values"])
	assert.Equal(t, 0, agg["missing"])
	tdigest := agg["tdigest"].(map[string]interface{})
	assert.InDelta(t, 100, tdigest["compression"].(float64), 1e-9)
}

func TestPercentileRanksNeedsValues(t *testing.T) {
	df, _ := aggFrame(t, "percentile_ranks", `{}`)
	balance, _ := df.Field("balance")

	_, err := balance.PercentileRanks(context.Background(), nil)
	assert.Error(t, err)

	_, err = balance.PercentileRanks(context.Background(), &contracts.PercentileRanksOptions{})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	df, executor := aggFrame(t, "describe", `{
		"count": 4, "min": 1.0, "max": 10.0, "avg": 5.0, "sum": 20.0
	}`)
	balance, _ := df.Field("balance")

	stats, err := balance.Describe(context.Background(), &contracts.DescribeOptions{Missing: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Count)
	assert.InDelta(t, 5.0, stats.Avg, 1e-9)

	agg := aggRequest(t, executor, "describe")
	require.Contains(t, agg, "stats")
	assert.Equal(t, 0, agg["stats"].(map[string]interface{})["missing"])
}

func TestDescribeExtended(t *testing.T) {
	df, executor := aggFrame(t, "describe", `{
		"count": 4, "min": 1.0, "max": 10.0, "avg": 5.0, "sum": 20.0,
		"sum_of_squares": 126.0, "variance": 11.5, "std_deviation": 3.39,
		"std_deviation_bounds": {"upper": 11.78, "lower": -1.78}
	}`)
	balance, _ := df.Field("balance")

	stats, err := balance.Describe(context.Background(), &contracts.DescribeOptions{Extended: true})
	require.NoError(t, err)
	assert.InDelta(t, 11.5, stats.Variance, 1e-9)
	assert.InDelta(t, 11.78, stats.StdDeviationBounds.Upper, 1e-9)

	agg := aggRequest(t, executor, "describe")
	assert.Contains(t, agg, "extended_stats")
}

func TestHistogram(t *testing.T) {
	df, executor := aggFrame(t, "histogram", `{
		"buckets": [
			{"key": 0.0, "doc_count": 2},
			{"key": 50.0, "doc_count": 7}
		]
	}`)
	balance, _ := df.Field("balance")

	bins, err := balance.Histogram(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, bins, 2)
	assert.Equal(t, contracts.HistogramBin{Range: "[0, 50)", Lower: 0, Count: 2}, bins[0])
	assert.Equal(t, contracts.HistogramBin{Range: "[50, 100)", Lower: 50, Count: 7}, bins[1])

	agg := aggRequest(t, executor, "histogram")["histogram"].(map[string]interface{})
	assert.InDelta(t, 50, agg["interval"].(float64), 1e-9)
	assert.Equal(t, 1, agg["min_doc_count"])
}

func TestHistogramRejectsDateField(t *testing.T) {
	df, _ := aggFrame(t, "histogram", `{}`)
	created, _ := df.Field("user.created")

	_, err := created.Histogram(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestMedianAbsoluteDeviation(t *testing.T) {
	df, executor := aggFrame(t, "median_absolute_deviation", `{"value": 2.5}`)
	balance, _ := df.Field("balance")

	spread, err := balance.MedianAbsoluteDeviation(context.Background(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, spread, 1e-9)

	agg := aggRequest(t, executor, "median_absolute_deviation")["median_absolute_deviation"].(map[string]interface{})
	assert.InDelta(t, 1000, agg["compression"].(float64), 1e-9)
}

func TestAggregationRunsOverFrameQuery(t *testing.T) {
	df, executor := aggFrame(t, "avg", `{"value": 1.0}`)
	name, _ := df.Field("name")

	narrowed := df.Where(name.Eq("jon"))
	scoped, err := narrowed.Field("balance")
	require.NoError(t, err)

	_, err = scoped.Avg(context.Background())
	require.NoError(t, err)

	body := executor.searches[0].body
	query := body["query"].(map[string]interface{})
	assert.Contains(t, query, "term")
}

func TestInvertedFieldHandle(t *testing.T) {
	df := testFrame(t, &fakeExecutor{})
	name, _ := df.Field("name")

	doc, err := name.Not().Eq("jon").Build()
	require.NoError(t, err)

	expected := map[string]interface{}{
		"bool": map[string]interface{}{
			"must_not": []interface{}{
				map[string]interface{}{"term": map[string]interface{}{"name": "jon"}},
			},
		},
	}
	assert.Equal(t, expected, doc)
}

func TestAgeHandleViaFrame(t *testing.T) {
	df := testFrame(t, &fakeExecutor{})
	created, _ := df.Field("user.created")

	doc, err := created.Age().Gte(30).Build()
	require.NoError(t, err)

	bounds := doc["range"].(map[string]interface{})["user.created"].(map[string]interface{})
	cutoff, ok := bounds["lte"].(time.Time)
	require.True(t, ok, "expected a time bound, got %T", bounds["lte"])
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), cutoff, time.Minute)
}
