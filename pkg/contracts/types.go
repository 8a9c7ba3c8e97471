// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package contracts

import (
	"encoding/json"
	"time"
)

// Row is a single document reshaped into a map. Nested namespaces stay nested;
// use FlattenRow to collapse them into dot-joined column names.
type Row = map[string]interface{}

// Metadata keys injected into rows when the corresponding collect option is set.
const (
	ScoreColumn = "_score"
	IDColumn    = "_id"
)

// CollectOptions configures how a dataframe materializes its matching rows.
type CollectOptions struct {
	// Fields restricts the document source to the given dot-joined paths.
	Fields []string

	// Limit overrides the dataframe limit for this collect only. Zero means
	// use the dataframe limit, or scan everything when none is set.
	Limit int

	// PreserveOrder keeps relevance ordering during a full scan. Slower,
	// since the unordered scan sorts by document id.
	PreserveOrder bool

	// IncludeScore requests score tracking and adds a "_score" key per row.
	IncludeScore bool

	// IncludeID adds a "_id" key per row.
	IncludeID bool
}

// SearchOptions carries per-request knobs for the executor.
type SearchOptions struct {
	// Size caps the number of hits returned. Nil leaves the engine default.
	Size *int

	// Source restricts returned document fields.
	Source []string

	// Scroll opens a scroll context with the given keep-alive when non-zero.
	Scroll time.Duration
}

// SearchResponse mirrors the engine's search reply envelope.
type SearchResponse struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	ScrollID     string                     `json:"_scroll_id,omitempty"`
	Hits         HitsResult                 `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
}

// HitsResult is the hits section of a search reply.
type HitsResult struct {
	Total    HitsTotal `json:"total"`
	MaxScore *float64  `json:"max_score"`
	Hits     []Hit     `json:"hits"`
}

// HitsTotal is the total section of a search reply.
type HitsTotal struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// Hit is a single search hit.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// Document is the engine's reply to a single-document lookup.
type Document struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// CountResponse is the engine's reply to a count request.
type CountResponse struct {
	Count int64 `json:"count"`
}

// MappingProperty is one node of an index mapping. Leaves carry a type,
// inner nodes carry child properties.
type MappingProperty struct {
	Type       string                     `json:"type,omitempty"`
	Properties map[string]MappingProperty `json:"properties,omitempty"`
}

// IndexInfo describes one index of the cluster.
type IndexInfo struct {
	Name      string `json:"index"`
	Health    string `json:"health"`
	Status    string `json:"status"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
}

// BulkDoc is a single document for a bulk index request.
type BulkDoc struct {
	ID     string
	Source interface{}
}

// ValueCount is one bucket of a value-counts aggregation. Fraction is only
// populated when normalization was requested.
type ValueCount struct {
	Key      interface{}
	Count    int64
	Fraction float64
}

// OtherBucketKey is the synthetic key appended when buckets beyond the
// requested size hold a non-zero document count.
const OtherBucketKey = "OTHER"

// Percentile is one keyed percentile result.
type Percentile struct {
	Percent float64
	Value   float64
}

// HistogramBin is one bucket of a histogram aggregation. Range carries the
// half-open interval label, e.g. "[50, 100)".
type HistogramBin struct {
	Range string
	Lower float64
	Count int64
}

// Stats holds the result of a describe aggregation. The extended fields are
// populated only when extended statistics were requested.
type Stats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`

	SumOfSquares      float64 `json:"sum_of_squares"`
	Variance          float64 `json:"variance"`
	StdDeviation      float64 `json:"std_deviation"`
	StdDeviationBounds struct {
		Upper float64 `json:"upper"`
		Lower float64 `json:"lower"`
	} `json:"std_deviation_bounds"`
}
