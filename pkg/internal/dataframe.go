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
	"github.com/juvoinc/bamboo/pkg/query"
	"github.com/juvoinc/bamboo/pkg/schema"
)

// DataFrame is an immutable view over an index. Refinement methods return
// copies; the receiver is never modified.
type DataFrame struct {
	index    string
	schema   *schema.Schema
	executor contracts.IExecutor
	logger   *zap.Logger

	query query.Condition
	limit *int
}

var _ contracts.IDataFrame = (*DataFrame)(nil)

// NewDataFrame binds a parsed schema to an executor.
func NewDataFrame(index string, parsed *schema.Schema, executor contracts.IExecutor, logger *zap.Logger) *DataFrame {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataFrame{
		index:    index,
		schema:   parsed,
		executor: executor,
		logger:   logger,
	}
}

func (df *DataFrame) clone() *DataFrame {
	copied := *df
	return &copied
}

// Index returns the index name the frame reads from.
func (df *DataFrame) Index() string {
	return df.index
}

// Query returns the accumulated condition, or nil when unrestricted.
func (df *DataFrame) Query() query.Condition {
	return df.query
}

// Where returns a copy of the frame narrowed by a scoring condition.
func (df *DataFrame) Where(condition query.Condition) contracts.IDataFrame {
	copied := df.clone()
	if copied.query == nil {
		copied.query = condition
	} else {
		copied.query = copied.query.And(condition)
	}
	return copied
}

// Filter returns a copy narrowed by conditions in filter context. Filtered
// conditions do not contribute to relevance scores and are cacheable.
func (df *DataFrame) Filter(conditions ...query.Condition) contracts.IDataFrame {
	filtered := query.Bool(query.Filter(conditions...))

	copied := df.clone()
	if copied.query == nil {
		copied.query = filtered
	} else {
		copied.query = query.Merge(copied.query, filtered)
	}
	return copied
}

// And intersects the conditions of two frames over the same index.
func (df *DataFrame) And(other contracts.IDataFrame) contracts.IDataFrame {
	return df.combine(other, func(a, b query.Condition) query.Condition { return a.And(b) })
}

// Or unions the conditions of two frames over the same index.
func (df *DataFrame) Or(other contracts.IDataFrame) contracts.IDataFrame {
	return df.combine(other, func(a, b query.Condition) query.Condition { return a.Or(b) })
}

func (df *DataFrame) combine(other contracts.IDataFrame, merge func(a, b query.Condition) query.Condition) contracts.IDataFrame {
	copied := df.clone()
	otherQuery := other.Query()
	switch {
	case copied.query == nil:
		copied.query = otherQuery
	case otherQuery == nil:
	default:
		copied.query = merge(copied.query, otherQuery)
	}
	return copied
}

// Not returns a copy with the accumulated condition negated. A frame
// without a condition cannot be inverted.
func (df *DataFrame) Not() (contracts.IDataFrame, error) {
	if df.query == nil {
		return nil, contracts.ErrMissingQuery
	}
	copied := df.clone()
	copied.query = copied.query.Not()
	return copied, nil
}

// Limit returns a copy that collects at most n rows. Zero is a valid cap
// and collects nothing.
func (df *DataFrame) Limit(n int) contracts.IDataFrame {
	copied := df.clone()
	copied.limit = &n
	return copied
}

// Body compiles the accumulated condition into a search body. An
// unrestricted frame matches all documents.
func (df *DataFrame) Body() (map[string]interface{}, error) {
	if df.query == nil {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}, nil
	}
	compiled, err := df.query.Build()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": compiled}, nil
}

// Collect executes the frame and returns matching rows. Limited frames run
// a single sized search; unlimited frames stream every hit through a
// scroll cursor.
func (df *DataFrame) Collect(ctx context.Context, options *contracts.CollectOptions) ([]contracts.Row, error) {
	if options == nil {
		options = &contracts.CollectOptions{}
	}

	body, err := df.Body()
	if err != nil {
		return nil, err
	}
	body["track_scores"] = options.IncludeScore

	limit := df.limit
	if options.Limit > 0 {
		override := options.Limit
		limit = &override
	}
	if limit != nil {
		return df.collectSized(ctx, body, *limit, options)
	}
	return df.collectScroll(ctx, body, options)
}

func (df *DataFrame) collectSized(ctx context.Context, body map[string]interface{}, limit int, options *contracts.CollectOptions) ([]contracts.Row, error) {
	response, err := df.executor.Search(ctx, df.index, body, &contracts.SearchOptions{
		Size:   &limit,
		Source: options.Fields,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]contracts.Row, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		row, err := rowFromHit(hit, options)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (df *DataFrame) collectScroll(ctx context.Context, body map[string]interface{}, options *contracts.CollectOptions) ([]contracts.Row, error) {
	var rows []contracts.Row
	err := df.scan(ctx, body, options, func(row contracts.Row) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// scan streams every hit of a scroll search through yield. Sorting by
// relevance is skipped unless the caller asked to preserve order, which
// lets the engine serve batches in the cheapest order.
func (df *DataFrame) scan(ctx context.Context, body map[string]interface{}, options *contracts.CollectOptions, yield func(contracts.Row) error) error {
	if !options.PreserveOrder {
		body["sort"] = []interface{}{"_doc"}
	}

	config := df.scrollConfig()
	response, err := df.executor.Search(ctx, df.index, body, &contracts.SearchOptions{
		Size:   &config.batchSize,
		Source: options.Fields,
		Scroll: config.keepAlive,
	})
	if err != nil {
		return err
	}

	scrollID := response.ScrollID
	defer func() {
		if scrollID == "" {
			return
		}
		if err := df.executor.ClearScroll(context.WithoutCancel(ctx), scrollID); err != nil {
			df.logger.Warn("failed to clear scroll context", zap.Error(err))
		}
	}()

	for len(response.Hits.Hits) > 0 {
		for _, hit := range response.Hits.Hits {
			row, err := rowFromHit(hit, options)
			if err != nil {
				return err
			}
			if err := yield(row); err != nil {
				return err
			}
		}
		response, err = df.executor.Scroll(ctx, scrollID, config.keepAlive)
		if err != nil {
			return err
		}
		if response.ScrollID != "" {
			scrollID = response.ScrollID
		}
	}
	return nil
}

type scrollSettings struct {
	batchSize int
	keepAlive time.Duration
}

func (df *DataFrame) scrollConfig() scrollSettings {
	settings := scrollSettings{
		batchSize: contracts.DefaultScrollBatchSize,
		keepAlive: contracts.DefaultScrollKeepAlive,
	}
	if provider, ok := df.executor.(interface{ ScrollSettings() (int, time.Duration) }); ok {
		settings.batchSize, settings.keepAlive = provider.ScrollSettings()
	}
	return settings
}

// CollectAsync streams rows on a channel. Unlimited frames forward rows as
// each scroll page arrives; limited frames send the rows of a single sized
// search. Both channels are closed when the stream ends; at most one error
// is sent.
func (df *DataFrame) CollectAsync(ctx context.Context, options *contracts.CollectOptions) (<-chan contracts.Row, <-chan error) {
	rowsCh := make(chan contracts.Row)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowsCh)
		defer close(errCh)

		opts := options
		if opts == nil {
			opts = &contracts.CollectOptions{}
		}

		body, err := df.Body()
		if err != nil {
			errCh <- err
			return
		}
		body["track_scores"] = opts.IncludeScore

		emit := func(row contracts.Row) error {
			select {
			case rowsCh <- row:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		limit := df.limit
		if opts.Limit > 0 {
			override := opts.Limit
			limit = &override
		}
		if limit != nil {
			rows, err := df.collectSized(ctx, body, *limit, opts)
			if err != nil {
				errCh <- err
				return
			}
			for _, row := range rows {
				if err := emit(row); err != nil {
					errCh <- err
					return
				}
			}
			return
		}

		if err := df.scan(ctx, body, opts, emit); err != nil {
			errCh <- err
		}
	}()

	return rowsCh, errCh
}

// Take collects the first n rows without changing the frame's own limit.
func (df *DataFrame) Take(ctx context.Context, n int, fields ...string) ([]contracts.Row, error) {
	return df.Collect(ctx, &contracts.CollectOptions{Limit: n, Fields: fields})
}

// Count returns the number of documents matching the frame's condition.
func (df *DataFrame) Count(ctx context.Context) (int64, error) {
	body, err := df.Body()
	if err != nil {
		return 0, err
	}
	return df.executor.Count(ctx, df.index, body)
}

// Get fetches a single document by id, bypassing the frame's condition.
func (df *DataFrame) Get(ctx context.Context, id string, fields ...string) (contracts.Row, error) {
	return df.executor.GetDocument(ctx, df.index, id, fields)
}

// Field resolves a dot-separated path to a queryable field handle.
func (df *DataFrame) Field(path string) (contracts.IField, error) {
	resolved, err := df.schema.Field(path)
	if err != nil {
		return nil, err
	}
	return newFieldHandle(resolved, df), nil
}

// Namespace resolves a top-level namespace of the mapping.
func (df *DataFrame) Namespace(name string) (contracts.INamespace, error) {
	resolved, err := df.schema.Namespace(name)
	if err != nil {
		return nil, err
	}
	return newNamespaceHandle(resolved, df), nil
}

// Fields lists the root-level leaf fields of the mapping.
func (df *DataFrame) Fields() []string {
	return df.schema.Fields()
}

// Namespaces lists the root-level namespaces of the mapping.
func (df *DataFrame) Namespaces() []string {
	return df.schema.Namespaces()
}

// Dtypes returns the mapping's type tree, nested namespaces included.
func (df *DataFrame) Dtypes() map[string]interface{} {
	return df.schema.Dtypes()
}

func rowFromHit(hit contracts.Hit, options *contracts.CollectOptions) (contracts.Row, error) {
	row := contracts.Row{}
	if len(hit.Source) > 0 {
		if err := json.Unmarshal(hit.Source, &row); err != nil {
			return nil, fmt.Errorf("failed to decode hit source: %w", err)
		}
	}
	if options.IncludeScore {
		var score interface{}
		if hit.Score != nil {
			score = *hit.Score
		}
		row[contracts.ScoreColumn] = score
	}
	if options.IncludeID {
		row[contracts.IDColumn] = hit.ID
	}
	return row, nil
}

// FlattenRow rewrites nested objects into dot-joined top-level keys, so
// {"a": {"b": 1}} becomes {"a.b": 1}.
func FlattenRow(row contracts.Row) contracts.Row {
	flat := contracts.Row{}
	flattenInto(flat, "", row)
	return flat
}

func flattenInto(dst contracts.Row, prefix string, src map[string]interface{}) {
	for key, value := range src {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(dst, name, nested)
			continue
		}
		dst[name] = value
	}
}
