package contracts

import (
	"context"
	"time"
)

// IExecutor is the raw request surface against the search cluster. Dataframes
// compile query bodies and hand them to an executor; implementations own the
// HTTP plumbing, retries and response decoding.
type IExecutor interface {
	// Search runs a search body against an index.
	Search(ctx context.Context, index string, body map[string]interface{}, options *SearchOptions) (*SearchResponse, error)

	// Scroll fetches the next page of an open scroll context.
	Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*SearchResponse, error)

	// ClearScroll releases an open scroll context.
	ClearScroll(ctx context.Context, scrollID string) error

	// Count returns the number of documents matching a search body.
	Count(ctx context.Context, index string, body map[string]interface{}) (int64, error)

	// GetDocument fetches a single document source by id. Returns ErrNotFound
	// when the id does not exist.
	GetDocument(ctx context.Context, index string, id string, fields []string) (Row, error)

	// GetMapping returns the mapping properties of an index.
	GetMapping(ctx context.Context, index string) (map[string]MappingProperty, error)

	// Bulk indexes documents in a single request. When refresh is true the
	// documents are visible to search before Bulk returns.
	Bulk(ctx context.Context, index string, docs []BulkDoc, refresh bool) error
}

// IConnection is a live handle to a search cluster.
type IConnection interface {
	IExecutor

	// Close releases the connection. Further calls fail with
	// ErrConnectionClosed.
	Close() error

	// IsClosed reports whether the connection has been closed.
	IsClosed() bool

	// Ping checks that the cluster is reachable.
	Ping(ctx context.Context) error

	// IndexNames lists the names of all indices in the cluster.
	IndexNames(ctx context.Context) ([]string, error)

	// ListIndices lists all indices with their health and size details.
	ListIndices(ctx context.Context) ([]IndexInfo, error)

	// DataFrame loads the mapping of an index and returns a dataframe
	// bound to it.
	DataFrame(ctx context.Context, index string) (IDataFrame, error)
}
