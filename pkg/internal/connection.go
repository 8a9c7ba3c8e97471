// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/schema"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeNDJSON  = "application/x-ndjson"
	retryBackoffBase   = 500 * time.Millisecond
	scrollEndpointPath = "/_search/scroll"
)

// Connection is an HTTP client for a search cluster. It is safe for
// concurrent use; requests are retried across the configured node addresses
// with exponential backoff on retryable failures.
type Connection struct {
	config contracts.ClusterConfig
	client *http.Client
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

var _ contracts.IConnection = (*Connection)(nil)

// NewConnection builds a connection from an already defaulted config.
func NewConnection(config contracts.ClusterConfig, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &http.Client{Timeout: config.Timeout}
	if config.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
		client.Transport = transport
	}

	return &Connection{
		config: config,
		client: client,
		logger: logger,
	}
}

// Close releases idle transport resources. The connection cannot be reused.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.client.CloseIdleConnections()
	c.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Ping checks that the cluster answers on any configured address.
func (c *Connection) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodHead, "/", nil, nil, nil)
}

// Search runs a search body against an index.
func (c *Connection) Search(ctx context.Context, index string, body map[string]interface{}, options *contracts.SearchOptions) (*contracts.SearchResponse, error) {
	params := url.Values{}
	if options != nil {
		if options.Size != nil {
			params.Set("size", strconv.Itoa(*options.Size))
		}
		if len(options.Source) > 0 {
			params.Set("_source", strings.Join(options.Source, ","))
		}
		if options.Scroll > 0 {
			params.Set("scroll", durationParam(options.Scroll))
		}
	}

	var response contracts.SearchResponse
	path := "/" + url.PathEscape(index) + "/_search"
	if err := c.do(ctx, http.MethodPost, path, params, body, &response); err != nil {
		return nil, fmt.Errorf("search on index %s failed: %w", index, err)
	}
	return &response, nil
}

// Scroll fetches the next page of an open scroll context.
func (c *Connection) Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*contracts.SearchResponse, error) {
	body := map[string]interface{}{
		"scroll":    durationParam(keepAlive),
		"scroll_id": scrollID,
	}

	var response contracts.SearchResponse
	if err := c.do(ctx, http.MethodPost, scrollEndpointPath, nil, body, &response); err != nil {
		return nil, fmt.Errorf("scroll page fetch failed: %w", err)
	}
	return &response, nil
}

// ClearScroll releases an open scroll context.
func (c *Connection) ClearScroll(ctx context.Context, scrollID string) error {
	body := map[string]interface{}{
		"scroll_id": []string{scrollID},
	}
	if err := c.do(ctx, http.MethodDelete, scrollEndpointPath, nil, body, nil); err != nil {
		return fmt.Errorf("failed to clear scroll context: %w", err)
	}
	return nil
}

// Count returns the number of documents matching a search body.
func (c *Connection) Count(ctx context.Context, index string, body map[string]interface{}) (int64, error) {
	var response contracts.CountResponse
	path := "/" + url.PathEscape(index) + "/_count"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &response); err != nil {
		return 0, fmt.Errorf("count on index %s failed: %w", index, err)
	}
	return response.Count, nil
}

// GetDocument fetches a single document source by id.
func (c *Connection) GetDocument(ctx context.Context, index, id string, fields []string) (contracts.Row, error) {
	params := url.Values{}
	if len(fields) > 0 {
		params.Set("_source", strings.Join(fields, ","))
	}

	var doc contracts.Document
	path := "/" + url.PathEscape(index) + "/_doc/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodGet, path, params, nil, &doc)
	if err != nil {
		var transport *contracts.TransportError
		if errors.As(err, &transport) && transport.StatusCode == http.StatusNotFound {
			return nil, contracts.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s from index %s failed: %w", id, index, err)
	}
	if !doc.Found {
		return nil, contracts.ErrNotFound
	}

	var row contracts.Row
	if err := json.Unmarshal(doc.Source, &row); err != nil {
		return nil, fmt.Errorf("failed to decode document source: %w", err)
	}
	return row, nil
}

// GetMapping returns the mapping properties of an index.
func (c *Connection) GetMapping(ctx context.Context, index string) (map[string]contracts.MappingProperty, error) {
	var response map[string]struct {
		Mappings struct {
			Properties map[string]contracts.MappingProperty `json:"properties"`
		} `json:"mappings"`
	}

	path := "/" + url.PathEscape(index) + "/_mapping"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, fmt.Errorf("mapping fetch for index %s failed: %w", index, err)
	}

	// The reply is keyed by concrete index name, which differs from the
	// request when an alias or pattern was used. Take the single entry.
	for _, entry := range response {
		return entry.Mappings.Properties, nil
	}
	return nil, &contracts.MissingMappingError{Index: index}
}

// IndexNames lists the names of all indices in the cluster.
func (c *Connection) IndexNames(ctx context.Context) ([]string, error) {
	infos, err := c.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// ListIndices lists all indices with their health and size details.
func (c *Connection) ListIndices(ctx context.Context) ([]contracts.IndexInfo, error) {
	params := url.Values{}
	params.Set("format", "json")

	var infos []contracts.IndexInfo
	if err := c.do(ctx, http.MethodGet, "/_cat/indices", params, nil, &infos); err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	return infos, nil
}

// Bulk indexes documents in a single newline-delimited request.
func (c *Connection) Bulk(ctx context.Context, index string, docs []contracts.BulkDoc, refresh bool) error {
	if len(docs) == 0 {
		return nil
	}

	var payload bytes.Buffer
	for _, doc := range docs {
		action := map[string]interface{}{"_index": index}
		if doc.ID != "" {
			action["_id"] = doc.ID
		}
		header, err := json.Marshal(map[string]interface{}{"index": action})
		if err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		source, err := json.Marshal(doc.Source)
		if err != nil {
			return fmt.Errorf("failed to encode bulk document: %w", err)
		}
		payload.Write(header)
		payload.WriteByte('\n')
		payload.Write(source)
		payload.WriteByte('\n')
	}

	params := url.Values{}
	if refresh {
		params.Set("refresh", "true")
	}

	var response struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := c.doRaw(ctx, http.MethodPost, "/_bulk", params, contentTypeNDJSON, payload.Bytes(), &response); err != nil {
		return fmt.Errorf("bulk index into %s failed: %w", index, err)
	}
	if response.Errors {
		for _, item := range response.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("bulk index into %s failed: %s: %s", index, result.Error.Type, result.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk index into %s reported item failures", index)
	}
	return nil
}

// ScrollSettings reports the configured scroll batch size and keep-alive.
func (c *Connection) ScrollSettings() (int, time.Duration) {
	return c.config.ScrollBatchSize, c.config.ScrollKeepAlive
}

// DataFrame loads the mapping of an index and returns a dataframe bound
// to it.
func (c *Connection) DataFrame(ctx context.Context, index string) (contracts.IDataFrame, error) {
	properties, err := c.GetMapping(ctx, index)
	if err != nil {
		return nil, err
	}
	parsed, err := schema.Parse(index, properties)
	if err != nil {
		return nil, err
	}
	return NewDataFrame(index, parsed, c, c.logger), nil
}

// do sends a JSON request and decodes the JSON reply into out.
func (c *Connection) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = encoded
	}
	return c.doRaw(ctx, method, path, params, contentTypeJSON, payload, out)
}

// doRaw sends a request, retrying retryable failures across the configured
// addresses with exponential backoff.
func (c *Connection) doRaw(ctx context.Context, method, path string, params url.Values, contentType string, payload []byte, out interface{}) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return contracts.ErrConnectionClosed
	}

	var lastErr error
	attempts := c.config.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase << (attempt - 1)
			c.logger.Warn("retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		address := c.config.Addresses[attempt%len(c.config.Addresses)]
		retryable, err := c.send(ctx, address, method, path, params, contentType, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

// send performs a single HTTP round trip. The first return value reports
// whether the failure is worth retrying.
func (c *Connection) send(ctx context.Context, address, method, path string, params url.Values, contentType string, payload []byte, out interface{}) (bool, error) {
	endpoint := strings.TrimRight(address, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("User-Agent", c.config.UserAgent)
	switch {
	case c.config.APIKey != "":
		request.Header.Set("Authorization", "ApiKey "+c.config.APIKey)
	case c.config.Username != "" || c.config.Password != "":
		request.SetBasicAuth(c.config.Username, c.config.Password)
	}

	c.logger.Debug("executing request",
		zap.String("method", method),
		zap.String("path", path))

	response, err := c.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("request to %s failed: %w", address, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		transportErr := &contracts.TransportError{
			StatusCode: response.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(responseBody)),
		}
		retryable := response.StatusCode == http.StatusTooManyRequests ||
			response.StatusCode >= http.StatusInternalServerError
		return retryable, transportErr
	}

	if out != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return false, nil
}

// durationParam renders a keep-alive the engine accepts, e.g. "60s".
func durationParam(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds) + "s"
}
