// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

func testConnection(t *testing.T, handler http.Handler) (*Connection, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := contracts.ClusterConfig{Addresses: []string{server.URL}}
	conn := NewConnection(config.WithDefaults(), nil)
	t.Cleanup(func() { conn.Close() })

	return conn, server
}

func TestSearchSendsBodyAndParams(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]interface{}

	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)

		w.Write([]byte(`{
			"took": 3,
			"hits": {
				"total": {"value": 1, "relation": "eq"},
				"hits": [{"_index": "accounts", "_id": "a1", "_score": 1.5, "_source": {"name": "jon"}}]
			}
		}`))
	}))

	size := 5
	response, err := conn.Search(context.Background(), "accounts",
		map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}},
		&contracts.SearchOptions{Size: &size, Source: []string{"name", "age"}})
	require.NoError(t, err)

	assert.Equal(t, "/accounts/_search", gotPath)
	assert.Contains(t, gotQuery, "size=5")
	assert.Contains(t, gotQuery, "_source=name%2Cage")
	assert.Contains(t, gotBody, "query")

	require.Len(t, response.Hits.Hits, 1)
	assert.Equal(t, "a1", response.Hits.Hits[0].ID)
	assert.Equal(t, int64(1), response.Hits.Total.Value)
	require.NotNil(t, response.Hits.Hits[0].Score)
	assert.InDelta(t, 1.5, *response.Hits.Hits[0].Score, 1e-9)
}

func TestSearchRetriesOnTooManyRequests(t *testing.T) {
	var calls int
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"hits": {"total": {"value": 0}, "hits": []}}`))
	}))

	_, err := conn.Search(context.Background(), "accounts", map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSearchReturnsTransportErrorOnBadRequest(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "parsing_exception"}}`))
	}))

	_, err := conn.Search(context.Background(), "accounts", map[string]interface{}{}, nil)
	require.Error(t, err)

	var transport *contracts.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.StatusBadRequest, transport.StatusCode)
	assert.Contains(t, transport.Body, "parsing_exception")
}

func TestScrollRoundTrip(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_search/scroll", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var body map[string]interface{}
			payload, _ := io.ReadAll(r.Body)
			json.Unmarshal(payload, &body)
			assert.Equal(t, "abc", body["scroll_id"])
			assert.Equal(t, "60s", body["scroll"])
			w.Write([]byte(`{"_scroll_id": "abc", "hits": {"total": {"value": 0}, "hits": []}}`))
		case http.MethodDelete:
			w.Write([]byte(`{"succeeded": true}`))
		default:
			t.Errorf("❌Unexpected method %s", r.Method)
		}
	}))

	response, err := conn.Scroll(context.Background(), "abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "abc", response.ScrollID)

	require.NoError(t, conn.ClearScroll(context.Background(), "abc"))
}

func TestCount(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/_count", r.URL.Path)
		w.Write([]byte(`{"count": 42}`))
	}))

	count, err := conn.Count(context.Background(), "accounts", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestGetDocument(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/_doc/a1", r.URL.Path)
		assert.Equal(t, "name", r.URL.Query().Get("_source"))
		w.Write([]byte(`{"_index": "accounts", "_id": "a1", "found": true, "_source": {"name": "jon"}}`))
	}))

	row, err := conn.GetDocument(context.Background(), "accounts", "a1", []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, contracts.Row{"name": "jon"}, row)
}

func TestGetDocumentNotFound(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"_index": "accounts", "_id": "missing", "found": false}`))
	}))

	_, err := conn.GetDocument(context.Background(), "accounts", "missing", nil)
	assert.True(t, errors.Is(err, contracts.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestGetMapping(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/_mapping", r.URL.Path)
		w.Write([]byte(`{
			"accounts-000001": {
				"mappings": {
					"properties": {
						"name": {"type": "keyword"},
						"user": {"properties": {"age": {"type": "integer"}}}
					}
				}
			}
		}`))
	}))

	properties, err := conn.GetMapping(context.Background(), "accounts")
	require.NoError(t, err)
	assert.Equal(t, "keyword", properties["name"].Type)
	assert.Equal(t, "integer", properties["user"].Properties["age"].Type)
}

func TestGetMappingEmptyReply(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := conn.GetMapping(context.Background(), "accounts")
	var missing *contracts.MissingMappingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "accounts", missing.Index)
}

func TestBulkWritesNDJSON(t *testing.T) {
	var gotBody string
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_bulk", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("refresh"))
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		payload, _ := io.ReadAll(r.Body)
		gotBody = string(payload)
		w.Write([]byte(`{"errors": false, "items": []}`))
	}))

	err := conn.Bulk(context.Background(), "accounts", []contracts.BulkDoc{
		{ID: "a1", Source: map[string]interface{}{"name": "jon"}},
		{Source: map[string]interface{}{"name": "ann"}},
	}, true)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(gotBody, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"a1"`)
	assert.Contains(t, lines[0], `"_index":"accounts"`)
	assert.Contains(t, lines[1], `"name":"jon"`)
	assert.NotContains(t, lines[2], "_id")
}

func TestBulkReportsItemFailure(t *testing.T) {
	conn, _ := testConnection(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"errors": true,
			"items": [{"index": {"status": 400, "error": {"type": "mapper_parsing_exception", "reason": "bad field"}}}]
		}`))
	}))

	err := conn.Bulk(context.Background(), "accounts", []contracts.BulkDoc{
		{Source: map[string]interface{}{"name": 1}},
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestBasicAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := contracts.ClusterConfig{
		Addresses: []string{server.URL},
		Username:  "elastic",
		Password:  "secret",
	}
	conn := NewConnection(config.WithDefaults(), nil)
	defer conn.Close()

	require.NoError(t, conn.Ping(context.Background()))
}
