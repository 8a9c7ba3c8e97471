// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package bamboo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

func TestListIndices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/_cat/indices":
			if r.URL.Query().Get("format") != "json" {
				t.Errorf("❌Expected format=json, got %q", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"index": "accounts", "health": "green", "status": "open", "docs.count": "1000", "store.size": "1mb"},
				{"index": "events", "health": "yellow", "status": "open", "docs.count": "250", "store.size": "256kb"}
			]`))
		default:
			t.Errorf("❌Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	conn, err := Connect(context.Background(), &contracts.ClusterConfig{
		Addresses: []string{server.URL},
	}, nil)
	if err != nil {
		t.Fatalf("❌Failed to connect: %v", err)
	}
	defer conn.Close()

	infos, err := conn.ListIndices(context.Background())
	if err != nil {
		t.Fatalf("❌Failed to list indices: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("❌Expected 2 indices, got %d", len(infos))
	}
	if infos[0].Name != "accounts" || infos[0].Health != "green" {
		t.Errorf("❌Unexpected first index: %+v", infos[0])
	}
	if infos[1].DocsCount != "250" {
		t.Errorf("❌Unexpected docs count: %q", infos[1].DocsCount)
	}

	names, err := conn.IndexNames(context.Background())
	if err != nil {
		t.Fatalf("❌Failed to list index names: %v", err)
	}
	if len(names) != 2 || names[0] != "accounts" || names[1] != "events" {
		t.Errorf("❌Unexpected index names: %v", names)
	}
}

func TestConnectFailsWhenClusterUnreachable(t *testing.T) {
	conn, err := Connect(context.Background(), &contracts.ClusterConfig{
		Addresses:  []string{"http://127.0.0.1:1"},
		MaxRetries: 1,
	}, nil)
	if err == nil {
		conn.Close()
		t.Fatal("❌Expected connect to an unreachable cluster to fail")
	}
}

func TestConnectionRejectsUseAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	conn, err := Connect(context.Background(), &contracts.ClusterConfig{
		Addresses: []string{server.URL},
	}, nil)
	if err != nil {
		t.Fatalf("❌Failed to connect: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("❌Failed to close connection: %v", err)
	}
	if !conn.IsClosed() {
		t.Fatal("❌Expected connection to report closed")
	}
	if err := conn.Ping(context.Background()); err != contracts.ErrConnectionClosed {
		t.Errorf("❌Expected ErrConnectionClosed, got %v", err)
	}
}
