// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package bamboo

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/internal"
)

// Connect establishes a connection to a search cluster and verifies it
// answers. A nil config connects to the default local address.
func Connect(ctx context.Context, config *contracts.ClusterConfig, logger *zap.Logger) (contracts.IConnection, error) {
	var resolved contracts.ClusterConfig
	if config != nil {
		resolved = *config
	}
	resolved = resolved.WithDefaults()

	conn := internal.NewConnection(resolved, logger)
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to cluster at %v: %w", resolved.Addresses, err)
	}

	// Ensure cleanup when the caller forgets to Close
	runtime.SetFinalizer(conn, func(c *internal.Connection) { _ = c.Close() })

	return conn, nil
}
