// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

// Package main is the entry point for the bamboo CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bamboo "github.com/juvoinc/bamboo/pkg"
	"github.com/juvoinc/bamboo/pkg/config"
	"github.com/juvoinc/bamboo/pkg/contracts"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
	addresses  []string
	username   string
	password   string
)

var rootCmd = &cobra.Command{
	Use:   "bamboo",
	Short: "Dataframe-style client for search clusters",
	Long: `bamboo inspects and queries Elasticsearch-compatible clusters through
a dataframe-style interface. Cluster settings come from bamboo.yaml and
BAMBOO_ prefixed environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory holding bamboo.yaml (default: .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringArrayVar(&addresses, "address", nil, "cluster node URL, repeatable, overrides config")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "basic auth username, overrides config")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "basic auth password, overrides config")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of bamboo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bamboo %s\n", version)
	},
}

// newLogger builds the CLI logger. Debug output goes to stderr so command
// output stays parseable.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// connect loads the config and opens a verified connection.
func connect(ctx context.Context) (contracts.IConnection, *zap.Logger, error) {
	paths := []string{"."}
	if configPath != "" {
		paths = []string{filepath.Clean(configPath)}
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	if len(addresses) > 0 {
		cfg.Addresses = addresses
	}
	if username != "" {
		cfg.Username = username
	}
	if password != "" {
		cfg.Password = password
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	conn, err := bamboo.Connect(ctx, &cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return conn, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
