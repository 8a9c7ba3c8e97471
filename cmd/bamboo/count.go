// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

var (
	countFilters   []string
	countQueryFile string
)

var countCmd = &cobra.Command{
	Use:   "count <index>",
	Short: "Count the documents of an index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, logger, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		defer logger.Sync()

		if countQueryFile != "" {
			if len(countFilters) > 0 {
				return fmt.Errorf("--query cannot be combined with --filter")
			}
			body, err := loadQueryBody(countQueryFile)
			if err != nil {
				return err
			}
			count, err := conn.Count(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		}

		df, err := conn.DataFrame(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		df, err = applyFilters(df, countFilters)
		if err != nil {
			return err
		}

		count, err := df.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

func init() {
	countCmd.Flags().StringArrayVar(&countFilters, "filter", nil, "field=value equality filter, repeatable")
	countCmd.Flags().StringVarP(&countQueryFile, "query", "q", "", "file holding a raw JSON query body")
	rootCmd.AddCommand(countCmd)
}

// loadQueryBody reads a raw request body from a JSON file.
func loadQueryBody(path string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid query body in %s: %w", path, err)
	}
	return body, nil
}

// applyFilters narrows a frame by field=value equality pairs. Values parse
// as JSON scalars where possible, so 42 and true keep their types.
func applyFilters(df contracts.IDataFrame, filters []string) (contracts.IDataFrame, error) {
	for _, filter := range filters {
		path, raw, ok := strings.Cut(filter, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", filter)
		}

		field, err := df.Field(path)
		if err != nil {
			return nil, err
		}

		var value interface{} = raw
		var scalar interface{}
		if err := json.Unmarshal([]byte(raw), &scalar); err == nil {
			if _, isComposite := scalar.(map[string]interface{}); !isComposite {
				if _, isList := scalar.([]interface{}); !isList {
					value = scalar
				}
			}
		}

		df = df.Filter(field.Eq(value))
	}
	return df, nil
}
