// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juvoinc/bamboo/pkg/contracts"
	"github.com/juvoinc/bamboo/pkg/export"
)

var (
	searchFilters   []string
	searchLimit     int
	searchFields    []string
	searchFormat    string
	searchWithID    bool
	searchQueryFile string
)

var searchCmd = &cobra.Command{
	Use:   "search <index>",
	Short: "Collect matching documents from an index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, logger, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		defer logger.Sync()

		var rows []map[string]interface{}
		if searchQueryFile != "" {
			if len(searchFilters) > 0 {
				return fmt.Errorf("--query cannot be combined with --filter")
			}
			rows, err = rawSearch(cmd.Context(), conn, args[0])
			if err != nil {
				return err
			}
		} else {
			df, err := conn.DataFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			df, err = applyFilters(df, searchFilters)
			if err != nil {
				return err
			}

			rows, err = df.Collect(cmd.Context(), &contracts.CollectOptions{
				Limit:     searchLimit,
				Fields:    searchFields,
				IncludeID: searchWithID,
			})
			if err != nil {
				return err
			}
		}

		if _, err := export.Write(os.Stdout, rows, export.Format(searchFormat)); err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "no documents matched")
		}
		return nil
	},
}

// rawSearch sends a caller-provided query body and shapes the hits into rows.
func rawSearch(ctx context.Context, conn contracts.IConnection, index string) ([]map[string]interface{}, error) {
	body, err := loadQueryBody(searchQueryFile)
	if err != nil {
		return nil, err
	}

	options := &contracts.SearchOptions{Source: searchFields}
	if searchLimit > 0 {
		size := searchLimit
		options.Size = &size
	}

	response, err := conn.Search(ctx, index, body, options)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		row := map[string]interface{}{}
		if len(hit.Source) > 0 {
			if err := json.Unmarshal(hit.Source, &row); err != nil {
				return nil, fmt.Errorf("failed to decode hit %s: %w", hit.ID, err)
			}
		}
		if searchWithID {
			row[contracts.IDColumn] = hit.ID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "field=value equality filter, repeatable")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of rows, 0 collects everything")
	searchCmd.Flags().StringSliceVar(&searchFields, "fields", nil, "source fields to fetch")
	searchCmd.Flags().StringVar(&searchFormat, "format", string(export.FormatNDJSON), "output format: ndjson or csv")
	searchCmd.Flags().BoolVar(&searchWithID, "with-id", false, "include the document id column")
	searchCmd.Flags().StringVarP(&searchQueryFile, "query", "q", "", "file holding a raw JSON query body")
	rootCmd.AddCommand(searchCmd)
}
