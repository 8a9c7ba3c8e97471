// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List the indices of the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, logger, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		defer logger.Sync()

		infos, err := conn.ListIndices(cmd.Context())
		if err != nil {
			return err
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "INDEX\tHEALTH\tSTATUS\tDOCS\tSIZE")
		for _, info := range infos {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
				info.Name, info.Health, info.Status, info.DocsCount, info.StoreSize)
		}
		return writer.Flush()
	},
}

func init() {
	rootCmd.AddCommand(indicesCmd)
}
