// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping <index>",
	Short: "Print the value types of an index mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, logger, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		defer logger.Sync()

		df, err := conn.DataFrame(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(df.Dtypes())
	},
}

func init() {
	rootCmd.AddCommand(mappingCmd)
}
