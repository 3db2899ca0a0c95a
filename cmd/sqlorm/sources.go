package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the tables of the database",
	Example: `  # List the tables of a SQLite file
  sqlorm sources --dialect sqlite --dsn app.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := db.Sources(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range sources {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}
