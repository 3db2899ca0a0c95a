package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <statement>",
	Short: "Run a raw statement",
	Long: `Run a raw statement. Rows returned by SELECT statements are printed as
YAML, other statements print the number of affected rows.`,
	Example: `  sqlorm sql 'SELECT COUNT(*) AS n FROM "image"'
  sqlorm sql 'DELETE FROM "tag" WHERE "id" = 6'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stmt := strings.Join(args, " ")
		if returnsRows(stmt) {
			rows, err := db.Query(cmd.Context(), stmt)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), rows)
		}
		res, err := db.Exec(cmd.Context(), stmt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows affected\n", n)
		return nil
	},
}

func returnsRows(stmt string) bool {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "PRAGMA", "SHOW", "EXPLAIN", "VALUES":
		return true
	}
	return strings.Contains(strings.ToUpper(stmt), " RETURNING ")
}
