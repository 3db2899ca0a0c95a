// Package main provides sqlorm, a CLI inspecting and querying databases
// through the sqlorm mapper.
//
// The CLI supports:
//   - sources: list the tables of the database
//   - describe: print the columns of a table as read from the catalog
//   - query: fetch the rows of a table with conditions, order and paging
//   - sql: run a raw statement
//   - config show: print the effective configuration
//
// The connection is read from sqlorm.yaml, or from the --dialect and --dsn
// flags which override the file.
//
// Usage:
//
//	sqlorm [flags] <command>
package main

import (
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
