package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlorm"
	"github.com/syssam/sqlorm/dialect/sql"
)

var (
	queryFields []string
	queryWhere  []string
	queryOrder  []string
	queryLimit  int
	queryPage   int
	queryOffset int
	queryCount  bool
	querySQL    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <table>",
	Short: "Fetch the rows of a table",
	Long: `Fetch the rows of a table and print them as YAML.

Conditions are given as column=value, values are converted to the type of
the column. The value null matches NULL columns.`,
	Example: `  # The second page of ten images of gallery 1
  sqlorm query image --where gallery_id=1 --order "name DESC" --limit 10 --page 2

  # Print the statement only
  sqlorm query image --where gallery_id=1 --sql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := db.Describe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		q, err := buildQuery(s)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case querySQL && queryCount:
			stmt, err := q.CountSQL()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, stmt)
		case querySQL:
			stmt, err := q.SQL()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, stmt)
		case queryCount:
			n, err := q.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, n)
		default:
			rows, err := q.Rows(cmd.Context())
			if err != nil {
				return err
			}
			return encode(out, rows)
		}
		return nil
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringSliceVar(&queryFields, "fields", nil, "columns to select (default: all)")
	f.StringArrayVarP(&queryWhere, "where", "w", nil, "condition as column=value (repeatable)")
	f.StringArrayVar(&queryOrder, "order", nil, `order term such as "name DESC" (repeatable)`)
	f.IntVar(&queryLimit, "limit", 0, "maximum number of rows")
	f.IntVar(&queryPage, "page", 1, "page fetched when --limit is set")
	f.IntVar(&queryOffset, "offset", -1, "number of skipped rows, wins over --page")
	f.BoolVar(&queryCount, "count", false, "print the number of rows instead")
	f.BoolVar(&querySQL, "sql", false, "print the statement instead of running it")
}

func buildQuery(s *sqlorm.Schema) (*sqlorm.Query, error) {
	q, err := s.Query()
	if err != nil {
		return nil, err
	}
	for _, f := range queryFields {
		q.Fields(f)
	}
	for _, w := range queryWhere {
		cond, err := parseCondition(s, w)
		if err != nil {
			return nil, err
		}
		q.Where(cond)
	}
	q.Order(queryOrder)
	q.Limit(queryLimit).Page(queryPage)
	if queryOffset >= 0 {
		q.Offset(queryOffset)
	}
	return q, nil
}

func parseCondition(s *sqlorm.Schema, expr string) (sql.Expr, error) {
	col, value, ok := strings.Cut(expr, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return nil, fmt.Errorf("invalid condition %q, expected column=value", expr)
	}
	if !s.Has(col) && col != s.Key() {
		return nil, fmt.Errorf("unknown column %q of %q", col, s.Source())
	}
	if strings.EqualFold(value, "null") {
		return sql.IsNull(col), nil
	}
	v, err := s.Cast(col, value)
	if err != nil {
		return nil, fmt.Errorf("condition on %q: %w", col, err)
	}
	return sql.EQ(col, v), nil
}
