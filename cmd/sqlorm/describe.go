package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/schema/field"
)

// columnInfo is the YAML form of a column descriptor.
type columnInfo struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Length    int    `yaml:"length,omitempty"`
	Precision int    `yaml:"precision,omitempty"`
	Scale     int    `yaml:"scale,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty"`
	Default   any    `yaml:"default,omitempty"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Print the columns of a table",
	Long: `Print the columns of a table as read from the database catalog.

Column types are the abstract types used by the mapper: serial, integer,
string, text, boolean, float, decimal, date, time, datetime, uuid...`,
	Example: `  sqlorm describe image`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := db.Fields(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return fmt.Errorf("table %q not found", args[0])
		}
		cols := make([]columnInfo, 0, len(fields))
		for _, f := range fields {
			cols = append(cols, newColumnInfo(f))
		}
		return encode(cmd.OutOrStdout(), cols)
	},
}

func newColumnInfo(d *field.Descriptor) columnInfo {
	c := columnInfo{
		Name:      d.Name,
		Type:      d.Type,
		Length:    d.Length,
		Precision: d.Precision,
		Scale:     d.Scale,
		Nullable:  d.Nullable,
		Default:   d.Default,
	}
	// Expressions such as CURRENT_TIMESTAMP are printed as written.
	if op, ok := d.Default.(convert.Operator); ok && len(op.Args) > 0 {
		c.Default = fmt.Sprint(op.Args[0])
	}
	return c
}
