package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlorm"
	"github.com/syssam/sqlorm/dialect/sql"
)

const defaultConfig = "sqlorm.yaml"

var (
	// Global state set during PersistentPreRunE
	cfg *sqlorm.Config
	db  *sqlorm.Database

	// Persistent flags
	cfgFile     string
	dialectName string
	driverName  string
	dsn         string
	slowQuery   time.Duration
	verbose     int
	showStats   bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlorm",
	Short: "Inspect and query SQL databases",
	Long: `sqlorm - inspect and query SQL databases

sqlorm reads the catalog of a SQLite, PostgreSQL or MySQL database and
queries its tables through the sqlorm mapper.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}
		var err error
		if cfg, err = loadConfig(); err != nil {
			return err
		}
		if cmd.Name() == "show" {
			return nil
		}
		db, err = sqlorm.OpenConfig(cmd.Context(), cfg, sqlorm.WithLogger(newLogger(cmd.ErrOrStderr())))
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db == nil || !showStats {
			return nil
		}
		return printStats(cmd.ErrOrStderr(), db)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command group IDs
const (
	groupCatalog = "catalog"
	groupData    = "data"
	groupUtility = "utility"
)

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default: "+defaultConfig+" if present)")
	f.StringVar(&dialectName, "dialect", "", "database dialect: sqlite, postgres or mysql")
	f.StringVar(&driverName, "driver", "", "database/sql driver name (default: the dialect)")
	f.StringVar(&dsn, "dsn", "", "data source name")
	f.DurationVar(&slowQuery, "slow", 0, "log the statements slower than the given duration")
	f.CountVarP(&verbose, "verbose", "v", "increase verbosity (-vv logs every statement)")
	f.BoolVar(&showStats, "stats", false, "print statement metrics on exit")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupCatalog, Title: "Catalog:"},
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	sourcesCmd.GroupID = groupCatalog
	describeCmd.GroupID = groupCatalog
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(describeCmd)

	queryCmd.GroupID = groupData
	sqlCmd.GroupID = groupData
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sqlCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and closes the database it opened.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if db != nil {
		err = errors.Join(err, db.Close())
		db = nil
	}
	return err
}

// loadConfig reads the configuration file and applies the flag overrides.
// A missing default file is not an error when the flags locate the database.
func loadConfig() (*sqlorm.Config, error) {
	path := resolveString(cfgFile, defaultConfig)
	conf := &sqlorm.Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && cfgFile == "":
	default:
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if dialectName != "" {
		conf.Dialect = dialectName
	}
	if driverName != "" {
		conf.Driver = driverName
	}
	if dsn != "" {
		conf.DSN = dsn
	}
	if slowQuery > 0 {
		conf.SlowQuery = slowQuery
	}
	if verbose > 1 {
		conf.Debug = true
	}
	if showStats {
		conf.Stats = true
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose > 1:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printStats gathers the statement metrics through a prometheus registry.
func printStats(w io.Writer, db *sqlorm.Database) error {
	stats := db.QueryStats()
	if stats == nil {
		return nil
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(sql.NewStatsCollector(stats, "sqlorm")); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
		}
	}
	return nil
}

// resolveString returns the first non-empty string.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// encode writes v as YAML.
func encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
