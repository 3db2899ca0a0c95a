package sqlorm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlorm/cache/lrucache"
	"github.com/syssam/sqlorm/cache/rediscache"
	"github.com/syssam/sqlorm/dialect"
	"github.com/syssam/sqlorm/dialect/sql"
)

// Config is the file based configuration of a Database.
//
//	dialect: sqlite
//	dsn: "file:app.db?_pragma=foreign_keys(1)"
//	meta:
//	  key: id
//	  locked: true
//	slow_query: 200ms
//	cache:
//	  driver: memory
//	  size: 1024
type Config struct {
	// Dialect is the dialect name: sqlite, postgres or mysql.
	Dialect string `yaml:"dialect"`
	// Driver is the database/sql driver name. Defaults to Dialect.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
	// Meta overrides the schema conventions.
	Meta *Meta `yaml:"meta,omitempty"`
	// Features overrides the dialect features.
	Features map[string]bool `yaml:"features,omitempty"`
	// SlowQuery logs the statements slower than the given duration.
	SlowQuery time.Duration `yaml:"slow_query,omitempty"`
	// Stats collects statement statistics, see Database.QueryStats.
	Stats bool `yaml:"stats,omitempty"`
	// Debug logs every statement.
	Debug bool `yaml:"debug,omitempty"`
	// Cache configures the query cache.
	Cache *CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	// Driver is "memory" or "redis".
	Driver string `yaml:"driver"`
	// Size is the number of entries of the memory cache.
	Size int `yaml:"size,omitempty"`
	// Addr, Password and DB locate the redis server.
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	// Namespace prefixes the redis keys.
	Namespace string `yaml:"namespace,omitempty"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sqlorm: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sqlorm: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Dialect == "" {
		errs = append(errs, errors.New("sqlorm: config: dialect is required"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("sqlorm: config: dsn is required"))
	}
	if c.Cache != nil {
		switch c.Cache.Driver {
		case "memory", "":
		case "redis":
			if c.Cache.Addr == "" {
				errs = append(errs, errors.New("sqlorm: config: cache addr is required by the redis driver"))
			}
		default:
			errs = append(errs, fmt.Errorf("sqlorm: config: unknown cache driver %q", c.Cache.Driver))
		}
	}
	return errors.Join(errs...)
}

// Options returns the database options described by the configuration.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Meta != nil {
		opts = append(opts, WithMeta(*c.Meta))
	}
	if len(c.Features) > 0 {
		fs := make(map[dialect.Feature]bool, len(c.Features))
		for k, v := range c.Features {
			fs[dialect.Feature(k)] = v
		}
		opts = append(opts, WithFeatures(fs))
	}
	if c.Cache != nil {
		var (
			cache Cache
			err   error
		)
		switch c.Cache.Driver {
		case "redis":
			cache, err = rediscache.New(rediscache.Config{
				Addr:      c.Cache.Addr,
				Password:  c.Cache.Password,
				DB:        c.Cache.DB,
				Namespace: c.Cache.Namespace,
			})
		default:
			cache, err = lrucache.New(c.Cache.Size)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlorm: config: cache: %w", err)
		}
		opts = append(opts, WithCache(cache))
	}
	return opts, nil
}

// OpenConfig opens the database described by cfg. Options given here
// apply after the ones of the configuration.
func OpenConfig(ctx context.Context, cfg *Config, opts ...Option) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(base, opts...)
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	name := cfg.Driver
	if name == "" {
		name = cfg.Dialect
	}
	conn, err := sql.Open(ctx, name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlorm: open %s: %w", name, err)
	}
	var drv dialect.Driver = conn
	if cfg.SlowQuery > 0 || cfg.Stats {
		sopts := []sql.StatsOption{sql.WithSlowQueryLog(o.log)}
		if cfg.SlowQuery > 0 {
			sopts = append(sopts, sql.WithSlowThreshold(cfg.SlowQuery))
		}
		drv = sql.NewStatsDriver(drv, sopts...)
	}
	if cfg.Debug {
		drv = sql.NewDebugDriver(drv, sql.DebugWithLog(func(ctx context.Context, v ...any) {
			o.log.DebugContext(ctx, fmt.Sprint(v...))
		}))
	}
	return New(drv, opts...), nil
}

// QueryStats returns the statistics of the statements run by db, or nil
// if its driver does not collect them.
func (db *Database) QueryStats() *sql.QueryStats {
	drv := db.drv
	for {
		switch d := drv.(type) {
		case *sql.StatsDriver:
			return d.QueryStats()
		case *sql.DebugDriver:
			drv = d.Driver
		default:
			return nil
		}
	}
}
