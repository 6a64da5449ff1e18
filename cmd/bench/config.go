package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one benchmark run. It can be loaded from YAML and then
// overridden by command-line flags.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Workload WorkloadConfig `yaml:"workload"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// CacheConfig mirrors the cache.Options fields that make sense from a file.
type CacheConfig struct {
	Name           string `yaml:"name"`
	Sharded        bool   `yaml:"sharded"`
	Shards         int    `yaml:"shards"`
	TotalCostLimit int64  `yaml:"total_cost_limit"`
	CountLimit     int    `yaml:"count_limit"`
}

// WorkloadConfig shapes the synthetic traffic. Keys follow a Zipf
// distribution; costs are uniform in [MinCost, MaxCost].
type WorkloadConfig struct {
	Workers  int           `yaml:"workers"`
	Duration time.Duration `yaml:"duration"`
	ReadPct  int           `yaml:"read_pct"`
	Keys     int           `yaml:"keys"`
	ZipfS    float64       `yaml:"zipf_s"`
	ZipfV    float64       `yaml:"zipf_v"`
	Seed     int64         `yaml:"seed"`
	Preload  int           `yaml:"preload"`
	MinCost  int64         `yaml:"min_cost"`
	MaxCost  int64         `yaml:"max_cost"`
}

// ServerConfig controls the optional HTTP endpoints; empty disables one.
type ServerConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	PprofAddr   string `yaml:"pprof_addr"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// DefaultConfig returns the configuration used when no file or flag says otherwise.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Name:           "bench",
			TotalCostLimit: 64 << 20,
			CountLimit:     100_000,
		},
		Workload: WorkloadConfig{
			Workers:  2 * runtime.GOMAXPROCS(0),
			Duration: 10 * time.Second,
			ReadPct:  80,
			Keys:     1_000_000,
			ZipfS:    1.1,
			ZipfV:    1.0,
			Seed:     time.Now().UnixNano(),
			MinCost:  64,
			MaxCost:  4096,
		},
		Server: ServerConfig{MetricsAddr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig; fields absent from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	w := c.Workload
	if c.Cache.TotalCostLimit < 0 {
		errs = append(errs, errors.New("cache.total_cost_limit must be >= 0"))
	}
	if c.Cache.CountLimit < 0 {
		errs = append(errs, errors.New("cache.count_limit must be >= 0"))
	}
	if w.Duration <= 0 {
		errs = append(errs, errors.New("workload.duration must be > 0"))
	}
	if w.ReadPct < 0 || w.ReadPct > 100 {
		errs = append(errs, fmt.Errorf("workload.read_pct %d out of [0..100]", w.ReadPct))
	}
	if w.Keys < 1 {
		errs = append(errs, errors.New("workload.keys must be >= 1"))
	}
	if w.ZipfS <= 1 {
		errs = append(errs, errors.New("workload.zipf_s must be > 1"))
	}
	if w.ZipfV < 1 {
		errs = append(errs, errors.New("workload.zipf_v must be >= 1"))
	}
	if w.MinCost < 0 || w.MaxCost < w.MinCost {
		errs = append(errs, fmt.Errorf("workload cost range [%d..%d] is invalid", w.MinCost, w.MaxCost))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q: want json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Logger builds the slog logger described by the config.
func (l LogConfig) Logger() *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// bindFlags registers every overridable field on fs, defaulting to cfg's
// current values. It returns the -config path pointer.
func bindFlags(fs *flag.FlagSet, cfg *Config) *string {
	path := fs.String("config", "", "YAML config file; flags override its values")

	fs.StringVar(&cfg.Cache.Name, "name", cfg.Cache.Name, "cache name")
	fs.BoolVar(&cfg.Cache.Sharded, "sharded", cfg.Cache.Sharded, "use the sharded cache")
	fs.IntVar(&cfg.Cache.Shards, "shards", cfg.Cache.Shards, "number of shards (0=auto)")
	fs.Int64Var(&cfg.Cache.TotalCostLimit, "cost_limit", cfg.Cache.TotalCostLimit, "total cost limit (0=unlimited)")
	fs.IntVar(&cfg.Cache.CountLimit, "count_limit", cfg.Cache.CountLimit, "entry count limit (0=unlimited)")

	fs.IntVar(&cfg.Workload.Workers, "workers", cfg.Workload.Workers, "number of worker goroutines")
	fs.DurationVar(&cfg.Workload.Duration, "duration", cfg.Workload.Duration, "benchmark duration")
	fs.IntVar(&cfg.Workload.ReadPct, "reads", cfg.Workload.ReadPct, "read percentage [0..100]")
	fs.IntVar(&cfg.Workload.Keys, "keys", cfg.Workload.Keys, "keyspace size")
	fs.Float64Var(&cfg.Workload.ZipfS, "zipf_s", cfg.Workload.ZipfS, "Zipf s > 1 (skew)")
	fs.Float64Var(&cfg.Workload.ZipfV, "zipf_v", cfg.Workload.ZipfV, "Zipf v")
	fs.Int64Var(&cfg.Workload.Seed, "seed", cfg.Workload.Seed, "random seed")
	fs.IntVar(&cfg.Workload.Preload, "preload", cfg.Workload.Preload, "preload entries (0 = count_limit/2)")
	fs.Int64Var(&cfg.Workload.MinCost, "min_cost", cfg.Workload.MinCost, "minimum entry cost")
	fs.Int64Var(&cfg.Workload.MaxCost, "max_cost", cfg.Workload.MaxCost, "maximum entry cost")

	fs.StringVar(&cfg.Server.MetricsAddr, "http", cfg.Server.MetricsAddr, "serve Prometheus metrics at addr; empty = disabled")
	fs.StringVar(&cfg.Server.PprofAddr, "pprof", cfg.Server.PprofAddr, "serve pprof at addr (e.g. :6060); empty = disabled")

	fs.StringVar(&cfg.Log.Level, "log_level", cfg.Log.Level, "log level: debug | info | warn | error")
	fs.StringVar(&cfg.Log.Format, "log_format", cfg.Log.Format, "log format: json | text")
	return path
}

// parseArgs resolves defaults, then the -config file, then explicit flags.
// Flags are parsed twice: once to find -config, once more on top of the
// loaded file so only flags actually given override it.
func parseArgs(args []string) (Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	path := bindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *path != "" {
		fromFile, err := LoadConfig(*path)
		if err != nil {
			return cfg, err
		}
		cfg = fromFile
		fs = flag.NewFlagSet("bench", flag.ContinueOnError)
		bindFlags(fs, &cfg)
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}
