// Package config resolves fsbench settings from flags, environment
// variables (FSBENCH_*) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/fsbench/bench"
	"github.com/weiihann/fsbench/workload"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FSBENCH"

// Keys shared by flags, environment and config files.
const (
	KeyScratch   = "scratch"
	KeyResults   = "results"
	KeySeed      = "seed"
	KeySync      = "sync"
	KeyDropCache = "drop-cache"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
)

// Config is the resolved configuration.
type Config struct {
	ScratchDir string `mapstructure:"scratch"`
	ResultsDir string `mapstructure:"results"`
	Seed       uint64 `mapstructure:"seed"`
	Sync       string `mapstructure:"sync"`
	DropCache  bool   `mapstructure:"drop-cache"`
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
	ConfigPath string `mapstructure:"-"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyScratch, "/scratch")
	v.SetDefault(KeyResults, "/results")
	v.SetDefault(KeySeed, workload.DefaultSeed)
	v.SetDefault(KeySync, string(bench.SyncFull))
	v.SetDefault(KeyDropCache, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// RegisterFlags adds the configuration flags to fs and binds them to v.
// Flags only win over the environment and config file when set explicitly.
func RegisterFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String(KeyScratch, "/scratch", "scratch directory benchmarks operate in")
	fs.String(KeyResults, "/results", "directory result records are written to")
	fs.Uint64(KeySeed, workload.DefaultSeed, "content generator seed")
	fs.String(KeySync, string(bench.SyncFull), "flush mode ending each timed phase: fsync, fdatasync or none")
	fs.Bool(KeyDropCache, false, "drop fixture data from the page cache before read phases")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn or error")
	fs.String(KeyLogFormat, "text", "log format: text or json")

	for _, key := range []string{
		KeyScratch, KeyResults, KeySeed, KeySync,
		KeyDropCache, KeyLogLevel, KeyLogFormat,
	} {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	return nil
}

// Load resolves the configuration held by v. When path is non-empty the
// file is read and must exist.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ConfigPath = path

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports settings no benchmark can run with.
func (c Config) Validate() error {
	var errs []error

	if c.ScratchDir == "" {
		errs = append(errs, errors.New("scratch directory must be set"))
	}

	if c.ResultsDir == "" {
		errs = append(errs, errors.New("results directory must be set"))
	}

	if c.Seed == 0 {
		errs = append(errs, errors.New("seed must be non-zero, xorshift64 is stuck at zero"))
	}

	if _, err := bench.ParseSyncMode(c.Sync); err != nil {
		errs = append(errs, err)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// EngineOptions converts the configuration into bench engine options.
func (c Config) EngineOptions() bench.Options {
	mode, _ := bench.ParseSyncMode(c.Sync)

	return bench.Options{
		ScratchDir: c.ScratchDir,
		Seed:       c.Seed,
		Sync:       mode,
		DropCache:  c.DropCache,
	}
}

// ChildFlags returns the flags that reproduce this configuration in a
// child fsbench process, except for the scratch and results directories
// which the sweep assigns per invocation.
func (c Config) ChildFlags() []string {
	return []string{
		"--" + KeySeed, fmt.Sprint(c.Seed),
		"--" + KeySync, c.Sync,
		"--" + KeyDropCache + "=" + fmt.Sprint(c.DropCache),
		"--" + KeyLogLevel, c.LogLevel,
		"--" + KeyLogFormat, c.LogFormat,
	}
}

// NewLogger builds the slog logger described by the configuration.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}
