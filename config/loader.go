// File: config/loader.go
// Package config loads facade.Config from a YAML file, a .env file, HIOLOAD_*
// environment variables and command-line flags, in increasing precedence.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/momentics/hioload-slice/facade"
)

// EnvPrefix prefixes every environment variable, e.g. HIOLOAD_WORKERS or
// HIOLOAD_LOGGING_LEVEL.
const EnvPrefix = "HIOLOAD"

// flag name -> config key
var flagKeys = map[string]string{
	"backend":      "backend",
	"workers":      "workers",
	"queue-size":   "queue_size",
	"min-chunk":    "min_chunk",
	"numa-node":    "numa_node",
	"cpu-affinity": "cpu_affinity",
	"lenient":      "lenient",
	"telemetry":    "enable_telemetry",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// LoaderConfig holds optional file overrides and the flag set.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
	Flags      *pflag.FlagSet
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit YAML file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithFlags binds flags registered by RegisterFlags. Only flags the user
// actually set override lower layers.
func WithFlags(fs *pflag.FlagSet) LoaderOption {
	return func(lc *LoaderConfig) { lc.Flags = fs }
}

// RegisterFlags defines the engine flags on fs, defaulting to DefaultConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	d := facade.DefaultConfig()
	fs.String("config", "", "path to a YAML config file")
	fs.String("env-file", "", "path to a .env file")
	fs.String("backend", d.Backend, "dispatch backend: graph, pool, spawn or inline")
	fs.Int("workers", d.Workers, "worker count")
	fs.Int("queue-size", d.QueueSize, "backend queue capacity")
	fs.Int("min-chunk", d.MinChunk, "minimum archetype chunk size")
	fs.Int("numa-node", d.NUMANode, "NUMA node for workers, -1 for none")
	fs.Bool("cpu-affinity", d.CPUAffinity, "pin each worker to one CPU")
	fs.Bool("lenient", d.Lenient, "clamp inconsistent slices instead of failing")
	fs.Bool("telemetry", d.EnableTelemetry, "record OpenTelemetry metrics and spans")
	fs.String("log-level", d.Logging.Level, "log level")
	fs.String("log-format", d.Logging.Format, "log format: console or json")
}

// Load builds a validated facade.Config. Defaults come from
// facade.DefaultConfig; the YAML file, the .env file, the environment and
// explicitly set flags override them in that order.
func Load(opts ...LoaderOption) (*facade.Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Flags != nil {
		if f := lc.Flags.Lookup("config"); f != nil && f.Changed && lc.ConfigFile == "" {
			lc.ConfigFile = f.Value.String()
		}
		if f := lc.Flags.Lookup("env-file"); f != nil && f.Changed && lc.EnvFile == "" {
			lc.EnvFile = f.Value.String()
		}
	}

	v := viper.New()
	setDefaults(v, facade.DefaultConfig())

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" {
		// godotenv.Load never overrides variables already in the environment.
		if err := godotenv.Load(lc.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", lc.EnvFile, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.Flags != nil {
		for name, key := range flagKeys {
			f := lc.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	cfg := &facade.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper, d *facade.Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("queue_size", d.QueueSize)
	v.SetDefault("min_chunk", d.MinChunk)
	v.SetDefault("numa_node", d.NUMANode)
	v.SetDefault("cpu_affinity", d.CPUAffinity)
	v.SetDefault("lenient", d.Lenient)
	v.SetDefault("enable_metrics", d.EnableMetrics)
	v.SetDefault("enable_debug", d.EnableDebug)
	v.SetDefault("enable_telemetry", d.EnableTelemetry)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.no_color", d.Logging.NoColor)
	v.SetDefault("logging.timestamp", d.Logging.Timestamp)
	v.SetDefault("logging.caller", d.Logging.Caller)
}
