// Package rtconfig loads the runtime's own configuration (spec.md §6
// "Configuration"): subgraph identity, manifest path, transform-mode
// mapping, source selection, valve tuning, durable-tier location and
// metrics port. Adapted from pkg/config's viper/mapstructure loader,
// generalized from Synnergy's network/consensus/vm sections to this
// runtime's own.
package rtconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"datafast-runtime/pkg/utils"
)

// EnvPrefix is the fixed environment variable prefix spec.md §6 requires
// ("Loaded from a TOML file and environment variables with a fixed
// prefix"). DATAFAST_SOURCE_DIR, say, overrides source.dir.
const EnvPrefix = "DATAFAST"

// Config is the runtime's full configuration surface.
type Config struct {
	SubgraphName string `mapstructure:"subgraph_name"`
	SubgraphID   string `mapstructure:"subgraph_id"`
	Manifest     string `mapstructure:"manifest"`

	// Transform maps a label to the sandbox module and handler export the
	// Serializer runs in transform mode (see TransformTarget); empty
	// disables transform mode (the Serializer runs in direct mode instead).
	Transform map[string]TransformTarget `mapstructure:"transform"`

	Source SourceConfig `mapstructure:"source"`
	Valve  ValveConfig  `mapstructure:"valve"`

	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// TransformTarget names the sandbox module and handler export the
// Serializer's transform mode runs (spec.md §4.4). Transform is keyed by
// an arbitrary label rather than a datasource name: the Serializer runs
// one sandbox over the whole raw block stream, upstream of per-datasource
// dispatch, so at most one entry is meaningful; Load does not reject more
// than one, but only the first (in map iteration order) is wired by
// cmd/datafast-runtime.
type TransformTarget struct {
	WasmFile string `mapstructure:"wasm_file"`
	FuncName string `mapstructure:"func_name"`
}

// SourceConfig selects and configures the Block Source (spec.md §4.3).
type SourceConfig struct {
	// Kind is one of "readline" or "readdir"; other variants named in
	// spec.md ("nats", ...) are interfaces only (see DESIGN.md).
	Kind string `mapstructure:"kind"`
	Dir  string `mapstructure:"dir"`
}

// ValveConfig tunes flow control (spec.md §4.8).
type ValveConfig struct {
	AllowedLag uint64        `mapstructure:"allowed_lag"`
	WaitTime   time.Duration `mapstructure:"wait_time"`
}

// DatabaseConfig tunes the tiered store (spec.md §4.7).
type DatabaseConfig struct {
	MemoryEntries int    `mapstructure:"memory_entries"`
	DurableDir    string `mapstructure:"durable_dir"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// PipelineConfig tunes inter-stage channel capacity.
type PipelineConfig struct {
	ChannelBuffer int `mapstructure:"channel_buffer"`
}

// Default returns a Config with every optional field set to a usable
// value, so a minimal manifest-only TOML file still produces a runnable
// configuration.
func Default() Config {
	return Config{
		Source:   SourceConfig{Kind: "readline"},
		Valve:    ValveConfig{AllowedLag: 0, WaitTime: 200 * time.Millisecond},
		Database: DatabaseConfig{MemoryEntries: 10_000, DurableDir: "./data"},
		Metrics:  MetricsConfig{Addr: ":9184"},
		Pipeline: PipelineConfig{ChannelBuffer: 64},
	}
}

// Load reads path (a TOML file) plus a ".env" file if present, merges in
// environment overrides prefixed with EnvPrefix, and unmarshals the
// result into a Config seeded with Default().
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional dev convenience; absent .env is not an error

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	for key, val := range defaultsMap(cfg) {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, fmt.Sprintf("load config %s", path))
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if cfg.Manifest == "" {
		return nil, fmt.Errorf("rtconfig: %q is required", "manifest")
	}
	return &cfg, nil
}

// defaultsMap flattens Default()'s values viper needs pre-seeded so an
// absent TOML section still unmarshals to a usable zero value rather than
// a Go zero value (e.g. an empty Valve.WaitTime that never sleeps).
func defaultsMap(cfg Config) map[string]any {
	return map[string]any{
		"source.kind":             cfg.Source.Kind,
		"valve.allowed_lag":       cfg.Valve.AllowedLag,
		"valve.wait_time":         cfg.Valve.WaitTime,
		"database.memory_entries": cfg.Database.MemoryEntries,
		"database.durable_dir":    cfg.Database.DurableDir,
		"metrics.addr":            cfg.Metrics.Addr,
		"pipeline.channel_buffer": cfg.Pipeline.ChannelBuffer,
	}
}
