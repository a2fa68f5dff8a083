// Package config loads the explorer's runtime configuration.
//
// Precedence (highest to lowest): flags > EXPLORE_* env vars > YAML file > defaults.
// The cleaning thresholds are deliberately absent; they are fixed in package survey.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DefaultSourcePath = "survey_results_public.csv"
	DefaultConfigFile = "explore.yaml"
	EnvPrefix         = "EXPLORE_"
)

type Config struct {
	Source    SourceConfig    `koanf:"source"`
	Log       LogConfig       `koanf:"log"`
	Output    string          `koanf:"output"`
	Aggregate AggregateConfig `koanf:"aggregate"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type SourceConfig struct {
	Path       string `koanf:"path"`
	Comma      string `koanf:"comma"`
	LazyQuotes bool   `koanf:"lazy_quotes"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console | json
}

type AggregateConfig struct {
	Backend string `koanf:"backend"` // dataframe | sqlite
}

type MetricsConfig struct {
	Backend    string        `koanf:"backend"` // none | datadog
	JobName    string        `koanf:"job_name"`
	Tags       []string      `koanf:"tags"`
	FlushEvery time.Duration `koanf:"flush_every"`
}

// ParserOptions translates the source section into parser options.
func (s SourceConfig) ParserOptions() Options {
	return Options{
		"comma":       s.Comma,
		"lazy_quotes": s.LazyQuotes,
	}
}

func defaults() map[string]any {
	return map[string]any{
		"source.path":         DefaultSourcePath,
		"source.comma":        ",",
		"source.lazy_quotes":  false,
		"log.level":           "info",
		"log.format":          "console",
		"output":              "text",
		"aggregate.backend":   "dataframe",
		"metrics.backend":     "none",
		"metrics.job_name":    "explore",
		"metrics.flush_every": 60 * time.Second,
	}
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"source":          "source.path",
	"comma":           "source.comma",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"output":          "output",
	"backend":         "aggregate.backend",
	"metrics-backend": "metrics.backend",
}

// Load builds a Config. cfgFile may be empty, in which case ./explore.yaml is
// used when present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	// EXPLORE_SOURCE_PATH -> source.path, EXPLORE_METRICS_FLUSH_EVERY -> metrics.flush_every
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize lowercases the enumerated settings so later switches match exactly.
func (c *Config) normalize() {
	for _, p := range []*string{&c.Log.Level, &c.Log.Format, &c.Output, &c.Aggregate.Backend, &c.Metrics.Backend} {
		*p = strings.ToLower(strings.TrimSpace(*p))
	}
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}
