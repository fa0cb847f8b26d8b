// Package config loads blpkit settings from defaults, an optional YAML file
// and BLPKIT_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides: BLPKIT_ANALYSIS_TIMEOUT=3s sets
// analysis.timeout.
const EnvPrefix = "BLPKIT_"

// DefaultPaths are searched when no explicit file is given.
var DefaultPaths = []string{"blpkit.yaml", "blpkit.yml"}

type Config struct {
	Log      LogConfig      `koanf:"log"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Cache    CacheConfig    `koanf:"cache"`
	Preview  PreviewConfig  `koanf:"preview"`
	Output   OutputConfig   `koanf:"output"`
	Workers  int            `koanf:"workers" validate:"gte=0,lte=256"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn warning error"`
}

type AnalysisConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// Eager runs analysis right after the first BLP→PNG encode.
	Eager bool `koanf:"eager"`
}

// CacheConfig enables the analysis cache when Dir is set.
type CacheConfig struct {
	Dir string        `koanf:"dir"`
	TTL time.Duration `koanf:"ttl" validate:"gte=0"`
}

// PreviewConfig keeps previews on disk when Dir is set, in memory otherwise.
type PreviewConfig struct {
	Dir string `koanf:"dir"`
}

type OutputConfig struct {
	Dir string `koanf:"dir"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Analysis: AnalysisConfig{Timeout: 10 * time.Second, Eager: true},
		Cache:    CacheConfig{TTL: 24 * time.Hour},
	}
}

// Load layers defaults, the YAML file at path and the environment. An
// empty path searches DefaultPaths; a missing default file is not an
// error, a missing explicit one is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile() string {
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps BLPKIT_CACHE_TTL to cache.ttl.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
