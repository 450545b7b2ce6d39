package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config : top-level cdfctl configuration. Command line flags override it.
type Config struct {
	Decode    DecodeConfig `toml:"decode"`
	Scan      ScanConfig   `toml:"scan"`
	LogConfig LogConfig    `toml:"log_config"`
}

type DecodeConfig struct {
	Escape      int    `toml:"escape"`
	Parallelism int    `toml:"parallelism"`
	OutDir      string `toml:"out_dir"`
}

type ScanConfig struct {
	Layout string `toml:"layout"`
	Offset int64  `toml:"offset"`
}

type LogConfig struct {
	MinLevelPercents map[string]float64 `toml:"min_level_percents"`
	LogLevel         string             `toml:"log_level"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Decode: DecodeConfig{
			Parallelism: runtime.NumCPU(),
			OutDir:      ".",
		},
		Scan: ScanConfig{
			Layout: "auto",
		},
		LogConfig: LogConfig{
			LogLevel: "warn",
		},
	}
}

// Load reads a TOML file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	cfgBytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(cfgBytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Decode.Escape < 0 || c.Decode.Escape > 255 {
		return fmt.Errorf("%w: decode.escape %d is not a byte", ErrInvalidConfig, c.Decode.Escape)
	}
	if c.Decode.Parallelism < 1 {
		return fmt.Errorf("%w: decode.parallelism must be positive", ErrInvalidConfig)
	}
	switch c.Scan.Layout {
	case "auto", "v3", "v2":
	default:
		return fmt.Errorf("%w: scan.layout %q", ErrInvalidConfig, c.Scan.Layout)
	}
	if c.Scan.Offset < 0 {
		return fmt.Errorf("%w: scan.offset must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogConfig.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseLevelPercents(c.LogConfig); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
	return level, nil
}

func ParseLevelPercents(cfg LogConfig) (map[slog.Level]float64, error) {
	out := map[slog.Level]float64{
		slog.LevelDebug: 100.0,
		slog.LevelInfo:  100.0,
		slog.LevelWarn:  100.0,
		slog.LevelError: 100.0,
	}

	for k, v := range cfg.MinLevelPercents {
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("percent for %s out of range: %v", k, v)
		}
		switch strings.ToLower(k) {
		case "debug":
			out[slog.LevelDebug] = v
		case "info":
			out[slog.LevelInfo] = v
		case "warn":
			out[slog.LevelWarn] = v
		case "error":
			out[slog.LevelError] = v
		default:
			return nil, fmt.Errorf("unknown log level: %s", k)
		}
	}
	return out, nil
}
