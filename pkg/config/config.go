// Package config loads graphstudio's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/graphstudio/config.toml (or
// ~/.config/graphstudio/config.toml). Every key is optional; missing keys
// keep the values from [Default]. Unknown keys are an error so typos do not
// go unnoticed.
//
//	backend_url = "http://127.0.0.1:8000"
//
//	[layout]
//	strategy = "auto"      # auto, heuristic, graphviz
//	leveling = "longest"   # longest, shortest
//	gap_x = 260
//	gap_y = 190
//
//	[run]
//	stream_tool = "stream_chunk"
//	chunk_limit = 8
//
//	[replay]
//	addr = "127.0.0.1:8000"
//	delay = "400ms"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/layout"
	"github.com/matzehuels/graphstudio/pkg/replay"
	"github.com/matzehuels/graphstudio/pkg/runviz"
)

const appName = "graphstudio"

// Config is the full configuration.
type Config struct {
	BackendURL string       `toml:"backend_url"`
	Layout     LayoutConfig `toml:"layout"`
	Run        RunConfig    `toml:"run"`
	Replay     ReplayConfig `toml:"replay"`
}

// LayoutConfig selects and tunes the layout strategy.
type LayoutConfig struct {
	Strategy  string  `toml:"strategy"`
	Leveling  string  `toml:"leveling"`
	GapX      float64 `toml:"gap_x"`
	GapY      float64 `toml:"gap_y"`
	NodeWidth float64 `toml:"node_width"`
	Passes    int     `toml:"passes"`
}

// RunConfig tunes run-state reduction.
type RunConfig struct {
	StreamTool string `toml:"stream_tool"`
	ChunkLimit int    `toml:"chunk_limit"`
}

// ReplayConfig configures the replay backend.
type ReplayConfig struct {
	Addr  string   `toml:"addr"`
	Delay Duration `toml:"delay"`
}

// Duration is a time.Duration written as a string ("400ms", "1s").
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL: "http://127.0.0.1:8000",
		Layout: LayoutConfig{
			Strategy:  layout.StrategyAuto,
			Leveling:  "longest",
			GapX:      layout.DefaultGapX,
			GapY:      layout.DefaultGapY,
			NodeWidth: layout.DefaultNodeWidth,
			Passes:    layout.DefaultPasses,
		},
		Run: RunConfig{
			StreamTool: runviz.DefaultStreamTool,
			ChunkLimit: runviz.DefaultChunkLimit,
		},
		Replay: ReplayConfig{
			Addr:  "127.0.0.1:8000",
			Delay: Duration{replay.DefaultDelay},
		},
	}
}

// DefaultPath returns the config file location using the XDG standard.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config file at path over [Default]. An empty path means
// [DefaultPath], which may be absent; an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if err := errs.ValidateURL(c.BackendURL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "backend_url")
	}
	if !slices.Contains([]string{layout.StrategyAuto, layout.StrategyHeuristic, layout.StrategyGraphviz}, c.Layout.Strategy) {
		return errs.New(errs.ErrCodeInvalidConfig, "layout.strategy: unknown strategy %q", c.Layout.Strategy)
	}
	if _, ok := layout.LevelerByName(c.Layout.Leveling); !ok {
		return errs.New(errs.ErrCodeInvalidConfig, "layout.leveling: unknown leveling %q", c.Layout.Leveling)
	}
	for name, v := range map[string]float64{"gap_x": c.Layout.GapX, "gap_y": c.Layout.GapY, "node_width": c.Layout.NodeWidth} {
		if v <= 0 {
			return errs.New(errs.ErrCodeInvalidConfig, "layout.%s must be positive, got %v", name, v)
		}
	}
	if c.Layout.Passes < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "layout.passes must not be negative")
	}
	if c.Run.ChunkLimit < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "run.chunk_limit must not be negative")
	}
	if c.Replay.Delay.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "replay.delay must not be negative")
	}
	return nil
}

// LayoutOptions converts the layout section.
func (c Config) LayoutOptions(logger *log.Logger) layout.Options {
	lev, _ := layout.LevelerByName(c.Layout.Leveling)
	return layout.Options{
		GapX:      c.Layout.GapX,
		GapY:      c.Layout.GapY,
		NodeWidth: c.Layout.NodeWidth,
		Leveler:   lev,
		Orderer:   layout.Barycenter{Passes: c.Layout.Passes},
		Logger:    logger,
	}
}

// RunOptions converts the run section.
func (c Config) RunOptions(logger *log.Logger) runviz.Options {
	return runviz.Options{
		StreamTool: c.Run.StreamTool,
		ChunkLimit: c.Run.ChunkLimit,
		Logger:     logger,
	}
}

// ReplayOptions converts the replay section. A zero delay disables pauses.
func (c Config) ReplayOptions(logger *log.Logger) replay.Options {
	d := c.Replay.Delay.Duration
	if d == 0 {
		d = -1
	}
	return replay.Options{Delay: d, Logger: logger}
}

// String renders the configuration as TOML.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
