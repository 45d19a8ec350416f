package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/mgomes/stacky/stacky"
)

const configFileName = "stacky.toml"

// fileConfig mirrors stacky.toml.
type fileConfig struct {
	Limits limitsConfig `toml:"limits"`
	Log    logConfig    `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type limitsConfig struct {
	MaxStackSize     int `toml:"max_stack_size"`
	MaxExecutionTime int `toml:"max_execution_time"`
	MemoryQuotaBytes int `toml:"memory_quota_bytes"`
}

type logConfig struct {
	Level string `toml:"level"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg fileConfig
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	cfg.Path = path

	if cfg.Log.Level == "" {
		cfg.Log.Level = zerolog.WarnLevel.String()
	}
	return &cfg, nil
}

// resolveConfig loads the explicit path when given, otherwise a stacky.toml
// beside the script, otherwise defaults.
func resolveConfig(explicit, scriptPath string) (*fileConfig, error) {
	if explicit != "" {
		return loadConfig(explicit)
	}
	candidate := filepath.Join(filepath.Dir(scriptPath), configFileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &fileConfig{Log: logConfig{Level: zerolog.WarnLevel.String()}}, nil
		}
		return nil, fmt.Errorf("access %s: %w", candidate, err)
	}
	return loadConfig(candidate)
}

// override applies command-line limits; zero leaves the file value.
func (c *fileConfig) override(maxStack, maxSteps, memory int) {
	if maxStack > 0 {
		c.Limits.MaxStackSize = maxStack
	}
	if maxSteps > 0 {
		c.Limits.MaxExecutionTime = maxSteps
	}
	if memory > 0 {
		c.Limits.MemoryQuotaBytes = memory
	}
}

func (c *fileConfig) interpreterConfig() stacky.Config {
	return stacky.Config{
		MaxStackSize:     c.Limits.MaxStackSize,
		MaxExecutionTime: c.Limits.MaxExecutionTime,
		MemoryQuotaBytes: c.Limits.MemoryQuotaBytes,
	}
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
