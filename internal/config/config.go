// Package config handles dem2mesh settings: defaults, YAML file, flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flywave/go-dem2mesh/internal/logger"
	"github.com/flywave/go-dem2mesh/mesh"
)

const (
	FormatOBJ     = "obj"
	FormatTerrain = "terrain"
)

// Config holds all conversion settings.
type Config struct {
	Mesh    MeshConfig    `yaml:"mesh"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// MeshConfig controls tessellation and the written coordinate frame.
type MeshConfig struct {
	AxisOrder string    `yaml:"axis_order"`
	Quad      bool      `yaml:"quad"`
	Offset    []float64 `yaml:"offset"` // empty = min X, min Y, 0
	Band      int       `yaml:"band"`
}

// OutputConfig selects the file format.
type OutputConfig struct {
	Format    string `yaml:"format"`
	Precision int    `yaml:"precision"` // -1 = shortest round-trip text
	Normals   bool   `yaml:"normals"`   // terrain only
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with the tool's default values.
func Default() *Config {
	lc := logger.DefaultConfig()
	return &Config{
		Mesh: MeshConfig{
			AxisOrder: mesh.DefaultAxisOrder,
			Band:      1,
		},
		Output: OutputConfig{
			Format:    FormatOBJ,
			Precision: -1,
		},
		Logging: LoggingConfig{
			Level:      lc.Level,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		},
	}
}

// Load reads defaults merged with a YAML file. An empty path searches the
// standard locations and silently keeps the defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"./dem2mesh.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "dem2mesh", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveTo writes the config as YAML, creating the parent directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values the YAML decoder cannot.
func (c *Config) Validate() error {
	if _, err := mesh.ParseAxisOrder(c.Mesh.AxisOrder); err != nil {
		return err
	}
	if len(c.Mesh.Offset) != 0 && len(c.Mesh.Offset) != 3 {
		return fmt.Errorf("%w: expected 3 components, got %d", mesh.ErrInvalidOffset, len(c.Mesh.Offset))
	}
	if c.Mesh.Band < 1 {
		return fmt.Errorf("band must be >= 1, got %d", c.Mesh.Band)
	}
	switch c.Output.Format {
	case FormatOBJ, FormatTerrain:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Output.Normals && c.Output.Format != FormatTerrain {
		return fmt.Errorf("normals are only written in the %s format", FormatTerrain)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", c.Logging.Level)
	}
	return nil
}

// Logger converts the logging section; verbose forces debug output.
func (c *Config) Logger(verbose bool) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	if verbose {
		lc.Level = "debug"
	}
	lc.File = c.Logging.LogFile
	lc.MaxSizeMB = c.Logging.MaxSizeMB
	lc.MaxBackups = c.Logging.MaxBackups
	lc.MaxAgeDays = c.Logging.MaxAgeDays
	lc.Compress = c.Logging.Compress
	return lc
}

// MeshOptions converts the mesh section for mesh.Build.
func (c *Config) MeshOptions() mesh.Options {
	opts := mesh.Options{Order: c.Mesh.AxisOrder, Quad: c.Mesh.Quad}
	if len(c.Mesh.Offset) > 0 {
		opts.Offset = c.Mesh.Offset
	}
	return opts
}
