package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flywave/go-dem2mesh/mesh"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mesh.AxisOrder != "yzx" {
		t.Errorf("expected axis order yzx, got %s", cfg.Mesh.AxisOrder)
	}
	if cfg.Mesh.Quad {
		t.Error("expected triangles by default")
	}
	if cfg.Mesh.Offset != nil {
		t.Errorf("expected automatic offset, got %v", cfg.Mesh.Offset)
	}
	if cfg.Mesh.Band != 1 {
		t.Errorf("expected band 1, got %d", cfg.Mesh.Band)
	}
	if cfg.Output.Format != FormatOBJ {
		t.Errorf("expected obj format, got %s", cfg.Output.Format)
	}
	if cfg.Output.Precision != -1 {
		t.Errorf("expected shortest precision, got %d", cfg.Output.Precision)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "dem2mesh.yaml")

	yamlContent := `
mesh:
  axis_order: "XZY"
  quad: true
  offset: [100, 200, 5]
  band: 2

output:
  format: terrain
  precision: 3
  normals: true

logging:
  level: debug
  log_file: "convert.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Mesh.AxisOrder != "XZY" || !cfg.Mesh.Quad || cfg.Mesh.Band != 2 {
		t.Errorf("mesh section = %+v", cfg.Mesh)
	}
	if len(cfg.Mesh.Offset) != 3 || cfg.Mesh.Offset[1] != 200 {
		t.Errorf("offset = %v", cfg.Mesh.Offset)
	}
	if cfg.Output.Format != FormatTerrain || cfg.Output.Precision != 3 || !cfg.Output.Normals {
		t.Errorf("output section = %+v", cfg.Output)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "convert.log" {
		t.Errorf("logging section = %+v", cfg.Logging)
	}
	// unset values keep their defaults
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("expected default max backups, got %d", cfg.Logging.MaxBackups)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}

	opts := cfg.MeshOptions()
	if opts.Order != "XZY" || !opts.Quad || len(opts.Offset) != 3 {
		t.Errorf("mesh options = %+v", opts)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mesh: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Mesh.AxisOrder = "zxy"
	cfg.Mesh.Offset = []float64{1, 2, 3}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Mesh.AxisOrder != "zxy" || len(loaded.Mesh.Offset) != 3 || loaded.Mesh.Offset[2] != 3 {
		t.Errorf("reloaded mesh section = %+v", loaded.Mesh)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"bad axis", func(c *Config) { c.Mesh.AxisOrder = "xxy" }, mesh.ErrInvalidAxisOrder},
		{"short offset", func(c *Config) { c.Mesh.Offset = []float64{1} }, mesh.ErrInvalidOffset},
		{"band zero", func(c *Config) { c.Mesh.Band = 0 }, nil},
		{"unknown format", func(c *Config) { c.Output.Format = "stl" }, nil},
		{"obj normals", func(c *Config) { c.Output.Normals = true }, nil},
		{"log level typo", func(c *Config) { c.Logging.Level = "warning" }, nil},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoggerVerbose(t *testing.T) {
	cfg := Default()
	if lc := cfg.Logger(false); lc.Level != "warn" {
		t.Errorf("expected warn, got %s", lc.Level)
	}
	if lc := cfg.Logger(true); lc.Level != "debug" {
		t.Errorf("expected debug with verbose, got %s", lc.Level)
	}
}
