// Package convert runs one raster to mesh conversion.
package convert

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	terrain "github.com/flywave/go-dem2mesh"
	"github.com/flywave/go-dem2mesh/internal/config"
	"github.com/flywave/go-dem2mesh/mesh"
	"github.com/flywave/go-dem2mesh/obj"
	"github.com/flywave/go-dem2mesh/raster"
	"github.com/flywave/go-dem2mesh/raster/gdal"
)

// ErrWrite is returned when the output file cannot be written.
var ErrWrite = errors.New("write error")

type Params struct {
	Input  string
	Output string // empty derives the name from Input
	Config *config.Config
}

// Result describes a finished conversion.
type Result struct {
	Output   string
	Vertices int
	Faces    int
}

// OpenRaster picks the reader from the file name: ESRI ASCII grids are read
// natively, everything else goes through GDAL.
func OpenRaster(path string) (raster.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrRasterRead, err)
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".asc") || strings.HasSuffix(lower, ".asc.gz") {
		g, err := raster.OpenASCII(path)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	ds, err := gdal.Open(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// DefaultOutput replaces the input extension (and a trailing .gz) with the
// extension of the output format.
func DefaultOutput(input, format string) string {
	base := input
	if strings.EqualFold(filepath.Ext(base), ".gz") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if format == config.FormatTerrain {
		return base + terrain.Ext
	}
	return base + obj.Ext
}

// Run reads the raster, builds the mesh and writes it.
func Run(p Params, log *zap.Logger) (*Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	grid, err := readGrid(p.Input, cfg.Mesh.Band, log)
	if err != nil {
		return nil, err
	}

	m, err := mesh.Build(grid, cfg.MeshOptions())
	if err != nil {
		return nil, err
	}
	log.Debug("removed offsets",
		zap.Float64("x", m.Offset[0]), zap.Float64("y", m.Offset[1]), zap.Float64("z", m.Offset[2]))
	log.Debug("tessellation built",
		zap.Int("vertices", len(m.Vertices)), zap.Int("faces", len(m.Faces)), zap.Bool("quad", m.Quad))

	out := p.Output
	if out == "" {
		out = DefaultOutput(p.Input, cfg.Output.Format)
	}

	var encode func(io.Writer) error
	switch cfg.Output.Format {
	case config.FormatTerrain:
		tile, err := terrain.FromMesh(m, cfg.Output.Normals)
		if err != nil {
			return nil, err
		}
		flag := terrain.Ext_None
		if tile.LightNormals != nil {
			flag |= terrain.Ext_Light
		}
		log.Debug("quantized mesh tile",
			zap.String("content_type", terrain.GetTerrainMime(flag)),
			zap.Float64("west", tile.Extent.West), zap.Float64("south", tile.Extent.South),
			zap.Float64("east", tile.Extent.East), zap.Float64("north", tile.Extent.North))
		encode = tile.Write
	default:
		encode = func(w io.Writer) error {
			return obj.Write(w, m, obj.Options{Source: p.Input, Precision: cfg.Output.Precision})
		}
	}

	log.Info("writing tessellation", zap.String("output", out), zap.String("format", cfg.Output.Format))
	if err := writeAtomic(out, encode); err != nil {
		return nil, err
	}
	return &Result{Output: out, Vertices: len(m.Vertices), Faces: len(m.Faces)}, nil
}

func readGrid(path string, band int, log *zap.Logger) (*mesh.Grid, error) {
	src, err := OpenRaster(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := raster.Describe(src)
	if err != nil {
		return nil, err
	}
	log.Debug("reading raster",
		zap.String("path", path),
		zap.Int("width", info.Width), zap.Int("height", info.Height), zap.Int("bands", info.Bands),
		zap.Float64("origin_x", info.Transform.OriginX()), zap.Float64("origin_y", info.Transform.OriginY()),
		zap.Float64("pixel_x", info.Transform.PixelWidth()), zap.Float64("pixel_y", info.Transform.PixelHeight()))
	if !info.Georeferenced {
		log.Warn("raster has no geotransform, using pixel coordinates", zap.String("path", path))
	}
	if info.Transform.Rotated() {
		log.Warn("ignoring geotransform rotation terms",
			zap.Float64("row_rotation", info.Transform[2]), zap.Float64("col_rotation", info.Transform[4]))
	}

	grid, err := raster.Load(src, band)
	if err != nil {
		return nil, err
	}
	if n := grid.CountNoData(); n > 0 {
		log.Warn("no-data samples are written as elevations",
			zap.Int("count", n), zap.Float64("nodata", grid.NoData))
	}
	return grid, nil
}

// writeAtomic writes to a temporary file next to path and renames it over
// path once everything is flushed. The temporary file is removed on failure.
func writeAtomic(path string, encode func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = encode(f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err = f.Chmod(0644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
