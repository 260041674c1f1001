package gdal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"

	"github.com/flywave/go-dem2mesh/mesh"
	"github.com/flywave/go-dem2mesh/raster"
)

func memDataset(t *testing.T) *Dataset {
	t.Helper()
	register()
	ds, err := godal.Create(godal.Memory, "", 1, godal.Float32, 3, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ds.SetGeoTransform([6]float64{10, 5, 0, 20, 0, -5}); err != nil {
		t.Fatalf("geotransform: %v", err)
	}
	band := ds.Bands()[0]
	if err := band.Write(0, 0, []float32{1, 2, 3, 4, 5, -1}, 3, 2); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := band.SetNoData(-1); err != nil {
		t.Fatalf("nodata: %v", err)
	}
	return Wrap(ds)
}

func TestLoadMemoryDataset(t *testing.T) {
	d := memDataset(t)
	defer d.Close()

	grid, err := raster.Load(d, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if grid.Width != 3 || grid.Height != 2 {
		t.Errorf("size = %dx%d", grid.Width, grid.Height)
	}
	if grid.At(1, 1) != 5 {
		t.Errorf("sample (1,1) = %v", grid.At(1, 1))
	}
	if grid.Transform.X(2) != 20 || grid.Transform.Y(1) != 15 {
		t.Errorf("transform = %v", grid.Transform)
	}
	if grid.CountNoData() != 1 {
		t.Errorf("expected 1 no-data sample, got %d", grid.CountNoData())
	}
	if _, err := raster.Load(d, 2); !errors.Is(err, raster.ErrRasterRead) {
		t.Errorf("expected ErrRasterRead for band 2, got %v", err)
	}
}

func TestLoadWithoutGeoTransform(t *testing.T) {
	register()
	ds, err := godal.Create(godal.Memory, "", 1, godal.Float32, 2, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ds.Bands()[0].Write(0, 0, []float32{1, 2, 3, 4}, 2, 2); err != nil {
		t.Fatalf("write: %v", err)
	}
	d := Wrap(ds)
	defer d.Close()

	if _, err := d.GeoTransform(); !errors.Is(err, raster.ErrNoGeoTransform) {
		t.Errorf("expected ErrNoGeoTransform, got %v", err)
	}
	info, err := raster.Describe(d)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if info.Georeferenced || info.Transform != mesh.IdentityTransform {
		t.Errorf("info = %+v", info)
	}
	grid, err := raster.Load(d, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if grid.Transform.X(1) != 1 || grid.At(1, 1) != 4 {
		t.Errorf("grid transform %v, sample %v", grid.Transform, grid.At(1, 1))
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tif"))
	if !errors.Is(err, raster.ErrRasterRead) {
		t.Errorf("expected ErrRasterRead, got %v", err)
	}
}
