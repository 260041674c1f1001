// Package gdal exposes GDAL datasets as raster.Source.
package gdal

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/flywave/go-dem2mesh/mesh"
	"github.com/flywave/go-dem2mesh/raster"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Dataset wraps an open GDAL dataset.
type Dataset struct {
	ds *godal.Dataset
}

// Open opens any raster format supported by the installed GDAL drivers.
func Open(path string) (*Dataset, error) {
	register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrRasterRead, err)
	}
	return &Dataset{ds: ds}, nil
}

// Wrap adopts an already open dataset, e.g. one created in memory.
func Wrap(ds *godal.Dataset) *Dataset {
	return &Dataset{ds: ds}
}

func (d *Dataset) Size() (int, int) {
	st := d.ds.Structure()
	return st.SizeX, st.SizeY
}

func (d *Dataset) BandCount() int {
	return d.ds.Structure().NBands
}

// GeoTransform returns the identity transform wrapped with
// raster.ErrNoGeoTransform when the dataset is not georeferenced, so pixel
// indices become coordinates.
func (d *Dataset) GeoTransform() ([6]float64, error) {
	gt, err := d.ds.GeoTransform()
	if err != nil {
		return [6]float64(mesh.IdentityTransform), fmt.Errorf("%w: %v", raster.ErrNoGeoTransform, err)
	}
	return gt, nil
}

func (d *Dataset) band(n int) (godal.Band, error) {
	bands := d.ds.Bands()
	if n < 1 || n > len(bands) {
		return godal.Band{}, fmt.Errorf("band %d does not exist", n)
	}
	return bands[n-1], nil
}

// ReadBand reads a whole band as float64, letting GDAL convert the data type.
func (d *Dataset) ReadBand(n int) ([]float64, error) {
	b, err := d.band(n)
	if err != nil {
		return nil, err
	}
	w, h := d.Size()
	buf := make([]float64, w*h)
	if err := b.Read(0, 0, buf, w, h); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Dataset) NoData(n int) (float64, bool) {
	b, err := d.band(n)
	if err != nil {
		return 0, false
	}
	return b.NoData()
}

func (d *Dataset) Close() error {
	return d.ds.Close()
}
