// Package raster reads a single elevation band into a mesh.Grid.
package raster

import (
	"errors"
	"fmt"

	"github.com/flywave/go-dem2mesh/mesh"
)

// ErrRasterRead is returned when a raster cannot be opened or lacks a usable band.
var ErrRasterRead = errors.New("raster read error")

// ErrNoGeoTransform is returned by a Source whose raster carries no
// georeferencing. The transform returned with it is used as is.
var ErrNoGeoTransform = errors.New("no geotransform")

// Source gives access to a raster dataset. Bands are numbered from 1.
type Source interface {
	Size() (width, height int)
	BandCount() int
	GeoTransform() ([6]float64, error)
	ReadBand(band int) ([]float64, error)
	NoData(band int) (float64, bool)
	Close() error
}

// Info summarizes a raster for diagnostics.
type Info struct {
	Width     int
	Height    int
	Bands     int
	Transform mesh.GeoTransform
	// Georeferenced is false when the transform is the pixel-unit fallback.
	Georeferenced bool
}

// Describe collects the raster size, band count and geotransform.
func Describe(src Source) (Info, error) {
	w, h := src.Size()
	info := Info{Width: w, Height: h, Bands: src.BandCount(), Georeferenced: true}
	gt, err := src.GeoTransform()
	switch {
	case errors.Is(err, ErrNoGeoTransform):
		info.Georeferenced = false
	case err != nil:
		return Info{}, fmt.Errorf("%w: geotransform: %v", ErrRasterRead, err)
	}
	info.Transform = gt
	return info, nil
}

// Load reads the given band fully into memory.
func Load(src Source, band int) (*mesh.Grid, error) {
	info, err := Describe(src)
	if err != nil {
		return nil, err
	}
	if info.Bands == 0 {
		return nil, fmt.Errorf("%w: raster has no bands", ErrRasterRead)
	}
	if band < 1 || band > info.Bands {
		return nil, fmt.Errorf("%w: band %d does not exist (raster has %d)", ErrRasterRead, band, info.Bands)
	}
	if info.Width < 1 || info.Height < 1 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrRasterRead, info.Width, info.Height)
	}

	values, err := src.ReadBand(band)
	if err != nil {
		return nil, fmt.Errorf("%w: band %d: %v", ErrRasterRead, band, err)
	}
	if len(values) != info.Width*info.Height {
		return nil, fmt.Errorf("%w: band %d: read %d samples, expected %d", ErrRasterRead, band, len(values), info.Width*info.Height)
	}

	g := &mesh.Grid{
		Width:     info.Width,
		Height:    info.Height,
		Values:    values,
		Transform: info.Transform,
	}
	g.NoData, g.HasNoData = src.NoData(band)
	return g, nil
}
