package mesh

import (
	"fmt"
	"math"
)

// GeoTransform holds the six affine coefficients of a raster in GDAL order:
// origin X, pixel width, row rotation, origin Y, column rotation, pixel height.
type GeoTransform [6]float64

// IdentityTransform maps pixel (row, col) to world (col, row).
var IdentityTransform = GeoTransform{0, 1, 0, 0, 0, 1}

func (t GeoTransform) OriginX() float64     { return t[0] }
func (t GeoTransform) PixelWidth() float64  { return t[1] }
func (t GeoTransform) OriginY() float64     { return t[3] }
func (t GeoTransform) PixelHeight() float64 { return t[5] }

// Rotated reports whether the rotation terms are set. Rotation is not
// supported; callers ignore those terms.
func (t GeoTransform) Rotated() bool {
	return t[2] != 0 || t[4] != 0
}

// X returns the world X of a raster column.
func (t GeoTransform) X(col int) float64 {
	return t[0] + float64(col)*t[1]
}

// Y returns the world Y of a raster row.
func (t GeoTransform) Y(row int) float64 {
	return t[3] + float64(row)*t[5]
}

// Grid is a single band of elevation samples, row-major, row 0 at the top.
type Grid struct {
	Width     int
	Height    int
	Values    []float64
	Transform GeoTransform
	NoData    float64
	HasNoData bool
}

// NewGrid allocates a zero-valued grid with an identity transform.
func NewGrid(width, height int) *Grid {
	n := 0
	if width > 0 && height > 0 {
		n = width * height
	}
	return &Grid{
		Width:     width,
		Height:    height,
		Values:    make([]float64, n),
		Transform: IdentityTransform,
	}
}

func (g *Grid) At(row, col int) float64 {
	return g.Values[row*g.Width+col]
}

func (g *Grid) Set(row, col int, v float64) {
	g.Values[row*g.Width+col] = v
}

// CountNoData returns how many samples equal the no-data sentinel.
func (g *Grid) CountNoData() int {
	if !g.HasNoData {
		return 0
	}
	n := 0
	for _, v := range g.Values {
		if v == g.NoData || (math.IsNaN(v) && math.IsNaN(g.NoData)) {
			n++
		}
	}
	return n
}

// Validate checks the grid dimensions, the sample count and the pixel size.
func (g *Grid) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGrid)
	}
	if g.Width < 1 || g.Height < 1 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidGrid, g.Width, g.Height)
	}
	if len(g.Values) != g.Width*g.Height {
		return fmt.Errorf("%w: %d samples for a %dx%d grid", ErrInvalidGrid, len(g.Values), g.Width, g.Height)
	}
	if g.Transform.PixelWidth() == 0 || g.Transform.PixelHeight() == 0 {
		return fmt.Errorf("%w: zero pixel size", ErrInvalidGrid)
	}
	return nil
}
