package raster

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// MaxASCIISamples bounds ncols*nrows of an ASCII grid header.
const MaxASCIISamples = 1 << 30

var asciiHeaderKeys = map[string]bool{
	"ncols":        true,
	"nrows":        true,
	"xllcorner":    true,
	"xllcenter":    true,
	"yllcorner":    true,
	"yllcenter":    true,
	"cellsize":     true,
	"dx":           true,
	"dy":           true,
	"nodata_value": true,
}

// ASCIIGrid is an ESRI ASCII grid (.asc) held in memory. It has one band.
type ASCIIGrid struct {
	Ncols, Nrows     int
	Xcorner, Ycorner float64
	CellSizeX        float64
	CellSizeY        float64
	NoDataValue      float64
	HasNoData        bool
	Data             []float64
}

// OpenASCII reads an ESRI ASCII grid, gunzipping files ending in ".gz".
func OpenASCII(path string) (*ASCIIGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterRead, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRasterRead, path, err)
		}
		defer gz.Close()
		r = gz
	}

	grid, err := ParseASCII(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return grid, nil
}

// ParseASCII decodes an ESRI ASCII grid. Header keys are case-insensitive;
// both the corner and the center variants of the origin are accepted, as
// well as the dx/dy form of the cell size.
func ParseASCII(r io.Reader) (*ASCIIGrid, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		tok := sc.Text()
		if !isHeaderKey(tok) {
			first = tok
			break
		}
		key := strings.ToLower(tok)
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: missing value for %s", ErrRasterRead, tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: %v", ErrRasterRead, tok, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterRead, err)
	}

	g, err := gridFromHeader(header)
	if err != nil {
		return nil, err
	}

	n := g.Ncols * g.Nrows
	g.Data = make([]float64, 0, min(n, 1<<20))
	if first != "" {
		v, err := strconv.ParseFloat(first, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sample 1: %v", ErrRasterRead, err)
		}
		g.Data = append(g.Data, v)
	}
	for sc.Scan() {
		if len(g.Data) == n {
			return nil, fmt.Errorf("%w: more than %d samples", ErrRasterRead, n)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", ErrRasterRead, len(g.Data)+1, err)
		}
		g.Data = append(g.Data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterRead, err)
	}
	if len(g.Data) != n {
		return nil, fmt.Errorf("%w: %d samples, expected %d", ErrRasterRead, len(g.Data), n)
	}
	return g, nil
}

// isHeaderKey matches the known header keys only, so samples written as
// "nan" or "inf" are read as data.
func isHeaderKey(tok string) bool {
	return asciiHeaderKeys[strings.ToLower(tok)]
}

func gridFromHeader(h map[string]float64) (*ASCIIGrid, error) {
	ncols, okc := h["ncols"]
	nrows, okr := h["nrows"]
	if !okc || !okr || ncols < 1 || nrows < 1 || ncols != math.Trunc(ncols) || nrows != math.Trunc(nrows) {
		return nil, fmt.Errorf("%w: missing or invalid ncols/nrows", ErrRasterRead)
	}
	if ncols*nrows > MaxASCIISamples {
		return nil, fmt.Errorf("%w: %gx%g grid exceeds %d samples", ErrRasterRead, ncols, nrows, MaxASCIISamples)
	}
	g := &ASCIIGrid{Ncols: int(ncols), Nrows: int(nrows)}

	if cs, ok := h["cellsize"]; ok {
		g.CellSizeX, g.CellSizeY = cs, cs
	} else {
		dx, okx := h["dx"]
		dy, oky := h["dy"]
		if !okx || !oky {
			return nil, fmt.Errorf("%w: missing cellsize", ErrRasterRead)
		}
		g.CellSizeX, g.CellSizeY = dx, dy
	}
	if g.CellSizeX <= 0 || g.CellSizeY <= 0 {
		return nil, fmt.Errorf("%w: cell size must be positive", ErrRasterRead)
	}

	switch {
	case has(h, "xllcorner"):
		g.Xcorner = h["xllcorner"]
	case has(h, "xllcenter"):
		g.Xcorner = h["xllcenter"] - g.CellSizeX/2
	default:
		return nil, fmt.Errorf("%w: missing xllcorner", ErrRasterRead)
	}
	switch {
	case has(h, "yllcorner"):
		g.Ycorner = h["yllcorner"]
	case has(h, "yllcenter"):
		g.Ycorner = h["yllcenter"] - g.CellSizeY/2
	default:
		return nil, fmt.Errorf("%w: missing yllcorner", ErrRasterRead)
	}

	g.NoDataValue, g.HasNoData = h["nodata_value"]
	return g, nil
}

func has(h map[string]float64, key string) bool {
	_, ok := h[key]
	return ok
}

func (g *ASCIIGrid) Size() (int, int) { return g.Ncols, g.Nrows }

func (g *ASCIIGrid) BandCount() int { return 1 }

// GeoTransform anchors the grid at its upper-left corner, rows running south.
func (g *ASCIIGrid) GeoTransform() ([6]float64, error) {
	top := g.Ycorner + float64(g.Nrows)*g.CellSizeY
	return [6]float64{g.Xcorner, g.CellSizeX, 0, top, 0, -g.CellSizeY}, nil
}

func (g *ASCIIGrid) ReadBand(band int) ([]float64, error) {
	if band != 1 {
		return nil, fmt.Errorf("band %d does not exist", band)
	}
	return g.Data, nil
}

func (g *ASCIIGrid) NoData(band int) (float64, bool) {
	return g.NoDataValue, g.HasNoData
}

func (g *ASCIIGrid) Close() error { return nil }
