package terrain

import (
	"fmt"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

func clamp(val float64, minVal float64, maxVal float64) float64 {
	return math.Max(math.Min(val, maxVal), minVal)
}

func signNotZero(v float64) float64 {
	if v < 0.0 {
		return -1.0
	}
	return 1.0
}

func toSnorm(v float64) uint8 {
	return uint8(math.Round((clamp(v, -1.0, 1.0)*0.5 + 0.5) * 255.0))
}

func fromSnorm(v uint8) float64 {
	return float64(v)/255.0*2.0 - 1.0
}

// octEncode projects a unit vector onto the octahedron and folds the lower
// hemisphere over the upper one.
func octEncode(vec vec3d.T) [2]uint8 {
	l1Norm := math.Abs(vec[0]) + math.Abs(vec[1]) + math.Abs(vec[2])
	x := vec[0] / l1Norm
	y := vec[1] / l1Norm

	if vec[2] < 0.0 {
		ox := x
		x = (1.0 - math.Abs(y)) * signNotZero(ox)
		y = (1.0 - math.Abs(ox)) * signNotZero(y)
	}
	return [2]uint8{toSnorm(x), toSnorm(y)}
}

func octDecode(ex, ey uint8) vec3d.T {
	res := vec3d.T{fromSnorm(ex), fromSnorm(ey), 0}
	res[2] = 1.0 - (math.Abs(res[0]) + math.Abs(res[1]))

	if res[2] < 0.0 {
		oldX := res[0]
		res[0] = (1.0 - math.Abs(res[1])) * signNotZero(oldX)
		res[1] = (1.0 - math.Abs(oldX)) * signNotZero(res[1])
	}
	return res.Normalized()
}

// vertexNormals averages the area-weighted earth-centered normals of the
// triangles around each vertex.
func vertexNormals(positions []vec3d.T, indices []uint32) ([]vec3d.T, error) {
	ecef := make([]vec3d.T, len(positions))
	for i, p := range positions {
		var err error
		if ecef[i], err = toEcef(p); err != nil {
			return nil, err
		}
	}

	sums := make([]vec3d.T, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		e1 := vec3d.Sub(&ecef[b], &ecef[a])
		e2 := vec3d.Sub(&ecef[c], &ecef[a])
		n := vec3d.Cross(&e1, &e2)
		for _, v := range [3]uint32{a, b, c} {
			sums[v] = vec3d.Add(&sums[v], &n)
		}
	}

	for i := range sums {
		if sums[i].LengthSqr() == 0 {
			// isolated vertex: fall back to the ellipsoid up direction
			sums[i] = ecef[i]
		}
		if sums[i].LengthSqr() == 0 {
			return nil, fmt.Errorf("%w: degenerate normal at vertex %d", ErrMalformedTile, i)
		}
		sums[i] = sums[i].Normalized()
	}
	return sums, nil
}
