package mesh

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// ParseOffset reads an explicit offset from its textual components. A single
// comma separated argument ("1,2,3") is accepted as well as three arguments.
func ParseOffset(args []string) ([]float64, error) {
	if len(args) == 1 {
		args = strings.FieldsFunc(args[0], func(r rune) bool {
			return r == ',' || r == ' '
		})
	}
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidOffset, len(args))
	}
	offset := make([]float64, 3)
	for i, s := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d: %q is not a number", ErrInvalidOffset, i+1, s)
		}
		offset[i] = v
	}
	return offset, nil
}

func checkOffset(offset []float64) (vec3d.T, error) {
	if len(offset) != 3 {
		return vec3d.T{}, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidOffset, len(offset))
	}
	for i, v := range offset {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return vec3d.T{}, fmt.Errorf("%w: component %d is not finite", ErrInvalidOffset, i+1)
		}
	}
	return vec3d.T{offset[0], offset[1], offset[2]}, nil
}

// DefaultOffset is (min X, min Y, 0) over all vertices of the grid.
func DefaultOffset(g *Grid) vec3d.T {
	minX, minY := math.Inf(1), math.Inf(1)
	for col := 0; col < g.Width; col++ {
		minX = math.Min(minX, g.Transform.X(col))
	}
	for row := 0; row < g.Height; row++ {
		minY = math.Min(minY, g.Transform.Y(row))
	}
	return vec3d.T{minX, minY, 0}
}
