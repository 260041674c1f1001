// Package mesh turns an elevation grid into a vertex and face list.
package mesh

import (
	"errors"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

var (
	ErrInvalidGrid      = errors.New("invalid grid")
	ErrInvalidAxisOrder = errors.New("invalid axis order")
	ErrInvalidOffset    = errors.New("invalid offset")
)

// Face holds the 1-based vertex indices of a triangle or a quad.
type Face []int

// Options controls tessellation and the written coordinate frame.
type Options struct {
	// Order is a permutation of "xyz"; empty means DefaultAxisOrder.
	Order string
	// Quad emits one quad per cell instead of two triangles.
	Quad bool
	// Offset is subtracted from raw (X, Y, Z) before permutation.
	// Nil selects DefaultOffset.
	Offset []float64
}

// Mesh is the result of Build. Vertices hold the written values: offset
// removed and axes permuted.
type Mesh struct {
	Width    int
	Height   int
	Order    AxisOrder
	Offset   vec3d.T
	Quad     bool
	Vertices []vec3d.T
	Faces    []Face
	BBox     [2]vec3d.T
}

// Build computes the mesh of a grid. All parameters are checked before any
// vertex is produced.
func Build(g *Grid, opts Options) (*Mesh, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	order, err := ParseAxisOrder(opts.Order)
	if err != nil {
		return nil, err
	}
	var offset vec3d.T
	if opts.Offset != nil {
		if offset, err = checkOffset(opts.Offset); err != nil {
			return nil, err
		}
	} else {
		offset = DefaultOffset(g)
	}

	m := &Mesh{
		Width:  g.Width,
		Height: g.Height,
		Order:  order,
		Offset: offset,
		Quad:   opts.Quad,
		BBox:   [2]vec3d.T{vec3d.MaxVal, vec3d.MinVal},
	}
	m.buildVertices(g)
	m.buildFaces(flipWinding(g.Transform, order))
	return m, nil
}

func (m *Mesh) buildVertices(g *Grid) {
	m.Vertices = make([]vec3d.T, 0, g.Width*g.Height)
	for row := 0; row < g.Height; row++ {
		y := g.Transform.Y(row) - m.Offset[1]
		for col := 0; col < g.Width; col++ {
			raw := [3]float64{
				g.Transform.X(col) - m.Offset[0],
				y,
				g.At(row, col) - m.Offset[2],
			}
			v := vec3d.T(m.Order.apply(raw))
			m.BBox[0] = vec3d.Min(&m.BBox[0], &v)
			m.BBox[1] = vec3d.Max(&m.BBox[1], &v)
			m.Vertices = append(m.Vertices, v)
		}
	}
}

// flipWinding reports whether the a-b-d order of a cell is clockwise when
// seen from +elevation in the written frame.
func flipWinding(t GeoTransform, order AxisOrder) bool {
	clockwise := t.PixelWidth()*t.PixelHeight() < 0
	return clockwise != order.Odd()
}

func (m *Mesh) buildFaces(flip bool) {
	cells := (m.Width - 1) * (m.Height - 1)
	if cells <= 0 {
		return
	}
	perCell, corners := 2, 3
	if m.Quad {
		perCell, corners = 1, 4
	}
	m.Faces = make([]Face, 0, cells*perCell)
	backing := make([]int, 0, cells*perCell*corners)
	emit := func(idx ...int) {
		start := len(backing)
		backing = append(backing, idx...)
		m.Faces = append(m.Faces, Face(backing[start:len(backing):len(backing)]))
	}

	w := m.Width
	for row := 0; row < m.Height-1; row++ {
		for col := 0; col < w-1; col++ {
			a := row*w + col + 1
			b := a + 1
			c := a + w
			d := c + 1
			switch {
			case m.Quad && flip:
				emit(a, c, d, b)
			case m.Quad:
				emit(a, b, d, c)
			case flip:
				emit(a, c, d)
				emit(a, d, b)
			default:
				emit(a, b, d)
				emit(a, d, c)
			}
		}
	}
}

// Raw returns the world coordinate of vertex i (0-based) before offset and
// permutation.
func (m *Mesh) Raw(i int) vec3d.T {
	raw := m.Order.invert(m.Vertices[i])
	return vec3d.T{raw[0] + m.Offset[0], raw[1] + m.Offset[1], raw[2] + m.Offset[2]}
}

// Triangles returns every face as triangles, splitting quads along the
// same diagonal as triangular mode.
func (m *Mesh) Triangles() [][3]int {
	tris := make([][3]int, 0, len(m.Faces)*2)
	for _, f := range m.Faces {
		if len(f) == 4 {
			tris = append(tris, [3]int{f[0], f[1], f[2]}, [3]int{f[0], f[2], f[3]})
			continue
		}
		tris = append(tris, [3]int{f[0], f[1], f[2]})
	}
	return tris
}
