package terrain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/flywave/go-proj"
	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go-dem2mesh/mesh"
)

const (
	QUANTIZED_COORDINATE_SIZE         = 32767
	QUANTIZED_MESH_HEADER_SIZE        = 88
	QUANTIZED_MESH_LIGHT_EXTENSION_ID = 1
	QUANTIZED_MESH_INDEX32_THRESHOLD  = 65536
)

type TerrainExtensionFlag uint32

const (
	Ext_None  TerrainExtensionFlag = 0
	Ext_Light TerrainExtensionFlag = 1
)

const Ext = ".terrain"

const llh_ecef_radiusX = 6378137.0
const llh_ecef_radiusY = 6378137.0
const llh_ecef_radiusZ = 6356752.3142451793

const llh_ecef_rX = 1.0 / llh_ecef_radiusX
const llh_ecef_rY = 1.0 / llh_ecef_radiusY
const llh_ecef_rZ = 1.0 / llh_ecef_radiusZ

const BaseMime = "application/vnd.quantized-mesh"

var (
	ErrNotGeographic = errors.New("mesh coordinates are not longitude/latitude")
	ErrMalformedTile = errors.New("malformed quantized-mesh tile")
)

var byteOrder = binary.LittleEndian

func GetTerrainMime(flag TerrainExtensionFlag) string {
	if flag&Ext_Light == 0 {
		return BaseMime
	}
	return BaseMime + ";extensions=octvertexnormals"
}

type QuantizedMeshHeader struct {
	CenterX float64
	CenterY float64
	CenterZ float64

	MinimumHeight float32
	MaximumHeight float32

	BoundingSphereCenterX float64
	BoundingSphereCenterY float64
	BoundingSphereCenterZ float64
	BoundingSphereRadius  float64

	HorizonOcclusionPointX float64
	HorizonOcclusionPointY float64
	HorizonOcclusionPointZ float64
}

// Extent is the geographic rectangle of a tile in degrees. It is implied by
// the tile address and is not part of the encoded tile.
type Extent struct {
	West, South, East, North float64
}

// QuantizedMeshTile is a single Cesium quantized-mesh-1.0 tile.
type QuantizedMeshTile struct {
	Header       QuantizedMeshHeader
	Data         VertexData
	Index        Indices
	LightNormals *OctEncodedVertexNormals
	Extent       Extent
}

// TileMesh is a decoded tile in longitude, latitude and height.
type TileMesh struct {
	Vertices  []vec3d.T
	Triangles [][3]int
}

func quantizeCoordinate(v, min, max float64) uint16 {
	delta := max - min
	if delta == 0 {
		return 0
	}
	return uint16(math.Round((v - min) / delta * QUANTIZED_COORDINATE_SIZE))
}

func dequantizeCoordinate(v uint16, min, max float64) float64 {
	return min + float64(v)/QUANTIZED_COORDINATE_SIZE*(max-min)
}

// FromMesh encodes the raw coordinates of m, which must be longitude,
// latitude and height. Quads are split into triangles; vertices are
// reordered by first use so indices can be high-water-mark encoded.
func FromMesh(m *mesh.Mesh, normals bool) (*QuantizedMeshTile, error) {
	n := len(m.Vertices)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty mesh", ErrMalformedTile)
	}
	raw := make([]vec3d.T, n)
	bbox := [2]vec3d.T{vec3d.MaxVal, vec3d.MinVal}
	for i := range raw {
		raw[i] = m.Raw(i)
		if raw[i][0] < -180 || raw[i][0] > 180 || raw[i][1] < -90 || raw[i][1] > 90 {
			return nil, fmt.Errorf("%w: vertex %d at (%g, %g)", ErrNotGeographic, i+1, raw[i][0], raw[i][1])
		}
		bbox[0] = vec3d.Min(&bbox[0], &raw[i])
		bbox[1] = vec3d.Max(&bbox[1], &raw[i])
	}

	tris := m.Triangles()
	reverse := m.Order.Odd()
	for i := range tris {
		tris[i][0]--
		tris[i][1]--
		tris[i][2]--
		if reverse {
			tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
		}
	}

	order, remap := firstUseOrder(n, tris)
	positions := make([]vec3d.T, n)
	for newIdx, oldIdx := range order {
		positions[newIdx] = raw[oldIdx]
	}
	indices := make([]uint32, 0, len(tris)*3)
	for _, tri := range tris {
		indices = append(indices, uint32(remap[tri[0]]), uint32(remap[tri[1]]), uint32(remap[tri[2]]))
	}

	t := &QuantizedMeshTile{
		Extent: Extent{West: bbox[0][0], South: bbox[0][1], East: bbox[1][0], North: bbox[1][1]},
	}
	t.setVertices(positions, bbox)
	t.Index = newIndices(n, indices, t.Data)
	if err := t.setHeader(positions, bbox); err != nil {
		return nil, err
	}
	if normals {
		ns, err := vertexNormals(positions, indices)
		if err != nil {
			return nil, err
		}
		t.LightNormals = &OctEncodedVertexNormals{Norm: ns}
	}
	return t, nil
}

// firstUseOrder lists vertices in the order triangles first reference them,
// followed by unreferenced vertices.
func firstUseOrder(n int, tris [][3]int) (order []int, remap []int) {
	remap = make([]int, n)
	for i := range remap {
		remap[i] = -1
	}
	order = make([]int, 0, n)
	for _, tri := range tris {
		for _, v := range tri {
			if remap[v] < 0 {
				remap[v] = len(order)
				order = append(order, v)
			}
		}
	}
	for v := 0; v < n; v++ {
		if remap[v] < 0 {
			remap[v] = len(order)
			order = append(order, v)
		}
	}
	return order, remap
}

func (t *QuantizedMeshTile) setVertices(positions []vec3d.T, bbox [2]vec3d.T) {
	n := len(positions)
	t.Data = VertexData{U: make([]uint16, n), V: make([]uint16, n), H: make([]uint16, n)}
	for i, p := range positions {
		t.Data.U[i] = quantizeCoordinate(p[0], bbox[0][0], bbox[1][0])
		t.Data.V[i] = quantizeCoordinate(p[1], bbox[0][1], bbox[1][1])
		t.Data.H[i] = quantizeCoordinate(p[2], bbox[0][2], bbox[1][2])
	}
}

func toEcef(p vec3d.T) (vec3d.T, error) {
	x, y, z, err := proj.Lonlat2Ecef(p[0], p[1], p[2])
	if err != nil {
		return vec3d.T{}, err
	}
	return vec3d.T{x, y, z}, nil
}

func (t *QuantizedMeshTile) setHeader(positions []vec3d.T, bbox [2]vec3d.T) error {
	t.Header.MinimumHeight = float32(bbox[0][2])
	t.Header.MaximumHeight = float32(bbox[1][2])

	mid := vec3d.T{
		(bbox[0][0] + bbox[1][0]) / 2,
		(bbox[0][1] + bbox[1][1]) / 2,
		(bbox[0][2] + bbox[1][2]) / 2,
	}
	c, err := toEcef(mid)
	if err != nil {
		return err
	}
	t.Header.CenterX, t.Header.CenterY, t.Header.CenterZ = c[0], c[1], c[2]

	ecef := make([]vec3d.T, len(positions))
	radius := 0.0
	for i, p := range positions {
		if ecef[i], err = toEcef(p); err != nil {
			return err
		}
		d := vec3d.Sub(&ecef[i], &c)
		radius = math.Max(radius, d.Length())
	}
	t.Header.BoundingSphereCenterX = c[0]
	t.Header.BoundingSphereCenterY = c[1]
	t.Header.BoundingSphereCenterZ = c[2]
	t.Header.BoundingSphereRadius = radius

	ocp := horizonOcclusionPoint(ecef, c)
	t.Header.HorizonOcclusionPointX = ocp[0]
	t.Header.HorizonOcclusionPointY = ocp[1]
	t.Header.HorizonOcclusionPointZ = ocp[2]
	return nil
}

func toScaledSpace(p vec3d.T) vec3d.T {
	return vec3d.T{p[0] * llh_ecef_rX, p[1] * llh_ecef_rY, p[2] * llh_ecef_rZ}
}

// horizonOcclusionPoint returns the ellipsoid-scaled point from which every
// position is hidden once the point itself is below the horizon.
func horizonOcclusionPoint(ecef []vec3d.T, center vec3d.T) vec3d.T {
	scaled := toScaledSpace(center)
	direction := scaled.Normalized()
	maxMagnitude := 0.0
	for _, p := range ecef {
		maxMagnitude = math.Max(maxMagnitude, ocp_computeMagnitude(toScaledSpace(p), direction))
	}
	return vec3d.T{direction[0] * maxMagnitude, direction[1] * maxMagnitude, direction[2] * maxMagnitude}
}

func ocp_computeMagnitude(position vec3d.T, direction vec3d.T) float64 {
	magnitudeSquared := position.LengthSqr()
	magnitude := math.Sqrt(magnitudeSquared)
	dir := vec3d.T{position[0] / magnitude, position[1] / magnitude, position[2] / magnitude}

	// For the purpose of this computation, points below the ellipsoid
	// are considered to be on it instead.
	magnitudeSquared = math.Max(1.0, magnitudeSquared)
	magnitude = math.Max(1.0, magnitude)

	cosAlpha := vec3d.Dot(&dir, &direction)
	sv := vec3d.Cross(&dir, &direction)
	sinAlpha := sv.Length()
	cosBeta := 1.0 / magnitude
	sinBeta := math.Sqrt(magnitudeSquared-1.0) * cosBeta

	return 1.0 / (cosAlpha*cosBeta - sinAlpha*sinBeta)
}

// GetMesh decodes the tile back to longitude, latitude and height using
// t.Extent.
func (t *QuantizedMeshTile) GetMesh() (*TileMesh, error) {
	n := t.Data.VertexCount()
	if t.Index == nil || t.Index.GetIndexCount()%3 != 0 {
		return nil, fmt.Errorf("%w: index count", ErrMalformedTile)
	}
	out := &TileMesh{Vertices: make([]vec3d.T, n)}
	minH, maxH := float64(t.Header.MinimumHeight), float64(t.Header.MaximumHeight)
	for i := range out.Vertices {
		out.Vertices[i] = vec3d.T{
			dequantizeCoordinate(t.Data.U[i], t.Extent.West, t.Extent.East),
			dequantizeCoordinate(t.Data.V[i], t.Extent.South, t.Extent.North),
			dequantizeCoordinate(t.Data.H[i], minH, maxH),
		}
	}
	tri := t.Index.GetIndexCount() / 3
	out.Triangles = make([][3]int, tri)
	for i := range out.Triangles {
		for k := 0; k < 3; k++ {
			idx := t.Index.GetIndex(i*3 + k)
			if idx >= n {
				return nil, fmt.Errorf("%w: index %d out of range", ErrMalformedTile, idx)
			}
			out.Triangles[i][k] = idx
		}
	}
	return out, nil
}

func calcPadding(offset, paddingUnit int) int {
	padding := offset % paddingUnit
	if padding != 0 {
		padding = paddingUnit - padding
	}
	return padding
}

func (t *QuantizedMeshTile) Write(writer io.Writer) error {
	if t.Index == nil {
		return errors.New("index is not set")
	}
	if err := binary.Write(writer, byteOrder, t.Header); err != nil {
		return err
	}
	offset, err := t.Data.Write(writer)
	if err != nil {
		return err
	}
	padding := calcPadding(QUANTIZED_MESH_HEADER_SIZE+offset, t.Index.Alignment())
	if padding > 0 {
		buf := make([]byte, padding)
		for i := range buf {
			buf[i] = 0xCA
		}
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	if err := t.Index.Write(writer); err != nil {
		return err
	}

	if t.LightNormals != nil && len(t.LightNormals.Norm) == t.Data.VertexCount() {
		if err := t.LightNormals.Write(writer); err != nil {
			return err
		}
	}
	return nil
}

func (t *QuantizedMeshTile) Read(reader io.Reader) error {
	if err := binary.Read(reader, byteOrder, &t.Header); err != nil {
		return err
	}
	offset, err := t.Data.Read(reader)
	if err != nil {
		return err
	}
	n := t.Data.VertexCount()
	var idx Indices = new(Indices16)
	if n > QUANTIZED_MESH_INDEX32_THRESHOLD {
		idx = new(Indices32)
	}
	padding := calcPadding(QUANTIZED_MESH_HEADER_SIZE+offset, idx.Alignment())
	if _, err := io.CopyN(io.Discard, reader, int64(padding)); err != nil {
		return err
	}
	if err := idx.Read(reader); err != nil {
		return err
	}
	t.Index = idx

	for {
		var eh ExtensionHeader
		if err := binary.Read(reader, byteOrder, &eh); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch eh.ExtensionId {
		case QUANTIZED_MESH_LIGHT_EXTENSION_ID:
			if int(eh.ExtensionLength) != 2*n {
				return fmt.Errorf("%w: normals extension length %d", ErrMalformedTile, eh.ExtensionLength)
			}
			t.LightNormals = &OctEncodedVertexNormals{}
			if err := t.LightNormals.Read(reader, n); err != nil {
				return err
			}
		default:
			if _, err := io.CopyN(io.Discard, reader, int64(eh.ExtensionLength)); err != nil {
				return err
			}
		}
	}
}
