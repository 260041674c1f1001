package terrain

import (
	"encoding/binary"
	"fmt"
	"io"
)

// VertexData holds the quantized u, v and height planes of a tile.
type VertexData struct {
	U []uint16
	V []uint16
	H []uint16
}

func (vd *VertexData) VertexCount() int {
	return len(vd.U)
}

func encodeZigZag(i int) uint16 {
	return uint16((i >> 15) ^ (i << 1))
}

func decodeZigZag(encoded uint16) int {
	unsignedEncoded := int(encoded)
	return unsignedEncoded>>1 ^ -(unsignedEncoded & 1)
}

func deltaEncode(plane []uint16) []uint16 {
	out := make([]uint16, len(plane))
	prev := 0
	for i, v := range plane {
		out[i] = encodeZigZag(int(v) - prev)
		prev = int(v)
	}
	return out
}

func deltaDecode(plane []uint16) {
	acc := 0
	for i, v := range plane {
		acc += decodeZigZag(v)
		plane[i] = uint16(acc)
	}
}

// Write emits the vertex count and the three zig-zag delta encoded planes.
// It returns the number of bytes written.
func (vd *VertexData) Write(writer io.Writer) (int, error) {
	n := vd.VertexCount()
	if len(vd.V) != n || len(vd.H) != n {
		return 0, fmt.Errorf("%w: vertex planes differ in length", ErrMalformedTile)
	}
	if err := binary.Write(writer, byteOrder, uint32(n)); err != nil {
		return 0, err
	}
	for _, plane := range [][]uint16{vd.U, vd.V, vd.H} {
		if err := binary.Write(writer, byteOrder, deltaEncode(plane)); err != nil {
			return 0, err
		}
	}
	return 4 + n*6, nil
}

func (vd *VertexData) Read(reader io.Reader) (int, error) {
	var count uint32
	if err := binary.Read(reader, byteOrder, &count); err != nil {
		return 0, err
	}
	n := int(count)
	planes := make([][]uint16, 3)
	for i := range planes {
		planes[i] = make([]uint16, n)
		if err := binary.Read(reader, byteOrder, planes[i]); err != nil {
			return 0, err
		}
		deltaDecode(planes[i])
	}
	vd.U, vd.V, vd.H = planes[0], planes[1], planes[2]
	return 4 + n*6, nil
}

type Indices interface {
	GetIndexCount() int
	GetIndex(i int) int
	Alignment() int
	Read(reader io.Reader) error
	Write(writer io.Writer) error
}

type indexWord interface {
	~uint16 | ~uint32
}

// indexData stores triangle indices and the vertices on each tile edge.
type indexData[T indexWord] struct {
	IndicesData []T
	westlings   []T
	southlings  []T
	eastlings   []T
	northlings  []T
}

type Indices16 = indexData[uint16]

type Indices32 = indexData[uint32]

func newIndices(vertexCount int, indices []uint32, data VertexData) Indices {
	if vertexCount > QUANTIZED_MESH_INDEX32_THRESHOLD {
		return buildIndices[uint32](indices, data)
	}
	return buildIndices[uint16](indices, data)
}

func buildIndices[T indexWord](indices []uint32, data VertexData) *indexData[T] {
	ind := &indexData[T]{IndicesData: make([]T, len(indices))}
	for i, v := range indices {
		ind.IndicesData[i] = T(v)
	}
	for i := 0; i < data.VertexCount(); i++ {
		switch data.U[i] {
		case 0:
			ind.westlings = append(ind.westlings, T(i))
		case QUANTIZED_COORDINATE_SIZE:
			ind.eastlings = append(ind.eastlings, T(i))
		}
		switch data.V[i] {
		case 0:
			ind.southlings = append(ind.southlings, T(i))
		case QUANTIZED_COORDINATE_SIZE:
			ind.northlings = append(ind.northlings, T(i))
		}
	}
	return ind
}

func (ind *indexData[T]) GetIndexCount() int {
	return len(ind.IndicesData)
}

func (ind *indexData[T]) GetIndex(i int) int {
	return int(ind.IndicesData[i])
}

func (ind *indexData[T]) Alignment() int {
	var word T
	return binary.Size(word)
}

// encodeIndices applies high-water-mark encoding to a copy of the indices.
func (ind *indexData[T]) encodeIndices() []T {
	out := make([]T, len(ind.IndicesData))
	var highest T
	for i, code := range ind.IndicesData {
		out[i] = highest - code
		if code == highest {
			highest++
		}
	}
	return out
}

func (ind *indexData[T]) decodeIndices(indices []T) {
	var highest T
	for i, code := range indices {
		indices[i] = highest - code
		if code == 0 {
			highest++
		}
	}
}

func (ind *indexData[T]) Write(writer io.Writer) error {
	if err := binary.Write(writer, byteOrder, uint32(ind.GetIndexCount()/3)); err != nil {
		return err
	}
	if err := binary.Write(writer, byteOrder, ind.encodeIndices()); err != nil {
		return err
	}
	for _, edge := range [][]T{ind.westlings, ind.southlings, ind.eastlings, ind.northlings} {
		if err := ind.writeEdge(writer, edge); err != nil {
			return err
		}
	}
	return nil
}

func (ind *indexData[T]) writeEdge(writer io.Writer, edge []T) error {
	if err := binary.Write(writer, byteOrder, uint32(len(edge))); err != nil {
		return err
	}
	return binary.Write(writer, byteOrder, edge)
}

func (ind *indexData[T]) Read(reader io.Reader) error {
	var triangleCount uint32
	if err := binary.Read(reader, byteOrder, &triangleCount); err != nil {
		return err
	}
	ind.IndicesData = make([]T, triangleCount*3)
	if err := binary.Read(reader, byteOrder, ind.IndicesData); err != nil {
		return err
	}
	ind.decodeIndices(ind.IndicesData)

	edges := []*[]T{&ind.westlings, &ind.southlings, &ind.eastlings, &ind.northlings}
	for _, edge := range edges {
		e, err := ind.readEdge(reader)
		if err != nil {
			return err
		}
		*edge = e
	}
	return nil
}

func (ind *indexData[T]) readEdge(reader io.Reader) ([]T, error) {
	var count uint32
	if err := binary.Read(reader, byteOrder, &count); err != nil {
		return nil, err
	}
	edge := make([]T, count)
	if err := binary.Read(reader, byteOrder, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// Edges returns the vertex indices on the west, south, east and north borders.
func (ind *indexData[T]) Edges() (west, south, east, north []int) {
	conv := func(in []T) []int {
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = int(v)
		}
		return out
	}
	return conv(ind.westlings), conv(ind.southlings), conv(ind.eastlings), conv(ind.northlings)
}
