package terrain

import (
	"encoding/binary"
	"io"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

var EXT_LIGHT_HEADER = ExtensionHeader{ExtensionId: QUANTIZED_MESH_LIGHT_EXTENSION_ID}

type ExtensionHeader struct {
	ExtensionId     uint8
	ExtensionLength uint32
}

// OctEncodedVertexNormals is the "octvertexnormals" extension: one unit
// normal per vertex, in earth-centered coordinates.
type OctEncodedVertexNormals struct {
	Norm []vec3d.T
}

func (n *OctEncodedVertexNormals) Write(writer io.Writer) error {
	lhead := EXT_LIGHT_HEADER
	lhead.ExtensionLength = uint32(2 * len(n.Norm))
	if err := binary.Write(writer, byteOrder, lhead); err != nil {
		return err
	}
	buf := make([]byte, 0, 2*len(n.Norm))
	for _, v := range n.Norm {
		en := octEncode(v)
		buf = append(buf, en[0], en[1])
	}
	_, err := writer.Write(buf)
	return err
}

func (n *OctEncodedVertexNormals) Read(reader io.Reader, count int) error {
	buf := make([]byte, 2*count)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return err
	}
	n.Norm = make([]vec3d.T, count)
	for i := range n.Norm {
		n.Norm[i] = octDecode(buf[i*2], buf[i*2+1])
	}
	return nil
}
