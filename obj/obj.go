// Package obj writes meshes in the Wavefront OBJ text format.
package obj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/flywave/go-dem2mesh/mesh"
)

const Ext = ".obj"

type Options struct {
	// Source is recorded in the header comment.
	Source string
	// Precision is the number of decimals per coordinate; negative selects
	// the shortest text that reads back to the same value.
	Precision int
}

func DefaultOptions() Options {
	return Options{Precision: -1}
}

// Write emits a header comment, one "v" line per vertex and one "f" line
// per face. Face indices are already 1-based in m.
func Write(w io.Writer, m *mesh.Mesh, opts Options) error {
	bw := bufio.NewWriterSize(w, 1<<16)

	if _, err := fmt.Fprintf(bw, "# Tessellation generated from file: '%s'\n# vertex coordinates order: %s\n# Vertices: %d\n# Faces: %d\n",
		opts.Source, m.Order, len(m.Vertices), len(m.Faces)); err != nil {
		return err
	}

	line := make([]byte, 0, 128)
	for _, v := range m.Vertices {
		line = append(line[:0], 'v')
		for _, c := range v {
			line = append(line, ' ')
			line = strconv.AppendFloat(line, c, 'f', opts.Precision, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}

	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	for _, f := range m.Faces {
		line = append(line[:0], 'f')
		for _, idx := range f {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(idx), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
