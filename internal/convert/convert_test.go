package convert

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	terrain "github.com/flywave/go-dem2mesh"
	"github.com/flywave/go-dem2mesh/internal/config"
	"github.com/flywave/go-dem2mesh/mesh"
	"github.com/flywave/go-dem2mesh/raster"
)

func copyRamp(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "raster", "testdata", "ramp.asc"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ramp.asc")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeGeographic(t *testing.T) string {
	t.Helper()
	src := `ncols 3
nrows 3
xllcorner 10.0
yllcorner 45.0
cellsize 0.01
100 101 102
103 104 105
106 107 108
`
	path := filepath.Join(t.TempDir(), "alps.asc")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunOBJ(t *testing.T) {
	in := copyRamp(t)
	core, logs := observer.New(zapcore.DebugLevel)

	res, err := Run(Params{Input: in}, zap.New(core))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := strings.TrimSuffix(in, ".asc") + ".obj"
	if res.Output != want {
		t.Errorf("output = %s, want %s", res.Output, want)
	}
	if res.Vertices != 12 || res.Faces != 12 {
		t.Errorf("counts = %d vertices, %d faces", res.Vertices, res.Faces)
	}

	data, err := os.ReadFile(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, line := range []string{
		"# vertex coordinates order: yzx",
		"# Vertices: 12",
		"# Faces: 12",
		"v 20 1 0",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("output missing %q", line)
		}
	}
	if !strings.Contains(out, "'"+in+"'") {
		t.Error("header does not name the input file")
	}

	if logs.FilterMessage("no-data samples are written as elevations").Len() != 1 {
		t.Error("expected a no-data warning")
	}
	if logs.FilterMessage("reading raster").Len() != 1 {
		t.Error("expected raster info at debug level")
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(in), ".*.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestRunQuadExplicitOutput(t *testing.T) {
	in := copyRamp(t)
	cfg := config.Default()
	cfg.Mesh.Quad = true
	cfg.Mesh.AxisOrder = "xyz"
	cfg.Mesh.Offset = []float64{0, 0, 0}
	cfg.Output.Precision = 1
	out := filepath.Join(filepath.Dir(in), "mesh.obj")

	res, err := Run(Params{Input: in, Output: out, Config: cfg}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Faces != 6 {
		t.Errorf("expected 6 quads, got %d", res.Faces)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("v 1000.0 2030.0 1.0\n")) {
		t.Errorf("first vertex not in raw coordinates:\n%s", data)
	}
}

func TestRunTerrain(t *testing.T) {
	in := writeGeographic(t)
	cfg := config.Default()
	cfg.Output.Format = config.FormatTerrain
	cfg.Output.Normals = true

	res, err := Run(Params{Input: in, Config: cfg}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Ext(res.Output) != terrain.Ext {
		t.Errorf("unexpected output name %s", res.Output)
	}

	f, err := os.Open(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var tile terrain.QuantizedMeshTile
	if err := tile.Read(f); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if tile.Data.VertexCount() != 9 || tile.Index.GetIndexCount() != 24 {
		t.Errorf("tile has %d vertices, %d indices", tile.Data.VertexCount(), tile.Index.GetIndexCount())
	}
	if tile.Header.MinimumHeight != 100 || tile.Header.MaximumHeight != 108 {
		t.Errorf("height range = %v..%v", tile.Header.MinimumHeight, tile.Header.MaximumHeight)
	}
	if tile.LightNormals == nil {
		t.Error("expected normals extension")
	}
}

func TestRunTerrainNotGeographic(t *testing.T) {
	in := copyRamp(t)
	cfg := config.Default()
	cfg.Output.Format = config.FormatTerrain

	_, err := Run(Params{Input: in, Config: cfg}, nil)
	if !errors.Is(err, terrain.ErrNotGeographic) {
		t.Fatalf("expected ErrNotGeographic, got %v", err)
	}
	if _, err := os.Stat(DefaultOutput(in, config.FormatTerrain)); !os.IsNotExist(err) {
		t.Error("no output should be created")
	}
}

func TestRunErrors(t *testing.T) {
	in := copyRamp(t)

	badOrder := config.Default()
	badOrder.Mesh.AxisOrder = "xxz"

	badBand := config.Default()
	badBand.Mesh.Band = 2

	tests := []struct {
		name   string
		params Params
		want   error
	}{
		{"missing input", Params{Input: filepath.Join(t.TempDir(), "none.asc")}, raster.ErrRasterRead},
		{"bad axis order", Params{Input: in, Config: badOrder}, mesh.ErrInvalidAxisOrder},
		{"missing band", Params{Input: in, Config: badBand}, raster.ErrRasterRead},
		{"missing output dir", Params{Input: in, Output: filepath.Join(t.TempDir(), "no", "such", "dir.obj")}, ErrWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.params, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteAtomicKeepsExistingOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.obj")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := writeAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("existing file modified: %q", data)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".out.obj.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := []struct {
		in, format, want string
	}{
		{"dem.tif", config.FormatOBJ, "dem.obj"},
		{"data/dem.asc.gz", config.FormatOBJ, "data/dem.obj"},
		{"dem.TIF", config.FormatTerrain, "dem.terrain"},
		{"dem", config.FormatOBJ, "dem.obj"},
		{"dir.v2/dem", config.FormatOBJ, "dir.v2/dem.obj"},
	}
	for _, tt := range tests {
		if got := DefaultOutput(tt.in, tt.format); got != tt.want {
			t.Errorf("DefaultOutput(%q, %q) = %q, want %q", tt.in, tt.format, got, tt.want)
		}
	}
}
