// dem2mesh converts a digital elevation model raster into a Wavefront OBJ
// tessellation or a quantized-mesh terrain tile.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/flywave/go-dem2mesh/internal/config"
	"github.com/flywave/go-dem2mesh/internal/convert"
	"github.com/flywave/go-dem2mesh/internal/logger"
	"github.com/flywave/go-dem2mesh/mesh"
)

const usage = `dem2mesh - convert a DEM raster into a mesh

Usage:
  dem2mesh [options] <input>

Examples:
  dem2mesh dem.tif
  dem2mesh -q -p xyz --offset 0 0 0 -o dem.obj dem.asc
  dem2mesh -f terrain --normals srtm_38_03.tif

Options:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dem2mesh: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	output     string
	offset     string
	order      string
	quad       bool
	verbose    bool
	band       int
	format     string
	normals    bool
	precision  int
	configPath string
	logFile    string
	saveConfig string
}

func newFlagSet(stderr io.Writer) (*pflag.FlagSet, *flags) {
	f := &flags{}
	fs := pflag.NewFlagSet("dem2mesh", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.output, "output", "o", "", "output file (default: input name with the format extension)")
	fs.StringVar(&f.offset, "offset", "", "offset removed from X Y Z (default: min X, min Y, 0)")
	fs.StringVarP(&f.order, "parse", "p", mesh.DefaultAxisOrder, "order in which X, Y and Z are written")
	fs.BoolVarP(&f.quad, "quad", "q", false, "write quadrilaterals instead of triangles")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log progress and raster information")
	fs.IntVarP(&f.band, "band", "b", 1, "raster band holding the elevations")
	fs.StringVarP(&f.format, "format", "f", config.FormatOBJ, "output format: obj or terrain")
	fs.BoolVar(&f.normals, "normals", false, "add oct-encoded vertex normals (terrain only)")
	fs.IntVar(&f.precision, "precision", -1, "digits after the decimal point in OBJ output (-1: shortest)")
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.StringVar(&f.logFile, "log-file", "", "also log to this file")
	fs.StringVar(&f.saveConfig, "save-config", "", "write the effective settings to this YAML file and exit")
	return fs, f
}

// normalizeArgs joins "--offset X Y Z" into "--offset=X,Y,Z" so that
// negative components are not mistaken for flags. The three tokens are
// joined only when each one is a number.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		if a == "--offset" && i+3 < len(args) && numbers(args[i+1:i+4]) {
			out = append(out, "--offset="+args[i+1]+","+args[i+2]+","+args[i+3])
			i += 3
			continue
		}
		out = append(out, a)
	}
	return out
}

func numbers(tokens []string) bool {
	for _, tok := range tokens {
		if _, err := strconv.ParseFloat(tok, 64); err != nil {
			return false
		}
	}
	return true
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) error {
	if fs.Changed("offset") {
		off, err := mesh.ParseOffset([]string{f.offset})
		if err != nil {
			return err
		}
		cfg.Mesh.Offset = off
	}
	if fs.Changed("parse") {
		cfg.Mesh.AxisOrder = f.order
	}
	if fs.Changed("quad") {
		cfg.Mesh.Quad = f.quad
	}
	if fs.Changed("band") {
		cfg.Mesh.Band = f.band
	}
	if fs.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fs.Changed("normals") {
		cfg.Output.Normals = f.normals
	}
	if fs.Changed("precision") {
		cfg.Output.Precision = f.precision
	}
	if fs.Changed("log-file") {
		cfg.Logging.LogFile = f.logFile
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	fs, f := newFlagSet(stderr)
	if err := fs.Parse(normalizeArgs(args)); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(fs, f, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if f.saveConfig != "" {
		if err := cfg.SaveTo(f.saveConfig); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved config to %s\n", f.saveConfig)
		return nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one input raster, got %d arguments", fs.NArg())
	}

	lc := cfg.Logger(f.verbose)
	lc.Console = stderr
	log := logger.New(lc)
	defer log.Sync()

	res, err := convert.Run(convert.Params{Input: fs.Arg(0), Output: f.output, Config: cfg}, log)
	if err != nil {
		log.Debug("conversion failed", zap.Error(err))
		return err
	}
	log.Info("done", zap.String("output", res.Output),
		zap.Int("vertices", res.Vertices), zap.Int("faces", res.Faces))
	return nil
}
