package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Runner is the set of run modes the CLI dispatches to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunFit() error
	RunWorldFile() error
	RunServe() error
}

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile       string
	DataFile         string
	Modes            string
	Toggles          *TogglesOption // nil when no toggle flag was given
	Frame            string
	Method           string
	OutputDir        string
	GeoJSON          string
	Overlay          string
	Chart            string
	CalibrationCache string
	MaxAge           time.Duration // reuse a cached fit younger than this; 0 always refits
	WriteConfig      string
	Publish          bool
	HTTPMode         bool
	HTTPPort         int
	WorldFile        string
	Keypoints        string
	Direction        string
}

// TogglesOption carries -translation/-rotation/-scale; unset flags default to true
type TogglesOption struct {
	Translation, Rotation, Scale bool
}

func main() {
	app := NewApp()
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Error: %v", err)
	}
}

// run parses args and dispatches to the selected mode
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("framefit", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	var translation, rotation, scale toggleFlag

	fs.StringVar(&opts.ConfigFile, "config", "", "Path to configuration file (optional)")
	fs.StringVar(&opts.DataFile, "data", "", "Path to YAML correspondence dataset (overrides config)")
	fs.StringVar(&opts.Modes, "modes", "", "Comma-separated entry modes to fit (default: optimize)")
	fs.Var(&translation, "translation", "Optimize translation: -translation=no to freeze (yes/no, true/false, t/f, y/n, 1/0)")
	fs.Var(&rotation, "rotation", "Optimize rotation: -rotation=no to freeze (yes/no, true/false, t/f, y/n, 1/0)")
	fs.Var(&scale, "scale", "Optimize scale: -scale=no to freeze (yes/no, true/false, t/f, y/n, 1/0)")
	fs.StringVar(&opts.Frame, "frame", "", "Rotation/scale pivot: origin or centroid (default from config)")
	fs.StringVar(&opts.Method, "method", "", "Minimizer: bfgs or lbfgs (default from config)")
	fs.StringVar(&opts.OutputDir, "output-dir", "", "Directory for output files")
	fs.StringVar(&opts.GeoJSON, "geojson", "", "Write GeoJSON of the alignment to this file")
	fs.StringVar(&opts.Overlay, "plot", "", "Write overlay plot (.svg or .png) to this file")
	fs.StringVar(&opts.Chart, "chart", "", "Write residual bar chart (.png or .svg) to this file")
	fs.StringVar(&opts.CalibrationCache, "calibration-cache", "", "Path to calibration cache file")
	fs.DurationVar(&opts.MaxAge, "max-age", 0, "Reuse the cached fit when younger than this and the inputs match (e.g. 1h, 0 always refits)")
	fs.StringVar(&opts.WriteConfig, "write-config", "", "Save the effective configuration (file plus flags) to this YAML file")
	fs.BoolVar(&opts.Publish, "publish", false, "Publish results to MQTT")
	fs.BoolVar(&opts.HTTPMode, "http", false, "Serve results over HTTP after fitting")
	fs.IntVar(&opts.HTTPPort, "http-port", 8080, "HTTP server port")
	fs.StringVar(&opts.WorldFile, "worldfile", "", "World file for pixel/CRS keypoint conversion")
	fs.StringVar(&opts.Keypoints, "keypoints", "", "Keypoint CSV to convert in place with -worldfile")
	fs.StringVar(&opts.Direction, "direction", "pixel_to_crs", "Keypoint conversion: pixel_to_crs or crs_to_pixel")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "framefit version: %s\n", Version)

	if translation.set || rotation.set || scale.set {
		opts.Toggles = &TogglesOption{
			Translation: translation.get(true),
			Rotation:    rotation.get(true),
			Scale:       scale.get(true),
		}
	}

	app.ApplyOptions(opts)

	switch {
	case opts.WorldFile != "":
		return app.RunWorldFile()
	case opts.HTTPMode:
		return app.RunServe()
	default:
		return app.RunFit()
	}
}
