package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/framefit/align"
)

// App encapsulates the application state and dependencies
type App struct {
	Config  *align.Config
	Dataset *align.Dataset
	Results []align.ScenarioResult

	Out  io.Writer
	opts AppOptions

	fromCache bool // Results were read back from the calibration cache
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Out: os.Stdout}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

// loadConfig reads the config file (if any) and applies CLI overrides
func (a *App) loadConfig() error {
	cfg := align.DefaultConfig()
	if a.opts.ConfigFile != "" {
		loaded, err := align.LoadConfig(a.opts.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if a.opts.DataFile != "" {
		cfg.Dataset = a.opts.DataFile
	}
	if a.opts.Modes != "" {
		cfg.Modes = splitList(a.opts.Modes)
	}
	if a.opts.Frame != "" {
		cfg.Frame = a.opts.Frame
	}
	if a.opts.Method != "" {
		cfg.Method = a.opts.Method
	}
	if a.opts.OutputDir != "" {
		cfg.Output.Dir = a.opts.OutputDir
	}
	if a.opts.GeoJSON != "" {
		cfg.Output.GeoJSON = a.opts.GeoJSON
	}
	if a.opts.Overlay != "" {
		cfg.Output.Overlay = a.opts.Overlay
	}
	if a.opts.Chart != "" {
		cfg.Output.Chart = a.opts.Chart
	}
	if a.opts.CalibrationCache != "" {
		cfg.Output.CalibrationCache = a.opts.CalibrationCache
	}
	if t := a.opts.Toggles; t != nil {
		custom := align.Toggles{Translation: t.Translation, Rotation: t.Rotation, Scale: t.Scale}
		if !custom.Any() {
			return fmt.Errorf("-translation, -rotation and -scale are all off: %w", align.ErrInvalidConfiguration)
		}
		cfg.Scenarios = []align.Scenario{
			align.DefaultScenarios()[0],
			{Label: "Custom", ColorName: "red", Toggles: custom},
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset == "" {
		return fmt.Errorf("no dataset given: use -data or set dataset in the config file")
	}

	a.Config = cfg
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fit loads the dataset and runs every configured scenario
func (a *App) fit(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if a.opts.WriteConfig != "" {
		if err := align.SaveConfig(a.opts.WriteConfig, a.Config); err != nil {
			return err
		}
		log.Printf("[FIT] wrote effective config to %s", a.opts.WriteConfig)
	}

	ds, err := align.LoadDataset(a.Config.Dataset)
	if err != nil {
		return err
	}
	a.Dataset = ds.Filter(a.Config.ModeList()...)
	log.Printf("[FIT] %s: %d entries, %d in modes %v",
		a.Config.Dataset, len(ds.Keys), len(a.Dataset.Keys), a.Config.ModeList())

	opts, err := a.Config.Options()
	if err != nil {
		return err
	}

	if results, ok := a.cachedResults(opts); ok {
		log.Printf("[FIT] reusing cached fit from %s", a.outputPath(a.Config.Output.CalibrationCache))
		a.Results = results
		a.fromCache = true
		return nil
	}

	results, err := align.RunScenarios(ctx, a.Dataset, a.Config.ScenarioList(), opts)
	if err != nil {
		return err
	}
	a.Results = results
	a.fromCache = false
	return nil
}

// cachedResults returns the results of the last run when -max-age allows it,
// the cache is young enough, and it was fitted from the same dataset file,
// modes, frame and scenarios. A dataset modified after the cache was written
// forces a refit.
func (a *App) cachedResults(opts align.Options) ([]align.ScenarioResult, bool) {
	path := a.outputPath(a.Config.Output.CalibrationCache)
	if a.opts.MaxAge <= 0 || path == "" {
		return nil, false
	}

	cal, err := align.LoadCalibration(path)
	if err != nil {
		log.Printf("[FIT] ignoring calibration cache: %v", err)
		return nil, false
	}
	if cal == nil || cal.NeedsRecalibration(a.opts.MaxAge) {
		return nil, false
	}
	if cal.Dataset != a.Config.Dataset || !slices.Equal(cal.Modes, a.Config.ModeList()) {
		return nil, false
	}
	info, err := os.Stat(a.Config.Dataset)
	if err != nil || info.ModTime().Unix() > cal.LastUpdated {
		return nil, false
	}

	scenarios := a.Config.ScenarioList()
	results := make([]align.ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		sr, ok := cal.Lookup(sc.Label)
		if !ok || sr.Scenario.Toggles != sc.Toggles {
			return nil, false
		}
		if sc.Toggles.Any() && sr.Result.Frame != opts.Frame.String() {
			return nil, false
		}
		sr.Scenario = sc
		results = append(results, sr)
	}
	return results, true
}

// RunFit fits, prints the report, and writes the configured outputs
func (a *App) RunFit() error {
	if err := a.fit(context.Background()); err != nil {
		return err
	}

	printReport(a.Out, a.Results)
	return a.writeOutputs()
}

// outputPath resolves name against the configured output directory
func (a *App) outputPath(name string) string {
	if name == "" || filepath.IsAbs(name) || a.Config.Output.Dir == "" {
		return name
	}
	return filepath.Join(a.Config.Output.Dir, name)
}

func (a *App) writeOutputs() error {
	out := a.Config.Output
	if out.Dir != "" {
		if err := os.MkdirAll(out.Dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if out.CalibrationCache != "" && !a.fromCache {
		cal := &align.CalibrationData{Dataset: a.Config.Dataset, Modes: a.Config.ModeList(), Scenarios: a.Results}
		if err := align.SaveCalibration(a.outputPath(out.CalibrationCache), cal); err != nil {
			return err
		}
		if best, ok := cal.Best(); ok {
			log.Printf("[FIT] best scenario: %s (mean residual %.4f)", best.Scenario.Label, best.MeanResidual)
		}
	}
	if out.GeoJSON != "" {
		if err := align.WriteGeoJSON(a.outputPath(out.GeoJSON), a.Dataset, a.Results); err != nil {
			return err
		}
		log.Printf("[FIT] wrote %s", a.outputPath(out.GeoJSON))
	}
	if out.Overlay != "" {
		if err := align.RenderOverlayFile(a.outputPath(out.Overlay), a.Dataset, a.Results); err != nil {
			return err
		}
		log.Printf("[FIT] wrote %s", a.outputPath(out.Overlay))
	}
	if out.Chart != "" {
		if err := align.RenderChartFile(a.outputPath(out.Chart), a.Results); err != nil {
			return err
		}
		log.Printf("[FIT] wrote %s", a.outputPath(out.Chart))
	}
	if a.opts.Publish {
		if err := a.publish(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) publish() error {
	cfg := align.ResolveMQTTConfig(a.Config.MQTT)
	client, err := align.Connect(cfg, 10*time.Second)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("-publish requires an MQTT broker (config mqtt.broker or MQTT_BROKER)")
	}
	defer client.Disconnect(250)

	return align.NewPublisher(client, cfg.PublishPrefix).PublishResults(a.Results)
}

// printReport prints transform parameters and the residual table per scenario
func printReport(w io.Writer, results []align.ScenarioResult) {
	for _, sr := range results {
		label := sr.Scenario.Label
		res := sr.Result
		fmt.Fprintf(w, "\n=== %s ===\n", label)
		fmt.Fprintf(w, "%s Translation (dx, dy): (%.6f, %.6f)\n", label, res.Translation.X, res.Translation.Y)
		fmt.Fprintf(w, "%s Rotation (theta in degrees): %.6f\n", label, res.Degrees())
		fmt.Fprintf(w, "%s Scale: %.6f\n", label, res.Scale)
		fmt.Fprintf(w, "%s Converged: %v (%s, %d iterations, |grad|=%.3g)\n",
			label, res.Converged, res.Status, res.Iterations, res.GradientNorm)
		fmt.Fprintf(w, "%s Residuals:\n", label)
		fmt.Fprintf(w, "  %-25s %10s\n", "Point/Segment", "Residual")
		for _, kr := range sr.Residuals {
			fmt.Fprintf(w, "  %-25s %10.4f\n", kr.Key, kr.Residual)
		}
		fmt.Fprintf(w, "  %-25s %10.4f\n", "Mean", sr.MeanResidual)
	}
}

// RunWorldFile converts keypoints with a world file, or prints the mapping
func (a *App) RunWorldFile() error {
	m, err := align.LoadWorldFile(a.opts.WorldFile)
	if err != nil {
		return err
	}
	dir, err := align.ParseDirection(a.opts.Direction)
	if err != nil {
		return err
	}

	if a.opts.Keypoints == "" {
		fmt.Fprintf(a.Out, "World file %s:\n", a.opts.WorldFile)
		fmt.Fprintf(a.Out, "  x_crs = %g*x + %g*y + %g\n", m.A, m.B, m.Tx)
		fmt.Fprintf(a.Out, "  y_crs = %g*x + %g*y + %g\n", m.C, m.D, m.Ty)
		return nil
	}

	if err := align.ConvertKeypointsFile(a.opts.Keypoints, m, dir); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Updated keypoints saved to %s\n", a.opts.Keypoints)
	return nil
}

// RunServe fits once and serves the results until interrupted
func (a *App) RunServe() error {
	if err := a.fit(context.Background()); err != nil {
		return err
	}
	printReport(a.Out, a.Results)
	if err := a.writeOutputs(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.opts.HTTPPort),
		Handler:           newHTTPServer(a.Dataset, a.Results),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	case sig := <-sigCh:
		log.Printf("[HTTP] received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
