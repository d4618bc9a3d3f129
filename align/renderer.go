package align

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	referenceColor = color.NRGBA{0, 0, 200, 255}
	targetColor    = color.NRGBA{214, 39, 40, 255}
)

// nrgbaToRGBA converts color.NRGBA to the premultiplied color.RGBA the canvas
// library expects.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// withAlpha returns c with its alpha replaced
func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}

// OverlayRenderer draws the reference geometry, the original target points,
// and every scenario's adjusted targets on one plot.
type OverlayRenderer struct {
	Dataset     *Dataset
	Results     []ScenarioResult
	Width       float64           // Drawing width in canvas millimeters
	Padding     float64           // Padding in canvas millimeters
	PointRadius float64           // Marker radius in canvas millimeters
	Resolution  canvas.Resolution // Resolution for PNG output
	Labels      bool              // Draw keys next to points (PNG only)
}

// NewOverlayRenderer creates an overlay renderer with default settings
func NewOverlayRenderer(ds *Dataset, results []ScenarioResult) *OverlayRenderer {
	return &OverlayRenderer{
		Dataset:     ds,
		Results:     results,
		Width:       200,
		Padding:     10,
		PointRadius: 1.2,
		Resolution:  canvas.DPMM(5),
		Labels:      true,
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// label is a key drawn next to a point in canvas coordinates
type label struct {
	x, y float64
	text string
	col  color.NRGBA
}

// viewport maps world coordinates into canvas millimeters
type viewport struct {
	minX, minY float64
	scale      float64
	padding    float64
	width      float64
	height     float64
}

func (v viewport) toCanvas(p Point) (float64, float64) {
	return (p.X-v.minX)*v.scale + v.padding, (p.Y-v.minY)*v.scale + v.padding
}

func (r *OverlayRenderer) viewport() viewport {
	corr := r.Dataset.Correspondences()
	targets := corr.AllTargets()
	sets := [][]Point{corr.ReferencePoints, targets}
	for _, s := range corr.Segments {
		sets = append(sets, []Point{s.Reference.Start, s.Reference.End})
	}
	for _, sr := range r.Results {
		sets = append(sets, sr.Result.Similarity.ApplyAll(targets))
	}

	b := Bounds(sets...)
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	extent := math.Max(w, h)
	if extent == 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = 1
	}

	drawable := r.Width - 2*r.Padding
	scale := drawable / extent
	return viewport{
		minX:    b.Min[0],
		minY:    b.Min[1],
		scale:   scale,
		padding: r.Padding,
		width:   w*scale + 2*r.Padding,
		height:  h*scale + 2*r.Padding,
	}
}

// RenderToSVG writes the overlay as an SVG to the provided writer
func (r *OverlayRenderer) RenderToSVG(w io.Writer) error {
	vp := r.viewport()
	svgRenderer := svg.New(w, vp.width, vp.height, nil)
	r.renderToCanvas(svgRenderer, vp)
	return svgRenderer.Close()
}

// RenderToPNG writes the overlay as a PNG to the provided writer
func (r *OverlayRenderer) RenderToPNG(w io.Writer) error {
	vp := r.viewport()
	rast := rasterizer.New(vp.width, vp.height, r.Resolution, canvas.DefaultColorSpace)
	labels := r.renderToCanvas(rast, vp)

	if r.Labels {
		dpmm := r.Resolution.DPMM()
		for _, l := range labels {
			px := int((l.x + 1.5*r.PointRadius) * dpmm)
			py := int((vp.height - l.y) * dpmm)
			drawText(rast, px, py, l.text, l.col)
		}
	}

	return png.Encode(w, rast)
}

// renderToCanvas draws the overlay and returns the labels to place on top
func (r *OverlayRenderer) renderToCanvas(renderer canvasRenderer, vp viewport) []label {
	var labels []label

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(vp.width, vp.height), bgStyle, canvas.Identity)

	segStyle := canvas.DefaultStyle
	segStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	segStyle.Stroke = canvas.Paint{Color: nrgbaToRGBA(withAlpha(referenceColor, 160))}
	segStyle.StrokeWidth = 0.4

	for _, k := range r.Dataset.SegmentKeys() {
		e := r.Dataset.Entries[k]
		x0, y0 := vp.toCanvas(pointOf(e.ReferenceSegment.Start))
		x1, y1 := vp.toCanvas(pointOf(e.ReferenceSegment.End))
		cp := &canvas.Path{}
		cp.MoveTo(x0, y0)
		cp.LineTo(x1, y1)
		renderer.RenderPath(cp, segStyle, canvas.Identity)
	}

	marker := func(p Point, c color.NRGBA, key string) {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(c)}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		cx, cy := vp.toCanvas(p)
		renderer.RenderPath(canvas.Circle(r.PointRadius), style, canvas.Identity.Translate(cx, cy))
		if key != "" {
			labels = append(labels, label{x: cx, y: cy, text: key, col: withAlpha(c, 255)})
		}
	}

	for _, k := range r.Dataset.PointKeys() {
		marker(pointOf(r.Dataset.Entries[k].ReferencePosition), referenceColor, k)
	}

	keys := r.Dataset.ResidualKeys()
	targets := r.Dataset.Correspondences().AllTargets()
	for i, p := range targets {
		marker(p, targetColor, keys[i])
	}

	for _, sr := range r.Results {
		c := withAlpha(sr.Scenario.Color(), 180)
		for _, p := range sr.Result.Similarity.ApplyAll(targets) {
			marker(p, c, "")
		}
	}

	return labels
}

// drawText renders text onto an image at the specified pixel position
func drawText(img draw.Image, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// RenderOverlayFile renders the overlay to path; the extension (.svg or
// .png) selects the format.
func RenderOverlayFile(path string, ds *Dataset, results []ScenarioResult) error {
	r := NewOverlayRenderer(ds, results)
	return writeByExtension(path, r.RenderToSVG, r.RenderToPNG)
}

// writeByExtension creates path and hands it to the svg or png writer
func writeByExtension(path string, svgFn, pngFn func(io.Writer) error) error {
	var render func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		render = svgFn
	case ".png":
		render = pngFn
	default:
		return fmt.Errorf("unsupported output format %q (want .svg or .png)", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}
