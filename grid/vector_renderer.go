package grid

import (
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorRenderer renders the classification grid as vector graphics. One
// canvas unit is one centimeter of world space; unknown space is the
// background and free and occupied cells are drawn as horizontal runs.
type VectorRenderer struct {
	Palette    Palette
	Robot      *Pose
	Resolution canvas.Resolution // Pixels per canvas unit for PNG output (default: one per cm)
	GridLines  float64           // Grid line spacing in cm; 0 disables
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer(palette Palette) *VectorRenderer {
	return &VectorRenderer{
		Palette:    palette,
		Resolution: canvas.DPMM(1.0),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// cellRun is a horizontal run of equally labeled cells in one row.
type cellRun struct {
	x0, x1, y int // x1 exclusive
	label     Label
}

// rowRuns collapses each row of the classification grid into runs of free
// or occupied cells. Unknown cells produce no run.
func rowRuns(om *OccupancyMap) []cellRun {
	f := om.Frame()
	var runs []cellRun
	for y := 0; y < f.Height; y++ {
		start := 0
		current := om.classes.At(f.Index(Cell{X: 0, Y: y}))
		for x := 1; x <= f.Width; x++ {
			var l Label
			if x < f.Width {
				l = om.classes.At(f.Index(Cell{X: x, Y: y}))
				if l == current {
					continue
				}
			}
			if current != Unknown {
				runs = append(runs, cellRun{x0: start, x1: x, y: y, label: current})
			}
			start, current = x, l
		}
	}
	return runs
}

// RenderToSVG writes the map as an SVG to the provided writer. The caller
// must hold whatever lock guards om.
func (r *VectorRenderer) RenderToSVG(w io.Writer, om *OccupancyMap) error {
	f := om.Frame()
	svgRenderer := svg.New(w, f.MapWidth(), f.MapHeight(), nil)
	r.renderToCanvas(svgRenderer, om)
	return svgRenderer.Close()
}

// RenderToPNG writes the map as a PNG to the provided writer
func (r *VectorRenderer) RenderToPNG(w io.Writer, om *OccupancyMap) error {
	f := om.Frame()
	rast := rasterizer.New(f.MapWidth(), f.MapHeight(), r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, om)
	return png.Encode(w, rast)
}

// renderToCanvas holds the drawing shared by the SVG and PNG outputs
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, om *OccupancyMap) {
	f := om.Frame()
	width, height := f.MapWidth(), f.MapHeight()

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: r.Palette.Unknown}
	bgStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	styles := map[Label]canvas.Style{}
	for _, l := range []Label{Free, Occupied} {
		s := canvas.DefaultStyle
		s.Fill = canvas.Paint{Color: r.Palette.forLabel(l)}
		s.Stroke = canvas.Paint{Color: canvas.Transparent}
		styles[l] = s
	}

	// Free runs first so walls stay on top.
	runs := rowRuns(om)
	for _, l := range []Label{Free, Occupied} {
		path := &canvas.Path{}
		for _, run := range runs {
			if run.label != l {
				continue
			}
			x := float64(run.x0) * f.CellSize
			y := float64(run.y) * f.CellSize
			w := float64(run.x1-run.x0) * f.CellSize
			path.MoveTo(x, y)
			path.LineTo(x+w, y)
			path.LineTo(x+w, y+f.CellSize)
			path.LineTo(x, y+f.CellSize)
			path.Close()
		}
		if !path.Empty() {
			renderer.RenderPath(path, styles[l], canvas.Identity)
		}
	}

	if r.GridLines > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = f.CellSize / 4

		gridPath := &canvas.Path{}
		for x := r.GridLines; x < width; x += r.GridLines {
			gridPath.MoveTo(x, 0)
			gridPath.LineTo(x, height)
		}
		for y := r.GridLines; y < height; y += r.GridLines {
			gridPath.MoveTo(0, y)
			gridPath.LineTo(width, y)
		}
		renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
	}

	if r.Robot != nil {
		// Cell centers sit half a cell inside the map-frame position.
		p := f.ToMapFrame(r.Robot.Point())
		p.X += f.CellSize / 2
		p.Y += f.CellSize / 2
		robotStyle := canvas.DefaultStyle
		robotStyle.Fill = canvas.Paint{Color: r.Palette.Robot}
		robotStyle.Stroke = canvas.Paint{Color: canvas.Black}
		robotStyle.StrokeWidth = 1.0
		renderer.RenderPath(canvas.Circle(12.0), robotStyle, canvas.Identity.Translate(p.X, p.Y))
	}
}
