package grid

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Palette defines the colors for each label and the robot marker
type Palette struct {
	Free     color.RGBA
	Occupied color.RGBA
	Unknown  color.RGBA
	Robot    color.RGBA
	Text     color.RGBA
}

// DefaultPalette renders free cells white, occupied black and unknown grey
func DefaultPalette() Palette {
	return Palette{
		Free:     color.RGBA{255, 255, 255, 255},
		Occupied: color.RGBA{20, 20, 20, 255},
		Unknown:  color.RGBA{160, 160, 160, 255},
		Robot:    color.RGBA{220, 30, 30, 255},
		Text:     color.RGBA{0, 0, 139, 255},
	}
}

func (p Palette) forLabel(l Label) color.RGBA {
	switch l {
	case Free:
		return p.Free
	case Occupied:
		return p.Occupied
	default:
		return p.Unknown
	}
}

// Palette applies the configured colors over DefaultPalette
func (rc RenderConfig) Palette() (Palette, error) {
	p := DefaultPalette()
	overrides := []struct {
		hex string
		dst *color.RGBA
	}{
		{rc.Free, &p.Free},
		{rc.Occupied, &p.Occupied},
		{rc.Unknown, &p.Unknown},
		{rc.Robot, &p.Robot},
	}
	for _, o := range overrides {
		if o.hex == "" {
			continue
		}
		c, err := parseHexColor(o.hex)
		if err != nil {
			return p, err
		}
		*o.dst = c
	}
	return p, nil
}

// RasterRenderer draws the classification grid as an image, one block of
// Scale x Scale pixels per cell. World +Y points up in the image.
type RasterRenderer struct {
	Palette Palette
	Scale   int   // Pixels per cell (default 1)
	Robot   *Pose // Optional robot marker
	Legend  bool
}

// NewRasterRenderer creates a renderer with default settings
func NewRasterRenderer() *RasterRenderer {
	return &RasterRenderer{
		Palette: DefaultPalette(),
		Scale:   1,
		Legend:  true,
	}
}

// NewRasterRendererFromConfig applies the render section of the config
func NewRasterRendererFromConfig(rc RenderConfig) (*RasterRenderer, error) {
	palette, err := rc.Palette()
	if err != nil {
		return nil, err
	}
	r := NewRasterRenderer()
	r.Palette = palette
	if rc.Scale > 0 {
		r.Scale = rc.Scale
	}
	return r, nil
}

// Render draws the map. The caller must hold whatever lock guards om.
func (r *RasterRenderer) Render(om *OccupancyMap) *image.RGBA {
	scale := r.Scale
	if scale < 1 {
		scale = 1
	}
	f := om.Frame()
	img := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))

	for i := 0; i < f.Len(); i++ {
		c := f.CellAt(i)
		col := r.Palette.forLabel(om.classes.At(i))
		px, py := c.X*scale, (f.Height-1-c.Y)*scale
		for dy := 0; dy < scale; dy++ {
			for dx := 0; dx < scale; dx++ {
				img.SetRGBA(px+dx, py+dy, col)
			}
		}
	}

	if r.Robot != nil {
		rc := f.WorldToCell(r.Robot.Point())
		if f.InBounds(rc) {
			cx := rc.X*scale + scale/2
			cy := (f.Height-1-rc.Y)*scale + scale/2
			drawCircle(img, cx, cy, 3*scale, r.Palette.Robot)
		}
	}

	if r.Legend {
		r.drawLegend(img, om.Stats())
	}
	return img
}

// SavePNG renders the map and writes it to path
func (r *RasterRenderer) SavePNG(om *OccupancyMap, path string) error {
	img := r.Render(om)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// drawLegend adds a color key with cell counts in the top-left corner
func (r *RasterRenderer) drawLegend(img *image.RGBA, stats MapStats) {
	entries := []struct {
		label string
		count int
		col   color.RGBA
	}{
		{"occupied", stats.Occupied, r.Palette.Occupied},
		{"free", stats.Free, r.Palette.Free},
		{"unknown", stats.Unknown, r.Palette.Unknown},
	}

	y := 15
	for _, e := range entries {
		for dy := 0; dy < 12; dy++ {
			for dx := 0; dx < 12; dx++ {
				setClipped(img, 10+dx, y+dy-10, e.col)
			}
		}
		drawText(img, 28, y, fmt.Sprintf("%s %d", e.label, e.count), r.Palette.Text)
		y += 18
	}
}

// drawCircle draws a filled circle
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setClipped(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// parseHexColor parses a hex color string like "#FF6B6B" to color.RGBA
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return color.RGBA{r, g, b, 255}, nil
}
