package grid

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoTicks is returned when a plot is requested before any tick was recorded.
var ErrNoTicks = errors.New("no ticks recorded")

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// TickHistory keeps the most recent TickStats for plotting. Zero capacity
// keeps every tick.
type TickHistory struct {
	mu      sync.Mutex
	limit   int
	samples []TickStats
}

func NewTickHistory(limit int) *TickHistory {
	return &TickHistory{limit: limit}
}

// Record appends one tick, dropping the oldest once the limit is reached.
func (h *TickHistory) Record(s TickStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, s)
	if h.limit > 0 && len(h.samples) > h.limit {
		h.samples = append(h.samples[:0], h.samples[len(h.samples)-h.limit:]...)
	}
}

// Len is the number of retained ticks.
func (h *TickHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Samples copies the retained ticks, oldest first.
func (h *TickHistory) Samples() []TickStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TickStats(nil), h.samples...)
}

type tickSeries struct {
	label string
	color color.RGBA
	value func(TickStats) int
}

var tickSeriesSet = []tickSeries{
	{"free cells", color.RGBA{R: 46, G: 139, B: 87, A: 255}, func(s TickStats) int { return s.FreeCells }},
	{"sensors used", color.RGBA{R: 30, G: 90, B: 200, A: 255}, func(s TickStats) int { return s.SensorsUsed }},
	{"out of bounds", color.RGBA{R: 200, G: 40, B: 40, A: 255}, func(s TickStats) int { return s.OutOfBounds }},
	{"invalid", color.RGBA{R: 140, G: 140, B: 140, A: 255}, func(s TickStats) int { return s.Invalid }},
}

// Plot draws one line per counter against the tick number.
func (h *TickHistory) Plot() (*plot.Plot, error) {
	samples := h.Samples()
	if len(samples) == 0 {
		return nil, ErrNoTicks
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tick activity (ticks %d-%d)", samples[0].Tick, samples[len(samples)-1].Tick)
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Count"

	for _, series := range tickSeriesSet {
		pts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			pts[i] = plotter.XY{X: float64(s.Tick), Y: float64(series.value(s))}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s series: %w", series.label, err)
		}
		line.Color = series.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.label, line)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save writes the plot to path; the extension picks the format.
func (h *TickHistory) Save(path string) error {
	p, err := h.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving tick plot: %w", err)
	}
	return nil
}

// WritePNG renders the plot as PNG to w.
func (h *TickHistory) WritePNG(w io.Writer) error {
	p, err := h.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("rendering tick plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
