// Package charts renders the dashboard charts with gonum/plot.
package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
)

// Default chart sizes.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Format is an output format understood by plot.WriterTo.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Palette is the qualitative color cycle used for pie wedges.
var Palette = []color.Color{
	color.NRGBA{0x63, 0x6e, 0xfa, 0xff},
	color.NRGBA{0xef, 0x55, 0x3b, 0xff},
	color.NRGBA{0x00, 0xcc, 0x96, 0xff},
	color.NRGBA{0xab, 0x63, 0xfa, 0xff},
	color.NRGBA{0xff, 0xa1, 0x5a, 0xff},
	color.NRGBA{0x19, 0xd3, 0xf3, 0xff},
	color.NRGBA{0xff, 0x66, 0x92, 0xff},
	color.NRGBA{0xb6, 0xe8, 0x80, 0xff},
	color.NRGBA{0xff, 0x97, 0xff, 0xff},
	color.NRGBA{0xfe, 0xcb, 0x52, 0xff},
}

// Bar renders the ranking chart of the longest cantons.
func Bar(bars []report.Bar, category string, format Format) ([]byte, error) {
	p := plot.New()
	p.Title.Text = category
	p.X.Label.Text = report.ColumnCanton
	p.Y.Label.Text = report.ColumnLength
	p.Y.Min = 0

	if len(bars) == 0 {
		p.Title.Text = category + " (sin datos)"
		p.Y.Max = 1
		return render(p, format)
	}

	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.LengthKm
		names[i] = b.Canton
	}
	bc, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("building bar chart: %w", err)
	}
	bc.Color = Palette[0]
	bc.LineStyle.Width = 0
	p.Add(bc)
	p.Legend.Add(category, bc)
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return render(p, format)
}

// Pie renders the share chart: one wedge per slice labelled with its
// name and percentage.
func Pie(slices []report.Slice, category string, format Format) ([]byte, error) {
	p := plot.New()
	p.Title.Text = category
	p.HideAxes()
	p.Add(pieChart{slices: slices})
	return render(p, format)
}

// Legend renders the choropleth color classes as a PNG strip.
func Legend(l report.Legend) ([]byte, error) {
	p := plot.New()
	p.Title.Text = report.ColumnDensity
	p.HideAxes()
	p.Add(legendStrip{legend: l})
	wt, err := p.WriterTo(3*vg.Inch, 4*vg.Inch, string(PNG))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(p *plot.Plot, format Format) ([]byte, error) {
	wt, err := p.WriterTo(Width, Height, string(format))
	if err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing chart: %w", err)
	}
	return buf.Bytes(), nil
}
