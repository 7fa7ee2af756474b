package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
)

// pieChart draws wedges clockwise from twelve o'clock.
type pieChart struct {
	slices []report.Slice
}

func (pc pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	radius := w
	if h < radius {
		radius = h
	}
	radius = radius / 2 * 0.7
	center := vg.Point{X: c.Min.X + w/2, Y: c.Min.Y + h/2}

	sty := plt.Legend.TextStyle
	sty.Font.Size = vg.Points(7)
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YCenter

	start := math.Pi / 2
	for i, s := range pc.slices {
		if s.Percent <= 0 {
			continue
		}
		sweep := -2 * math.Pi * s.Percent / 100

		var path vg.Path
		path.Move(center)
		path.Line(polar(center, radius, start))
		path.Arc(center, radius, start, sweep)
		path.Close()
		c.SetColor(Palette[i%len(Palette)])
		c.Fill(path)

		mid := start + sweep/2
		c.FillText(sty, polar(center, radius*1.25, mid), fmt.Sprintf("%s (%.1f%%)", s.Label, s.Percent))
		start += sweep
	}
}

func polar(center vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: center.X + r*vg.Length(math.Cos(angle)),
		Y: center.Y + r*vg.Length(math.Sin(angle)),
	}
}

// legendStrip draws one colored box per class with its range.
type legendStrip struct {
	legend report.Legend
}

func (ls legendStrip) Plot(c draw.Canvas, plt *plot.Plot) {
	n := len(ls.legend.Colors)
	if n == 0 {
		return
	}
	rowH := (c.Max.Y - c.Min.Y) / vg.Length(n)
	box := rowH * 0.8

	sty := plt.Legend.TextStyle
	sty.Font.Size = vg.Points(9)
	sty.XAlign = draw.XLeft
	sty.YAlign = draw.YCenter

	for i := 0; i < n; i++ {
		// Highest class on top.
		top := c.Max.Y - rowH*vg.Length(n-1-i)
		rect := vg.Rectangle{
			Min: vg.Point{X: c.Min.X, Y: top - box},
			Max: vg.Point{X: c.Min.X + box, Y: top},
		}
		c.SetColor(ramp(i))
		c.Fill(rect.Path())

		label := fmt.Sprintf("%.2f – %.2f", ls.legend.Edges[i], ls.legend.Edges[i+1])
		c.FillText(sty, vg.Point{X: rect.Max.X + vg.Points(6), Y: top - box/2}, label)
	}
}

func ramp(i int) color.Color {
	if i >= len(report.YlOrRd) {
		i = len(report.YlOrRd) - 1
	}
	return report.YlOrRd[i]
}
