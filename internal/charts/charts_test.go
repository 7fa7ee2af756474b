package charts

import (
	"bytes"
	"testing"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
)

var testStats = []aggregate.Stat{
	{Canton: "Alfa", LengthKm: 10, Density: 0.1},
	{Canton: "Beta", LengthKm: 7.5, Density: 0.08},
	{Canton: "Gamma", LengthKm: 0, Density: 0},
}

func TestBarSVG(t *testing.T) {
	out, err := Bar(report.TopBars(testStats, report.TopN), "Autopista", SVG)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("<svg")) {
		t.Fatalf("output is not SVG: %.60q", out)
	}
	if !bytes.Contains(out, []byte("Alfa")) {
		t.Error("missing canton tick label")
	}
}

func TestBarEmpty(t *testing.T) {
	out, err := Bar(nil, "Autopista", SVG)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("sin datos")) {
		t.Error("empty chart should say sin datos")
	}
}

func TestPieSVG(t *testing.T) {
	out, err := Pie(report.PieSlices(testStats, 1), "Autopista", SVG)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(report.OtherCantons)) {
		t.Error("missing other slice label")
	}
}

func TestLegendPNG(t *testing.T) {
	out, err := Legend(report.NewLegend(testStats))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Errorf("output is not PNG")
	}
}
