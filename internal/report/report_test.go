package report

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
)

func manyStats(n int) []aggregate.Stat {
	stats := make([]aggregate.Stat, n)
	for i := range stats {
		stats[i] = aggregate.Stat{
			Canton:   fmt.Sprintf("C%02d", i),
			LengthKm: float64(i % 7),
			Density:  float64(i%7) / 10,
		}
	}
	return stats
}

func TestNewTable(t *testing.T) {
	stats := []aggregate.Stat{
		{Canton: "Alfa", LengthKm: 10.456, Density: 0.1},
		{Canton: "Beta", LengthKm: 0, Density: 0},
	}
	tbl := NewTable("Autopista", stats)
	if len(tbl.Rows) != 2 || tbl.Rows[0].Index != 1 || tbl.Rows[1].Index != 2 {
		t.Fatalf("rows=%+v", tbl.Rows)
	}
	if got := tbl.Rows[0].LengthText(); got != "10.46" {
		t.Errorf("LengthText=%q, want 10.46", got)
	}
	if got := tbl.Rows[1].DensityText(); got != "0.00" {
		t.Errorf("DensityText=%q, want 0.00", got)
	}
}

func TestTopBars(t *testing.T) {
	stats := manyStats(30)
	bars := TopBars(stats, TopN)
	if len(bars) != TopN {
		t.Fatalf("bars=%d, want %d", len(bars), TopN)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].LengthKm > bars[i-1].LengthKm {
			t.Fatalf("bars not descending at %d: %+v", i, bars)
		}
	}
	// C06, C13, C20, C27 all have length 6; ties keep canton order.
	want := []string{"C06", "C13", "C20", "C27"}
	for i, w := range want {
		if bars[i].Canton != w {
			t.Errorf("bars[%d]=%q, want %q", i, bars[i].Canton, w)
		}
	}
}

func TestTopBarsSkipsZero(t *testing.T) {
	stats := []aggregate.Stat{{Canton: "A", LengthKm: 0}, {Canton: "B", LengthKm: 2}}
	bars := TopBars(stats, TopN)
	if len(bars) != 1 || bars[0].Canton != "B" {
		t.Errorf("bars=%+v, want only B", bars)
	}
}

func TestPieSlicesConserveTotal(t *testing.T) {
	stats := manyStats(40)
	slices := PieSlices(stats, TopN)
	if len(slices) != TopN+1 {
		t.Fatalf("slices=%d, want %d", len(slices), TopN+1)
	}
	if slices[TopN].Label != OtherCantons {
		t.Errorf("last slice=%q, want %q", slices[TopN].Label, OtherCantons)
	}

	var sum, pct float64
	seen := map[string]bool{}
	for _, s := range slices {
		if seen[s.Label] {
			t.Errorf("duplicate slice %q", s.Label)
		}
		seen[s.Label] = true
		sum += s.LengthKm
		pct += s.Percent
	}
	if total := aggregate.Total(stats); math.Abs(sum-total) > 1e-9 {
		t.Errorf("slice sum=%v, want %v", sum, total)
	}
	if math.Abs(pct-100) > 1e-9 {
		t.Errorf("percent sum=%v, want 100", pct)
	}
}

func TestPieSlicesFewCantons(t *testing.T) {
	slices := PieSlices(manyStats(3), TopN)
	if len(slices) != 3 {
		t.Errorf("slices=%d, want 3", len(slices))
	}
	for _, s := range slices {
		if s.Label == OtherCantons {
			t.Error("unexpected other slice")
		}
	}
}

func TestBins(t *testing.T) {
	stats := []aggregate.Stat{{Density: 0}, {Density: 0.4}, {Density: 0.8}}
	edges := Bins(stats, 8)
	if len(edges) != 9 || edges[0] != 0 || edges[8] != 0.8 {
		t.Fatalf("edges=%v", edges)
	}
	if BinIndex(edges, 0) != 0 {
		t.Errorf("min bin=%d, want 0", BinIndex(edges, 0))
	}
	if BinIndex(edges, 0.8) != 7 {
		t.Errorf("max bin=%d, want 7", BinIndex(edges, 0.8))
	}
	if BinIndex(edges, 0.45) != 4 {
		t.Errorf("0.45 bin=%d, want 4", BinIndex(edges, 0.45))
	}

	flat := Bins([]aggregate.Stat{{Density: 0}, {Density: 0}}, 8)
	if flat[8] <= flat[0] {
		t.Errorf("flat edges=%v", flat)
	}
	if got := Hex(ColorFor(edges, 0.8)); got != "#b10026" {
		t.Errorf("top color=%s, want #b10026", got)
	}
}

func TestReprojector(t *testing.T) {
	r, err := NewReprojector(CRTM05, WGS84)
	if err != nil {
		t.Fatal(err)
	}
	p := r.Point(orb.Point{500000, 0})
	if math.Abs(p[0]-(-84)) > 1e-6 || math.Abs(p[1]) > 1e-6 {
		t.Errorf("origin=%v, want [-84 0]", p)
	}
	q := r.Point(orb.Point{500000, 1100000})
	if q[1] < 9.8 || q[1] > 10.1 {
		t.Errorf("lat=%v, want about 9.95", q[1])
	}
}

func TestChoroplethAndOverlay(t *testing.T) {
	cantons := []layers.Canton{
		{Name: "Alfa", Geometry: orb.MultiPolygon{{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}}, AreaKm2: 1},
		{Name: "Beta", Geometry: orb.MultiPolygon{{{{10, 0}, {20, 0}, {20, 10}, {10, 10}, {10, 0}}}}, AreaKm2: 1},
	}
	stats := []aggregate.Stat{{Canton: "Alfa", Density: 0}, {Canton: "Beta", Density: 2}}
	fc := Choropleth(cantons, stats, MapOptions{})
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}
	if fc.Features[0].Properties["fill"] != Hex(YlOrRd[0]) || fc.Features[1].Properties["fill"] != Hex(YlOrRd[7]) {
		t.Errorf("fills=%v, %v", fc.Features[0].Properties["fill"], fc.Features[1].Properties["fill"])
	}

	roads := []layers.RoadSegment{
		{Category: "A", Geometry: orb.MultiLineString{{{-5, 5}, {25, 5}}}},
		{Category: "A", Geometry: orb.MultiLineString{{{50, 50}, {60, 60}}}},
		{Category: "B", Geometry: orb.MultiLineString{{{1, 1}, {2, 2}}}},
	}
	overlay := RoadOverlay(cantons, roads, "A", MapOptions{})
	if len(overlay.Features) != 1 {
		t.Fatalf("overlay features=%d, want 1", len(overlay.Features))
	}
	b := overlay.Features[0].Geometry.Bound()
	if b.Min[0] != 0 || b.Max[0] != 20 {
		t.Errorf("overlay bound=%v, want clipped to [0,20]", b)
	}
}
