// Package report turns per-canton stats into the table, chart series and
// map layers shown on the dashboard.
package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
)

// Column labels shown to users.
const (
	ColumnCanton  = "Cantón"
	ColumnLength  = "Longitud de la red vial (km)"
	ColumnDensity = "Densidad de la red vial (km/km²)"
	OtherCantons  = "Otros cantones"
)

// TopN is how many cantons the charts show individually.
const TopN = 15

// Row is one displayed table row.
type Row struct {
	Index    int
	Canton   string
	LengthKm float64
	Density  float64
	AreaKm2  float64
}

// LengthText is the length with two decimals.
func (r Row) LengthText() string { return fmt.Sprintf("%.2f", r.LengthKm) }

// DensityText is the density with two decimals.
func (r Row) DensityText() string { return fmt.Sprintf("%.2f", r.Density) }

// Table is the stat table of one category.
type Table struct {
	Category string
	TotalKm  float64
	Rows     []Row
}

// NewTable numbers the stats from 1 in canton order.
func NewTable(category string, stats []aggregate.Stat) Table {
	t := Table{
		Category: category,
		TotalKm:  aggregate.Total(stats),
		Rows:     make([]Row, len(stats)),
	}
	for i, s := range stats {
		t.Rows[i] = Row{
			Index:    i + 1,
			Canton:   s.Canton,
			LengthKm: s.LengthKm,
			Density:  s.Density,
			AreaKm2:  s.AreaKm2,
		}
	}
	return t
}

// Bar is one bar of the ranking chart.
type Bar struct {
	Canton   string
	LengthKm float64
}

// TopBars returns up to n cantons with positive length, longest first.
// Equal lengths keep canton order.
func TopBars(stats []aggregate.Stat, n int) []Bar {
	var bars []Bar
	for _, s := range rankByLength(stats) {
		if s.LengthKm <= 0 {
			break
		}
		if len(bars) == n {
			break
		}
		bars = append(bars, Bar{Canton: s.Canton, LengthKm: s.LengthKm})
	}
	return bars
}

// Slice is one wedge of the share chart.
type Slice struct {
	Label    string
	LengthKm float64
	Percent  float64
}

// PieSlices returns the n longest cantons plus one OtherCantons slice that
// carries the sum of the rest. The other slice is present only when there
// are more than n cantons.
func PieSlices(stats []aggregate.Stat, n int) []Slice {
	ranked := rankByLength(stats)
	total := aggregate.Total(stats)

	var slices []Slice
	var rest []float64
	for i, s := range ranked {
		if i < n {
			slices = append(slices, Slice{Label: s.Canton, LengthKm: s.LengthKm})
			continue
		}
		rest = append(rest, s.LengthKm)
	}
	if len(rest) > 0 {
		slices = append(slices, Slice{Label: OtherCantons, LengthKm: floats.Sum(rest)})
	}
	for i := range slices {
		if total > 0 {
			slices[i].Percent = slices[i].LengthKm / total * 100
		}
	}
	return slices
}

func rankByLength(stats []aggregate.Stat) []aggregate.Stat {
	ranked := make([]aggregate.Stat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].LengthKm > ranked[j].LengthKm })
	return ranked
}
