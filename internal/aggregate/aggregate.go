// Package aggregate measures road length and road density per canton for
// one road category.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
)

// ErrUnknownCategory is returned for a category the road layer does not have.
var ErrUnknownCategory = errors.New("aggregate: unknown road category")

// DensityPrecision is the number of decimals density is rounded to.
const DensityPrecision = 2

// Stat is the road measurement of one canton.
type Stat struct {
	Canton   string  `json:"canton"`
	AreaKm2  float64 `json:"areaKm2"`
	LengthKm float64 `json:"lengthKm"`
	Density  float64 `json:"density"`
}

// FilterCategory returns the segments of one category in input order.
func FilterCategory(roads []layers.RoadSegment, category string) []layers.RoadSegment {
	var out []layers.RoadSegment
	for _, r := range roads {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Density is length over area rounded half to even; a non-positive area
// yields 0.
func Density(lengthKm, areaKm2 float64) float64 {
	if areaKm2 <= 0 {
		return 0
	}
	return scalar.RoundEven(lengthKm/areaKm2, DensityPrecision)
}

// Aggregate computes one Stat per canton, in canton order, for the roads
// of category. Cantons without intersecting roads get zero length.
func Aggregate(cantons []layers.Canton, roads []layers.RoadSegment, category string, engine Engine) []Stat {
	if engine == nil {
		engine = GeomEngine{}
	}
	filtered := FilterCategory(roads, category)
	lines := make([]orb.MultiLineString, len(filtered))
	for i, r := range filtered {
		lines[i] = r.Geometry
	}

	clip := engine.Intersect
	if ix, ok := engine.(Indexer); ok {
		c := ix.Index(lines)
		clip = func(poly orb.MultiPolygon, _ []orb.MultiLineString) []orb.MultiLineString {
			return c.Clip(poly)
		}
	}

	stats := make([]Stat, len(cantons))
	for i, c := range cantons {
		var lengths []float64
		if len(lines) > 0 {
			for _, part := range clip(c.Geometry, lines) {
				lengths = append(lengths, engine.Length(part))
			}
		}
		km := floats.Sum(lengths) / 1000
		stats[i] = Stat{
			Canton:   c.Name,
			AreaKm2:  c.AreaKm2,
			LengthKm: km,
			Density:  Density(km, c.AreaKm2),
		}
	}
	return stats
}

// ForTables validates category against t and aggregates it.
func ForTables(t *layers.Tables, category string, engine Engine) ([]Stat, error) {
	if err := t.CheckCategories(); err != nil {
		return nil, err
	}
	if !t.HasCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return Aggregate(t.Cantons, t.Roads, category, engine), nil
}

// Total sums LengthKm over stats.
func Total(stats []Stat) float64 {
	v := make([]float64, len(stats))
	for i, s := range stats {
		v[i] = s.LengthKm
	}
	return floats.Sum(v)
}
