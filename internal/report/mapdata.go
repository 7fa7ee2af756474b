package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
)

// Map view defaults.
const (
	MapCenterLat = 9.8
	MapCenterLon = -84.0
	MapZoom      = 8
	MapBins      = 8
	FillOpacity  = 0.5

	// CRTM05 is EPSG:5367, the projection of the source layers.
	CRTM05 = "+proj=tmerc +lat_0=0 +lon_0=-84 +k=0.9999 +x_0=500000 +y_0=0 +ellps=WGS84 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"
	WGS84  = "+proj=longlat +datum=WGS84 +no_defs"

	// DefaultTolerance is the simplification tolerance in metres.
	DefaultTolerance = 50.0
)

// YlOrRd is the 8-class yellow-orange-red sequential ramp.
var YlOrRd = []color.NRGBA{
	{0xff, 0xff, 0xcc, 0xff},
	{0xff, 0xed, 0xa0, 0xff},
	{0xfe, 0xd9, 0x76, 0xff},
	{0xfe, 0xb2, 0x4c, 0xff},
	{0xfd, 0x8d, 0x3c, 0xff},
	{0xfc, 0x4e, 0x2a, 0xff},
	{0xe3, 0x1a, 0x1c, 0xff},
	{0xb1, 0x00, 0x26, 0xff},
}

// Hex formats c as #rrggbb.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Bins returns n+1 equal-width edges spanning the density range.
func Bins(stats []aggregate.Stat, n int) []float64 {
	if n <= 0 {
		n = MapBins
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range stats {
		lo = math.Min(lo, s.Density)
		hi = math.Max(hi, s.Density)
	}
	if len(stats) == 0 {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	edges := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range edges {
		edges[i] = lo + step*float64(i)
	}
	edges[n] = hi
	return edges
}

// BinIndex returns the bin of v; values on an inner edge fall in the
// upper bin and the maximum falls in the last one.
func BinIndex(edges []float64, v float64) int {
	last := len(edges) - 2
	for i := 0; i < last; i++ {
		if v < edges[i+1] {
			return i
		}
	}
	return last
}

// ColorFor picks the ramp color of v.
func ColorFor(edges []float64, v float64) color.NRGBA {
	i := BinIndex(edges, v)
	if i >= len(YlOrRd) {
		i = len(YlOrRd) - 1
	}
	return YlOrRd[i]
}

// Reprojector converts source geometries to longitude/latitude.
type Reprojector struct {
	tr proj.Transformer
}

// NewReprojector builds a transform between two proj4 definitions.
func NewReprojector(from, to string) (*Reprojector, error) {
	src, err := proj.Parse(from)
	if err != nil {
		return nil, fmt.Errorf("parsing source projection: %w", err)
	}
	dst, err := proj.Parse(to)
	if err != nil {
		return nil, fmt.Errorf("parsing target projection: %w", err)
	}
	tr, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("creating transform: %w", err)
	}
	return &Reprojector{tr: tr}, nil
}

// Point reprojects one point. Points that fail to transform are returned
// unchanged.
func (r *Reprojector) Point(p orb.Point) orb.Point {
	x, y, err := r.tr(p[0], p[1])
	if err != nil {
		return p
	}
	return orb.Point{x, y}
}

// Geometry returns a reprojected copy of g.
func (r *Reprojector) Geometry(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), r.Point)
}

// MapOptions controls map layer generation.
type MapOptions struct {
	Reprojector *Reprojector
	// Tolerance is the simplification tolerance in source units; zero
	// disables simplification.
	Tolerance float64
}

func (o MapOptions) prepare(g orb.Geometry) orb.Geometry {
	g = orb.Clone(g)
	if o.Tolerance > 0 {
		g = simplify.DouglasPeucker(o.Tolerance).Simplify(g)
	}
	if o.Reprojector != nil {
		g = project.Geometry(g, o.Reprojector.Point)
	}
	return g
}

// Choropleth returns one feature per canton with its density and fill
// color. stats must be in canton order.
func Choropleth(cantons []layers.Canton, stats []aggregate.Stat, opts MapOptions) *geojson.FeatureCollection {
	edges := Bins(stats, MapBins)
	fc := geojson.NewFeatureCollection()
	for i, c := range cantons {
		f := geojson.NewFeature(opts.prepare(c.Geometry))
		f.ID = c.Name
		f.Properties["canton"] = c.Name
		if i < len(stats) {
			s := stats[i]
			f.Properties["lengthKm"] = s.LengthKm
			f.Properties["density"] = s.Density
			f.Properties["fill"] = Hex(ColorFor(edges, s.Density))
		}
		fc.Append(f)
	}
	return fc
}

// RoadOverlay returns the roads of category clipped to the canton extent.
func RoadOverlay(cantons []layers.Canton, roads []layers.RoadSegment, category string, opts MapOptions) *geojson.FeatureCollection {
	var extent orb.Bound
	for i, c := range cantons {
		if i == 0 {
			extent = c.Geometry.Bound()
			continue
		}
		extent = extent.Union(c.Geometry.Bound())
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range aggregate.FilterCategory(roads, category) {
		g := orb.Geometry(r.Geometry)
		if len(cantons) > 0 {
			g = clip.Geometry(extent, orb.Clone(g))
			if mls, ok := g.(orb.MultiLineString); g == nil || (ok && len(mls) == 0) {
				continue
			}
		}
		f := geojson.NewFeature(opts.prepare(g))
		f.Properties["categoria"] = r.Category
		fc.Append(f)
	}
	return fc
}

// Legend describes the choropleth classes.
type Legend struct {
	Edges  []float64
	Colors []string
}

// NewLegend returns the bin edges and colors used by Choropleth.
func NewLegend(stats []aggregate.Stat) Legend {
	edges := Bins(stats, MapBins)
	colors := make([]string, len(edges)-1)
	for i := range colors {
		colors[i] = Hex(YlOrRd[i])
	}
	return Legend{Edges: edges, Colors: colors}
}
