package aggregate

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/paulmach/orb"
)

// Engine is the set of geometry operations the aggregation needs.
type Engine interface {
	// Intersect clips every line against poly and returns the non-empty
	// linear parts, one per intersecting line.
	Intersect(poly orb.MultiPolygon, lines []orb.MultiLineString) []orb.MultiLineString
	// Length is the planar length in geometry units.
	Length(g orb.MultiLineString) float64
	// Area is the planar area in squared geometry units.
	Area(poly orb.MultiPolygon) float64
}

// Indexer is implemented by engines that can index a line set once and
// answer many polygon queries against it.
type Indexer interface {
	Index(lines []orb.MultiLineString) Clipper
}

// Clipper clips a prepared line set against one polygon.
type Clipper interface {
	Clip(poly orb.MultiPolygon) []orb.MultiLineString
}

// GeomEngine implements Engine with github.com/ctessum/geom.
type GeomEngine struct{}

var (
	_ Engine  = GeomEngine{}
	_ Indexer = GeomEngine{}
)

// Intersect implements Engine.
func (e GeomEngine) Intersect(poly orb.MultiPolygon, lines []orb.MultiLineString) []orb.MultiLineString {
	return e.Index(lines).Clip(poly)
}

// Length implements Engine.
func (GeomEngine) Length(g orb.MultiLineString) float64 {
	return toGeomLines(g).Length()
}

// Area implements Engine.
func (GeomEngine) Area(poly orb.MultiPolygon) float64 {
	return toGeomPolygons(poly).Area()
}

// Index implements Indexer using an R-tree over the line bounds.
func (GeomEngine) Index(lines []orb.MultiLineString) Clipper {
	tree := rtree.NewTree(25, 50)
	for i, l := range lines {
		g := toGeomLines(l)
		if len(g) == 0 {
			continue
		}
		tree.Insert(indexedLine{MultiLineString: g, i: i})
	}
	return &geomClipper{tree: tree}
}

type indexedLine struct {
	geom.MultiLineString
	i int
}

type geomClipper struct {
	tree *rtree.Rtree
}

// Clip returns results in input line order so sums are reproducible.
func (c *geomClipper) Clip(poly orb.MultiPolygon) []orb.MultiLineString {
	p := toGeomPolygons(poly)
	if len(p) == 0 {
		return nil
	}
	hits := c.tree.SearchIntersect(p.Bounds())
	found := make([]indexedLine, 0, len(hits))
	for _, h := range hits {
		found = append(found, h.(indexedLine))
	}
	sortByIndex(found)

	var out []orb.MultiLineString
	for _, l := range found {
		clipped := fromGeomLinear(l.MultiLineString.Clip(p))
		if len(clipped) == 0 {
			continue
		}
		out = append(out, clipped)
	}
	return out
}

func sortByIndex(ls []indexedLine) {
	sort.Slice(ls, func(a, b int) bool { return ls[a].i < ls[b].i })
}

func toGeomLines(mls orb.MultiLineString) geom.MultiLineString {
	out := make(geom.MultiLineString, 0, len(mls))
	for _, ls := range mls {
		if len(ls) < 2 {
			continue
		}
		l := make(geom.LineString, len(ls))
		for i, p := range ls {
			l[i] = geom.Point{X: p[0], Y: p[1]}
		}
		out = append(out, l)
	}
	return out
}

func toGeomPolygons(mp orb.MultiPolygon) geom.MultiPolygon {
	out := make(geom.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		p := make(geom.Polygon, len(poly))
		for i, ring := range poly {
			path := make([]geom.Point, len(ring))
			for j, pt := range ring {
				path[j] = geom.Point{X: pt[0], Y: pt[1]}
			}
			p[i] = path
		}
		out = append(out, p)
	}
	return out
}

// fromGeomLinear keeps only the line parts of a clip result; degenerate
// parts with fewer than two vertices carry no length and are dropped.
func fromGeomLinear(l geom.Linear) orb.MultiLineString {
	var parts geom.MultiLineString
	switch v := l.(type) {
	case geom.MultiLineString:
		parts = v
	case geom.LineString:
		parts = geom.MultiLineString{v}
	default:
		return nil
	}
	var out orb.MultiLineString
	for _, ls := range parts {
		if len(ls) < 2 {
			continue
		}
		o := make(orb.LineString, len(ls))
		for i, p := range ls {
			o[i] = orb.Point{p.X, p.Y}
		}
		out = append(out, o)
	}
	return out
}
