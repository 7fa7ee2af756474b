// Package layers loads the canton and road network layers from WFS and
// keeps them as flat, immutable tables.
package layers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// ErrNoCategories is returned when the road layer yields no categories.
var ErrNoCategories = errors.New("layers: road layer has no categories")

const (
	DefaultCantonURL       = "https://geos.snitcr.go.cr/be/IGN_5/wfs"
	DefaultCantonLayer     = "IGN_5:limitecantonal_5k"
	DefaultCantonAttribute = "canton"
	DefaultRoadURL         = "https://geos.snitcr.go.cr/be/IGN_200/wfs"
	DefaultRoadLayer       = "IGN_200:redvial_200k"
	DefaultRoadAttribute   = "categoria"
	DefaultSRSName         = "urn:ogc:def:crs:EPSG::5367"
)

// Canton is one administrative boundary. Geometry is in projected metres.
type Canton struct {
	Name     string
	Geometry orb.MultiPolygon
	AreaKm2  float64
}

// RoadSegment is one road line with its category label.
type RoadSegment struct {
	Category string
	Geometry orb.MultiLineString
}

// Tables holds one loaded dataset. It is never mutated after Load.
type Tables struct {
	ID         string
	Cantons    []Canton
	Roads      []RoadSegment
	Categories []string
	Report     Report
}

// HasCategory reports whether c is one of the discovered categories.
func (t *Tables) HasCategory(c string) bool {
	i := sort.SearchStrings(t.Categories, c)
	return i < len(t.Categories) && t.Categories[i] == c
}

// CheckCategories returns ErrNoCategories when there is nothing to select.
func (t *Tables) CheckCategories() error {
	if len(t.Categories) == 0 {
		return ErrNoCategories
	}
	return nil
}

// Report counts what Load kept and skipped.
type Report struct {
	Cantons        int `json:"cantons"`
	SkippedCantons int `json:"skippedCantons"`
	Roads          int `json:"roads"`
	SkippedRoads   int `json:"skippedRoads"`
}

// Source is one WFS layer and the attribute read from it.
type Source struct {
	Query     wfs.Query
	Attribute string
}

// Sources configures both layers.
type Sources struct {
	Cantons Source
	Roads   Source
}

// DefaultSources returns the SNIT layers of the national geographic
// institute (IGN).
func DefaultSources() Sources {
	return Sources{
		Cantons: Source{
			Query: wfs.Query{
				BaseURL:      DefaultCantonURL,
				TypeName:     DefaultCantonLayer,
				SRSName:      DefaultSRSName,
				OutputFormat: wfs.DefaultOutputFormat,
			},
			Attribute: DefaultCantonAttribute,
		},
		Roads: Source{
			Query: wfs.Query{
				BaseURL:      DefaultRoadURL,
				TypeName:     DefaultRoadLayer,
				SRSName:      DefaultSRSName,
				OutputFormat: wfs.DefaultOutputFormat,
			},
			Attribute: DefaultRoadAttribute,
		},
	}
}

// Fetcher reads a feature collection from a feature service.
type Fetcher interface {
	GetFeature(ctx context.Context, q wfs.Query) (*geojson.FeatureCollection, error)
}

// Load fetches both layers and builds the tables.
func Load(ctx context.Context, f Fetcher, src Sources, log logrus.FieldLogger) (*Tables, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	cantonFC, err := f.GetFeature(ctx, src.Cantons.Query)
	if err != nil {
		return nil, fmt.Errorf("loading cantons: %w", err)
	}
	roadFC, err := f.GetFeature(ctx, src.Roads.Query)
	if err != nil {
		return nil, fmt.Errorf("loading roads: %w", err)
	}

	t := &Tables{ID: uuid.NewString()}
	t.Cantons, t.Report.SkippedCantons = cantonsFrom(cantonFC, src.Cantons.Attribute)
	t.Roads, t.Report.SkippedRoads = roadsFrom(roadFC, src.Roads.Attribute)
	t.Report.Cantons = len(t.Cantons)
	t.Report.Roads = len(t.Roads)
	t.Categories = categories(t.Roads)

	log.WithFields(logrus.Fields{
		"dataset":         t.ID,
		"cantons":         t.Report.Cantons,
		"skipped_cantons": t.Report.SkippedCantons,
		"roads":           t.Report.Roads,
		"skipped_roads":   t.Report.SkippedRoads,
		"categories":      len(t.Categories),
	}).Info("layers loaded")

	return t, nil
}

func cantonsFrom(fc *geojson.FeatureCollection, attr string) ([]Canton, int) {
	var out []Canton
	skipped := 0
	for _, f := range fc.Features {
		name, ok := f.Properties[attr].(string)
		if !ok || name == "" {
			skipped++
			continue
		}
		mp, ok := polygonal(f.Geometry)
		if !ok {
			skipped++
			continue
		}
		out = append(out, Canton{
			Name:     name,
			Geometry: mp,
			AreaKm2:  planar.Area(mp) / 1e6,
		})
	}
	return out, skipped
}

func roadsFrom(fc *geojson.FeatureCollection, attr string) ([]RoadSegment, int) {
	var out []RoadSegment
	skipped := 0
	for _, f := range fc.Features {
		cat, ok := f.Properties[attr].(string)
		if !ok || cat == "" {
			skipped++
			continue
		}
		mls, ok := linear(f.Geometry)
		if !ok {
			skipped++
			continue
		}
		out = append(out, RoadSegment{Category: cat, Geometry: mls})
	}
	return out, skipped
}

func polygonal(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, false
		}
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func linear(g orb.Geometry) (orb.MultiLineString, bool) {
	switch v := g.(type) {
	case orb.LineString:
		if len(v) < 2 {
			return nil, false
		}
		return orb.MultiLineString{v}, true
	case orb.MultiLineString:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func categories(roads []RoadSegment) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range roads {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out
}
