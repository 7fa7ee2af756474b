// Package wfstest provides an in-process WFS server with a small canton
// and road fixture in projected metre coordinates.
package wfstest

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

const (
	CantonLayer = "TEST:cantones"
	RoadLayer   = "TEST:redvial"
)

// Cantons returns the canton fixture. Layout in metres:
//
//	Alfa   [0,0]-[10000,10000]       100 km2
//	Beta   [10000,0]-[20000,10000]   100 km2
//	Gamma  [30000,0]-[40000,10000]   100 km2, no roads
//
// "Autopista" crosses Alfa and Beta along y=5000 from x=-1000 to 21000,
// 10 km inside each. "Primaria" runs 6 km inside Alfa along x=5000.
// "Terciaria" lies entirely outside every canton.
func Cantons() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(canton("Alfa", square(0, 0, 10000)))
	fc.Append(canton("Beta", square(10000, 0, 10000)))
	fc.Append(canton("Gamma", square(30000, 0, 10000)))
	return fc
}

// Roads returns the road fixture.
func Roads() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(road("Autopista", orb.LineString{{-1000, 5000}, {21000, 5000}}))
	fc.Append(road("Primaria", orb.LineString{{5000, 2000}, {5000, 8000}}))
	fc.Append(road("Terciaria", orb.LineString{{50000, 50000}, {51000, 50000}}))
	return fc
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func canton(name string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["canton"] = name
	return f
}

func road(cat string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["categoria"] = cat
	return f
}

// Server is a fake WFS endpoint.
type Server struct {
	*httptest.Server

	Layers map[string]*geojson.FeatureCollection
	// Status, when non-zero, is returned instead of any feature data.
	Status int

	hits atomic.Int64
}

// NewServer starts a server serving the default fixture.
func NewServer() *Server {
	s := &Server{
		Layers: map[string]*geojson.FeatureCollection{
			CantonLayer: Cantons(),
			RoadLayer:   Roads(),
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// CantonQuery addresses the canton layer of s.
func (s *Server) CantonQuery() wfs.Query {
	return wfs.Query{BaseURL: s.URL + "/wfs", TypeName: CantonLayer, SRSName: "EPSG:5367"}
}

// RoadQuery addresses the road layer of s.
func (s *Server) RoadQuery() wfs.Query {
	return wfs.Query{BaseURL: s.URL + "/wfs", TypeName: RoadLayer, SRSName: "EPSG:5367"}
}

// Hits returns how many GetFeature requests were served.
func (s *Server) Hits() int64 { return s.hits.Load() }

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	q := r.URL.Query()
	if q.Get("service") != "WFS" || q.Get("request") != "GetFeature" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if s.Status != 0 {
		http.Error(w, "unavailable", s.Status)
		return
	}
	fc, ok := s.Layers[q.Get("typeName")]
	if !ok {
		http.Error(w, "unknown layer", http.StatusNotFound)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
