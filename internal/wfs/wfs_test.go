package wfs_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs/wfstest"
)

func TestQueryParams(t *testing.T) {
	q := wfs.Query{
		BaseURL:  "https://example.test/be/IGN_5/wfs",
		TypeName: "IGN_5:limitecantonal_5k",
		SRSName:  "urn:ogc:def:crs:EPSG::5367",
	}
	p := q.Params()
	want := map[string]string{
		"service":      "WFS",
		"version":      "2.0.0",
		"request":      "GetFeature",
		"typeName":     "IGN_5:limitecantonal_5k",
		"srsName":      "urn:ogc:def:crs:EPSG::5367",
		"outputFormat": "json",
	}
	for k, v := range want {
		if got := p.Get(k); got != v {
			t.Errorf("%s=%q, want %q", k, got, v)
		}
	}
}

func TestGetFeature(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()

	c := wfs.NewClient(5 * time.Second)
	fc, err := c.GetFeature(context.Background(), srv.CantonQuery())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features=%d, want 3", len(fc.Features))
	}
	if got := fc.Features[0].Properties.MustString("canton"); got != "Alfa" {
		t.Errorf("first canton=%q, want Alfa", got)
	}
}

func TestGetFeatureStatusError(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()
	srv.Status = http.StatusServiceUnavailable

	_, err := wfs.NewClient(5*time.Second).GetFeature(context.Background(), srv.RoadQuery())
	var fe *wfs.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v, want *wfs.FetchError", err)
	}
	if fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status=%d, want %d", fe.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestGetFeatureBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<ows:ExceptionReport/>"))
	}))
	defer srv.Close()

	_, err := wfs.NewClient(5*time.Second).GetFeature(context.Background(), wfs.Query{BaseURL: srv.URL, TypeName: "x"})
	var fe *wfs.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v, want *wfs.FetchError", err)
	}
	if fe.StatusCode != http.StatusOK {
		t.Errorf("status=%d, want 200", fe.StatusCode)
	}
}

func TestGetFeatureUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := wfs.NewClient(time.Second).GetFeature(context.Background(), wfs.Query{BaseURL: url, TypeName: "x"})
	var fe *wfs.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v, want *wfs.FetchError", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("status=%d, want 0", fe.StatusCode)
	}
}
