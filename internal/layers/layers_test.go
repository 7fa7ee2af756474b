package layers

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs/wfstest"
)

func testSources(srv *wfstest.Server) Sources {
	return Sources{
		Cantons: Source{Query: srv.CantonQuery(), Attribute: DefaultCantonAttribute},
		Roads:   Source{Query: srv.RoadQuery(), Attribute: DefaultRoadAttribute},
	}
}

func TestLoad(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()

	log, hook := test.NewNullLogger()
	tables, err := Load(context.Background(), wfs.NewClient(5*time.Second), testSources(srv), log)
	if err != nil {
		t.Fatal(err)
	}

	if len(tables.Cantons) != 3 {
		t.Fatalf("cantons=%d, want 3", len(tables.Cantons))
	}
	for _, c := range tables.Cantons {
		if math.Abs(c.AreaKm2-100) > 1e-9 {
			t.Errorf("%s area=%v, want 100", c.Name, c.AreaKm2)
		}
	}
	want := []string{"Autopista", "Primaria", "Terciaria"}
	if len(tables.Categories) != len(want) {
		t.Fatalf("categories=%v, want %v", tables.Categories, want)
	}
	for i := range want {
		if tables.Categories[i] != want[i] {
			t.Errorf("categories[%d]=%q, want %q", i, tables.Categories[i], want[i])
		}
	}
	if !tables.HasCategory("Primaria") || tables.HasCategory("Secundaria") {
		t.Error("HasCategory mismatch")
	}
	if tables.ID == "" {
		t.Error("missing dataset id")
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.InfoLevel {
		t.Error("expected an info load report")
	}
}

func TestLoadSkipsUnusableFeatures(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()

	cantons := wfstest.Cantons()
	noName := geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	cantons.Append(noName)
	cantons.Append(func() *geojson.Feature {
		f := geojson.NewFeature(orb.Point{1, 1})
		f.Properties["canton"] = "Punto"
		return f
	}())
	srv.Layers[wfstest.CantonLayer] = cantons

	roads := wfstest.Roads()
	numeric := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	numeric.Properties["categoria"] = 7
	roads.Append(numeric)
	srv.Layers[wfstest.RoadLayer] = roads

	tables, err := Load(context.Background(), wfs.NewClient(5*time.Second), testSources(srv), logrus.New())
	if err != nil {
		t.Fatal(err)
	}
	if tables.Report.Cantons != 3 || tables.Report.SkippedCantons != 2 {
		t.Errorf("canton report=%+v", tables.Report)
	}
	if tables.Report.Roads != 3 || tables.Report.SkippedRoads != 1 {
		t.Errorf("road report=%+v", tables.Report)
	}
}

func TestLoadNoCategories(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()
	srv.Layers[wfstest.RoadLayer] = geojson.NewFeatureCollection()

	tables, err := Load(context.Background(), wfs.NewClient(5*time.Second), testSources(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(tables.CheckCategories(), ErrNoCategories) {
		t.Errorf("CheckCategories=%v, want ErrNoCategories", tables.CheckCategories())
	}
}

func TestLoadFetchError(t *testing.T) {
	srv := wfstest.NewServer()
	defer srv.Close()
	srv.Status = 500

	_, err := Load(context.Background(), wfs.NewClient(5*time.Second), testSources(srv), nil)
	var fe *wfs.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v, want *wfs.FetchError", err)
	}
}

func TestCacheLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context) (*Tables, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &Tables{ID: "x"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loads=%d, want 1", n)
	}
	if _, ok := c.Loaded(); !ok {
		t.Error("Loaded=false after Get")
	}
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	c := NewCache(func(ctx context.Context) (*Tables, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &Tables{ID: "ok"}, nil
	})

	if _, err := c.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("first Get err=%v, want boom", err)
	}
	tables, err := c.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tables.ID != "ok" {
		t.Errorf("ID=%q, want ok", tables.ID)
	}

	c.Reset()
	if _, ok := c.Loaded(); ok {
		t.Error("Loaded=true after Reset")
	}
}
