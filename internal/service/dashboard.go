package service

import (
	"context"

	"github.com/paulmach/orb/geojson"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/charts"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/session"
)

// Dashboard serves the views of the session found in the request context.
type Dashboard struct {
	Stats *StatsService
	Map   report.MapOptions
}

// NewDashboard creates a dashboard whose maps are reprojected to WGS84.
func NewDashboard(stats *StatsService) (*Dashboard, error) {
	rp, err := report.NewReprojector(report.CRTM05, report.WGS84)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Stats: stats,
		Map:   report.MapOptions{Reprojector: rp, Tolerance: report.DefaultTolerance},
	}, nil
}

// View is everything computed for one category selection.
type View struct {
	Tables   *layers.Tables
	Category string
	Stats    []aggregate.Stat
}

// Tables returns the session's dataset, loading it on first use.
func (d *Dashboard) Tables(ctx context.Context) (*layers.Tables, *session.Session, error) {
	s, err := session.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.Layers.Get(ctx)
	if err != nil {
		return nil, s, err
	}
	return t, s, nil
}

// Categories lists the categories of the session's dataset.
func (d *Dashboard) Categories(ctx context.Context) (CategoryList, error) {
	t, s, err := d.Tables(ctx)
	if err != nil {
		return CategoryList{}, err
	}
	out := CategoryList{Categories: append([]string{}, t.Categories...)}
	if c := s.Category(); t.HasCategory(c) {
		out.Selected = c
	} else if len(t.Categories) > 0 {
		out.Selected = t.Categories[0]
	}
	return out, nil
}

// Select computes the view for category. An empty category falls back to
// the session's last selection, then to the first category. An explicit
// category becomes the session's selection.
func (d *Dashboard) Select(ctx context.Context, category string) (*View, error) {
	t, s, err := d.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.CheckCategories(); err != nil {
		return nil, err
	}
	explicit := category != ""
	if !explicit {
		category = s.Category()
		if !t.HasCategory(category) {
			category = t.Categories[0]
		}
	}
	stats, err := d.Stats.Stats(ctx, t, category)
	if err != nil {
		return nil, err
	}
	if explicit {
		s.SetCategory(category)
	}
	return &View{Tables: t, Category: category, Stats: stats}, nil
}

// Table returns the displayed stat table.
func (v *View) Table() report.Table {
	return report.NewTable(v.Category, v.Stats)
}

// StatTable returns the API form of the stat table.
func (v *View) StatTable() StatTable {
	return NewStatTable(v.Tables.ID, v.Table())
}

// BarChart renders the ranking chart.
func (v *View) BarChart(format charts.Format) ([]byte, error) {
	return charts.Bar(report.TopBars(v.Stats, report.TopN), v.Category, format)
}

// PieChart renders the share chart.
func (v *View) PieChart(format charts.Format) ([]byte, error) {
	return charts.Pie(report.PieSlices(v.Stats, report.TopN), v.Category, format)
}

// Legend renders the choropleth legend.
func (v *View) Legend() ([]byte, error) {
	return charts.Legend(report.NewLegend(v.Stats))
}

// Cantons returns the choropleth layer.
func (d *Dashboard) Cantons(v *View) *geojson.FeatureCollection {
	return report.Choropleth(v.Tables.Cantons, v.Stats, d.Map)
}

// Roads returns the road overlay layer.
func (d *Dashboard) Roads(v *View) *geojson.FeatureCollection {
	return report.RoadOverlay(v.Tables.Cantons, v.Tables.Roads, v.Category, d.Map)
}
