package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/db"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/metrics"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// ProgressFunc is called with progress updates while a dataset loads.
type ProgressFunc func(progress int, status string)

type progressKey struct{}

// WithProgress returns a context whose dataset loads report to fn.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(int, string) {}
}

// StatsConfig configures a StatsService.
type StatsConfig struct {
	Fetcher   layers.Fetcher
	Sources   layers.Sources
	Engine    aggregate.Engine
	Warehouse *db.Warehouse
	Bus       *EventBus
	Log       logrus.FieldLogger
	// MemoSize is how many stat tables are kept in memory.
	MemoSize int
}

// StatsService loads datasets and computes per-canton stat tables.
type StatsService struct {
	fetcher   layers.Fetcher
	sources   layers.Sources
	engine    aggregate.Engine
	warehouse *db.Warehouse
	bus       *EventBus
	log       logrus.FieldLogger
	memo      *requestcache.Cache
}

type statRequest struct {
	tables   *layers.Tables
	category string
}

// NewStatsService creates a stats service.
func NewStatsService(cfg StatsConfig) *StatsService {
	s := &StatsService{
		fetcher:   cfg.Fetcher,
		sources:   cfg.Sources,
		engine:    cfg.Engine,
		warehouse: cfg.Warehouse,
		bus:       cfg.Bus,
		log:       cfg.Log,
	}
	if s.engine == nil {
		s.engine = aggregate.GeomEngine{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.bus == nil {
		s.bus = DefaultBus
	}
	size := cfg.MemoSize
	if size <= 0 {
		size = 64
	}
	s.memo = requestcache.NewCache(s.compute, runtime.GOMAXPROCS(-1),
		requestcache.Deduplicate(), requestcache.Memory(size))
	return s
}

// Load fetches both layers and mirrors the cantons into the warehouse.
// A nil onProgress reports to the ProgressFunc carried by ctx, if any.
func (s *StatsService) Load(ctx context.Context, onProgress ProgressFunc) (*layers.Tables, error) {
	if onProgress == nil {
		onProgress = progressFrom(ctx)
	}
	onProgress(10, "Descargando cantones...")

	fetcher := &progressFetcher{next: s.fetcher, onProgress: onProgress}
	tables, err := layers.Load(ctx, fetcher, s.sources, s.log)
	if err != nil {
		metrics.LayerLoadsTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).Error("layer load failed")
		return nil, err
	}
	metrics.LayerLoadsTotal.WithLabelValues("ok").Inc()
	onProgress(80, "Calculando áreas...")

	if s.warehouse != nil {
		rows := make([]db.Canton, len(tables.Cantons))
		for i, c := range tables.Cantons {
			rows[i] = db.Canton{Name: c.Name, AreaKm2: c.AreaKm2}
		}
		if err := s.warehouse.PutCantons(ctx, tables.ID, rows); err != nil {
			s.log.WithError(err).Warn("failed to mirror cantons")
		}
	}

	onProgress(100, "Capas cargadas")
	s.bus.Publish(Event{Resource: "dataset", Action: "loaded", ID: tables.ID})
	return tables, nil
}

// Bus returns the bus dataset and stats events are published on.
func (s *StatsService) Bus() *EventBus { return s.bus }

// Loader returns a layers.LoadFunc bound to s, reporting to onProgress.
func (s *StatsService) Loader(onProgress ProgressFunc) layers.LoadFunc {
	return func(ctx context.Context) (*layers.Tables, error) {
		return s.Load(ctx, onProgress)
	}
}

// Stats returns the stat table for category. Identical concurrent
// requests share one computation and results are memoized per dataset.
func (s *StatsService) Stats(ctx context.Context, t *layers.Tables, category string) ([]aggregate.Stat, error) {
	if err := t.CheckCategories(); err != nil {
		return nil, err
	}
	if !t.HasCategory(category) {
		return nil, fmt.Errorf("%w: %q", aggregate.ErrUnknownCategory, category)
	}
	metrics.StatRequestsTotal.Inc()

	key := t.ID + "|" + category
	res, err := s.memo.NewRequest(ctx, statRequest{tables: t, category: category}, key).Result()
	if err != nil {
		return nil, err
	}
	stats := res.([]aggregate.Stat)
	out := make([]aggregate.Stat, len(stats))
	copy(out, stats)
	return out, nil
}

func (s *StatsService) compute(ctx context.Context, r interface{}) (interface{}, error) {
	req := r.(statRequest)
	start := time.Now()
	stats := aggregate.Aggregate(req.tables.Cantons, req.tables.Roads, req.category, s.engine)
	elapsed := time.Since(start)

	metrics.AggregationsTotal.WithLabelValues(req.category).Inc()
	metrics.AggregationDurationSeconds.Observe(elapsed.Seconds())
	s.log.WithFields(logrus.Fields{
		"dataset":  req.tables.ID,
		"category": req.category,
		"cantons":  len(stats),
		"total_km": aggregate.Total(stats),
		"elapsed":  elapsed,
	}).Debug("aggregated road network")

	if s.warehouse != nil {
		rows := make([]db.Stat, len(stats))
		for i, st := range stats {
			rows[i] = db.Stat{Canton: st.Canton, LengthKm: st.LengthKm, Density: st.Density}
		}
		if err := s.warehouse.PutStats(ctx, req.tables.ID, req.category, rows); err != nil {
			s.log.WithError(err).Warn("failed to mirror stats")
		}
	}
	s.bus.Publish(Event{Resource: "stats", Action: "computed", ID: req.tables.ID, Category: req.category})
	return stats, nil
}

// Forget drops the warehouse rows of a dataset that is no longer used.
func (s *StatsService) Forget(ctx context.Context, dataset string) {
	if s.warehouse == nil {
		return
	}
	if err := s.warehouse.DropDataset(ctx, dataset); err != nil {
		s.log.WithError(err).Warn("failed to drop dataset rows")
	}
}

// progressFetcher times each layer fetch and reports progress.
type progressFetcher struct {
	next       layers.Fetcher
	onProgress ProgressFunc
	n          int
}

func (f *progressFetcher) GetFeature(ctx context.Context, q wfs.Query) (*geojson.FeatureCollection, error) {
	start := time.Now()
	fc, err := f.next.GetFeature(ctx, q)
	metrics.WFSDurationSeconds.WithLabelValues(q.TypeName).Observe(time.Since(start).Seconds())

	outcome := "ok"
	var fe *wfs.FetchError
	switch {
	case errors.As(err, &fe) && fe.StatusCode != 0:
		outcome = "status"
	case err != nil:
		outcome = "error"
	}
	metrics.WFSRequestsTotal.WithLabelValues(q.TypeName, outcome).Inc()
	if err != nil {
		return nil, err
	}

	f.n++
	if f.n == 1 {
		f.onProgress(45, "Descargando red vial...")
	}
	return fc, nil
}
