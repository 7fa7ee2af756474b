package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/api"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/api/dashboard"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/db"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/metrics"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/service"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/session"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/templates"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	Sources      layers.Sources
	FetchTimeout time.Duration
	SessionTTL   time.Duration
	// DBPath is the DuckDB file of the stats warehouse; empty means in-memory.
	DBPath string
	// Fetcher overrides the WFS client.
	Fetcher layers.Fetcher
	Log     logrus.FieldLogger
}

// Server is the road network dashboard HTTP server.
type Server struct {
	config    Config
	mux       *http.ServeMux
	handler   http.Handler
	humaAPI   huma.API
	warehouse *db.Warehouse
	sessions  *session.Store
	services  *api.Services
	renderer  *templates.Renderer
	log       logrus.FieldLogger
}

// New creates a new dashboard server.
func New(cfg Config) (*Server, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = wfs.NewClient(cfg.FetchTimeout)
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("redvial API", api.Version)
	humaConfig.Info.Description = "Road network length and density per canton of Costa Rica, computed from the SNIT WFS layers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	warehouse, err := db.Open(db.Config{Path: cfg.DBPath})
	if err != nil {
		cfg.Log.WithError(err).Warn("stats warehouse unavailable")
		warehouse = nil
	}

	stats := service.NewStatsService(service.StatsConfig{
		Fetcher:   cfg.Fetcher,
		Sources:   cfg.Sources,
		Warehouse: warehouse,
		Log:       cfg.Log,
	})
	dash, err := service.NewDashboard(stats)
	if err != nil {
		warehouse.Close()
		return nil, fmt.Errorf("failed to build map projection: %w", err)
	}

	sessions := session.NewStore(cfg.SessionTTL,
		func() *layers.Cache { return layers.NewCache(stats.Loader(nil)) },
		func(s *session.Session) {
			if t, ok := s.Layers.Loaded(); ok {
				stats.Forget(context.Background(), t.ID)
			}
		},
		cfg.Log,
	)

	s := &Server{
		config:    cfg,
		mux:       mux,
		humaAPI:   humaAPI,
		warehouse: warehouse,
		sessions:  sessions,
		services:  &api.Services{Dashboard: dash},
		renderer:  renderer,
		log:       cfg.Log,
	}
	s.routes()
	s.handler = s.accessLog(s.withSession(mux))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document of the server.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// Close closes server resources.
func (s *Server) Close() error {
	return s.warehouse.Close()
}

func (s *Server) routes() {
	api.NewAPIHandler(s.services).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.warehouse).RegisterRoutes(s.humaAPI)
	api.NewInfoHandler(s.config.Sources, s.warehouse != nil).RegisterRoutes(s.humaAPI)
	dashboard.New(s.services.Dashboard, s.renderer, s.log).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.Handle("/", dashboard.NewPage(s.renderer, s.log))
}

// stateless paths never create a session.
var stateless = []string{"/metrics", "/health", "/openapi", "/docs", "/schemas", "/api/v1/info", "/api/v1/tables", "/api/v1/query"}

func needsSession(path string) bool {
	for _, p := range stateless {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return path == "/" || strings.HasPrefix(path, "/api/v1/")
}

func (s *Server) withSession(next http.Handler) http.Handler {
	withSession := s.sessions.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if needsSession(r.URL.Path) {
			withSession.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"bytes":    sw.bytes,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
