// Package server exposes the relationship graph over HTTP: the data
// endpoints the graph view loads, the viewer page, the live session
// socket, health and metrics.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/live"
	"github.com/anthonybishopric/relgraph/pkg/relations"
)

// Route paths.
const (
	PathGraph   = "/graph/"
	PathData    = "/graph/data/"
	PathEvents  = "/graph/events/"
	PathFilters = "/graph/filters/"
	PathLive    = "/graph/live"
	PathHealth  = "/healthz"
	PathMetrics = "/metrics"
)

// Config configures a Server.
type Config struct {
	Service  *relations.Service
	Logger   *zap.Logger
	Metrics  *Metrics
	Viewport layout.Viewport

	// AllowedOrigins for CORS and live socket origin checks. Empty means
	// same origin only.
	AllowedOrigins []string

	EventCacheSize int
	EventCacheTTL  time.Duration

	// DisableLive turns off the live session endpoint.
	DisableLive bool
}

// Server routes HTTP requests to the graph handlers.
type Server struct {
	cfg    Config
	svc    *relations.Service
	logger *zap.Logger
	events *expirable.LRU[string, []relations.Event]
	router chi.Router
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics("relgraph")
	}
	if cfg.EventCacheSize == 0 {
		cfg.EventCacheSize = 1024
	}
	if cfg.EventCacheTTL == 0 {
		cfg.EventCacheTTL = 5 * time.Minute
	}
	if cfg.Viewport.Width == 0 || cfg.Viewport.Height == 0 {
		cfg.Viewport = layout.Viewport{Width: 960, Height: 600}
	}

	s := &Server{
		cfg:    cfg,
		svc:    cfg.Service,
		logger: cfg.Logger,
		events: expirable.NewLRU[string, []relations.Event](cfg.EventCacheSize, nil, cfg.EventCacheTTL),
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(s.logger))
	router.Use(s.cfg.Metrics.Instrument)

	if len(s.cfg.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get(PathHealth, s.health)
	router.Method(http.MethodGet, PathMetrics, s.cfg.Metrics.Handler())

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, PathGraph, http.StatusFound)
	})
	router.Get(PathGraph, s.page)
	router.Get(PathData, s.graphData)
	router.Get(PathEvents, s.eventLookup)
	router.Get(PathFilters, s.filterOptions)

	if !s.cfg.DisableLive {
		router.Method(http.MethodGet, PathLive, live.NewHandler(live.HandlerConfig{
			Fetcher:     localFetcher{s},
			Viewport:    s.cfg.Viewport,
			Logger:      s.logger.Named("live"),
			CheckOrigin: s.checkOrigin,
			Sessions:    s.cfg.Metrics.LiveSessions,
		}))
	}

	return router
}

// checkOrigin admits same-origin sockets and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
