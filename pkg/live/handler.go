package live

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/view"
)

// HandlerConfig configures the websocket endpoint.
type HandlerConfig struct {
	Fetcher  view.Fetcher
	Viewport layout.Viewport
	Logger   *zap.Logger

	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool

	// Sessions, when set, tracks the number of open sessions.
	Sessions prometheus.Gauge
}

// Handler upgrades requests to live sessions.
type Handler struct {
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = 1024
	}
	return &Handler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Error("failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	s := NewSession(conn, SessionOptions{
		Fetcher:  h.cfg.Fetcher,
		Viewport: h.cfg.Viewport,
		Logger:   h.cfg.Logger,
	})
	if h.cfg.Sessions != nil {
		h.cfg.Sessions.Inc()
		defer h.cfg.Sessions.Dec()
	}
	s.Run(r.Context())
}
