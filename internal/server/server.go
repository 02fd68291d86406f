package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime/schema"

	v1alpha1 "github.com/language-operator/language-operator-dashboard/api/v1alpha1"
	"github.com/language-operator/language-operator-dashboard/internal/tenant"
	"github.com/language-operator/language-operator-dashboard/internal/watch"
)

// Kind describes one watched resource kind's route wiring. Each kind
// supplies only its selector logic; everything else about a watch route is
// identical across kinds.
type Kind struct {
	// Path is the URL path element (plural), e.g. "agents".
	Path string

	// Name is the client-facing resourceKind (singular), e.g. "agent".
	Name string

	// GVR is the control-plane resource collection backing the route.
	GVR schema.GroupVersionResource

	// Selector returns the label selector restricting the watch for one
	// organization. Nil means the organization label selector.
	Selector func(org string) string
}

// WatchKinds is the table of resource kinds the dashboard streams. Adding
// a kind here is the only change required to expose a new watch route.
//
// Events are namespace-wide: Kubernetes emits them without the
// organization label, so their scope is the tenant namespace alone.
func WatchKinds() []Kind {
	return []Kind{
		{Path: "clusters", Name: "cluster", GVR: v1alpha1.ClustersGVR()},
		{Path: "agents", Name: "agent", GVR: v1alpha1.AgentsGVR()},
		{Path: "models", Name: "model", GVR: v1alpha1.ModelsGVR()},
		{Path: "tools", Name: "tool", GVR: v1alpha1.ToolsGVR()},
		{Path: "personas", Name: "persona", GVR: v1alpha1.PersonasGVR()},
		{Path: "events", Name: "event", GVR: v1alpha1.EventsGVR(), Selector: func(string) string { return "" }},
	}
}

// Options configures the dashboard server.
type Options struct {
	// Addr is the listen address. Default: ":8080".
	Addr string

	// HeartbeatInterval between SSE keep-alive comments.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the fixed pause before a failed watch restarts.
	ReconnectDelay time.Duration

	// Logger for server operations.
	Logger *zap.Logger
}

// Server serves the watch routes plus health and metrics endpoints.
type Server struct {
	logger     *zap.Logger
	opts       Options
	api        watch.API
	resolver   tenant.Resolver
	router     chi.Router
	httpServer *http.Server
}

// New creates the server and mounts all routes.
func New(api watch.API, resolver tenant.Resolver, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		logger:   opts.Logger.Named("server"),
		opts:     opts,
		api:      api,
		resolver: resolver,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, kind := range WatchKinds() {
		s.bind(r, kind)
	}

	s.router = r
	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until the context is cancelled. Shutdown
// first cancels the base context all request contexts derive from, which
// drains active streams (their abort watchers close them and the watch
// handlers return), then closes the listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	s.httpServer = &http.Server{
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return streamCtx },
	}

	s.logger.Info("Starting dashboard server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down dashboard server")
		cancelStreams()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}
