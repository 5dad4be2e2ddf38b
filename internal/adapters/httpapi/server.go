// Package httpapi exposes the gateway over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/metrics"
)

// Route names, also used as the endpoint metric label
const (
	RouteIntent  = "intent"
	RouteImprove = "improve"
	RouteSummary = "summary"
	RouteHealth  = "health"
	RouteMetrics = "metrics"
)

const shutdownTimeout = 10 * time.Second

// Options configures the listener
type Options struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
}

// Server is the HTTP front of the gateway
type Server struct {
	gateway    *core.Gateway
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	opts       Options
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates the server and builds its routes
func NewServer(
	gateway *core.Gateway,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	opts Options,
	logger *zap.Logger,
) *Server {
	s := &Server{
		gateway:  gateway,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
		opts:     opts,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.instrument)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/intent", s.handleIntent).Methods(http.MethodPost).Name(RouteIntent)
	api.HandleFunc("/improve", s.handleImprove).Methods(http.MethodPost).Name(RouteImprove)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodPost).Name(RouteSummary)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name(RouteHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet).Name(RouteMetrics)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
	})
	return c.Handler(r)
}

// Handler returns the routed handler, CORS included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.opts.ListenAddress,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("HTTP server starting",
		zap.String("address", s.opts.ListenAddress),
		zap.Bool("llm_configured", s.gateway.LLMConfigured()))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests, then closes the listener
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
