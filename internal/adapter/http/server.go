package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/session"
)

// Dashboard is the shared dashboard state served under /api/v1.
type Dashboard interface {
	sharedobs.ReadinessChecker
	Snapshot() (dashboard.Snapshot, bool)
	Status() dashboard.Status
	Refresh(ctx context.Context) error
	Barangay(ctx context.Context, municipality, barangay string, months int) (dashboard.BarangayView, error)
}

// Insights passes model explanations through from the backend.
type Insights interface {
	Interpretability(ctx context.Context, municipality, barangay string) (domain.Interpretability, error)
	WeatherInsights(ctx context.Context, municipality, barangay string) (domain.WeatherInsights, error)
}

// Server exposes health, readiness, metrics and the dashboard API.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	insights   Insights
	reports    forecastapi.ReportFetcher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes.
func NewServer(addr string, dash Dashboard, insights Insights, reports forecastapi.ReportFetcher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withSession(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:     dash,
		insights: insights,
		reports:  reports,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(dash))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/v1/alerts/grouped", s.handleAlertsGrouped)
	mux.HandleFunc("GET /api/v1/municipalities", s.handleMunicipalities)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/map/heat", s.handleHeat)
	mux.HandleFunc("GET /api/v1/barangay/{municipality}/{barangay}", s.handleBarangay)
	mux.HandleFunc("GET /api/v1/interpretability/{municipality}/{barangay}", s.handleInterpretability)
	mux.HandleFunc("GET /api/v1/weather-insights/{municipality}/{barangay}", s.handleWeatherInsights)
	mux.HandleFunc("GET /api/v1/report/{kind}/{municipality}/{barangay}", s.handleReport)
	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// withSession forwards the caller's bearer token to backend requests. The
// token is not verified here.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := session.BearerToken(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(session.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
