// Package dashboard owns the shared dashboard state: the municipality and
// alert data hooks, the scheduled refresh, and the derived map layers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/fetch"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
)

// Backend is the subset of the forecasting API the dashboard reads.
type Backend interface {
	Municipalities(ctx context.Context) ([]domain.Municipality, error)
	Alerts(ctx context.Context, municipality string) ([]domain.Alert, error)
	Barangay(ctx context.Context, municipality, barangay string) (domain.BarangayDetail, error)
	Forecast(ctx context.Context, municipality, barangay string, months int) (domain.Forecast, error)
}

// AlertPublisher forwards actionable alerts after a refresh.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert, refreshedAt time.Time) error
}

// Snapshot is the dashboard view produced by one successful refresh.
type Snapshot struct {
	Municipalities []domain.Municipality
	Alerts         []domain.Alert // sorted by level
	Summary        domain.AlertSummary
	Index          *domain.BarangayIndex
	Layer          domain.Layer
	Heat           []domain.HeatPoint
	JoinStats      domain.JoinStats
	LastUpdate     time.Time
}

// Status reports the data hooks' loading and error state.
type Status struct {
	MunicipalitiesLoading bool   `json:"municipalities_loading"`
	MunicipalitiesError   string `json:"municipalities_error,omitempty"`
	AlertsLoading         bool   `json:"alerts_loading"`
	AlertsError           string `json:"alerts_error,omitempty"`
}

// Dashboard refreshes backend data and serves the derived views.
type Dashboard struct {
	backend    Backend
	publisher  AlertPublisher
	boundaries []domain.BoundaryFeature
	aliases    *domain.AliasTable
	horizon    int
	logger     *slog.Logger
	metrics    *observability.Metrics

	municipalities *fetch.Resource[struct{}, []domain.Municipality]
	alerts         *fetch.Resource[string, []domain.Alert]

	// refreshMu serializes refreshes so each one owns both hooks for its
	// whole duration.
	refreshMu sync.Mutex

	retryInitial time.Duration
	retryMax     time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
	ready    atomic.Bool
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithBoundaries enables the map layers over the given boundary features.
func WithBoundaries(features []domain.BoundaryFeature) Option {
	return func(d *Dashboard) { d.boundaries = features }
}

// WithAliases replaces the default municipality alias table.
func WithAliases(t *domain.AliasTable) Option {
	return func(d *Dashboard) { d.aliases = t }
}

// WithPublisher publishes actionable alerts after each refresh.
func WithPublisher(p AlertPublisher) Option {
	return func(d *Dashboard) { d.publisher = p }
}

// WithHorizon sets the default forecast horizon in months.
func WithHorizon(months int) Option {
	return func(d *Dashboard) { d.horizon = months }
}

// WithRetryBackoff sets the backoff between start-up refresh attempts.
func WithRetryBackoff(initial, maxBackoff time.Duration) Option {
	return func(d *Dashboard) {
		d.retryInitial = initial
		d.retryMax = maxBackoff
	}
}

// New creates a Dashboard reading from backend.
func New(backend Backend, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend: backend,
		aliases: domain.DefaultAliasTable(),
		horizon:      8,
		retryInitial: time.Second,
		retryMax:     time.Minute,
		logger:       logger,
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(d)
	}

	stale := fetch.WithStaleHook(func() { metrics.StaleDiscarded.Inc() })
	d.municipalities = fetch.New(func(ctx context.Context, _ struct{}) ([]domain.Municipality, error) {
		return backend.Municipalities(ctx)
	}, stale)
	d.alerts = fetch.New(backend.Alerts, stale)
	return d
}

// CheckReadiness returns nil once a refresh has succeeded.
func (d *Dashboard) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return errors.New("dashboard has not completed a refresh yet")
	}
	return nil
}

// Snapshot returns the most recent successful refresh and whether one exists.
func (d *Dashboard) Snapshot() (Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot, d.ready.Load()
}

// Status returns the data hooks' current state.
func (d *Dashboard) Status() Status {
	m := d.municipalities.State()
	a := d.alerts.State()
	return Status{
		MunicipalitiesLoading: m.Loading,
		MunicipalitiesError:   m.Err,
		AlertsLoading:         a.Loading,
		AlertsError:           a.Err,
	}
}

// Horizon is the default forecast horizon in months.
func (d *Dashboard) Horizon() int {
	return d.horizon
}

// Refresh refetches municipalities and alerts, rebuilds the derived views and
// publishes actionable alerts. On failure the previous snapshot is kept.
// Concurrent calls run one after another.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	start := time.Now()

	var (
		wg        sync.WaitGroup
		munis     []domain.Municipality
		alerts    []domain.Alert
		munisErr  error
		alertsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		munis, munisErr = d.municipalities.Load(ctx, struct{}{})
	}()
	go func() {
		defer wg.Done()
		alerts, alertsErr = d.alerts.Load(ctx, "")
	}()
	wg.Wait()

	if err := errors.Join(wrap("municipalities", munisErr), wrap("alerts", alertsErr)); err != nil {
		d.metrics.RefreshRuns.WithLabelValues("error").Inc()
		return err
	}

	snap := d.build(munis, alerts)
	d.mu.Lock()
	d.snapshot = snap
	d.mu.Unlock()
	d.ready.Store(true)

	d.metrics.SnapshotReady.Set(1)
	d.metrics.RefreshRuns.WithLabelValues("success").Inc()
	d.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	d.logger.Info("dashboard refreshed",
		"municipalities", len(snap.Municipalities),
		"barangays", snap.Index.Len(),
		"alerts", snap.Summary.Total,
		"high", snap.Summary.High,
		"duration", time.Since(start),
	)

	d.publish(ctx, snap)
	return nil
}

func (d *Dashboard) build(munis []domain.Municipality, alerts []domain.Alert) Snapshot {
	snap := Snapshot{
		Municipalities: munis,
		Alerts:         domain.SortAlerts(alerts, domain.SortByLevel, domain.Ascending),
		Summary:        domain.SummarizeAlerts(alerts),
		Index:          domain.NewBarangayIndex(munis, d.aliases),
		Layer:          domain.Layer{Type: "FeatureCollection", Features: []domain.LayerFeature{}},
		Heat:           []domain.HeatPoint{},
		LastUpdate:     domain.Clock().Now(),
	}
	if snap.Alerts == nil {
		snap.Alerts = []domain.Alert{}
	}
	if len(d.boundaries) == 0 {
		return snap
	}

	joined, stats := domain.JoinFeatures(d.boundaries, snap.Index)
	snap.Layer = domain.BuildLayer(joined)
	snap.Heat = domain.BuildHeatPoints(joined)
	snap.JoinStats = stats
	for strategy, n := range stats {
		d.metrics.JoinMatches.WithLabelValues(string(strategy)).Add(float64(n))
	}
	if unmatched := stats[domain.MatchNone]; unmatched > 0 {
		d.logger.Warn("boundary features without forecast data", "count", unmatched, "features", len(d.boundaries))
	}
	return snap
}

func (d *Dashboard) publish(ctx context.Context, snap Snapshot) {
	if d.publisher == nil {
		return
	}
	actionable := make([]domain.Alert, 0, snap.Summary.High+snap.Summary.Medium)
	for _, a := range snap.Alerts {
		if a.AlertLevel == domain.RiskHigh || a.AlertLevel == domain.RiskMedium {
			actionable = append(actionable, a)
		}
	}
	if len(actionable) == 0 {
		return
	}
	if err := d.publisher.PublishAlerts(ctx, actionable, snap.LastUpdate); err != nil {
		d.logger.Error("publish alerts failed", "error", err, "alerts", len(actionable))
		return
	}
	d.metrics.AlertsPublished.Add(float64(len(actionable)))
}

// Close cancels in-flight fetches. Later refreshes fail with fetch.ErrClosed.
func (d *Dashboard) Close() {
	d.municipalities.Close()
	d.alerts.Close()
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}
