// Package forecastapi is the typed client for the forecasting backend's REST
// surface. Each method maps one endpoint, unwraps the response envelope and
// returns the domain type.
package forecastapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/session"
)

// ReportKind selects one of the backend's report downloads.
type ReportKind string

const (
	ReportCSV      ReportKind = "csv"
	ReportPDF      ReportKind = "pdf"
	ReportInsights ReportKind = "insights"
)

// ErrUnknownReportKind is returned for report kinds other than csv, pdf and insights.
var ErrUnknownReportKind = errors.New("unknown report kind")

// ParseReportKind validates a report kind string.
func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(strings.ToLower(s)); k {
	case ReportCSV, ReportPDF, ReportInsights:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReportKind, s)
	}
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("forecast API error: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client calls the forecasting backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	insightsRoute string
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewClient creates a backend client. insightsRoute is the path segment of the
// interpretability report ("insights" or "insights-pdf").
func NewClient(baseURL string, timeout time.Duration, insightsRoute string, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if insightsRoute == "" {
		insightsRoute = string(ReportInsights)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		insightsRoute: insightsRoute,
		logger:        logger,
		metrics:       metrics,
	}
}

// Health fetches the backend status document.
func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var h domain.Health
	if err := c.getJSON(ctx, "health", "/", nil, &h); err != nil {
		return domain.Health{}, err
	}
	return h, nil
}

// Municipalities lists every municipality with its barangay summaries.
func (c *Client) Municipalities(ctx context.Context) ([]domain.Municipality, error) {
	var env struct {
		Municipalities []domain.Municipality `json:"municipalities"`
	}
	if err := c.getJSON(ctx, "municipalities", "/api/municipalities", nil, &env); err != nil {
		return nil, err
	}
	if env.Municipalities == nil {
		return []domain.Municipality{}, nil
	}
	return env.Municipalities, nil
}

// Alerts lists active alerts, optionally restricted to one municipality.
func (c *Client) Alerts(ctx context.Context, municipality string) ([]domain.Alert, error) {
	var query url.Values
	if municipality != "" {
		query = url.Values{"municipality": {municipality}}
	}
	var env struct {
		Count  int            `json:"count"`
		Alerts []domain.Alert `json:"alerts"`
	}
	if err := c.getJSON(ctx, "alerts", "/api/alerts", query, &env); err != nil {
		return nil, err
	}
	if env.Alerts == nil {
		return []domain.Alert{}, nil
	}
	return env.Alerts, nil
}

// Barangay fetches the detail record for one barangay.
func (c *Client) Barangay(ctx context.Context, municipality, barangay string) (domain.BarangayDetail, error) {
	var env struct {
		Barangay domain.BarangayDetail `json:"barangay"`
	}
	if err := c.getJSON(ctx, "barangay", unitPath("/api/barangay", municipality, barangay), nil, &env); err != nil {
		return domain.BarangayDetail{}, err
	}
	return env.Barangay, nil
}

// Forecast fetches forward predictions. months <= 0 leaves the horizon to the backend.
func (c *Client) Forecast(ctx context.Context, municipality, barangay string, months int) (domain.Forecast, error) {
	var query url.Values
	if months > 0 {
		query = url.Values{"months": {strconv.Itoa(months)}}
	}
	var env struct {
		Forecast domain.Forecast `json:"forecast"`
	}
	if err := c.getJSON(ctx, "forecast", unitPath("/api/forecast", municipality, barangay), query, &env); err != nil {
		return domain.Forecast{}, err
	}
	return env.Forecast, nil
}

// Interpretability fetches the model decomposition for a barangay.
func (c *Client) Interpretability(ctx context.Context, municipality, barangay string) (domain.Interpretability, error) {
	var env struct {
		Interpretability domain.Interpretability `json:"interpretability"`
	}
	if err := c.getJSON(ctx, "interpretability", unitPath("/api/interpretability", municipality, barangay), nil, &env); err != nil {
		return domain.Interpretability{}, err
	}
	return env.Interpretability, nil
}

// WeatherInsights fetches the weather-pattern risk analysis. The document is
// not enveloped.
func (c *Client) WeatherInsights(ctx context.Context, municipality, barangay string) (domain.WeatherInsights, error) {
	var wi domain.WeatherInsights
	if err := c.getJSON(ctx, "weather_insights", unitPath("/api/weather-insights", municipality, barangay), nil, &wi); err != nil {
		return domain.WeatherInsights{}, err
	}
	return wi, nil
}

// Report downloads a CSV or PDF report.
func (c *Client) Report(ctx context.Context, kind ReportKind, municipality, barangay string) (Report, error) {
	segment := string(kind)
	switch kind {
	case ReportCSV, ReportPDF:
	case ReportInsights:
		segment = c.insightsRoute
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownReportKind, kind)
	}

	endpoint := "report_" + string(kind)
	resp, err := c.do(ctx, endpoint, unitPath("/api/report/"+segment, municipality, barangay), nil)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Report{}, fmt.Errorf("read %s report: %w", kind, err)
	}
	return Report{
		Kind:        kind,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    reportFilename(resp.Header.Get("Content-Disposition"), kind, municipality, barangay),
		Body:        body,
	}, nil
}

// Report is a downloaded report file.
type Report struct {
	Kind        ReportKind
	ContentType string
	Filename    string
	Body        []byte
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, endpoint, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if err := unwrap(data); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// do issues a GET and returns the response for 2xx statuses. Other statuses
// are drained into a StatusError.
func (c *Client) do(ctx context.Context, endpoint, path string, query url.Values) (*http.Response, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token, ok := session.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("forecast API error",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"request_id", req.Header.Get("X-Request-ID"),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	c.metrics.APIRequests.WithLabelValues(endpoint, "success").Inc()
	return resp, nil
}

// unwrap rejects envelopes whose success flag is explicitly false.
func unwrap(data []byte) error {
	var env struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		// Not an object; let the typed decode report it.
		return nil
	}
	if env.Success == nil || *env.Success {
		return nil
	}
	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = "request unsuccessful"
	}
	return &EnvelopeError{Message: msg}
}

// EnvelopeError is a 2xx response carrying "success": false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return "backend reported failure: " + e.Message
}

func unitPath(prefix, municipality, barangay string) string {
	return prefix + "/" + url.PathEscape(municipality) + "/" + url.PathEscape(barangay)
}

// reportFilename prefers the backend's Content-Disposition name and otherwise
// builds rabies_forecast_<mun>_<brgy>_<date>.<ext>. The result is always a
// bare file name with no directory component.
func reportFilename(disposition string, kind ReportKind, municipality, barangay string) string {
	if _, after, ok := strings.Cut(disposition, "filename="); ok {
		name := strings.Trim(strings.TrimSpace(strings.Split(after, ";")[0]), `"`)
		name = path.Base(strings.ReplaceAll(name, `\`, "/"))
		if name != "" && name != "." && name != ".." && name != "/" {
			return name
		}
	}
	prefix, ext := "rabies_forecast", "pdf"
	switch kind {
	case ReportCSV:
		ext = "csv"
	case ReportInsights:
		prefix = "rabies_model_insights"
	}
	date := domain.Clock().Now().Format(time.DateOnly)
	name := fmt.Sprintf("%s_%s_%s_%s.%s", prefix, municipality, barangay, date, ext)
	return filenameReplacer.Replace(name)
}

var filenameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")
