package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

const (
	minMonths = 1
	maxMonths = 24
)

type dashboardResponse struct {
	Municipalities []municipalityResponse `json:"municipalities"`
	Alerts         []domain.Alert         `json:"alerts"`
	Summary        domain.AlertSummary    `json:"summary"`
	LastUpdate     time.Time              `json:"last_update"`
	Status         dashboard.Status       `json:"status"`
}

type municipalityResponse struct {
	domain.Municipality
	Status string `json:"status"`
}

type alertsResponse struct {
	Count  int            `json:"count"`
	Alerts []domain.Alert `json:"alerts"`
}

// snapshot writes a 503 with the hooks' status when no refresh has succeeded.
func (s *Server) snapshot(w http.ResponseWriter) (dashboard.Snapshot, bool) {
	snap, ok := s.dash.Snapshot()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":  "dashboard data not loaded yet",
			"status": s.dash.Status(),
		})
	}
	return snap, ok
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, dashboardResponse{
		Municipalities: municipalities(snap.Municipalities),
		Alerts:         snap.Alerts,
		Summary:        snap.Summary,
		LastUpdate:     snap.LastUpdate,
		Status:         s.dash.Status(),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	q := r.URL.Query()
	field, err := domain.ParseSortField(q.Get("sort"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	order, err := domain.ParseSortOrder(q.Get("order"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	alerts := domain.FilterAlertsByLevel(snap.Alerts, q.Get("level"))
	if m := q.Get("municipality"); m != "" {
		alerts = domain.FilterAlertsByMunicipality(alerts, m)
	}
	alerts = domain.SortAlerts(alerts, field, order)
	sharedobs.WriteJSON(w, http.StatusOK, alertsResponse{Count: len(alerts), Alerts: alerts})
}

func (s *Server) handleAlertsGrouped(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"groups": domain.GroupAlertsByMunicipality(snap.Alerts),
	})
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"municipalities": municipalities(snap.Municipalities),
	})
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(snap.Layer) //nolint:errcheck // best-effort response
}

func (s *Server) handleHeat(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"points": snap.Heat})
}

func (s *Server) handleBarangay(w http.ResponseWriter, r *http.Request) {
	months, err := parseMonths(r.URL.Query().Get("months"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m, b := r.PathValue("municipality"), r.PathValue("barangay")
	view, err := s.dash.Barangay(r.Context(), m, b, months)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleInterpretability(w http.ResponseWriter, r *http.Request) {
	in, err := s.insights.Interpretability(r.Context(), r.PathValue("municipality"), r.PathValue("barangay"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, in)
}

func (s *Server) handleWeatherInsights(w http.ResponseWriter, r *http.Request) {
	wi, err := s.insights.WeatherInsights(r.Context(), r.PathValue("municipality"), r.PathValue("barangay"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, wi)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, err := forecastapi.ParseReportKind(r.PathValue("kind"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rep, err := s.reports.Report(r.Context(), kind, r.PathValue("municipality"), r.PathValue("barangay"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contentType := rep.ContentType
	if contentType == "" {
		contentType = "application/pdf"
		if kind == forecastapi.ReportCSV {
			contentType = "text/csv"
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.Body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, _ := s.dash.Snapshot()
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "refreshed",
		"last_update": snap.LastUpdate,
	})
}

// writeError maps backend failures onto HTTP statuses: a backend status is
// passed through, a backend 404 renders the no-data state, timeouts are 504
// and anything else is 502.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *forecastapi.StatusError
	switch {
	case forecastapi.IsNotFound(err):
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no data", "error": err.Error()})
		return
	case errors.As(err, &se):
		sharedobs.WriteJSON(w, se.StatusCode, map[string]string{"error": err.Error()})
	case errors.Is(err, forecastapi.ErrUnknownReportKind):
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded):
		sharedobs.WriteJSON(w, http.StatusGatewayTimeout, map[string]string{"error": err.Error()})
	default:
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	s.logger.Error("backend request failed", "path", r.URL.Path, "error", err)
}

func parseMonths(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minMonths || n > maxMonths {
		return 0, fmt.Errorf("months must be an integer between %d and %d", minMonths, maxMonths)
	}
	return n, nil
}

func municipalities(ms []domain.Municipality) []municipalityResponse {
	out := make([]municipalityResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, municipalityResponse{Municipality: m, Status: domain.MunicipalityStatus(m)})
	}
	return out
}
