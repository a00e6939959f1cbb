package dashboard

import (
	"context"
	"fmt"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

// BarangayView is the barangay screen: backend detail, forecast and the
// locally derived risk verdict.
type BarangayView struct {
	Detail   domain.BarangayDetail `json:"detail"`
	Forecast *domain.Forecast      `json:"forecast"`
	Risk     domain.RiskVerdict    `json:"risk"`
	// BackendRisk is the level from the municipality summary, when indexed.
	BackendRisk domain.RiskLevel `json:"backend_risk"`
	// ForecastError is set when the detail loaded but the forecast did not.
	ForecastError string `json:"forecast_error,omitempty"`
}

// Barangay loads one barangay's detail and forecast and derives its risk.
// A forecast failure is not fatal: the next-month prediction stands in.
func (d *Dashboard) Barangay(ctx context.Context, municipality, barangay string, months int) (BarangayView, error) {
	if months <= 0 {
		months = d.horizon
	}

	detail, err := d.backend.Barangay(ctx, municipality, barangay)
	if err != nil {
		return BarangayView{}, fmt.Errorf("load barangay: %w", err)
	}

	view := BarangayView{Detail: detail, BackendRisk: domain.RiskUnknown}
	fc, err := d.backend.Forecast(ctx, municipality, barangay, months)
	if err != nil {
		if ctx.Err() != nil {
			return BarangayView{}, fmt.Errorf("load forecast: %w", err)
		}
		d.logger.Warn("forecast unavailable, using next-month prediction",
			"municipality", municipality,
			"barangay", barangay,
			"error", err,
		)
		view.ForecastError = err.Error()
	} else {
		view.Forecast = &fc
	}
	view.Risk = domain.DeriveBarangayRisk(detail, view.Forecast)

	if snap, ok := d.Snapshot(); ok {
		if rec, _, found := snap.Index.Lookup(municipality, barangay); found {
			view.BackendRisk = rec.RiskLevel
			if rec.RiskLevel != domain.RiskUnknown && view.Risk.Level != domain.RiskUnknown && rec.RiskLevel != view.Risk.Level {
				d.logger.Info("derived risk differs from backend",
					"municipality", municipality,
					"barangay", barangay,
					"derived", view.Risk.Level,
					"backend", rec.RiskLevel,
				)
			}
		}
	}
	return view, nil
}
