package domain

import (
	"fmt"
	"strings"
)

// RiskLevel classifies predicted case volume for a barangay in the upcoming period.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "HIGH"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskLow     RiskLevel = "LOW"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Risk thresholds applied by DeriveRisk.
const (
	// HighMaxRatio: a forecast above this fraction of the historical maximum is HIGH.
	HighMaxRatio = 0.8
	// MediumAvgRatio: a forecast above this multiple of the historical average is MEDIUM.
	MediumAvgRatio = 1.2
)

// ParseRiskLevel maps a backend risk string to a RiskLevel. Anything that is
// not HIGH, MEDIUM or LOW (case-insensitive) is RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	case RiskLow:
		return RiskLow
	default:
		return RiskUnknown
	}
}

// Rank orders levels by severity: HIGH=0, MEDIUM=1, LOW=2, UNKNOWN=3.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	case RiskLow:
		return 2
	default:
		return 3
	}
}

// Color is the fill colour used for the level on the map and in badges.
func (r RiskLevel) Color() string {
	switch r {
	case RiskHigh:
		return "#ef5350"
	case RiskMedium:
		return "#ff9800"
	case RiskLow:
		return "#66bb6a"
	default:
		return "#9e9e9e"
	}
}

// Icon is the badge glyph shown next to the level.
func (r RiskLevel) Icon() string {
	switch r {
	case RiskHigh:
		return "🔴"
	case RiskMedium:
		return "🟡"
	case RiskLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// UnmarshalJSON accepts any string and normalizes it through ParseRiskLevel.
func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*r = RiskUnknown
		return nil
	}
	*r = ParseRiskLevel(s)
	return nil
}

// RiskVerdict is the outcome of DeriveRisk with the inputs that produced it.
type RiskVerdict struct {
	Level         RiskLevel `json:"level"`
	HistoricalAvg float64   `json:"historical_avg"`
	HistoricalMax float64   `json:"historical_max"`
	ForecastAvg   float64   `json:"forecast_avg"`
	AvgThreshold  float64   `json:"avg_threshold"`
	MaxThreshold  float64   `json:"max_threshold"`
	Message       string    `json:"message"`
}

// DeriveRisk classifies a forecast against historical actuals.
//
// HIGH when the forecast average exceeds HighMaxRatio of the historical
// maximum, otherwise MEDIUM when it exceeds MediumAvgRatio of the historical
// average, otherwise LOW. HIGH takes precedence when both hold. Empty inputs
// yield RiskUnknown.
func DeriveRisk(historical, forecast []float64) RiskVerdict {
	if len(historical) == 0 || len(forecast) == 0 {
		return RiskVerdict{Level: RiskUnknown, Message: "insufficient data for risk assessment"}
	}

	histAvg, histMax := meanMax(historical)
	fcAvg, _ := meanMax(forecast)

	v := RiskVerdict{
		HistoricalAvg: histAvg,
		HistoricalMax: histMax,
		ForecastAvg:   fcAvg,
		AvgThreshold:  histAvg * MediumAvgRatio,
		MaxThreshold:  histMax * HighMaxRatio,
	}

	switch {
	case fcAvg > v.MaxThreshold:
		v.Level = RiskHigh
		v.Message = fmt.Sprintf("HIGH RISK: forecast (%.1f) exceeds 80%% of historical max (%g)", fcAvg, histMax)
	case fcAvg > v.AvgThreshold:
		v.Level = RiskMedium
		v.Message = fmt.Sprintf("MEDIUM RISK: forecast (%.1f) is 20%% above historical average (%.1f)", fcAvg, histAvg)
	default:
		v.Level = RiskLow
		v.Message = fmt.Sprintf("LOW RISK: forecast (%.1f) is within normal range", fcAvg)
	}
	return v
}

// DeriveBarangayRisk applies DeriveRisk to a barangay's validation actuals and
// forecast. Without forecast predictions the next-month prediction stands in
// as a single-point forecast.
func DeriveBarangayRisk(detail BarangayDetail, fc *Forecast) RiskVerdict {
	historical := make([]float64, 0, len(detail.ValidationData))
	for _, p := range detail.ValidationData {
		historical = append(historical, p.Actual)
	}

	var forecast []float64
	if fc != nil && len(fc.Predictions) > 0 {
		forecast = make([]float64, 0, len(fc.Predictions))
		for _, p := range fc.Predictions {
			forecast = append(forecast, p.Predicted)
		}
	} else {
		var next float64
		if detail.NextMonthPrediction != nil {
			next = *detail.NextMonthPrediction
		}
		forecast = []float64{next}
	}
	return DeriveRisk(historical, forecast)
}

func meanMax(xs []float64) (mean, maxVal float64) {
	maxVal = xs[0]
	var sum float64
	for _, x := range xs {
		sum += x
		if x > maxVal {
			maxVal = x
		}
	}
	return sum / float64(len(xs)), maxVal
}
