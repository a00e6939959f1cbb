package domain

import "encoding/json"

// RiskCounts tallies barangays per risk level within a municipality.
type RiskCounts struct {
	High   int `json:"HIGH"`
	Medium int `json:"MEDIUM"`
	Low    int `json:"LOW"`
}

// Barangay is a per-barangay summary nested in a Municipality.
type Barangay struct {
	Name          string    `json:"name"`
	MAE           float64   `json:"mae"`
	PredictedNext float64   `json:"predicted_next"`
	HistoricalAvg float64   `json:"historical_avg"`
	RiskLevel     RiskLevel `json:"risk_level"`
	RiskColor     string    `json:"risk_color,omitempty"`
	RiskIcon      string    `json:"risk_icon,omitempty"`
}

// UnmarshalJSON accepts the field spellings used by different backend
// revisions: "barangay" for the name, "predicted_cases"/"cases" for the
// prediction and "avg_cases" for the historical average.
func (b *Barangay) UnmarshalJSON(data []byte) error {
	type plain Barangay
	var aux struct {
		plain
		AltName       string   `json:"barangay"`
		PredictedAlt  *float64 `json:"predicted_cases"`
		Cases         *float64 `json:"cases"`
		AvgCases      *float64 `json:"avg_cases"`
		PredictedNext *float64 `json:"predicted_next"`
		HistoricalAvg *float64 `json:"historical_avg"`
	}
	aux.RiskLevel = RiskUnknown
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Barangay(aux.plain)
	if b.Name == "" {
		b.Name = aux.AltName
	}
	b.PredictedNext = firstNonZero(aux.PredictedNext, aux.PredictedAlt, aux.Cases)
	b.HistoricalAvg = firstNonZero(aux.HistoricalAvg, aux.AvgCases)
	return nil
}

// Municipality is a municipality summary with its barangays.
type Municipality struct {
	Name           string     `json:"municipality"`
	TotalBarangays int        `json:"total_barangays"`
	AvgMAE         float64    `json:"avg_mae"`
	RiskSummary    RiskCounts `json:"risk_summary"`
	Barangays      []Barangay `json:"barangays"`
}

// UnmarshalJSON falls back to "name" when "municipality" is absent.
func (m *Municipality) UnmarshalJSON(data []byte) error {
	type plain Municipality
	var aux struct {
		plain
		AltName string `json:"name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Municipality(aux.plain)
	if m.Name == "" {
		m.Name = aux.AltName
	}
	return nil
}

// Alert is an active forecast alert for one barangay.
type Alert struct {
	Municipality   string    `json:"municipality"`
	Barangay       string    `json:"barangay"`
	ForecastDate   string    `json:"forecast_date"`
	PredictedCases float64   `json:"predicted_cases"`
	HistoricalAvg  float64   `json:"historical_avg"`
	AlertLevel     RiskLevel `json:"alert_level"`
	Message        string    `json:"message"`
	SeasonalAlert  string    `json:"seasonal_alert,omitempty"`
	ModelMAE       float64   `json:"model_mae"`
}

// SeriesPoint is one month of a training or validation series.
type SeriesPoint struct {
	Date      string  `json:"date"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// ModelMetrics are the hybrid model's validation error metrics.
type ModelMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
	MASE float64 `json:"mase"`
}

// BarangayDetail is the full record behind the barangay screen.
type BarangayDetail struct {
	Municipality        string        `json:"municipality"`
	Barangay            string        `json:"barangay"`
	Metrics             ModelMetrics  `json:"metrics"`
	TrainingData        []SeriesPoint `json:"training_data"`
	ValidationData      []SeriesPoint `json:"validation_data"`
	NextMonthPrediction *float64      `json:"next_month_prediction"`
	HasChartData        bool          `json:"has_chart_data"`
}

// ForecastPoint is one predicted month.
type ForecastPoint struct {
	Date      string  `json:"date"`
	Predicted float64 `json:"predicted"`
}

// Forecast holds forward predictions for a barangay.
type Forecast struct {
	Municipality  string          `json:"municipality"`
	Barangay      string          `json:"barangay"`
	ValidationEnd string          `json:"validation_end"`
	ForecastStart string          `json:"forecast_start"`
	ForecastEnd   string          `json:"forecast_end"`
	Predictions   []ForecastPoint `json:"predictions"`
}

// Component is a decomposed model component aligned to dates.
type Component struct {
	Dates       []string  `json:"dates"`
	Values      []float64 `json:"values"`
	Description string    `json:"description"`
}

// HolidayEffect is a significant holiday contribution on one date.
type HolidayEffect struct {
	Date    string  `json:"date"`
	Holiday string  `json:"holiday"`
	Effect  float64 `json:"effect"`
	Impact  string  `json:"impact"`
}

// HolidayComponent extends Component with the significant holiday effects.
type HolidayComponent struct {
	Component
	SignificantEffects []HolidayEffect `json:"significant_effects"`
	HasHolidays        bool            `json:"has_holidays"`
}

// FeatureWeight is one feature's importance in the residual model.
type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Interpretability is the model decomposition for a barangay.
type Interpretability struct {
	Municipality      string           `json:"municipality"`
	Barangay          string           `json:"barangay"`
	Trend             Component        `json:"trend"`
	Seasonality       Component        `json:"seasonality"`
	Holidays          HolidayComponent `json:"holidays"`
	FeatureImportance struct {
		Features    []FeatureWeight `json:"features"`
		Description string          `json:"description"`
		Top3        []FeatureWeight `json:"top_3_features"`
	} `json:"feature_importance"`
	Changepoints struct {
		Points      []json.RawMessage `json:"points"`
		Description string            `json:"description"`
	} `json:"changepoints"`
	ModelConfig map[string]any `json:"model_config"`
}

// WeatherInsights is the backend's weather-pattern (FPM) risk analysis. The
// insights body is passed through untouched.
type WeatherInsights struct {
	Success      bool               `json:"success"`
	Municipality string             `json:"municipality"`
	Barangay     string             `json:"barangay"`
	WeatherData  map[string]float64 `json:"weather_data,omitempty"`
	Insights     json.RawMessage    `json:"insights"`
	Note         string             `json:"note,omitempty"`
	Message      string             `json:"message,omitempty"`
}

// Health is the backend status document served at "/".
type Health struct {
	Status         string   `json:"status"`
	Version        string   `json:"version"`
	Message        string   `json:"message,omitempty"`
	ModelsLoaded   int      `json:"models_loaded,omitempty"`
	TotalBarangays int      `json:"total_barangays,omitempty"`
	Features       []string `json:"features,omitempty"`
}

func firstNonZero(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil && *v != 0 {
			return *v
		}
	}
	return 0
}
