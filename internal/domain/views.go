package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortField selects the alert column to order by.
type SortField string

const (
	SortByLevel          SortField = "alert_level"
	SortByPredictedCases SortField = "predicted_cases"
	SortByMunicipality   SortField = "municipality"
	SortByBarangay       SortField = "barangay"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortField validates a sort column; empty means SortByLevel.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(s)); f {
	case "":
		return SortByLevel, nil
	case SortByLevel, SortByPredictedCases, SortByMunicipality, SortByBarangay:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// ParseSortOrder validates a sort order; empty means Ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case "":
		return Ascending, nil
	case Ascending, Descending:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// SortAlerts returns a sorted copy of alerts. The sort is stable, so alerts
// that tie on the field keep their input order in both directions.
func SortAlerts(alerts []Alert, field SortField, order SortOrder) []Alert {
	out := slices.Clone(alerts)
	compare := alertComparator(field)
	slices.SortStableFunc(out, func(a, b Alert) int {
		c := compare(a, b)
		if order == Descending {
			return -c
		}
		return c
	})
	return out
}

func alertComparator(field SortField) func(a, b Alert) int {
	switch field {
	case SortByPredictedCases:
		return func(a, b Alert) int { return cmp.Compare(a.PredictedCases, b.PredictedCases) }
	case SortByMunicipality:
		return func(a, b Alert) int { return cmp.Compare(a.Municipality, b.Municipality) }
	case SortByBarangay:
		return func(a, b Alert) int { return cmp.Compare(a.Barangay, b.Barangay) }
	default:
		return func(a, b Alert) int { return cmp.Compare(a.AlertLevel.Rank(), b.AlertLevel.Rank()) }
	}
}

// FilterAlertsByLevel keeps alerts of the given level. An empty level or "all"
// keeps everything. The result is never nil.
func FilterAlertsByLevel(alerts []Alert, level string) []Alert {
	if level == "" || strings.EqualFold(level, "all") {
		return append([]Alert{}, alerts...)
	}
	want := ParseRiskLevel(level)
	return filterAlerts(alerts, func(a Alert) bool { return a.AlertLevel == want })
}

// FilterAlertsByMunicipality keeps alerts whose municipality equals name,
// ignoring case. An empty name keeps everything. The result is never nil.
func FilterAlertsByMunicipality(alerts []Alert, name string) []Alert {
	if name == "" {
		return append([]Alert{}, alerts...)
	}
	return filterAlerts(alerts, func(a Alert) bool { return strings.EqualFold(a.Municipality, name) })
}

func filterAlerts(alerts []Alert, keep func(Alert) bool) []Alert {
	out := []Alert{}
	for _, a := range alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// AlertSummary counts alerts per level.
type AlertSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// SummarizeAlerts tallies alerts by level.
func SummarizeAlerts(alerts []Alert) AlertSummary {
	s := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.AlertLevel {
		case RiskHigh:
			s.High++
		case RiskMedium:
			s.Medium++
		case RiskLow:
			s.Low++
		}
	}
	return s
}

// AlertGroup is the alerts of one municipality.
type AlertGroup struct {
	Municipality string  `json:"municipality"`
	Alerts       []Alert `json:"alerts"`
}

// GroupAlertsByMunicipality groups alerts by municipality in order of first appearance.
func GroupAlertsByMunicipality(alerts []Alert) []AlertGroup {
	groups := []AlertGroup{}
	pos := make(map[string]int)
	for _, a := range alerts {
		i, ok := pos[a.Municipality]
		if !ok {
			i = len(groups)
			pos[a.Municipality] = i
			groups = append(groups, AlertGroup{Municipality: a.Municipality})
		}
		groups[i].Alerts = append(groups[i].Alerts, a)
	}
	return groups
}

// MunicipalityStatus is the card colour for a municipality: the most severe
// level with a non-zero count.
func MunicipalityStatus(m Municipality) string {
	switch {
	case m.RiskSummary.High > 0:
		return "red"
	case m.RiskSummary.Medium > 0:
		return "yellow"
	case m.RiskSummary.Low > 0:
		return "green"
	default:
		return "gray"
	}
}

// SortBarangaysByPrediction returns barangays ordered by predicted cases, highest first.
func SortBarangaysByPrediction(brgys []Barangay) []Barangay {
	out := slices.Clone(brgys)
	slices.SortStableFunc(out, func(a, b Barangay) int { return cmp.Compare(b.PredictedNext, a.PredictedNext) })
	return out
}
