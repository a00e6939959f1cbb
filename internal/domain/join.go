package domain

import "strings"

// MatchStrategy records which rule resolved a boundary feature.
type MatchStrategy string

const (
	MatchExact   MatchStrategy = "exact"
	MatchAlias   MatchStrategy = "alias"
	MatchPartial MatchStrategy = "partial"
	MatchNone    MatchStrategy = "none"
)

// BarangayIndex looks up Barangay records by normalized (municipality,
// barangay) names. When two records normalize to the same key the one
// inserted last wins.
type BarangayIndex struct {
	aliases        *AliasTable
	byMunicipality map[string]map[string]Barangay
	order          []string // normalized municipalities in insertion order
}

// NewBarangayIndex indexes every barangay of every municipality.
func NewBarangayIndex(municipalities []Municipality, aliases *AliasTable) *BarangayIndex {
	idx := &BarangayIndex{
		aliases:        aliases,
		byMunicipality: make(map[string]map[string]Barangay, len(municipalities)),
	}
	for _, m := range municipalities {
		munKey := NormalizeName(m.Name)
		brgys, ok := idx.byMunicipality[munKey]
		if !ok {
			brgys = make(map[string]Barangay, len(m.Barangays))
			idx.byMunicipality[munKey] = brgys
			idx.order = append(idx.order, munKey)
		}
		for _, b := range m.Barangays {
			brgys[NormalizeName(b.Name)] = b
		}
	}
	return idx
}

// Len returns the number of indexed barangays.
func (idx *BarangayIndex) Len() int {
	n := 0
	for _, brgys := range idx.byMunicipality {
		n += len(brgys)
	}
	return n
}

// Lookup resolves a (municipality, barangay) pair in precedence order: exact
// normalized match, alias expansion of the municipality, then substring
// containment between municipality keys. The first hit wins.
func (idx *BarangayIndex) Lookup(municipality, barangay string) (Barangay, MatchStrategy, bool) {
	munKey := NormalizeName(municipality)
	brgyKey := NormalizeName(barangay)

	if b, ok := idx.byMunicipality[munKey][brgyKey]; ok {
		return b, MatchExact, true
	}

	for _, alias := range idx.aliases.Expand(munKey) {
		if alias == munKey {
			continue
		}
		if b, ok := idx.byMunicipality[alias][brgyKey]; ok {
			return b, MatchAlias, true
		}
	}

	// An empty key is a substring of everything.
	if munKey == "" {
		return Barangay{}, MatchNone, false
	}
	for _, known := range idx.order {
		if strings.Contains(known, munKey) || strings.Contains(munKey, known) {
			if b, ok := idx.byMunicipality[known][brgyKey]; ok {
				return b, MatchPartial, true
			}
		}
	}
	return Barangay{}, MatchNone, false
}

// JoinedFeature is a boundary feature paired with its risk record, if any.
type JoinedFeature struct {
	Feature  BoundaryFeature
	Record   *Barangay
	Strategy MatchStrategy
}

// Risk is the record's level, or RiskUnknown without a match.
func (jf JoinedFeature) Risk() RiskLevel {
	if jf.Record == nil {
		return RiskUnknown
	}
	return jf.Record.RiskLevel
}

// JoinStats counts joined features per strategy.
type JoinStats map[MatchStrategy]int

// JoinFeatures resolves every feature against the index.
func JoinFeatures(features []BoundaryFeature, idx *BarangayIndex) ([]JoinedFeature, JoinStats) {
	out := make([]JoinedFeature, 0, len(features))
	stats := JoinStats{}
	for _, f := range features {
		jf := JoinedFeature{Feature: f, Strategy: MatchNone}
		if b, strategy, ok := idx.Lookup(f.Properties.Municipality, f.Properties.Barangay); ok {
			rec := b
			jf.Record = &rec
			jf.Strategy = strategy
		}
		stats[jf.Strategy]++
		out = append(out, jf)
	}
	return out, stats
}

// LayerProperties are the properties written on each choropleth feature.
type LayerProperties struct {
	Municipality  string        `json:"municipality"`
	Barangay      string        `json:"barangay"`
	RiskLevel     RiskLevel     `json:"risk_level"`
	FillColor     string        `json:"fill_color"`
	HasData       bool          `json:"has_data"`
	PredictedNext float64       `json:"predicted_next"`
	HistoricalAvg float64       `json:"historical_avg,omitempty"`
	Match         MatchStrategy `json:"match"`
	Popup         string        `json:"popup"`
}

// LayerFeature is a choropleth GeoJSON feature.
type LayerFeature struct {
	Type       string          `json:"type"`
	Properties LayerProperties `json:"properties"`
	Geometry   Geometry        `json:"geometry"`
}

// Layer is a GeoJSON FeatureCollection ready for the map client.
type Layer struct {
	Type     string         `json:"type"`
	Features []LayerFeature `json:"features"`
}

// BuildLayer renders joined features into a choropleth layer. Unmatched
// features get the unknown colour and a "no data" popup.
func BuildLayer(joined []JoinedFeature) Layer {
	layer := Layer{Type: "FeatureCollection", Features: make([]LayerFeature, 0, len(joined))}
	for _, jf := range joined {
		props := LayerProperties{
			Municipality: jf.Feature.Properties.Municipality,
			Barangay:     jf.Feature.Properties.Barangay,
			RiskLevel:    jf.Risk(),
			FillColor:    jf.Risk().Color(),
			Match:        jf.Strategy,
			Popup:        "No forecast data available",
		}
		if jf.Record != nil {
			props.HasData = true
			props.PredictedNext = jf.Record.PredictedNext
			props.HistoricalAvg = jf.Record.HistoricalAvg
			props.Popup = string(jf.Risk()) + " risk"
		}
		layer.Features = append(layer.Features, LayerFeature{
			Type:       "Feature",
			Properties: props,
			Geometry:   jf.Feature.Geometry,
		})
	}
	return layer
}

// HeatPoint is one weighted point of the heat layer.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// BuildHeatPoints places a point at each matched feature's centroid weighted
// by its predicted cases. Features without data, without cases, or with
// non-polygonal geometry are skipped.
func BuildHeatPoints(joined []JoinedFeature) []HeatPoint {
	points := make([]HeatPoint, 0, len(joined))
	for _, jf := range joined {
		if jf.Record == nil || jf.Record.PredictedNext <= 0 {
			continue
		}
		lon, lat, err := jf.Feature.Geometry.Centroid()
		if err != nil {
			continue
		}
		points = append(points, HeatPoint{Lat: lat, Lon: lon, Weight: jf.Record.PredictedNext})
	}
	return points
}
