// Package domain models the rabies forecast data shown on the dashboard and
// the display-layer logic derived from it.
//
// # Data Source
//
// All entities are read-only projections of the forecasting backend's JSON
// responses (hybrid NeuralProphet + XGBoost models, one per barangay). They
// are re-fetched wholesale and never mutated here.
//
// # Administrative Units
//
// A province is divided into municipalities (or component cities) and each
// municipality into barangays, the smallest local unit. The pair
// (municipality, barangay) is the geographic key everywhere.
//
// # Name Matching
//
// The boundary dataset (GADM level 3) and the backend spell names
// differently:
//
//	"City of Antipolo" vs "ANTIPOLO" vs "Antipolo City"
//	"San Roque (Pob.)" vs "SAN ROQUE"
//	"Santo Niño" vs "SANTO NINO"
//
// [NormalizeName] folds both sides to an A-Z0-9 key. [BarangayIndex.Lookup]
// then tries, in order and stopping at the first hit:
//
//  1. exact normalized (municipality, barangay)
//  2. each alias of the municipality from the versioned [AliasTable]
//  3. any known municipality containing, or contained in, the feature's
//
// There is no edit-distance matching. Unmatched features are shown with the
// unknown colour and are not errors.
//
// # Risk Levels
//
// [DeriveRisk] compares the forecast average with the historical actuals:
//
//	HIGH    forecast avg > 0.8 × historical max
//	MEDIUM  forecast avg > 1.2 × historical avg
//	LOW     otherwise
//
// HIGH is checked first. The backend computes the same rule for the
// municipality list; screens that recompute locally use this function so
// every view agrees.
package domain
