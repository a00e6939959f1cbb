package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// BoundaryProperties are the administrative name fields of a boundary feature.
// Field names follow the GADM level-3 export.
type BoundaryProperties struct {
	Province     string `json:"NAME_1"`
	Municipality string `json:"NAME_2"`
	Barangay     string `json:"NAME_3"`
	Type         string `json:"TYPE_3"`
}

// Geometry mirrors a GeoJSON geometry; coordinates stay raw until needed.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// BoundaryFeature is one barangay polygon.
type BoundaryFeature struct {
	Type       string             `json:"type"`
	Properties BoundaryProperties `json:"properties"`
	Geometry   Geometry           `json:"geometry"`
}

// BoundaryCollection is the static boundary dataset, loaded once.
type BoundaryCollection struct {
	Type     string            `json:"type"`
	Features []BoundaryFeature `json:"features"`
}

// LoadBoundaries decodes a GeoJSON FeatureCollection of boundary features.
func LoadBoundaries(r io.Reader) (BoundaryCollection, error) {
	var fc BoundaryCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return BoundaryCollection{}, fmt.Errorf("decode boundaries: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return BoundaryCollection{}, fmt.Errorf("decode boundaries: unexpected type %q", fc.Type)
	}
	return fc, nil
}

// Barangays returns the features at barangay level. Features without a
// TYPE_3 value are kept.
func (fc BoundaryCollection) Barangays() []BoundaryFeature {
	out := make([]BoundaryFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Properties.Type == "" || f.Properties.Type == "Barangay" {
			out = append(out, f)
		}
	}
	return out
}

// ErrUnsupportedGeometry is returned by Centroid for non-polygonal geometries.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Centroid returns the area-weighted centroid (lon, lat) of the outer rings of
// a Polygon or MultiPolygon. Degenerate rings fall back to the vertex mean.
func (g Geometry) Centroid() (lon, lat float64, err error) {
	var polygons [][][][]float64
	switch g.Type {
	case "Polygon":
		var poly [][][]float64
		if err := json.Unmarshal(g.Coordinates, &poly); err != nil {
			return 0, 0, fmt.Errorf("decode polygon: %w", err)
		}
		polygons = [][][][]float64{poly}
	case "MultiPolygon":
		if err := json.Unmarshal(g.Coordinates, &polygons); err != nil {
			return 0, 0, fmt.Errorf("decode multipolygon: %w", err)
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, g.Type)
	}

	var area, cx, cy, sx, sy float64
	var n int
	for _, poly := range polygons {
		if len(poly) == 0 {
			continue
		}
		ring := poly[0]
		a, x, y := ringCentroid(ring)
		w := math.Abs(a)
		area += w
		cx += x * w
		cy += y * w
		for _, pt := range ring {
			if len(pt) >= 2 {
				sx += pt[0]
				sy += pt[1]
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0, errors.New("geometry has no coordinates")
	}
	if area < 1e-12 {
		return sx / float64(n), sy / float64(n), nil
	}
	return cx / area, cy / area, nil
}

// ringCentroid applies the shoelace formula; area is signed.
func ringCentroid(ring [][]float64) (area, x, y float64) {
	for i := 0; i+1 < len(ring); i++ {
		p, q := ring[i], ring[i+1]
		if len(p) < 2 || len(q) < 2 {
			continue
		}
		cross := p[0]*q[1] - q[0]*p[1]
		area += cross
		x += (p[0] + q[0]) * cross
		y += (p[1] + q[1]) * cross
	}
	area /= 2
	if area == 0 {
		return 0, 0, 0
	}
	return area, x / (6 * area), y / (6 * area)
}

// MarshalJSON keeps Geometry.Coordinates as-is and emits null for empty geometries.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.Type == "" {
		return []byte("null"), nil
	}
	type plain Geometry
	if len(g.Coordinates) == 0 {
		g.Coordinates = json.RawMessage("[]")
	}
	return json.Marshal(plain(g))
}
