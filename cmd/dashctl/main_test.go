package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boundariesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME_2": "Antipolo", "NAME_3": "San Roque", "TYPE_3": "Barangay"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"NAME_2": "Cainta", "NAME_3": "San Isidro", "TYPE_3": "Barangay"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,2],[3,2],[3,3],[2,3],[2,2]]]}},
    {"type": "Feature", "properties": {"NAME_2": "Teresa", "NAME_3": "Dalig", "TYPE_3": "Barangay"},
     "geometry": {"type": "Polygon", "coordinates": [[[4,4],[5,4],[5,5],[4,5],[4,4]]]}}
  ]
}`

const municipalitiesFixture = `{"success": true, "municipalities": [
  {"municipality": "CITY OF ANTIPOLO", "barangays": [{"name": "SAN ROQUE", "predicted_next": 8, "risk_level": "HIGH"}]},
  {"municipality": "CAINTA", "barangays": [{"name": "SAN ISIDRO", "predicted_next": 2, "risk_level": "LOW"}]}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: dashctl")

	code, _, stderr = runCmd(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)
}

func TestJoin_SavedMunicipalities(t *testing.T) {
	boundaries := writeFile(t, "rizal.geojson", boundariesFixture)
	munis := writeFile(t, "municipalities.json", municipalitiesFixture)

	code, stdout, _ := runCmd(t, "join", "-boundaries", boundaries, "-municipalities", munis)

	assert.Equal(t, 0, code, "unmatched features are warnings without -strict")
	assert.Contains(t, stdout, "exact      1")
	assert.Contains(t, stdout, "alias      1")
	assert.Contains(t, stdout, "none       1")
	assert.Contains(t, stdout, "Teresa / Dalig: no matching record")
}

func TestJoin_StrictFailsOnUnmatched(t *testing.T) {
	boundaries := writeFile(t, "rizal.geojson", boundariesFixture)
	munis := writeFile(t, "municipalities.json", municipalitiesFixture)

	code, stdout, _ := runCmd(t, "join", "-boundaries", boundaries, "-municipalities", munis, "-strict")

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Join validation FAILED.")
}

func TestJoin_BareArrayAndBackend(t *testing.T) {
	boundaries := writeFile(t, "rizal.geojson", boundariesFixture)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/municipalities", r.URL.Path)
		_, _ = io.WriteString(w, municipalitiesFixture)
	}))
	defer srv.Close()

	code, stdout, _ := runCmd(t, "join", "-boundaries", boundaries, "-api", srv.URL)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "exact      1")

	bare := writeFile(t, "bare.json", `[{"municipality": "TERESA", "barangays": [{"name": "DALIG"}]}]`)
	code, stdout, _ = runCmd(t, "join", "-boundaries", boundaries, "-municipalities", bare, "-strict")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "exact      1")
	assert.Contains(t, stdout, "none       2")
}

func TestJoin_RequiresBoundaries(t *testing.T) {
	code, _, stderr := runCmd(t, "join")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-boundaries is required")
}

func TestRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/barangay/CAINTA/SAN JUAN":
			_, _ = io.WriteString(w, `{"success": true, "barangay": {
				"validation_data": [{"actual": 1}, {"actual": 1}, {"actual": 1}, {"actual": 5}],
				"next_month_prediction": 2.0}}`)
		case "/api/forecast/CAINTA/SAN JUAN":
			assert.Equal(t, "6", r.URL.Query().Get("months"))
			_, _ = io.WriteString(w, `{"success": true, "forecast": {"predictions": [{"predicted": 3}, {"predicted": 3}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	code, stdout, _ := runCmd(t, "risk", "-api", srv.URL, "-municipality", "CAINTA", "-barangay", "SAN JUAN", "-months", "6")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "MEDIUM")
	assert.Contains(t, stdout, "forecast avg     3.00")
}

func TestRisk_BadMonths(t *testing.T) {
	code, _, stderr := runCmd(t, "risk", "-municipality", "CAINTA", "-barangay", "SAN JUAN", "-months", "30")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "between 1 and 24")
}

func TestReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/report/csv/CAINTA/SAN JUAN", r.URL.Path)
		_, _ = w.Write([]byte("date,predicted\n"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "report.csv")
	code, stdout, _ := runCmd(t, "report", "-api", srv.URL, "-kind", "csv", "-municipality", "CAINTA", "-barangay", "SAN JUAN", "-out", out)

	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "wrote "+out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "date,predicted\n", string(data))
}

func TestReport_BackendNameStaysInWorkingDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="../escaped.pdf"`)
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	root := t.TempDir()
	work := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(work, 0o755))
	t.Chdir(work)

	code, stdout, _ := runCmd(t, "report", "-api", srv.URL, "-municipality", "CAINTA", "-barangay", "SAN JUAN")

	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "wrote escaped.pdf")
	assert.FileExists(t, filepath.Join(work, "escaped.pdf"))
	assert.NoFileExists(t, filepath.Join(root, "escaped.pdf"))
}

func TestReport_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	code, _, stderr := runCmd(t, "report", "-api", srv.URL, "-municipality", "CAINTA", "-barangay", "NOWHERE", "-out", filepath.Join(t.TempDir(), "x.pdf"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "status 404")
}

func TestReport_UnknownKind(t *testing.T) {
	code, _, stderr := runCmd(t, "report", "-kind", "xlsx", "-municipality", "A", "-barangay", "B")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown report kind")
}
