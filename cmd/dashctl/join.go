package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runJoin(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	apiURL := fs.String("api", "", "forecasting backend base URL")
	boundaries := fs.String("boundaries", "", "GeoJSON boundary file")
	saved := fs.String("municipalities", "", "saved /api/municipalities response (default: query the backend)")
	strict := fs.Bool("strict", false, "exit non-zero when any feature is unmatched")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *boundaries == "" {
		fmt.Fprintln(e.stderr, "join: -boundaries is required")
		fs.Usage()
		return 2
	}

	features, err := readBoundaries(*boundaries)
	if err != nil {
		fmt.Fprintf(e.stderr, "FATAL: %v\n", err)
		return 1
	}

	var munis []domain.Municipality
	if *saved != "" {
		munis, err = readMunicipalities(*saved)
	} else {
		munis, err = e.client(*apiURL).Municipalities(ctx)
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "FATAL: load municipalities: %v\n", err)
		return 1
	}

	idx := domain.NewBarangayIndex(munis, domain.DefaultAliasTable())
	joined, stats := domain.JoinFeatures(features, idx)

	fmt.Fprintln(e.stdout, "=== Boundary Join Validation ===")
	fmt.Fprintf(e.stdout, "Alias table %s, %d features, %d barangay records\n\n",
		domain.AliasTableVersion, len(features), idx.Len())

	phases := []*phase{
		checkCoverage(joined),
		checkUniqueNames(joined),
		checkGeometry(joined),
	}

	for _, s := range []domain.MatchStrategy{domain.MatchExact, domain.MatchAlias, domain.MatchPartial, domain.MatchNone} {
		fmt.Fprintf(e.stdout, "  %-10s %d\n", s, stats[s])
	}
	fmt.Fprintln(e.stdout)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(e.stdout, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(e.stdout, "\n--- %s ---\n", p.name)
		for i, msg := range p.errors {
			fmt.Fprintf(e.stdout, "  [%d] %s\n", i+1, msg)
		}
	}

	if allPassed {
		fmt.Fprintln(e.stdout, "\nAll features joined.")
		return 0
	}
	if *strict {
		fmt.Fprintln(e.stdout, "\nJoin validation FAILED.")
		return 1
	}
	fmt.Fprintln(e.stdout, "\nJoin validation finished with warnings.")
	return 0
}

// checkCoverage lists features that resolved to no record.
func checkCoverage(joined []domain.JoinedFeature) *phase {
	p := &phase{name: "every feature has forecast data"}
	for _, jf := range joined {
		if jf.Record == nil {
			p.errorf("%s / %s: no matching record", jf.Feature.Properties.Municipality, jf.Feature.Properties.Barangay)
		}
	}
	return p
}

// checkUniqueNames flags boundary features whose names collide after
// normalization. Such features silently share one record.
func checkUniqueNames(joined []domain.JoinedFeature) *phase {
	p := &phase{name: "feature names unique"}
	seen := make(map[string]string, len(joined))
	for _, jf := range joined {
		props := jf.Feature.Properties
		key := domain.NormalizeName(props.Municipality) + "|" + domain.NormalizeName(props.Barangay)
		name := props.Municipality + " / " + props.Barangay
		if first, dup := seen[key]; dup {
			p.errorf("%s collides with %s", name, first)
			continue
		}
		seen[key] = name
	}
	return p
}

// checkGeometry flags features whose geometry cannot be placed on the heat layer.
func checkGeometry(joined []domain.JoinedFeature) *phase {
	p := &phase{name: "geometry has a centroid"}
	for _, jf := range joined {
		if _, _, err := jf.Feature.Geometry.Centroid(); err != nil {
			p.errorf("%s / %s: %v", jf.Feature.Properties.Municipality, jf.Feature.Properties.Barangay, err)
		}
	}
	return p
}

func readBoundaries(path string) ([]domain.BoundaryFeature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundaries: %w", err)
	}
	defer f.Close()

	fc, err := domain.LoadBoundaries(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc.Barangays(), nil
}

// readMunicipalities accepts either the enveloped backend response or a bare array.
func readMunicipalities(path string) ([]domain.Municipality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var munis []domain.Municipality
		if err := json.Unmarshal(data, &munis); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return munis, nil
	}
	var env struct {
		Municipalities []domain.Municipality `json:"municipalities"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return env.Municipalities, nil
}
