package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
)

func runReport(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	apiURL := fs.String("api", "", "forecasting backend base URL")
	kindFlag := fs.String("kind", "pdf", "report kind: csv, pdf or insights")
	municipality := fs.String("municipality", "", "municipality name")
	barangay := fs.String("barangay", "", "barangay name")
	out := fs.String("out", "", "output file (default: backend-suggested name)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *municipality == "" || *barangay == "" {
		fmt.Fprintln(e.stderr, "report: -municipality and -barangay are required")
		fs.Usage()
		return 2
	}

	kind, err := forecastapi.ParseReportKind(*kindFlag)
	if err != nil {
		fmt.Fprintf(e.stderr, "report: %v\n", err)
		return 2
	}

	rep, err := e.client(*apiURL).Report(ctx, kind, *municipality, *barangay)
	if err != nil {
		fmt.Fprintf(e.stderr, "report: %v\n", err)
		return 1
	}

	path := *out
	if path == "" {
		path = rep.Filename
	}
	if err := os.WriteFile(path, rep.Body, 0o644); err != nil {
		fmt.Fprintf(e.stderr, "report: write %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(e.stdout, "wrote %s (%d bytes)\n", path, len(rep.Body))
	return 0
}
