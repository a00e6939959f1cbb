package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

func runRisk(ctx context.Context, e *env, args []string) int {
	fs := flag.NewFlagSet("risk", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	apiURL := fs.String("api", "", "forecasting backend base URL")
	municipality := fs.String("municipality", "", "municipality name")
	barangay := fs.String("barangay", "", "barangay name")
	months := fs.Int("months", e.cfg.ForecastHorizonMonths, "forecast horizon in months (1-24)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *municipality == "" || *barangay == "" {
		fmt.Fprintln(e.stderr, "risk: -municipality and -barangay are required")
		fs.Usage()
		return 2
	}
	if *months < 1 || *months > 24 {
		fmt.Fprintln(e.stderr, "risk: -months must be between 1 and 24")
		return 2
	}

	client := e.client(*apiURL)
	detail, err := client.Barangay(ctx, *municipality, *barangay)
	if err != nil {
		fmt.Fprintf(e.stderr, "risk: %v\n", err)
		return 1
	}

	var fc *domain.Forecast
	if f, err := client.Forecast(ctx, *municipality, *barangay, *months); err != nil {
		fmt.Fprintf(e.stderr, "risk: forecast unavailable, using next-month prediction: %v\n", err)
	} else {
		fc = &f
	}

	v := domain.DeriveBarangayRisk(detail, fc)
	fmt.Fprintf(e.stdout, "%s / %s\n", *municipality, *barangay)
	fmt.Fprintf(e.stdout, "  level            %s %s\n", v.Level.Icon(), v.Level)
	fmt.Fprintf(e.stdout, "  forecast avg     %.2f\n", v.ForecastAvg)
	fmt.Fprintf(e.stdout, "  historical avg   %.2f (medium above %.2f)\n", v.HistoricalAvg, v.AvgThreshold)
	fmt.Fprintf(e.stdout, "  historical max   %.2f (high above %.2f)\n", v.HistoricalMax, v.MaxThreshold)
	fmt.Fprintf(e.stdout, "  %s\n", v.Message)
	return 0
}
