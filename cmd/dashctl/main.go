// Command dashctl is an operator tool for the rabies forecast dashboard. It
// downloads reports, validates the boundary join and prints derived risk
// verdicts against a running forecasting backend.
//
// Usage:
//
//	dashctl report -kind pdf -municipality "CITY OF ANTIPOLO" -barangay "SAN ROQUE" [-out file]
//	dashctl join -boundaries rizal.geojson [-municipalities saved.json] [-strict]
//	dashctl risk -municipality CAINTA -barangay "SAN JUAN" [-months 8]
//
// The backend address and timeout come from FORECAST_API_URL and
// FORECAST_API_TIMEOUT unless -api is given.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/config"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
)

const usage = `usage: dashctl <command> [flags]

commands:
  report   download a CSV, PDF or insights report
  join     validate the boundary join against backend data
  risk     print the derived risk verdict for a barangay
`

// env carries process-wide dependencies into the sub-commands.
type env struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func (e *env) client(apiURL string) *forecastapi.Client {
	if apiURL == "" {
		apiURL = e.cfg.ForecastAPIURL
	}
	return forecastapi.NewClient(apiURL, e.cfg.ForecastAPITimeout, e.cfg.InsightsReportRoute, e.logger, observability.NewUnregisteredMetrics())
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: read .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	e := &env{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	switch args[0] {
	case "report":
		return runReport(ctx, e, args[1:])
	case "join":
		return runJoin(ctx, e, args[1:])
	case "risk":
		return runRisk(ctx, e, args[1:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}
