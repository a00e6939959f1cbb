package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/robfig/cron/v3"
)

// Run refreshes until the first success, backing off between attempts, then
// refreshes on schedule until ctx is cancelled. A tick that fires while the
// previous refresh is still running is skipped. In-flight fetches are
// cancelled on return.
func (d *Dashboard) Run(ctx context.Context, schedule string) error {
	logger := cronLogger{d.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, func() { d.refreshLogged(ctx, "scheduled") }); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", schedule, err)
	}

	d.logger.Info("dashboard refresh scheduled", "schedule", schedule)
	d.warmUp(ctx)
	c.Start()

	<-ctx.Done()
	d.logger.Info("dashboard stopping", "reason", ctx.Err())
	d.Close()
	<-c.Stop().Done()
	return nil
}

// warmUp retries the initial refresh with exponential backoff so readiness
// does not wait for the first scheduled tick.
func (d *Dashboard) warmUp(ctx context.Context) {
	backoff := d.retryInitial
	for attempt := 1; ; attempt++ {
		if d.refreshLogged(ctx, "initial") {
			return
		}
		if ctx.Err() != nil {
			return
		}
		d.logger.Warn("initial refresh failed, retrying", "attempt", attempt, "backoff", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = sharedretry.NextBackoff(backoff, d.retryMax)
	}
}

func (d *Dashboard) refreshLogged(ctx context.Context, trigger string) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := d.Refresh(ctx); err != nil {
		if ctx.Err() == nil {
			d.logger.Error("dashboard refresh failed", "trigger", trigger, "error", err)
		}
		return false
	}
	return true
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
