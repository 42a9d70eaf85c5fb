package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "piclock/internal/log"
)

// cronLogger routes cron's own messages to the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Schedule runs c.Tick on the standard five-field cron spec in loc until
// ctx is done. A tick still running when the next one fires is skipped.
func Schedule(ctx context.Context, spec string, loc *time.Location, c *Controller) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	cr := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := cr.AddFunc(spec, func() {
		if err := c.Tick(ctx); err != nil {
			appLog.Error("scheduled redraw failed", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("clock: schedule %q: %w", spec, err)
	}
	cr.Start()
	go func() {
		<-ctx.Done()
		<-cr.Stop().Done()
	}()
	appLog.Info("redraw scheduled", "spec", spec, "location", loc.String())
	return cr, nil
}
