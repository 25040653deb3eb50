package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vinieshwan/parking-system/internal/logger"
)

const occupancyJobTimeout = 30 * time.Second

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct{ log logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// NewOccupancyScheduler returns a stopped scheduler that refreshes the
// occupied-slot gauge on spec.
func NewOccupancyScheduler(spec string, svc *ParkingService, log logger.Logger) (*cron.Cron, error) {
	cl := cronLogger{log: log.Named("cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), occupancyJobTimeout)
		defer cancel()
		if err := svc.RefreshOccupancy(ctx); err != nil {
			cl.log.Error("occupancy refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("occupancy job: invalid schedule %q: %w", spec, err)
	}
	return c, nil
}
