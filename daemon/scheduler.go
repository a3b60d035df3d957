package daemon

import (
	"context"
	"fmt"
	"sync"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
	"github.com/robfig/cron/v3"
)

// Scheduler triggers ingestion sweeps on a cron schedule. Only one sweep
// runs at a time; a trigger that fires while the previous sweep is still
// running is skipped.
type Scheduler struct {
	logger   ohlcv.Logger
	cron     *cron.Cron
	ingester *ohlcv.Ingester

	sweepMutex sync.Mutex
}

func RunScheduler(
	ctx context.Context,
	logger ohlcv.Logger,
	ingester *ohlcv.Ingester,
	schedule string,
	runOnStart bool,
) (*Scheduler, error) {
	scheduler := &Scheduler{
		logger:   logger,
		cron:     cron.New(),
		ingester: ingester,
	}

	_, err := scheduler.cron.AddFunc(schedule, func() {
		scheduler.runSweep(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf(
			"could not register sweep schedule [%v]: [%v]",
			schedule,
			err,
		)
	}

	scheduler.cron.Start()

	logger.Infof("sweep scheduler started with schedule [%v]", schedule)

	if runOnStart {
		go scheduler.runSweep(ctx)
	}

	go func() {
		<-ctx.Done()
		<-scheduler.cron.Stop().Done()
		logger.Infof("sweep scheduler stopped")
	}()

	return scheduler, nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.sweepMutex.TryLock() {
		s.logger.Warningf("previous sweep is still running; skipping trigger")
		return
	}
	defer s.sweepMutex.Unlock()

	if err := s.ingester.RunSweep(ctx); err != nil {
		s.logger.Errorf("ingestion sweep interrupted: [%v]", err)
	}
}
