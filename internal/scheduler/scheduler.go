// Package scheduler runs the daily accrual on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/Fi44er/roi_ledger/internal/metrics"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/robfig/cron/v3"
)

const (
	lockKey    = "accrual:run"
	lockTTL    = time.Hour
	runTimeout = 30 * time.Minute
)

type Accruer interface {
	RunAccrual(ctx context.Context) (service.AccrualReport, error)
}

type AccrualJob struct {
	accruer Accruer
	locker  Locker
	spec    string
	cron    *cron.Cron
	logger  *utils.Logger
}

func NewAccrualJob(accruer Accruer, locker Locker, spec string, logger *utils.Logger) *AccrualJob {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &AccrualJob{
		accruer: accruer,
		locker:  locker,
		spec:    spec,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
	}
}

func (j *AccrualJob) Start() error {
	_, err := j.cron.AddFunc(j.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, _, err := j.RunOnce(ctx); err != nil {
			j.logger.Errorf("Scheduled accrual failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Infof("Accrual scheduler started (%s UTC)", j.spec)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (j *AccrualJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Accrual scheduler stopped")
}

// RunOnce performs one accrual run if no other instance holds the run lock.
// ran is false when the lock was taken elsewhere.
func (j *AccrualJob) RunOnce(ctx context.Context) (report service.AccrualReport, ran bool, err error) {
	release, ok, err := j.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		metrics.AccrualRuns.WithLabelValues("lock_error").Inc()
		return report, false, err
	}
	if !ok {
		metrics.AccrualRuns.WithLabelValues("skipped").Inc()
		j.logger.Info("Accrual run skipped: another instance holds the lock")
		return report, false, nil
	}
	defer release()

	started := time.Now()
	report, err = j.accruer.RunAccrual(ctx)
	if err != nil {
		metrics.AccrualRuns.WithLabelValues("failed").Inc()
		return report, true, err
	}

	metrics.AccrualRuns.WithLabelValues("ok").Inc()
	j.logger.Infof("Accrual run took %s", time.Since(started).Round(time.Millisecond))
	return report, true, nil
}
