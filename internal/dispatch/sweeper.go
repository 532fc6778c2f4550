package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

// Report summarizes one sweep.
type Report struct {
	Found     int
	Succeeded int
	Failed    int
}

// Sweeper queries due reminders across all tenants and hands them to a
// bounded pool of dispatch workers. One broken reminder never stops the
// sweep; its failure is counted and logged.
type Sweeper struct {
	reminders   ReminderStore
	dispatcher  *Dispatcher
	concurrency int
	batchLimit  int
	logger      *logrus.Logger
}

// NewSweeper creates a new sweeper
func NewSweeper(reminders ReminderStore, dispatcher *Dispatcher, concurrency, batchLimit int, logger *logrus.Logger) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sweeper{
		reminders:   reminders,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		batchLimit:  batchLimit,
		logger:      logger,
	}
}

// Run performs one sweep: find everything due as of now, dispatch it.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	// Requeue claims that have outlived the whole retry window, doubled to
	// leave room for large fan-outs: those dispatches crashed or lost
	// their terminal write and will never finish on their own.
	cutoff := start.Add(-2 * s.dispatcher.config.RetryWindow())
	if released, err := s.reminders.ReleaseStale(ctx, cutoff); err != nil {
		s.logger.WithError(err).Warn("failed to requeue stale dispatch claims")
	} else if released > 0 {
		s.logger.WithField("released", released).Info("requeued stale dispatch claims")
	}

	due, err := s.reminders.GetDue(ctx, tenant.System(), start, s.batchLimit)
	if err != nil {
		return Report{}, fmt.Errorf("failed to query due reminders: %w", err)
	}

	report := Report{Found: len(due)}
	if len(due) == 0 {
		return report, nil
	}

	jobs := make(chan models.Reminder)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for reminder := range jobs {
				err := s.dispatcher.Dispatch(ctx, reminder.ID)
				mu.Lock()
				if err != nil {
					report.Failed++
				} else {
					report.Succeeded++
				}
				mu.Unlock()
				if err != nil {
					s.logger.WithError(err).WithField("reminder_id", reminder.ID).Error("reminder dispatch failed")
				}
			}
		}()
	}

	for _, reminder := range due {
		select {
		case jobs <- reminder:
		case <-ctx.Done():
			// Stop feeding; workers drain and exit.
			close(jobs)
			wg.Wait()
			return report, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	s.logger.WithFields(logrus.Fields{
		"found":     report.Found,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"duration":  time.Since(start).String(),
	}).Info("reminder sweep completed")

	return report, nil
}
