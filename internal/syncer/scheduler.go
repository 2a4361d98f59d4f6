package syncer

import (
	"context"
	"fmt"
	"fxledger/internal/config"
	"fxledger/internal/domain"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultCron     = "0 9 * * 1-5"
	defaultTimezone = "Europe/Tirane"
)

type AllSyncer interface {
	SyncAll(ctx context.Context, date time.Time, tenantIDs []string) (*domain.BatchSyncResult, error)
}

// Scheduler pushes the day's rates to every tenant on a cron schedule.
type Scheduler struct {
	syncer   AllSyncer
	cron     string
	location *time.Location
	// -----
	mu    sync.Mutex
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(s.cron, false),
		gocron.NewTask(s.runDaily),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("sync-all-tenants"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule sync job %q: %w", s.cron, err)
	}

	scheduler.Start()
	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

// runDaily syncs today's date, as seen in the scheduler's time zone.
func (s *Scheduler) runDaily(jobCtx context.Context) {
	execID := uuid.NewString()
	now := time.Now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	log := logrus.WithFields(logrus.Fields{"exec_id": execID, "as_of_date": today.Format(domain.DateLayout)})
	log.Info("Scheduled sync started")

	batch, err := s.syncer.SyncAll(jobCtx, today, nil)
	if err != nil {
		log.WithError(err).Error("Scheduled sync failed")
		return
	}
	log.WithFields(logrus.Fields{
		"tenants": batch.TotalTenants,
		"failed":  batch.FailedTenants,
	}).Info("Scheduled sync finished")
}

func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}

func (s *Scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched != nil
}

func NewScheduler(syncer AllSyncer, cfg config.Scheduler) (*Scheduler, error) {
	cron := cfg.Cron
	if cron == "" {
		cron = defaultCron
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", tz, err)
	}
	return &Scheduler{syncer: syncer, cron: cron, location: loc}, nil
}
