package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"medvault-rag/internal/config"
	"medvault-rag/internal/logger"
)

const orphanSweepTag = "orphan-sweep"

// CronService runs periodic maintenance jobs, currently the orphan-record
// sweep that removes database records whose storage objects are gone.
type CronService struct {
	scheduler *gocron.Scheduler
	ingest    *IngestService
	cfg       *config.Config
}

func NewCronService(cfg *config.Config, ingest *IngestService) *CronService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &CronService{
		scheduler: s,
		ingest:    ingest,
		cfg:       cfg,
	}
}

// Start registers the maintenance jobs and launches the scheduler in the
// background.
func (c *CronService) Start() error {
	_, err := c.scheduler.Cron(c.cfg.OrphanSweepCron).Tag(orphanSweepTag).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		logger.Info("orphan sweep starting")
		if err := c.ingest.SweepOrphans(ctx); err != nil {
			logger.Error("orphan sweep failed", "error", err)
			return
		}
		logger.Info("orphan sweep finished")
	})
	if err != nil {
		return err
	}

	c.scheduler.StartAsync()
	return nil
}

func (c *CronService) Stop() {
	c.scheduler.Stop()
}
