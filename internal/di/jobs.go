package di

import (
	"fmt"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers the background jobs. Jobs with an empty
// schedule stay available for manual triggering.
func RegisterJobs(container *Container) error {
	cfg := container.Config
	log := container.Log
	sched := scheduler.New(log)

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Schedules.TradeSync, scheduler.NewTradeSyncJob(container.Session, log)},
		{cfg.Schedules.KYCSync, scheduler.NewKYCSyncJob(container.Session, log)},
		{cfg.Schedules.CacheCleanup, clientdata.NewCleanupJob(container.RateCache, log)},
		{cfg.Schedules.WALCheck, scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...)},
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			return fmt.Errorf("failed to register %s: %w", j.job.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
