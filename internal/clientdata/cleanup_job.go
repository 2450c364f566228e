package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const cleanupTimeout = 30 * time.Second

// CleanupJob prunes cached exchange rates that are too old to serve even as a stale fallback.
type CleanupJob struct {
	repo      *Repository
	retention time.Duration
	log       zerolog.Logger
}

// NewCleanupJob creates a rate cache cleanup job keeping expired rates for StaleRateRetention.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		retention: StaleRateRetention,
		log:       log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run deletes the rates that expired before the retention window.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	deleted, err := j.repo.DeleteExpired(ctx, TableExchangeRates, j.retention)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune cached rates")
		return err
	}

	event := j.log.Debug()
	if deleted > 0 {
		event = j.log.Info()
	}
	event.Int64("deleted", deleted).
		Dur("retention", j.retention).
		Msg("Rate cache pruned")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
