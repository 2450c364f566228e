package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const syncTimeout = 2 * time.Minute

// AccountSyncer is the part of the session the sync jobs drive
type AccountSyncer interface {
	HasAccount() bool
	SyncTrades(ctx context.Context) (int, error)
	SyncKYCs(ctx context.Context) (int, error)
}

// TradeSyncJob reconciles the local trade collection with the exchange
type TradeSyncJob struct {
	syncer AccountSyncer
	log    zerolog.Logger
}

// NewTradeSyncJob creates a new TradeSyncJob
func NewTradeSyncJob(syncer AccountSyncer, log zerolog.Logger) *TradeSyncJob {
	return &TradeSyncJob{
		syncer: syncer,
		log:    log.With().Str("job", "trade_sync").Logger(),
	}
}

// Name returns the job name
func (j *TradeSyncJob) Name() string {
	return "trade_sync"
}

// Run executes the trade sync. Sessions without an account are skipped.
func (j *TradeSyncJob) Run() error {
	if !j.syncer.HasAccount() {
		j.log.Debug().Msg("No account yet, skipping trade sync")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	count, err := j.syncer.SyncTrades(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("trades", count).Msg("Trades synced")
	return nil
}

// KYCSyncJob reconciles the local KYC collection with the exchange
type KYCSyncJob struct {
	syncer AccountSyncer
	log    zerolog.Logger
}

// NewKYCSyncJob creates a new KYCSyncJob
func NewKYCSyncJob(syncer AccountSyncer, log zerolog.Logger) *KYCSyncJob {
	return &KYCSyncJob{
		syncer: syncer,
		log:    log.With().Str("job", "kyc_sync").Logger(),
	}
}

// Name returns the job name
func (j *KYCSyncJob) Name() string {
	return "kyc_sync"
}

// Run executes the KYC sync. Sessions without an account are skipped.
func (j *KYCSyncJob) Run() error {
	if !j.syncer.HasAccount() {
		j.log.Debug().Msg("No account yet, skipping KYC sync")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	count, err := j.syncer.SyncKYCs(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("kycs", count).Msg("KYCs synced")
	return nil
}
