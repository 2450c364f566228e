// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/clients/unocoin"
	"github.com/aristath/unocoin/internal/config"
	"github.com/aristath/unocoin/internal/database"
	"github.com/aristath/unocoin/internal/events"
	"github.com/aristath/unocoin/internal/identity"
	"github.com/aristath/unocoin/internal/metrics"
	"github.com/aristath/unocoin/internal/scheduler"
	"github.com/aristath/unocoin/internal/session"
	"github.com/aristath/unocoin/internal/snapshots"
)

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Log    zerolog.Logger

	// Databases
	SessionDB    *database.DB // durable: the session snapshot
	ClientDataDB *database.DB // cache: exchange rates

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// Clients and repositories
	API       *unocoin.Client
	Snapshots *snapshots.Repository
	RateCache *clientdata.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Session
	Delegate *identity.Delegate
	Session  *session.Session

	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases in a stable order
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.SessionDB, c.ClientDataDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close stops the transport, checkpoints and closes the databases. It is safe to call on a
// partially initialized container.
func (c *Container) Close() {
	if c.API != nil {
		c.API.Close()
	}
	for _, db := range c.Databases() {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			c.Log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint on close failed")
		}
		if err := db.Close(); err != nil {
			c.Log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to close database")
		}
	}
}
