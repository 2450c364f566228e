package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/clients/unocoin"
	"github.com/aristath/unocoin/internal/events"
	"github.com/aristath/unocoin/internal/identity"
	"github.com/aristath/unocoin/internal/metrics"
	"github.com/aristath/unocoin/internal/session"
	"github.com/aristath/unocoin/internal/snapshots"
)

const loadTimeout = 10 * time.Second

// InitializeServices builds the transport, the identity delegate and the session.
// The session is restored from its snapshot when one exists.
func InitializeServices(container *Container) error {
	cfg := container.Config
	log := container.Log

	// Metrics
	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = metrics.NewCollector(container.Registry)

	// Exchange transport
	api, err := unocoin.NewClient(unocoin.Config{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.HTTPTimeout,
		RequestInterval: cfg.RequestInterval,
		Metrics:         container.Metrics,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create exchange client: %w", err)
	}
	container.API = api

	// Repositories
	container.Snapshots = snapshots.NewRepository(container.SessionDB.Conn())
	container.RateCache = clientdata.NewRepository(container.ClientDataDB.Conn())

	// Events
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Identity
	var tokens identity.TokenSource = identity.StaticToken(cfg.Account.EmailToken)
	if cfg.Account.IdentityTokenURL != "" {
		tokens = identity.NewHTTPTokenSource(cfg.Account.IdentityTokenURL, cfg.HTTPTimeout)
	}
	container.Delegate = identity.NewDelegate(identity.Config{
		Email:         cfg.Account.Email,
		EmailVerified: cfg.Account.EmailVerified,
		SessionName:   cfg.SessionName,
	}, tokens, container.Snapshots, log)

	policy, err := session.PolicyFor(
		session.RegistrationMode(cfg.Registration.Policy),
		session.RegistrationResult{Result: "success", OfflineToken: cfg.Registration.FallbackToken},
	)
	if err != nil {
		return fmt.Errorf("invalid REGISTRATION_POLICY: %w", err)
	}

	opts := session.Options{
		API:          api,
		Registration: policy,
		RateCache:    container.RateCache,
		Events:       container.EventManager,
		Metrics:      container.Metrics,
		Logger:       log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	snap, found, err := container.Snapshots.Load(ctx, cfg.SessionName)
	if err != nil {
		return fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var sess *session.Session
	if found {
		sess, err = session.New(snap, container.Delegate, opts)
	} else {
		sess, err = session.NewAccount(container.Delegate, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	container.Delegate.Attach(sess.Snapshot)
	container.Session = sess

	log.Info().
		Bool("restored", found).
		Bool("has_account", sess.HasAccount()).
		Int("trades", len(sess.Trades())).
		Msg("Session ready")

	return nil
}
