package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/ledgersync/internal/clients/objectstore"
	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/connectivity"
	"github.com/aristath/ledgersync/internal/events"
	"github.com/aristath/ledgersync/internal/modules/ledger"
	"github.com/aristath/ledgersync/internal/modules/syncer"
	"github.com/aristath/ledgersync/internal/reliability"
	"github.com/aristath/ledgersync/internal/remote"
	"github.com/aristath/ledgersync/internal/store"
)

// InitializeServices builds everything between the database and the scheduler
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container must hold an open database")
	}

	container.Store = store.New(container.DB.Conn(), log)
	container.Repository = ledger.NewRepository(container.Store, log)

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	if cfg.S3.Enabled() {
		client, err := objectstore.New(ctx, objectstore.Config{
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		container.ObjectStore = client
	}

	remoteLedger, err := newRemoteLedger(container, cfg, log)
	if err != nil {
		return err
	}
	container.Remote = remoteLedger

	container.Monitor = connectivity.NewMonitor(cfg.Network.AssumeOnline, log)
	container.unsubscribe = append(container.unsubscribe, container.Monitor.Subscribe(func(online bool) {
		container.EventManager.Emit(events.ConnectivityChanged, "connectivity", map[string]interface{}{
			"online": online,
		})
	}))

	container.Engine = syncer.NewEngine(
		container.Repository,
		container.Remote,
		container.Monitor,
		container.EventManager,
		syncer.Config{
			Retry: syncer.RetryPolicy{
				MaxAttempts: cfg.Sync.MaxAttempts,
				BaseDelay:   cfg.Sync.BaseDelay,
			},
			CallTimeout: cfg.Remote.Timeout,
		},
		log,
	)

	container.Ledger = ledger.NewService(container.Repository, container.EventManager, log)
	container.Ledger.SetSyncer(container.Engine)

	container.Trigger = syncer.NewTrigger(container.Engine, container.Monitor, container.Repository, log)

	if cfg.Backup.Enabled {
		if container.ObjectStore == nil {
			return fmt.Errorf("backups require an object store")
		}
		container.Backups = reliability.NewBackupService(
			container.DB,
			container.ObjectStore,
			container.EventManager,
			"",
			log,
		)
	}

	log.Info().
		Str("remote", cfg.Remote.Backend).
		Bool("online", container.Monitor.Online()).
		Bool("backups", container.Backups != nil).
		Msg("Services initialized")

	return nil
}

func newRemoteLedger(container *Container, cfg *config.Config, log zerolog.Logger) (remote.Ledger, error) {
	switch cfg.Remote.Backend {
	case config.RemoteBackendMemory:
		return remote.NewMemoryLedger(), nil

	case config.RemoteBackendS3:
		if container.ObjectStore == nil {
			return nil, fmt.Errorf("s3 remote requires S3_BUCKET")
		}
		return remote.NewS3Ledger(container.ObjectStore, cfg.S3.Prefix, log), nil

	case config.RemoteBackendHTTP:
		return remote.NewHTTPLedger(cfg.Remote.HTTPURL, cfg.Remote.HTTPToken, cfg.Remote.Timeout, log), nil

	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}
