// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived component of the process and is the
// single place main reaches into for startup and shutdown.
package di

import (
	"github.com/aristath/ledgersync/internal/clients/objectstore"
	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/connectivity"
	"github.com/aristath/ledgersync/internal/database"
	"github.com/aristath/ledgersync/internal/events"
	"github.com/aristath/ledgersync/internal/modules/ledger"
	"github.com/aristath/ledgersync/internal/modules/syncer"
	"github.com/aristath/ledgersync/internal/reliability"
	"github.com/aristath/ledgersync/internal/remote"
	"github.com/aristath/ledgersync/internal/scheduler"
	"github.com/aristath/ledgersync/internal/store"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Storage
	DB         *database.DB
	Store      *store.Store
	Repository *ledger.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Remote ledger and the optional object store behind it
	ObjectStore *objectstore.Client // nil unless S3 settings are present
	Remote      remote.Ledger

	// Sync
	Monitor *connectivity.Monitor
	Engine  *syncer.Engine
	Trigger *syncer.Trigger
	Ledger  *ledger.Service

	// Background work
	Scheduler *scheduler.Scheduler
	Backups   *reliability.BackupService // nil when backups are disabled

	unsubscribe []func()
}
