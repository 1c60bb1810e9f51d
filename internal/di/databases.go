package di

import (
	"fmt"

	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/database"
)

// InitializeDatabase opens the local ledger database and applies its schema
func InitializeDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger, // Local store is the source of truth
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger database: %w", err)
	}

	return db, nil
}
