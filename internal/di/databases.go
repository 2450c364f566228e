package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/unocoin/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(container *Container) error {
	cfg := container.Config

	// 1. session.db - the session snapshot, cannot be refetched
	sessionDB, err := openDatabase(cfg.DataDir, database.NameSession, database.ProfileDurable)
	if err != nil {
		return err
	}
	container.SessionDB = sessionDB

	// 2. client_data.db - cache for exchange rates
	clientDataDB, err := openDatabase(cfg.DataDir, database.NameClientData, database.ProfileCache)
	if err != nil {
		return err
	}
	container.ClientDataDB = clientDataDB

	container.Log.Info().
		Str("data_dir", cfg.DataDir).
		Msg("Databases initialized")

	return nil
}

func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}

	return db, nil
}
