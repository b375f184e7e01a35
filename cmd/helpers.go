package cmd

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/branch-canvas/internal/config"
	"github.com/ziadkadry99/branch-canvas/internal/db"
	"github.com/ziadkadry99/branch-canvas/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `branchcanvas init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openStore opens the session database named by the config.
func openStore(cfg *config.Config) (*db.DB, *session.Store, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database, session.NewStore(database), nil
}

// resolveSession returns id, or the most recently used session when id is
// empty.
func resolveSession(ctx context.Context, store *session.Store, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	ids, err := store.Sessions(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no sessions found; pass --session")
	}
	return ids[0], nil
}
