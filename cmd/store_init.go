package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/store"
	"github.com/sells-group/market-intel/internal/validate"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "market_intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initWorkflow(st store.Store) (*validate.Workflow, error) {
	engine := validate.NewDefaultEngine(cfg.Rules)
	return validate.NewWorkflow(st, engine, validate.Policy(cfg.Workflow.Policy))
}
