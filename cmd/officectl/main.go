// Command officectl runs migrations, ingestion and lookups from the shell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/officesearch/internal/app"
	"github.com/JonMunkholm/officesearch/internal/config"
	"github.com/JonMunkholm/officesearch/internal/logging"
	"github.com/JonMunkholm/officesearch/internal/store/postgres"
)

func main() {
	if err := newRootCmd(openSession).Execute(); err != nil {
		os.Exit(1)
	}
}

// openSession loads configuration and connects everything a command needs.
func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	// .env is optional; the environment wins over it here.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.sourceDir != "" {
		cfg.Sources.Dir = opts.sourceDir
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if opts.migrateOnly {
		pool, err := app.OpenPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &session{
			migrate: func(ctx context.Context) (int64, error) {
				if err := postgres.Migrate(ctx, pool); err != nil {
					return 0, err
				}
				return postgres.SchemaVersion(ctx, pool)
			},
			close: pool.Close,
		}, nil
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	slog.Debug("session opened", "config", cfg.String())

	return &session{
		service: a.Service,
		opener:  a.Opener,
		close:   a.Close,
	}, nil
}
