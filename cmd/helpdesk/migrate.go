package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tbourn/go-helpdesk-webhook/internal/config"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/sysutil"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema and exit",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

			db, err := repo.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}
