package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-helpdesk-webhook/docs"
	"github.com/tbourn/go-helpdesk-webhook/internal/config"
	httpapi "github.com/tbourn/go-helpdesk-webhook/internal/http"
	"github.com/tbourn/go-helpdesk-webhook/internal/observability"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/sysutil"
)

const (
	shutdownGrace = 15 * time.Second
	purgeInterval = time.Hour
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the webhook and operator API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides PORT)",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Run schema migrations before serving",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if p := c.String("port"); p != "" {
				cfg.Port = p
			}
			return serve(c.Context, cfg, c.Bool("migrate"))
		},
	}
}

func serve(parent context.Context, cfg config.Config, migrate bool) error {
	sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	if cfg.UsesDefaultVerifyToken() {
		log.Warn().Msg("HUB_VERIFY_TOKEN is not set; using the built-in default verification secret")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	db, err := repo.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	graph, err := provider.NewGraphClient(provider.Options{
		BaseURL:     cfg.Graph.BaseURL,
		Version:     cfg.Graph.Version,
		AccessToken: cfg.Graph.AccessToken,
		Timeout:     cfg.Graph.Timeout,
	})
	if err != nil {
		return fmt.Errorf("graph client: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, graph, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeDeliveries(ctx, db, purgeInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("webhook", cfg.WebhookPath).
			Str("api", cfg.APIBasePath).
			Str("version", appVersion).
			Msg("helpdesk listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}

// purgeDeliveries removes expired dedup claims and reply keys every interval
// until ctx is done.
func purgeDeliveries(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredDeliveries(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired deliveries")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired deliveries")
			}
		}
	}
}
