package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/leadloop/leadloop/internal/comms"
	"github.com/leadloop/leadloop/internal/config"
	"github.com/leadloop/leadloop/internal/credentials"
	"github.com/leadloop/leadloop/internal/customer"
	"github.com/leadloop/leadloop/internal/db"
	"github.com/leadloop/leadloop/internal/extract"
	"github.com/leadloop/leadloop/internal/gateway"
	gwmailgun "github.com/leadloop/leadloop/internal/gateway/adapters/mailgun"
	"github.com/leadloop/leadloop/internal/gateway/adapters/smtprelay"
	"github.com/leadloop/leadloop/internal/gateway/adapters/webapi"
	"github.com/leadloop/leadloop/internal/handlers"
	"github.com/leadloop/leadloop/internal/inbound"
	"github.com/leadloop/leadloop/internal/logger"
	"github.com/leadloop/leadloop/internal/server"
	"github.com/leadloop/leadloop/internal/settings"
	"github.com/leadloop/leadloop/internal/storage"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideCustomerService,
			provideCommsService,
			settings.NewService,
			provideCredentialResolver,
			credentials.NewVerifier,
			provideEmailRegistry,
			gateway.NewMessagingClient,
			provideGatewayService,
			provideUploader,
			extract.NewDocumentExtractor,
			provideStructuredExtractor,
			providePipeline,
			handlers.NewPingHandler,
			handlers.NewWebhooksHandler,
			handlers.NewMessagesHandler,
			handlers.NewCustomersHandler,
			handlers.NewSettingsHandler,
			handlers.NewProvidersHandler,
			provideServer,
		),
		fx.Invoke(
			runMigrations,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate() error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return db.Migrate(context.Background(), cfg.Postgres)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideCustomerService(log *slog.Logger, conn *pgxpool.Pool) *customer.Service {
	return customer.NewService(log, customer.NewPostgresStore(conn))
}

func provideCommsService(log *slog.Logger, conn *pgxpool.Pool) *comms.Service {
	return comms.NewService(log, comms.NewPostgresStore(conn))
}

func provideCredentialResolver(log *slog.Logger, cfg config.Config, settingsService *settings.Service) *credentials.Resolver {
	return credentials.DefaultChain(log, cfg, settingsService)
}

func provideEmailRegistry(log *slog.Logger, resolver *credentials.Resolver) *gateway.Registry {
	registry := gateway.NewRegistry()
	registry.Register(webapi.New(log, resolver))
	registry.Register(smtprelay.New(log, resolver))
	registry.Register(gwmailgun.New(log, resolver))
	return registry
}

func provideGatewayService(log *slog.Logger, registry *gateway.Registry, messaging *gateway.MessagingClient, resolver *credentials.Resolver, settingsService *settings.Service, customers *customer.Service, ledger *comms.Service) *gateway.Service {
	return gateway.NewService(log, registry, messaging, resolver, settingsService, customers, ledger)
}

func provideUploader(log *slog.Logger, cfg config.Config) (storage.Uploader, error) {
	return storage.NewS3Store(context.Background(), log, cfg.Storage)
}

func provideStructuredExtractor(log *slog.Logger, cfg config.Config) *extract.Extractor {
	return extract.NewExtractor(log, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
}

func providePipeline(log *slog.Logger, cfg config.Config, uploader storage.Uploader, documents *extract.DocumentExtractor, structured *extract.Extractor, customers *customer.Service, ledger *comms.Service) *inbound.Pipeline {
	return inbound.NewPipeline(log, cfg.OpenAI, uploader, documents, structured, customers, ledger)
}

func provideServer(log *slog.Logger, cfg config.Config,
	ping *handlers.PingHandler,
	webhooks *handlers.WebhooksHandler,
	messages *handlers.MessagesHandler,
	customersHandler *handlers.CustomersHandler,
	settingsHandler *handlers.SettingsHandler,
	providersHandler *handlers.ProvidersHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr,
		ping, webhooks, messages, customersHandler, settingsHandler, providersHandler)
}

func runMigrations(log *slog.Logger, cfg config.Config, _ *pgxpool.Pool) error {
	if err := db.Migrate(context.Background(), cfg.Postgres); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database migrations applied")
	return nil
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
