package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"photostudio/internal/bot"
	"photostudio/internal/config"
	"photostudio/internal/storage"
	"photostudio/internal/storage/pg"
	"photostudio/internal/storage/stubs"
	"photostudio/internal/webhook"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting AI Photo Studio bot",
		zap.Bool("webhook_mode", cfg.WebhookMode),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Int("max_photos", cfg.MaxPhotos),
		zap.Int("photo_quality", cfg.PhotoQuality),
		zap.Int("photo_max_dimension", cfg.PhotoMaxDimension),
	)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initHTTPServer()

	return app, nil
}

// initDatabase initializes the persistent store
func (a *App) initDatabase() error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to Postgres")
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()

		pgDB, err := pg.NewPostgresDB(ctx, a.config.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db = pgDB
	}

	if err := db.Initialize(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initBot initializes the Telegram bot and its webhook client
func (a *App) initBot() error {
	ai := webhook.NewClient(
		a.config.APIBaseURL,
		a.config.WebhookSecret,
		webhook.Endpoints{
			Train:    a.config.TrainEndpoint,
			Generate: a.config.GenerateEndpoint,
			Models:   a.config.ModelsEndpoint,
			Credits:  a.config.CreditsEndpoint,
		},
		time.Duration(a.config.HTTPTimeoutSeconds)*time.Second,
		a.logger,
	)

	telegramBot, err := bot.NewBot(a.config, a.db, ai, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, the
// Telegram webhook, and the notification ingress
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	httpServer := bot.NewHTTPServer(a.bot, a.config.WebhookSecret)
	httpServer.RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in webhook mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			stop()
			_ = a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		g.Go(func() error {
			a.logger.Info("Starting bot in polling mode")
			return a.bot.Start()
		})
	}

	// Periodic sweep of expired sessions and abandoned media-group buffers
	g.Go(func() error {
		ticker := time.NewTicker(bot.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.bot.SweepIdle()
			}
		}
	})

	<-ctx.Done()
	a.logger.Info("Shutting down...")

	a.bot.Stop()
	err := a.Shutdown()

	// Wait for the group; polling stops once the updates channel closes
	if gErr := g.Wait(); gErr != nil {
		err = multierr.Append(err, gErr)
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server and the database
func (a *App) Shutdown() error {
	var result error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		result = multierr.Append(result, fmt.Errorf("http server shutdown: %w", err))
	}

	if err := a.db.Close(); err != nil {
		result = multierr.Append(result, fmt.Errorf("database close: %w", err))
	}

	if result != nil {
		a.logger.Error("Shutdown finished with errors", zap.Error(result))
	} else {
		a.logger.Info("Shutdown complete")
	}
	_ = a.logger.Sync()
	return result
}
