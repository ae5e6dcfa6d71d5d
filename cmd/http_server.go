package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-checkout/api"
	"github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/auth"
	"github.com/frahmantamala/donation-checkout/internal/checkout"
	"github.com/frahmantamala/donation-checkout/internal/core/events"
	"github.com/frahmantamala/donation-checkout/internal/donationapi"
	"github.com/frahmantamala/donation-checkout/internal/history"
	historypostgres "github.com/frahmantamala/donation-checkout/internal/history/postgres"
	"github.com/frahmantamala/donation-checkout/internal/paymentgateway"
	"github.com/frahmantamala/donation-checkout/internal/transport/rest"
	"github.com/frahmantamala/donation-checkout/pkg/logger"
)

const (
	sessionIdleTimeout   = 30 * time.Minute
	sessionSweepInterval = time.Minute
	recordTimeout        = 30 * time.Second
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that hosts checkout sessions and receives payment callbacks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Sessions *checkout.SessionStore
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, deps.Sessions, deps.Logger)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// receipts published by the last submissions still need to be stored
		if err := deps.EventBus.Drain(ctx); err != nil {
			deps.Logger.Error("Event handlers did not finish", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func sweepSessions(ctx context.Context, sessions *checkout.SessionStore, lg *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(sessionIdleTimeout); n > 0 {
				lg.Info("expired idle checkout sessions", "count", n, "remaining", sessions.Len())
			}
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.L()

	if _, err := api.Load(context.Background()); err != nil {
		return nil, err
	}

	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT public key: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := openGorm(config.Database, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureLocalSchema(config.Database, gormDB); err != nil {
		_ = db.Close()
		return nil, err
	}

	eventBus := events.NewEventBus(lg)

	historyService := history.NewService(historypostgres.NewReceiptRepository(gormDB), lg)
	history.NewEventHandler(historyService, lg).RegisterEventHandlers(eventBus)

	donationClient := donationapi.NewClient(config.DonationAPI.BaseURL, config.DonationAPI.Timeout, lg)
	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:         config.Payment.BaseURL,
		KeyID:           config.Payment.KeyID,
		KeySecret:       config.Payment.KeySecret,
		Currency:        config.Payment.Currency,
		CheckoutTimeout: config.Payment.CheckoutTimeout,
	}, lg)

	sessions := checkout.NewSessionStore()
	checkoutHandler := checkout.NewHandler(sessions, donationClient, checkout.Dependencies{
		Donations:     donationClient,
		Gateway:       gatewayClient,
		Profiles:      auth.NewFallbackProfileProvider(donationClient, lg),
		Events:        eventBus,
		Logger:        lg,
		RecordTimeout: recordTimeout,
	}, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:        auth.NewMiddleware(auth.NewTokenVerifier(publicKey), lg),
		Checkout:    checkoutHandler,
		Webhook:     paymentgateway.NewWebhookHandler(gatewayClient, lg),
		DonationAPI: donationapi.NewHandler(donationClient, lg),
		History:     history.NewHandler(historyService, lg),
	}, config.Server.AllowedOrigins, lg)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   router,
		EventBus: eventBus,
		Sessions: sessions,
		Logger:   lg,
	}, nil
}
