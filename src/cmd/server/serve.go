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

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/banking-ledger/src/internal/adapter/rates"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/sqlite"
	"github.com/api-sage/banking-ledger/src/internal/config"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/security"
	"github.com/api-sage/banking-ledger/src/internal/usecase/services"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

type stores struct {
	accounts    repo_interfaces.AccountRepository
	credentials repo_interfaces.CredentialRepository
	close       func() error
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(os.Stdout, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	st, err := openStores(startupCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.close(); closeErr != nil {
			logger.Error("banking ledger close store failed", closeErr, nil)
		}
	}()

	hasher := security.NewPasswordHasher(bcrypt.DefaultCost)
	tokens := security.NewTokenManager(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	ledger := services.NewLedgerService(st.accounts, st.credentials, hasher, rateProvider(cfg), cfg.MaxPageSize)
	auth := services.NewAuthService(ledger, st.accounts, st.credentials, hasher, tokens, cfg.IssueTokenOnRegister)

	handler := router.New(
		router.Options{
			ExposeErrorDetails: cfg.IsDevelopment(),
			MetricsEnabled:     cfg.MetricsEnabled,
		},
		middleware.BearerAuth(tokens),
		controller.NewHealthController(),
		controller.NewAuthController(auth, cfg.IsDevelopment()),
		controller.NewAccountController(ledger, cfg.IsDevelopment()),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("banking ledger server starting", logger.Fields{
			"address":     cfg.HTTPAddress,
			"environment": cfg.Environment,
			"storage":     cfg.StorageDriver,
		})
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("banking ledger server shutting down", nil)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("banking ledger server stopped", nil)
	return nil
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return stores{}, err
		}
		applied, err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("banking ledger migrations applied", logger.Fields{"versions": applied})

		return stores{
			accounts:    postgres.NewAccountRepository(db),
			credentials: postgres.NewCredentialRepository(db),
			close:       db.Close,
		}, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{accounts: store, credentials: store, close: store.Close}, nil
	default:
		store := memory.NewStore()
		return stores{accounts: store, credentials: store, close: func() error { return nil }}, nil
	}
}

// rateProvider uses the live API when a key is configured and the fixed
// table otherwise.
func rateProvider(cfg config.Config) domain.ExchangeRateProvider {
	if cfg.RateAPIKey == "" {
		logger.Info("banking ledger using static exchange rates", logger.Fields{
			"base": cfg.RateBaseCurrency,
		})
		return rates.NewStaticProvider(rates.DefaultUSDRates)
	}

	live := rates.NewHTTPProvider(nil, cfg.RateAPIBaseURL, cfg.RateAPIKey, cfg.RateBaseCurrency, cfg.RateAPITimeout)
	return rates.NewCachedProvider(live, cfg.RateCacheTTL)
}
