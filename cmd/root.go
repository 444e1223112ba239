package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"siteledger/internal/api"
	"siteledger/internal/cache"
	"siteledger/internal/config"
	"siteledger/internal/ledger"
	"siteledger/internal/logger"
)

var version = "1.0.0"

var (
	appConfig *config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "siteledger",
	Short: "siteledger - milestone invoices and partial payments for HSE projects",
	Long: `siteledger records inflow invoices against project milestones, tracks the
partial payments made on each invoice and reconciles what is still pending.

GST is computed on the pre-tax total; the tax-inclusive total is what payments
are reconciled against. All records live on the HSE backend; a local SQLite
snapshot keeps the last fetched state of each milestone for offline review.

Environment variables (a .env file in the working directory is loaded first):
  SITELEDGER_API_URL      - API root, e.g. https://hse.example.com/api (required)
  SITELEDGER_API_TOKEN    - bearer token
  SITELEDGER_API_TIMEOUT  - request timeout in seconds (default 30)
  SITELEDGER_CACHE_PATH   - snapshot database path
  SITELEDGER_WORKERS      - parallel milestone reads (default 4)`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if appConfig != nil && appConfig.CurrencySymbol != "" {
			ledger.CurrencySymbol = appConfig.CurrencySymbol
		}
	},
}

// Execute runs the root command with the configuration read at startup.
// loadErr is reported by the first command that needs the configuration.
// The error is printed here; the caller decides the exit code.
func Execute(cfg *config.Config, loadErr error) error {
	log := logger.WithComponent("cmd")

	appConfig, configErr = cfg, loadErr

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "API root URL (overrides SITELEDGER_API_URL)")
	rootCmd.PersistentFlags().String("token", "", "API bearer token (overrides SITELEDGER_API_TOKEN)")
}

// loadConfig applies flag overrides to the startup configuration and
// validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}

	cfg := *appConfig
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := cmd.Flags().GetString("token"); v != "" {
		cfg.APIToken = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// newAPIClient builds the backend client from the validated configuration.
func newAPIClient(cmd *cobra.Command, log zerolog.Logger) (*api.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.APIToken == "" {
		log.Warn().Msg("No API token configured, the server will likely reject requests")
	}
	log.Debug().Str("api_url", cfg.APIBaseURL).Dur("timeout", cfg.APITimeout).Msg("API client created")
	return client, cfg, nil
}

// openCache opens the snapshot cache. A cache that cannot be opened is not
// fatal for online commands, so callers decide what to do with the error.
func openCache(path string, log zerolog.Logger) (*cache.Store, error) {
	store, err := cache.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Snapshot cache unavailable")
		return nil, err
	}
	return store, nil
}

// commandContext creates a context with timeout and signal handling
func commandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleAPIError provides user-friendly messages for backend failures
func handleAPIError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Request failed")

	var apiErr *api.Error
	hasAPIErr := errors.As(err, &apiErr)

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("the server did not answer in time. Try again or raise SITELEDGER_API_TIMEOUT")
	case api.IsAuthError(err):
		return fmt.Errorf("not authorized. Check SITELEDGER_API_TOKEN or pass --token")
	case errors.Is(err, api.ErrNotFound):
		return fmt.Errorf("not found on the server: %w", err)
	case errors.Is(err, api.ErrTransport):
		return fmt.Errorf("could not reach the server. Check SITELEDGER_API_URL and your network: %w", err)
	case hasAPIErr && apiErr.ServerMessage() != "":
		return errors.New(apiErr.ServerMessage())
	default:
		return err
	}
}
