package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/morningbrew/internal/app"
	"github.com/aatumaykin/morningbrew/internal/config"
	"github.com/aatumaykin/morningbrew/internal/logger"
	"github.com/aatumaykin/morningbrew/internal/version"
)

var (
	serveConfigPath string
	serveEnvFile    string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the morningbrew HTTP server",
	Long: `Start morningbrew with the specified configuration.
This initializes all components (model service, tools, agent loop, job
scheduling, rate limiting, HTTP API) and handles graceful shutdown on
SIGINT and SIGTERM.`,
	RunE: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) error {
	// Load .env file if exists
	if err := config.LoadEnvOptional(serveEnvFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", serveEnvFile, err)
	}

	cfg, err := config.LoadOrDefault(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		out := cmd.ErrOrStderr()
		fmt.Fprintln(out, "Configuration validation failed:")
		for _, e := range errs {
			fmt.Fprintf(out, "  - %v\n", e)
		}
		return fmt.Errorf("invalid configuration: %d errors", len(errs))
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info(version.FormatStartupMessage(),
		logger.Field{Key: "config", Value: serveConfigPath},
		logger.Field{Key: "addr", Value: cfg.Server.Addr},
		logger.Field{Key: "model", Value: cfg.Agent.Model},
		logger.Field{Key: "guard", Value: cfg.Jobs.Guard},
		logger.Field{Key: "rate_limit_backend", Value: cfg.RateLimit.Backend},
		logger.Field{Key: "shared_memory", Value: cfg.Memory.Shared},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Error("Application stopped with error", err)
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", defaultConfigPath, "Path to the configuration file")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", defaultEnvFile, "Path to the .env file")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override the configured log level")
}
