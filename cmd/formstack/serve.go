package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/infrastructure/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the form manager and its inspector API",
	Long: `Run the form manager, ticking it on a single UI goroutine, and serve the
inspector API with the event stream on /events and metrics on /metrics.

Environment:
  FORMSTACK_CACHE_CAPACITY, FORMSTACK_START_SERIAL_ID, FORMSTACK_GROUPS,
  FORMSTACK_TICK, ASSET_SOURCE, ASSET_DIR, ASSET_BASE_URL, ASSET_TIMEOUT,
  ASSET_RETRIES, ASSET_RPS, SCRIPT_TIMEOUT, HOST, PORT, INSPECTOR_ENABLED,
  SETTINGS_FILE, LOG_LEVEL, LOG_DEV, RATE_LIMIT_RPS, RATE_LIMIT_BURST,
  RATE_LIMIT_ENABLED

Examples:
  # Serve forms from ./assets on port 8000
  formstack serve

  # Serve forms from a remote origin, reloading settings on change
  ASSET_SOURCE=http ASSET_BASE_URL=https://cdn.example.com/ui/ \
    formstack serve --settings settings.yaml`,
	RunE: runServe,
}

var (
	servePort     string
	serveAssets   string
	serveTick     time.Duration
	serveSettings string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Inspector port, overrides PORT")
	serveCmd.Flags().StringVarP(&serveAssets, "assets", "a", "", "Asset directory, overrides ASSET_DIR")
	serveCmd.Flags().DurationVar(&serveTick, "tick", 0, "Tick interval, overrides FORMSTACK_TICK")
	serveCmd.Flags().StringVar(&serveSettings, "settings", "", "Settings file to watch, overrides SETTINGS_FILE")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("assets") {
		cfg.Assets.Dir = serveAssets
	}
	if flags.Changed("tick") {
		cfg.Forms.Tick = serveTick
	}
	if flags.Changed("settings") {
		cfg.Forms.SettingsFile = serveSettings
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Shut down gracefully")
	return nil
}

