package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formstack/internal/infrastructure/config"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/logging"
)

var rootCmd = &cobra.Command{
	Use:   "formstack",
	Short: "Layered UI form stack manager",
	Long: `formstack hosts a stack of UI forms organised in depth-ordered groups,
with a recency cache of created forms and an inspector API.

Configuration comes from environment variables (see the serve command);
flags override them.`,
	SilenceUsage: true,
}

var (
	flagLogLevel string
	flagDev      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug/info/warn/error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&flagDev, "dev", false, "Development logging (colored console), overrides LOG_DEV")
}

// loadConfig reads the environment and applies persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if cmd.Flags().Changed("dev") {
		cfg.Logging.Development = flagDev
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	logCfg.Service = "formstack"

	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
