package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
)

var (
	configPath string
	logLevel   string

	logFile io.Closer

	rootCmd = &cobra.Command{
		Use:   "wlseat",
		Short: "wlseat - Wayland seat input inspector",
		Long: `wlseat binds the seats of a Wayland compositor and turns their raw keyboard,
pointer and touch events into focus-checked, keymap-translated application events.
Events can be watched live, recorded, mirrored into uinput devices, streamed over
SSH, or produced from replay scripts.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				_ = logFile.Close()
				logFile = nil
			}
		},
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/wlseat/wlseat.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads the configuration and applies its logging settings before any command runs
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := config.Get()
	logger.SetLevel(cfg.Logging.LogLevel)
	logger.SetLevel(logLevel)

	if cfg.Logging.FileLogging && logFile == nil {
		f, err := logger.EnableFileLogging(config.LogFilePath())
		if err != nil {
			logger.Warnf("File logging disabled: %v", err)
			return nil
		}
		logFile = f
	}
	return nil
}
