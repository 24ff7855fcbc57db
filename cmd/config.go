package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/wlseat/internal/config"
	"github.com/bnema/wlseat/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wlseat configuration",
	Long:  `Manage wlseat configuration including keyboard defaults, recording, mirroring and the SSH tap.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Keyboard]")
		logger.Infof("  Repeat Rate: %d/s", cfg.Keyboard.RepeatRate)
		logger.Infof("  Repeat Delay: %d ms", cfg.Keyboard.RepeatDelayMs)
		if cfg.Keyboard.KeymapFile != "" {
			logger.Infof("  Keymap File: %s", cfg.Keyboard.KeymapFile)
		} else {
			logger.Info("  Keymap File: built-in US layout")
		}

		logger.Info("\n[Pointer]")
		logger.Infof("  Cursor: %q", cfg.Pointer.Cursor)

		logger.Info("\n[Logging]")
		logger.Infof("  Level: %s", orDefault(cfg.Logging.LogLevel, "from LOG_LEVEL"))
		logger.Infof("  File Logging: %v", cfg.Logging.FileLogging)
		if cfg.Logging.FileLogging {
			logger.Infof("  Log File: %s", config.LogFilePath())
		}

		logger.Info("\n[Record]")
		logger.Infof("  Path: %s", orDefault(cfg.Record.Path, "disabled"))

		logger.Info("\n[Mirror]")
		logger.Infof("  Enabled: %v", cfg.Mirror.Enabled)
		logger.Infof("  Device: %s", cfg.Mirror.Device)

		logger.Info("\n[Tap]")
		logger.Infof("  Enabled: %v", cfg.Tap.Enabled)
		logger.Infof("  Address: %s", cfg.Tap.Address)
		logger.Infof("  Host Key: %s", cfg.Tap.HostKeyPath)
		logger.Infof("  Whitelist Only: %v", cfg.Tap.WhitelistOnly)
		if len(cfg.Tap.Whitelist) > 0 {
			logger.Info("  Whitelist:")
			for _, fp := range cfg.Tap.Whitelist {
				logger.Infof("    - %s", fp)
			}
		}

		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file",
	Long: `Create the configuration file. Without --defaults an interactive form asks
for the keyboard, pointer, mirror and tap settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		defaults, _ := cmd.Flags().GetBool("defaults")
		if defaults {
			if err := config.Save(); err != nil {
				return err
			}
		} else {
			c := *config.Get()
			if err := runConfigForm(&c); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					logger.Info("Aborted, nothing written")
					return nil
				}
				return err
			}
			if err := config.Update(&c); err != nil {
				return err
			}
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'wlseat monitor' to watch your seats")
		logger.Info("  - Use 'wlseat config show' to view current settings")

		return nil
	},
}

// runConfigForm asks for the settings worth changing on a new install
func runConfigForm(c *config.Config) error {
	rate := strconv.Itoa(c.Keyboard.RepeatRate)
	delay := strconv.Itoa(c.Keyboard.RepeatDelayMs)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Key repeat rate").
				Description("Repeats per second until the compositor sends its own, 0 disables repeat").
				Value(&rate).
				Validate(nonNegativeInt),
			huh.NewInput().
				Title("Key repeat delay").
				Description("Milliseconds before the first repeat").
				Value(&delay).
				Validate(nonNegativeInt),
			huh.NewInput().
				Title("Keymap file").
				Description("XKB keymap used before the compositor sends one, empty for the built-in US layout").
				Value(&c.Keyboard.KeymapFile),
			huh.NewSelect[string]().
				Title("Cursor over the wlseat window").
				Options(
					huh.NewOption("Compositor default", "default"),
					huh.NewOption("Hidden", ""),
				).
				Value(&c.Pointer.Cursor),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Mirror events into uinput devices?").
				Description("Needs write access to " + c.Mirror.Device).
				Value(&c.Mirror.Enabled),
			huh.NewConfirm().
				Title("Serve events over SSH?").
				Value(&c.Tap.Enabled),
			huh.NewInput().
				Title("Tap address").
				Value(&c.Tap.Address),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	c.Keyboard.RepeatRate, _ = strconv.Atoi(rate)
	c.Keyboard.RepeatDelayMs, _ = strconv.Atoi(delay)
	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

var configTapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Manage the SSH tap whitelist",
}

var configTapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted SSH keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		if len(cfg.Tap.Whitelist) == 0 {
			logger.Info("No SSH keys in whitelist")
		} else {
			logger.Info("Whitelisted SSH Keys:")
			for i, fp := range cfg.Tap.Whitelist {
				logger.Infof("%d. %s", i+1, fp)
			}
		}

		if cfg.Tap.WhitelistOnly {
			logger.Info("\nWhitelist-only mode is ENABLED")
		} else {
			logger.Info("\nWhitelist-only mode is DISABLED")
			logger.Info("All SSH keys are accepted")
		}
		return nil
	},
}

var configTapAddCmd = &cobra.Command{
	Use:   "add <fingerprint>",
	Short: "Allow an SSH key to open tap sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.AddTapKeyToWhitelist(args[0]); err != nil {
			return err
		}
		logger.Infof("Added SSH key to whitelist: %s", args[0])
		return nil
	},
}

var configTapRemoveCmd = &cobra.Command{
	Use:   "remove <fingerprint>",
	Short: "Remove SSH key from whitelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RemoveTapKeyFromWhitelist(args[0]); err != nil {
			return err
		}
		logger.Infof("Removed SSH key from whitelist: %s", args[0])
		return nil
	},
}

var configTapClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all SSH keys from whitelist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		count := len(cfg.Tap.Whitelist)

		if count == 0 {
			logger.Info("Whitelist is already empty")
			return nil
		}

		cfg.Tap.Whitelist = []string{}
		if err := config.Update(&cfg); err != nil {
			return err
		}

		logger.Infof("Cleared %d SSH key(s) from whitelist", count)
		return nil
	},
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configTapCmd)

	configTapCmd.AddCommand(configTapListCmd)
	configTapCmd.AddCommand(configTapAddCmd)
	configTapCmd.AddCommand(configTapRemoveCmd)
	configTapCmd.AddCommand(configTapClearCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().Bool("defaults", false, "Write the defaults without asking")
}
