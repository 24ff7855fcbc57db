// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Keyboard KeyboardConfig `mapstructure:"keyboard"`
	Pointer  PointerConfig  `mapstructure:"pointer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Record   RecordConfig   `mapstructure:"record"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Tap      TapConfig      `mapstructure:"tap"`
}

// KeyboardConfig contains keyboard defaults used until the compositor sends repeat_info
type KeyboardConfig struct {
	RepeatRate    int    `mapstructure:"repeat_rate"`     // Repeats per second, 0 disables repeat
	RepeatDelayMs int    `mapstructure:"repeat_delay_ms"` // Delay before the first repeat
	KeymapFile    string `mapstructure:"keymap_file"`     // XKB v1 text keymap replacing the built-in fallback
}

// PointerConfig contains pointer settings
type PointerConfig struct {
	Cursor string `mapstructure:"cursor"` // Cursor shape requested on pointer enter, empty hides it
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
}

// RecordConfig controls the protobuf event log
type RecordConfig struct {
	Path string `mapstructure:"path"`
}

// MirrorConfig controls forwarding of translated events into uinput devices
type MirrorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Device  string `mapstructure:"device"`
}

// TapConfig controls the SSH event tap
type TapConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Address       string   `mapstructure:"address"`
	HostKeyPath   string   `mapstructure:"host_key_path"`
	Whitelist     []string `mapstructure:"whitelist"`      // Allowed SSH key fingerprints
	WhitelistOnly bool     `mapstructure:"whitelist_only"` // Reject keys outside the whitelist
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Keyboard: KeyboardConfig{
			RepeatRate:    25,
			RepeatDelayMs: 600,
			KeymapFile:    "",
		},
		Pointer: PointerConfig{
			Cursor: "default",
		},
		Logging: LoggingConfig{
			FileLogging: false,
			LogLevel:    "", // Empty means use LOG_LEVEL env var
		},
		Record: RecordConfig{
			Path: "",
		},
		Mirror: MirrorConfig{
			Enabled: false,
			Device:  "/dev/uinput",
		},
		Tap: TapConfig{
			Enabled:       false,
			Address:       "127.0.0.1:2323",
			HostKeyPath:   filepath.Join(xdg.DataHome, "wlseat", "tap_host_key"),
			Whitelist:     []string{},
			WhitelistOnly: true,
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wlseat")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "wlseat"))
		for _, dir := range xdg.ConfigDirs {
			viper.AddConfigPath(filepath.Join(dir, "wlseat"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("keyboard.repeat_rate", DefaultConfig.Keyboard.RepeatRate)
	viper.SetDefault("keyboard.repeat_delay_ms", DefaultConfig.Keyboard.RepeatDelayMs)
	viper.SetDefault("keyboard.keymap_file", DefaultConfig.Keyboard.KeymapFile)

	viper.SetDefault("pointer.cursor", DefaultConfig.Pointer.Cursor)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	viper.SetDefault("record.path", DefaultConfig.Record.Path)

	viper.SetDefault("mirror.enabled", DefaultConfig.Mirror.Enabled)
	viper.SetDefault("mirror.device", DefaultConfig.Mirror.Device)

	viper.SetDefault("tap.enabled", DefaultConfig.Tap.Enabled)
	viper.SetDefault("tap.address", DefaultConfig.Tap.Address)
	viper.SetDefault("tap.host_key_path", DefaultConfig.Tap.HostKeyPath)
	viper.SetDefault("tap.whitelist", DefaultConfig.Tap.Whitelist)
	viper.SetDefault("tap.whitelist_only", DefaultConfig.Tap.WhitelistOnly)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	loaded, err := unmarshal()
	if err != nil {
		return err
	}
	cfg = loaded

	return nil
}

func unmarshal() (*Config, error) {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return c, nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Watch reloads the configuration whenever the config file changes and hands the new
// values to fn. Nothing happens when no config file was found.
func Watch(fn func(*Config)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		reloaded, err := unmarshal()
		if err != nil {
			return
		}
		cfg = reloaded
		if fn != nil {
			fn(reloaded)
		}
	})
	viper.WatchConfig()
}

// RepeatDelay returns the configured repeat delay as a duration
func (k KeyboardConfig) RepeatDelay() time.Duration {
	return time.Duration(k.RepeatDelayMs) * time.Millisecond
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Update replaces the current configuration and persists it
func Update(c *Config) error {
	viper.Set("keyboard.repeat_rate", c.Keyboard.RepeatRate)
	viper.Set("keyboard.repeat_delay_ms", c.Keyboard.RepeatDelayMs)
	viper.Set("keyboard.keymap_file", c.Keyboard.KeymapFile)
	viper.Set("pointer.cursor", c.Pointer.Cursor)
	viper.Set("logging.file_logging", c.Logging.FileLogging)
	viper.Set("logging.log_level", c.Logging.LogLevel)
	viper.Set("record.path", c.Record.Path)
	viper.Set("mirror.enabled", c.Mirror.Enabled)
	viper.Set("mirror.device", c.Mirror.Device)
	viper.Set("tap.enabled", c.Tap.Enabled)
	viper.Set("tap.address", c.Tap.Address)
	viper.Set("tap.host_key_path", c.Tap.HostKeyPath)
	viper.Set("tap.whitelist", c.Tap.Whitelist)
	viper.Set("tap.whitelist_only", c.Tap.WhitelistOnly)
	cfg = c
	return Save()
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(xdg.ConfigHome, "wlseat", "wlseat.toml")
}

// LogFilePath returns where file logging writes
func LogFilePath() string {
	return filepath.Join(xdg.StateHome, "wlseat", "wlseat.log")
}

// SocketPath returns where a running monitor answers status queries
func SocketPath() string {
	return filepath.Join(xdg.RuntimeDir, "wlseat.sock")
}

// AddTapKeyToWhitelist adds an SSH key fingerprint to the tap whitelist
func AddTapKeyToWhitelist(fingerprint string) error {
	c := Get()

	for _, fp := range c.Tap.Whitelist {
		if fp == fingerprint {
			return fmt.Errorf("key already whitelisted")
		}
	}

	c.Tap.Whitelist = append(c.Tap.Whitelist, fingerprint)
	viper.Set("tap.whitelist", c.Tap.Whitelist)
	return Save()
}

// RemoveTapKeyFromWhitelist removes an SSH key fingerprint from the tap whitelist
func RemoveTapKeyFromWhitelist(fingerprint string) error {
	c := Get()

	kept := make([]string, 0, len(c.Tap.Whitelist))
	for _, fp := range c.Tap.Whitelist {
		if fp != fingerprint {
			kept = append(kept, fp)
		}
	}
	if len(kept) == len(c.Tap.Whitelist) {
		return fmt.Errorf("key not found in whitelist")
	}

	c.Tap.Whitelist = kept
	viper.Set("tap.whitelist", c.Tap.Whitelist)
	return Save()
}

// IsTapKeyWhitelisted checks if an SSH key fingerprint may open a tap session
func IsTapKeyWhitelisted(fingerprint string) bool {
	for _, fp := range Get().Tap.Whitelist {
		if fp == fingerprint {
			return true
		}
	}
	return false
}

// ExpandPath expands a leading ~/ to the home directory of the invoking user
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	// Under sudo, use the home of the user who ran it
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return filepath.Join(u.HomeDir, path[2:])
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[2:])
}
