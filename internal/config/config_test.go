package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func useConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wlseat.toml")
	if contents != "" {
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	viper.Reset()
	SetConfigPath(path)
	t.Cleanup(func() {
		SetConfigPath("")
		Set(nil)
		viper.Reset()
	})
	return path
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		viper.Reset()
		oldWd, _ := os.Getwd()
		os.Chdir(t.TempDir())
		defer os.Chdir(oldWd)
		defer Set(nil)

		if err := Init(); err != nil {
			t.Errorf("Init() failed: %v", err)
		}

		config := Get()
		if config == nil {
			t.Fatal("Get() returned nil after Init()")
		}
		if config.Keyboard.RepeatRate != 25 {
			t.Errorf("Expected default repeat rate 25, got %d", config.Keyboard.RepeatRate)
		}
		if config.Keyboard.RepeatDelay() != 600*time.Millisecond {
			t.Errorf("Expected default repeat delay 600ms, got %v", config.Keyboard.RepeatDelay())
		}
		if !config.Tap.WhitelistOnly {
			t.Error("Expected tap whitelist-only by default")
		}
	})

	t.Run("reads overrides from file", func(t *testing.T) {
		useConfigFile(t, `[keyboard]
repeat_rate = 40
repeat_delay_ms = 250

[mirror]
enabled = true
`)
		if err := Init(); err != nil {
			t.Fatalf("Init() failed: %v", err)
		}

		c := Get()
		if c.Keyboard.RepeatRate != 40 {
			t.Errorf("Expected repeat rate 40, got %d", c.Keyboard.RepeatRate)
		}
		if c.Keyboard.RepeatDelayMs != 250 {
			t.Errorf("Expected repeat delay 250, got %d", c.Keyboard.RepeatDelayMs)
		}
		if !c.Mirror.Enabled {
			t.Error("Expected mirror to be enabled")
		}
		if c.Mirror.Device != "/dev/uinput" {
			t.Errorf("Expected default mirror device, got %s", c.Mirror.Device)
		}
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		useConfigFile(t, `[keyboard
repeat_rate = 25`)

		err := Init()
		if err == nil {
			t.Fatal("Expected error for invalid TOML")
		}
		if !strings.Contains(err.Error(), "error reading config file") {
			t.Errorf("Expected read error, got: %v", err)
		}
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		path := useConfigFile(t, "")
		if got := GetConfigPath(); got != path {
			t.Errorf("Expected %s, got %s", path, got)
		}
	})

	t.Run("falls back to xdg config home", func(t *testing.T) {
		viper.Reset()
		SetConfigPath("")
		got := GetConfigPath()
		if !strings.HasSuffix(got, filepath.Join("wlseat", "wlseat.toml")) {
			t.Errorf("Unexpected default path %s", got)
		}
	})
}

func TestSaveAndWhitelist(t *testing.T) {
	path := useConfigFile(t, "")
	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	if err := AddTapKeyToWhitelist("SHA256:abc"); err != nil {
		t.Fatalf("AddTapKeyToWhitelist failed: %v", err)
	}
	if err := AddTapKeyToWhitelist("SHA256:abc"); err == nil {
		t.Error("Expected duplicate whitelist entry to fail")
	}
	if !IsTapKeyWhitelisted("SHA256:abc") {
		t.Error("Expected key to be whitelisted")
	}
	if IsTapKeyWhitelisted("SHA256:other") {
		t.Error("Unexpected whitelisted key")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if !strings.Contains(string(data), "SHA256:abc") {
		t.Errorf("saved config missing fingerprint: %s", data)
	}

	if err := RemoveTapKeyFromWhitelist("SHA256:abc"); err != nil {
		t.Fatalf("RemoveTapKeyFromWhitelist failed: %v", err)
	}
	if IsTapKeyWhitelisted("SHA256:abc") {
		t.Error("Expected key to be removed")
	}
	if err := RemoveTapKeyFromWhitelist("SHA256:abc"); err == nil {
		t.Error("Expected removing an unknown key to fail")
	}
}

func TestUpdate(t *testing.T) {
	useConfigFile(t, "")
	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	c := *Get()
	c.Keyboard.RepeatRate = 0
	c.Pointer.Cursor = ""
	if err := Update(&c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	viper.Reset()
	if err := Init(); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	if Get().Keyboard.RepeatRate != 0 {
		t.Errorf("Expected persisted repeat rate 0, got %d", Get().Keyboard.RepeatRate)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{in: "~/keys/host", want: filepath.Join(home, "keys", "host")},
		{in: "/etc/wlseat/host", want: "/etc/wlseat/host"},
		{in: "relative/~/path", want: "relative/~/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
