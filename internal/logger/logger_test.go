package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"INFO":    log.InfoLevel,
		"warning": log.WarnLevel,
		" error ": log.ErrorLevel,
		"":        log.InfoLevel,
		"bogus":   log.InfoLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), "level %q", name)
	}
}

func TestForPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger
	defer func() { Logger = orig }()

	Logger = log.New(&buf)
	For("seat").Info("capabilities changed")

	assert.True(t, strings.Contains(buf.String(), "seat"), "output %q", buf.String())
}

func TestEnableFileLogging(t *testing.T) {
	orig := Logger
	defer func() { Logger = orig }()
	Logger = log.New(&bytes.Buffer{})

	path := filepath.Join(t.TempDir(), "state", "wlseat.log")
	closer, err := EnableFileLogging(path)
	require.NoError(t, err)
	defer closer.Close()

	assert.FileExists(t, path)
}
