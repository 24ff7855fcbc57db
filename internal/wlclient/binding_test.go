package wlclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/bnema/wlseat/internal/seat"
)

func TestRejectLevel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want log.Level
	}{
		{name: "unknown touch id", err: fmt.Errorf("%w: up 5", seat.ErrUnknownTouchID), want: log.DebugLevel},
		{name: "capability mismatch", err: fmt.Errorf("%w: touch_down with caps keyboard", seat.ErrCapabilityMismatch), want: log.DebugLevel},
		{name: "stale serial", err: seat.ErrStaleSerial, want: log.DebugLevel},
		{name: "unrelated error", err: errors.New("boom"), want: log.DebugLevel},
		{name: "invalid keymap", err: fmt.Errorf("%w: unsupported format 2", seat.ErrInvalidKeymap), want: log.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rejectLevel(tt.err))
		})
	}
}
