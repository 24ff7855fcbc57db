package seat

import (
	"errors"

	"github.com/bnema/wlseat/internal/keymap"
)

// Protocol anomalies. None of them is fatal: handlers return them so the caller can
// log and move on, and device state is left consistent.
var (
	// ErrInvalidKeymap means a keymap was rejected and the previous or built-in one is in use
	ErrInvalidKeymap = keymap.ErrInvalidKeymap
	// ErrStaleSerial is returned for requests citing a serial older than the last enter
	ErrStaleSerial = errors.New("stale serial")
	// ErrUnknownTouchID is returned for up/motion events naming a point that is not active
	ErrUnknownTouchID = errors.New("unknown touch id")
	// ErrDuplicateRelease is returned when a button is released that was not pressed
	ErrDuplicateRelease = errors.New("button released twice")
	// ErrCapabilityMismatch is returned for messages addressed to a device the seat does not have
	ErrCapabilityMismatch = errors.New("capability not advertised")
	// ErrUnknownWindow is returned when a message references a window the registry does not know
	ErrUnknownWindow = errors.New("unknown window")
	// ErrFocusConflict is returned when a touch down targets a window other than the touch focus
	ErrFocusConflict = errors.New("touch focus held by another window")
)
