// Package keymap translates raw evdev key codes into keysyms and text.
//
// A Keymap is immutable once built. Replacing the keymap of a keyboard means building
// a new instance, so translation and key repeat can share one without locking.
package keymap

import (
	"errors"
	"fmt"
	"strings"
)

// Keymap formats as advertised by wl_keyboard.keymap
const (
	FormatNoKeymap uint32 = 0
	FormatXKBV1    uint32 = 1
)

var (
	// ErrInvalidKeymap is returned when a keymap cannot be used. Callers keep the
	// previous keymap or fall back to Default.
	ErrInvalidKeymap = errors.New("invalid keymap")
)

// State is the raw modifier state reported by wl_keyboard.modifiers
type State struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Effective returns the union of depressed, latched and locked modifiers
func (s State) Effective() uint32 {
	return s.Depressed | s.Latched | s.Locked
}

// Modifiers are the application-facing modifier flags
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
	ModCapsLock
	ModNumLock
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModShift, "shift"},
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModMeta, "meta"},
	{ModCapsLock, "caps"},
	{ModNumLock, "num"},
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "+")
}

// Keymap is the keycode translation collaborator used by the keyboard state machine
type Keymap interface {
	// Name identifies the layout, mostly for logging
	Name() string
	// Lookup returns the keysym and text produced by an evdev key code under st
	Lookup(code uint32, st State) (Sym, string)
	// Modifiers derives the application-facing flags from raw modifier masks
	Modifiers(st State) Modifiers
	// Repeats reports whether holding code should auto-repeat
	Repeats(code uint32) bool
	// NumGroups is the number of layout groups, always at least one
	NumGroups() int
}

// Load builds a keymap from the payload of a wl_keyboard.keymap event
func Load(format uint32, data []byte) (Keymap, error) {
	switch format {
	case FormatXKBV1:
		km, err := ParseXKB(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeymap, err)
		}
		return km, nil
	case FormatNoKeymap:
		return nil, fmt.Errorf("%w: compositor provided no keymap", ErrInvalidKeymap)
	default:
		return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidKeymap, format)
	}
}

// ClampGroup returns group limited to the groups km actually has
func ClampGroup(km Keymap, group uint32) uint32 {
	n := km.NumGroups()
	if n <= 0 {
		return 0
	}
	if group >= uint32(n) {
		return uint32(n - 1)
	}
	return group
}
