package keymap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Sym is an X11 keysym value
type Sym uint32

const (
	SymNone Sym = 0

	SymBackSpace  Sym = 0xff08
	SymTab        Sym = 0xff09
	SymReturn     Sym = 0xff0d
	SymPause      Sym = 0xff13
	SymScrollLock Sym = 0xff14
	SymEscape     Sym = 0xff1b
	SymHome       Sym = 0xff50
	SymLeft       Sym = 0xff51
	SymUp         Sym = 0xff52
	SymRight      Sym = 0xff53
	SymDown       Sym = 0xff54
	SymPrior      Sym = 0xff55
	SymNext       Sym = 0xff56
	SymEnd        Sym = 0xff57
	SymPrint      Sym = 0xff61
	SymInsert     Sym = 0xff63
	SymMenu       Sym = 0xff67
	SymNumLock    Sym = 0xff7f
	SymKPEnter    Sym = 0xff8d
	SymKPHome     Sym = 0xff95
	SymKPLeft     Sym = 0xff96
	SymKPUp       Sym = 0xff97
	SymKPRight    Sym = 0xff98
	SymKPDown     Sym = 0xff99
	SymKPPrior    Sym = 0xff9a
	SymKPNext     Sym = 0xff9b
	SymKPEnd      Sym = 0xff9c
	SymKPBegin    Sym = 0xff9d
	SymKPInsert   Sym = 0xff9e
	SymKPDelete   Sym = 0xff9f
	SymKPMultiply Sym = 0xffaa
	SymKPAdd      Sym = 0xffab
	SymKPSubtract Sym = 0xffad
	SymKPDecimal  Sym = 0xffae
	SymKPDivide   Sym = 0xffaf
	SymKP0        Sym = 0xffb0
	SymKP9        Sym = 0xffb9
	SymF1         Sym = 0xffbe
	SymF12        Sym = 0xffc9
	SymShiftL     Sym = 0xffe1
	SymShiftR     Sym = 0xffe2
	SymControlL   Sym = 0xffe3
	SymControlR   Sym = 0xffe4
	SymCapsLock   Sym = 0xffe5
	SymShiftLock  Sym = 0xffe6
	SymMetaL      Sym = 0xffe7
	SymMetaR      Sym = 0xffe8
	SymAltL       Sym = 0xffe9
	SymAltR       Sym = 0xffea
	SymSuperL     Sym = 0xffeb
	SymSuperR     Sym = 0xffec
	SymHyperL     Sym = 0xffed
	SymHyperR     Sym = 0xffee
	SymDelete     Sym = 0xffff

	SymISOLeftTab   Sym = 0xfe20
	SymISOLevel3    Sym = 0xfe03
	SymModeSwitch   Sym = 0xff7e
	unicodeSymStart Sym = 0x01000100
	unicodeSymEnd   Sym = 0x0110ffff
)

var (
	namedSyms = buildNamedSyms()
	symToName = buildSymNames(namedSyms)
)

// baseSyms holds the names that are not generated from a range
var baseSyms = map[string]Sym{
	"NoSymbol":         SymNone,
	"VoidSymbol":       0xffffff,
	"BackSpace":        SymBackSpace,
	"Tab":              SymTab,
	"Return":           SymReturn,
	"Pause":            SymPause,
	"Scroll_Lock":      SymScrollLock,
	"Escape":           SymEscape,
	"Home":             SymHome,
	"Left":             SymLeft,
	"Up":               SymUp,
	"Right":            SymRight,
	"Down":             SymDown,
	"Prior":            SymPrior,
	"Page_Up":          SymPrior,
	"Next":             SymNext,
	"Page_Down":        SymNext,
	"End":              SymEnd,
	"Print":            SymPrint,
	"Insert":           SymInsert,
	"Menu":             SymMenu,
	"Num_Lock":         SymNumLock,
	"KP_Enter":         SymKPEnter,
	"KP_Home":          SymKPHome,
	"KP_Left":          SymKPLeft,
	"KP_Up":            SymKPUp,
	"KP_Right":         SymKPRight,
	"KP_Down":          SymKPDown,
	"KP_Prior":         SymKPPrior,
	"KP_Page_Up":       SymKPPrior,
	"KP_Next":          SymKPNext,
	"KP_Page_Down":     SymKPNext,
	"KP_End":           SymKPEnd,
	"KP_Begin":         SymKPBegin,
	"KP_Insert":        SymKPInsert,
	"KP_Delete":        SymKPDelete,
	"KP_Equal":         0xffbd,
	"KP_Multiply":      SymKPMultiply,
	"KP_Add":           SymKPAdd,
	"KP_Separator":     0xffac,
	"KP_Subtract":      SymKPSubtract,
	"KP_Decimal":       SymKPDecimal,
	"KP_Divide":        SymKPDivide,
	"Shift_L":          SymShiftL,
	"Shift_R":          SymShiftR,
	"Control_L":        SymControlL,
	"Control_R":        SymControlR,
	"Caps_Lock":        SymCapsLock,
	"Shift_Lock":       SymShiftLock,
	"Meta_L":           SymMetaL,
	"Meta_R":           SymMetaR,
	"Alt_L":            SymAltL,
	"Alt_R":            SymAltR,
	"Super_L":          SymSuperL,
	"Super_R":          SymSuperR,
	"Hyper_L":          SymHyperL,
	"Hyper_R":          SymHyperR,
	"Delete":           SymDelete,
	"ISO_Left_Tab":     SymISOLeftTab,
	"ISO_Level3_Shift": SymISOLevel3,
	"Mode_switch":      SymModeSwitch,

	"space":        0x20,
	"exclam":       0x21,
	"quotedbl":     0x22,
	"numbersign":   0x23,
	"dollar":       0x24,
	"percent":      0x25,
	"ampersand":    0x26,
	"apostrophe":   0x27,
	"parenleft":    0x28,
	"parenright":   0x29,
	"asterisk":     0x2a,
	"plus":         0x2b,
	"comma":        0x2c,
	"minus":        0x2d,
	"period":       0x2e,
	"slash":        0x2f,
	"colon":        0x3a,
	"semicolon":    0x3b,
	"less":         0x3c,
	"equal":        0x3d,
	"greater":      0x3e,
	"question":     0x3f,
	"at":           0x40,
	"bracketleft":  0x5b,
	"backslash":    0x5c,
	"bracketright": 0x5d,
	"asciicircum":  0x5e,
	"underscore":   0x5f,
	"grave":        0x60,
	"braceleft":    0x7b,
	"bar":          0x7c,
	"braceright":   0x7d,
	"asciitilde":   0x7e,

	"nobreakspace": 0xa0,
	"sterling":     0xa3,
	"currency":     0xa4,
	"section":      0xa7,
	"diaeresis":    0xa8,
	"degree":       0xb0,
	"twosuperior":  0xb2,
	"mu":           0xb5,
	"agrave":       0xe0,
	"ccedilla":     0xe7,
	"egrave":       0xe8,
	"eacute":       0xe9,
	"ugrave":       0xf9,
	"Agrave":       0xc0,
	"Ccedilla":     0xc7,
	"Egrave":       0xc8,
	"Eacute":       0xc9,
	"Ugrave":       0xd9,
	"ssharp":       0xdf,
	"adiaeresis":   0xe4,
	"odiaeresis":   0xf6,
	"udiaeresis":   0xfc,
	"Adiaeresis":   0xc4,
	"Odiaeresis":   0xd6,
	"Udiaeresis":   0xdc,
	"EuroSign":     0x20ac,
}

func buildNamedSyms() map[string]Sym {
	named := make(map[string]Sym, len(baseSyms)+96)
	for name, sym := range baseSyms {
		named[name] = sym
	}
	for r := 'a'; r <= 'z'; r++ {
		named[string(r)] = Sym(r)
		named[string(unicode.ToUpper(r))] = Sym(unicode.ToUpper(r))
	}
	for r := '0'; r <= '9'; r++ {
		named[string(r)] = Sym(r)
		named["KP_"+string(r)] = SymKP0 + Sym(r-'0')
	}
	for i := 1; i <= 24; i++ {
		named[fmt.Sprintf("F%d", i)] = SymF1 + Sym(i-1)
	}
	return named
}

func buildSymNames(named map[string]Sym) map[Sym]string {
	names := make(map[Sym]string, len(named))
	for name, sym := range named {
		prev, ok := names[sym]
		// keep the canonical spelling when aliases share a value
		if !ok || len(name) < len(prev) || (len(name) == len(prev) && name < prev) {
			names[sym] = name
		}
	}
	return names
}

// LookupSym resolves a keysym name as written in XKB symbol files. Unicode
// forms ("U20AC") and hex literals ("0x1008ff13") are accepted.
func LookupSym(name string) (Sym, bool) {
	name = strings.TrimSpace(name)
	if sym, ok := namedSyms[name]; ok {
		return sym, true
	}
	if len(name) > 1 && (name[0] == 'U' || name[0] == 'u') {
		if cp, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return unicodeSym(rune(cp)), true
		}
	}
	if strings.HasPrefix(name, "0x") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return Sym(v), true
		}
	}
	return SymNone, false
}

func unicodeSym(r rune) Sym {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return Sym(r)
	}
	return Sym(r) | 0x01000000
}

// String returns the keysym name, or its Unicode/hex form
func (s Sym) String() string {
	if name, ok := symToName[s]; ok {
		return name
	}
	if s >= unicodeSymStart && s <= unicodeSymEnd {
		return fmt.Sprintf("U%04X", uint32(s-0x01000000))
	}
	return fmt.Sprintf("0x%x", uint32(s))
}

// Rune returns the character produced by s, if any
func (s Sym) Rune() (rune, bool) {
	switch {
	case (s >= 0x20 && s <= 0x7e) || (s >= 0xa0 && s <= 0xff):
		return rune(s), true
	case s >= unicodeSymStart && s <= unicodeSymEnd:
		return rune(s - 0x01000000), true
	case s >= SymKP0 && s <= SymKP9:
		return '0' + rune(s-SymKP0), true
	}
	switch s {
	case SymReturn, SymKPEnter:
		return '\r', true
	case SymTab, SymISOLeftTab:
		return '\t', true
	case SymBackSpace:
		return '\b', true
	case SymEscape:
		return 0x1b, true
	case SymDelete:
		return 0x7f, true
	case SymKPMultiply:
		return '*', true
	case SymKPAdd:
		return '+', true
	case SymKPSubtract:
		return '-', true
	case SymKPDecimal:
		return '.', true
	case SymKPDivide:
		return '/', true
	}
	return 0, false
}

// IsModifier reports whether s is a modifier key
func (s Sym) IsModifier() bool {
	switch s {
	case SymShiftL, SymShiftR, SymControlL, SymControlR, SymCapsLock, SymShiftLock,
		SymMetaL, SymMetaR, SymAltL, SymAltR, SymSuperL, SymSuperR, SymHyperL, SymHyperR,
		SymNumLock, SymISOLevel3, SymModeSwitch:
		return true
	}
	return false
}

func (s Sym) isKeypad() bool {
	return s >= SymKPHome && s <= 0xffbd
}

// caseVariants returns the lower and upper forms of a cased letter keysym
func caseVariants(s Sym) (lower, upper Sym, cased bool) {
	r, ok := s.Rune()
	if !ok || r < 0x20 {
		return s, s, false
	}
	lr, ur := unicode.ToLower(r), unicode.ToUpper(r)
	if lr == ur {
		return s, s, false
	}
	return unicodeSym(lr), unicodeSym(ur), true
}
