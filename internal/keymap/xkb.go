package keymap

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// xkbKeycodeOffset is the distance between XKB keycodes and evdev codes
const xkbKeycodeOffset = 8

var (
	reKeycode      = regexp.MustCompile(`<([^>]+)>\s*=\s*(\d+)\s*;`)
	reAlias        = regexp.MustCompile(`alias\s+<([^>]+)>\s*=\s*<([^>]+)>\s*;`)
	reSymbolsKey   = regexp.MustCompile(`key\s+<([^>]+)>\s*\{([^}]*)\}\s*;`)
	reGroupSymbols = regexp.MustCompile(`symbols\[\s*[Gg]roup(\d+)\s*\]\s*=\s*\[([^\]]*)\]`)
	reGroupAttr    = regexp.MustCompile(`\w+\[\s*[Gg]roup\d+\s*\]\s*=\s*("[^"]*"|\[[^\]]*\]|[\w.]+)`)
	reBareList     = regexp.MustCompile(`\[([^\]]*)\]`)
	reRepeat       = regexp.MustCompile(`repeat\s*=\s*(\w+)`)
	reGroupName    = regexp.MustCompile(`name\[\s*[Gg]roup(\d+)\s*\]\s*=\s*"([^"]*)"`)
	reModMap       = regexp.MustCompile(`modifier_map\s+(\w+)\s*\{([^}]*)\}\s*;`)
	reModMapEntry  = regexp.MustCompile(`<([^>]+)>|([A-Za-z_][\w]*)`)
)

// ParseXKB parses an XKB v1 text keymap as shared by the compositor.
//
// Only the parts needed for translation are interpreted: keycodes, symbols and
// modifier_map. Types, compat and actions are skipped; shift selects the second
// level and Caps/Num Lock flip it for letters and keypad keys.
func ParseXKB(data []byte) (Keymap, error) {
	data = bytes.TrimRight(data, "\x00")
	text := stripComments(string(data))

	body, ok := section(text, "xkb_keymap")
	if !ok {
		return nil, errors.New("missing xkb_keymap block")
	}
	keycodesBody, ok := section(body, "xkb_keycodes")
	if !ok {
		return nil, errors.New("missing xkb_keycodes section")
	}
	symbolsBody, ok := section(body, "xkb_symbols")
	if !ok {
		return nil, errors.New("missing xkb_symbols section")
	}

	codes := make(map[string]uint32)
	for _, m := range reKeycode.FindAllStringSubmatch(keycodesBody, -1) {
		v, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("keycode <%s>: %w", m[1], err)
		}
		codes[m[1]] = uint32(v)
	}
	for _, m := range reAlias.FindAllStringSubmatch(keycodesBody, -1) {
		if v, ok := codes[m[2]]; ok {
			codes[m[1]] = v
		}
	}

	t := newTable("xkb")
	for _, m := range reGroupName.FindAllStringSubmatch(symbolsBody, -1) {
		if m[1] == "1" && m[2] != "" {
			t.name = m[2]
		}
	}

	for _, m := range reSymbolsKey.FindAllStringSubmatch(symbolsBody, -1) {
		code, ok := codes[m[1]]
		if !ok || code < xkbKeycodeOffset {
			continue
		}
		groups := parseKeyGroups(m[2])
		if len(groups) == 0 {
			continue
		}
		repeats := !groups[0][0].IsModifier()
		if rm := reRepeat.FindStringSubmatch(m[2]); rm != nil {
			repeats = parseBool(rm[1], repeats)
		}
		t.set(code-xkbKeycodeOffset, groups, repeats)
	}
	if len(t.keys) == 0 {
		return nil, errors.New("keymap defines no keys")
	}

	applyModifierMap(t, symbolsBody, codes)

	return t, nil
}

func parseKeyGroups(body string) [][]Sym {
	var groups [][]Sym

	explicit := reGroupSymbols.FindAllStringSubmatch(body, -1)
	if len(explicit) > 0 {
		for _, m := range explicit {
			idx, err := strconv.Atoi(m[1])
			if err != nil || idx < 1 {
				continue
			}
			for len(groups) < idx {
				groups = append(groups, nil)
			}
			groups[idx-1] = parseLevels(m[2])
		}
	} else {
		rest := reGroupAttr.ReplaceAllString(body, "")
		for _, m := range reBareList.FindAllStringSubmatch(rest, -1) {
			groups = append(groups, parseLevels(m[1]))
		}
	}

	// drop trailing empty groups; leading gaps fall back to the first defined group
	for len(groups) > 0 && len(groups[len(groups)-1]) == 0 {
		groups = groups[:len(groups)-1]
	}
	if len(groups) == 0 {
		return nil
	}
	if len(groups[0]) == 0 {
		for _, g := range groups {
			if len(g) > 0 {
				groups[0] = g
				break
			}
		}
	}
	for i := range groups {
		if len(groups[i]) == 0 {
			groups[i] = groups[0]
		}
	}
	return groups
}

func parseLevels(list string) []Sym {
	var levels []Sym
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		sym, _ := LookupSym(name)
		levels = append(levels, sym)
	}
	if allNone(levels) {
		return nil
	}
	return levels
}

func allNone(levels []Sym) bool {
	for _, s := range levels {
		if s != SymNone {
			return false
		}
	}
	return true
}

// applyModifierMap binds Alt, Meta and NumLock to whatever real modifiers the keymap maps them to
func applyModifierMap(t *table, body string, codes map[string]uint32) {
	symbolMasks := map[Sym]uint32{}
	keyMasks := map[uint32]uint32{}

	for _, m := range reModMap.FindAllStringSubmatch(body, -1) {
		idx, ok := realModIndex[m[1]]
		if !ok {
			continue
		}
		bit := uint32(1) << idx
		for _, e := range reModMapEntry.FindAllStringSubmatch(m[2], -1) {
			if e[1] != "" {
				if code, ok := codes[e[1]]; ok && code >= xkbKeycodeOffset {
					keyMasks[code-xkbKeycodeOffset] |= bit
				}
				continue
			}
			if sym, ok := LookupSym(e[2]); ok {
				symbolMasks[sym] |= bit
			}
		}
	}
	if len(symbolMasks) == 0 && len(keyMasks) == 0 {
		return
	}

	for code, k := range t.keys {
		for _, sym := range k.groups[0] {
			symbolMasks[sym] |= keyMasks[code]
		}
	}

	pick := func(fallback uint32, syms ...Sym) uint32 {
		var mask uint32
		for _, s := range syms {
			mask |= symbolMasks[s]
		}
		if mask == 0 {
			return fallback
		}
		return mask
	}
	t.altMask = pick(t.altMask, SymAltL, SymAltR, SymMetaL, SymMetaR)
	t.metaMask = pick(t.metaMask, SymSuperL, SymSuperR)
	t.numMask = pick(t.numMask, SymNumLock)

	// Alt and Meta share Mod1 in most layouts, keep Meta on Super only
	if t.metaMask&t.altMask != 0 {
		if super := symbolMasks[SymSuperL] | symbolMasks[SymSuperR]; super != 0 {
			t.metaMask = super
		}
	}
}

// section returns the brace-delimited body following the named keyword
func section(text, keyword string) (string, bool) {
	idx := strings.Index(text, keyword)
	if idx < 0 {
		return "", false
	}
	open := strings.IndexByte(text[idx:], '{')
	if open < 0 {
		return "", false
	}
	start := idx + open + 1
	depth := 1
	inString := false
	for i := start; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start:i], true
			}
		}
	}
	return "", false
}

func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, line := range strings.Split(text, "\n") {
		if i := commentStart(line); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func commentStart(line string) int {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return i
			}
		case '#':
			if !inString {
				return i
			}
		}
	}
	return -1
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "yes", "true", "on":
		return true
	case "no", "false", "off":
		return false
	}
	return def
}
