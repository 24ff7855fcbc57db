package keymap

// Real modifier indices as used in wl_keyboard.modifiers masks
const (
	modIndexShift   = 0
	modIndexLock    = 1
	modIndexControl = 2
	modIndexMod1    = 3
	modIndexMod2    = 4
	modIndexMod4    = 6
)

var realModIndex = map[string]uint32{
	"Shift":   0,
	"Lock":    1,
	"Control": 2,
	"Mod1":    3,
	"Mod2":    4,
	"Mod3":    5,
	"Mod4":    6,
	"Mod5":    7,
}

type keyEntry struct {
	groups  [][]Sym
	repeats bool
}

// table is the keymap representation shared by the built-in fallback and parsed XKB maps
type table struct {
	name   string
	keys   map[uint32]*keyEntry
	groups int

	altMask  uint32
	metaMask uint32
	numMask  uint32
}

func newTable(name string) *table {
	return &table{
		name:     name,
		keys:     make(map[uint32]*keyEntry),
		groups:   1,
		altMask:  1 << modIndexMod1,
		metaMask: 1 << modIndexMod4,
		numMask:  1 << modIndexMod2,
	}
}

func (t *table) Name() string { return t.name }

func (t *table) NumGroups() int { return t.groups }

func (t *table) Modifiers(st State) Modifiers {
	mask := st.Effective()
	var m Modifiers
	if mask&(1<<modIndexShift) != 0 {
		m |= ModShift
	}
	if mask&(1<<modIndexLock) != 0 {
		m |= ModCapsLock
	}
	if mask&(1<<modIndexControl) != 0 {
		m |= ModCtrl
	}
	if mask&t.altMask != 0 {
		m |= ModAlt
	}
	if mask&t.metaMask != 0 {
		m |= ModMeta
	}
	if mask&t.numMask != 0 {
		m |= ModNumLock
	}
	return m
}

func (t *table) Repeats(code uint32) bool {
	k, ok := t.keys[code]
	if !ok {
		return false
	}
	return k.repeats
}

func (t *table) Lookup(code uint32, st State) (Sym, string) {
	k, ok := t.keys[code]
	if !ok || len(k.groups) == 0 {
		return SymNone, ""
	}

	group := int(ClampGroup(t, st.Group))
	if group >= len(k.groups) {
		group = 0
	}
	levels := k.groups[group]
	if len(levels) == 0 {
		return SymNone, ""
	}

	mods := t.Modifiers(st)
	base := levels[0]
	_, _, cased := caseVariants(base)

	level := 0
	if mods&ModShift != 0 {
		level = 1
	}
	switch {
	case cased && mods&ModCapsLock != 0:
		level ^= 1
	case base.isKeypad() && len(levels) > 1 && mods&ModNumLock != 0:
		level ^= 1
	}

	var sym Sym
	if level < len(levels) && levels[level] != SymNone {
		sym = levels[level]
	} else {
		sym = base
		if level == 1 && cased {
			_, sym, _ = caseVariants(base)
		}
	}

	return sym, symText(sym, mods)
}

func symText(sym Sym, mods Modifiers) string {
	r, ok := sym.Rune()
	if !ok {
		return ""
	}
	if mods&ModCtrl != 0 {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r >= '@' && r < 0x7f {
			r &= 0x1f
		}
	}
	return string(r)
}

func (t *table) set(code uint32, groups [][]Sym, repeats bool) {
	t.keys[code] = &keyEntry{groups: groups, repeats: repeats}
	if len(groups) > t.groups {
		t.groups = len(groups)
	}
}
