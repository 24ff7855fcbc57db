package keymap

import (
	evdev "github.com/gvalkov/golang-evdev"
)

// Default returns the built-in US layout used until the compositor sends a keymap,
// or when the one it sent cannot be parsed.
func Default() Keymap {
	return defaultTable
}

var defaultTable = buildDefault()

func buildDefault() *table {
	t := newTable("us (built-in)")

	row := func(code int, names ...string) {
		levels := make([]Sym, 0, len(names))
		for _, n := range names {
			sym, _ := LookupSym(n)
			levels = append(levels, sym)
		}
		t.set(uint32(code), [][]Sym{levels}, !levels[0].IsModifier())
	}

	row(evdev.KEY_ESC, "Escape")
	row(evdev.KEY_1, "1", "exclam")
	row(evdev.KEY_2, "2", "at")
	row(evdev.KEY_3, "3", "numbersign")
	row(evdev.KEY_4, "4", "dollar")
	row(evdev.KEY_5, "5", "percent")
	row(evdev.KEY_6, "6", "asciicircum")
	row(evdev.KEY_7, "7", "ampersand")
	row(evdev.KEY_8, "8", "asterisk")
	row(evdev.KEY_9, "9", "parenleft")
	row(evdev.KEY_0, "0", "parenright")
	row(evdev.KEY_MINUS, "minus", "underscore")
	row(evdev.KEY_EQUAL, "equal", "plus")
	row(evdev.KEY_BACKSPACE, "BackSpace")
	row(evdev.KEY_TAB, "Tab", "ISO_Left_Tab")

	letters := []struct {
		code int
		name string
	}{
		{evdev.KEY_Q, "q"}, {evdev.KEY_W, "w"}, {evdev.KEY_E, "e"}, {evdev.KEY_R, "r"},
		{evdev.KEY_T, "t"}, {evdev.KEY_Y, "y"}, {evdev.KEY_U, "u"}, {evdev.KEY_I, "i"},
		{evdev.KEY_O, "o"}, {evdev.KEY_P, "p"}, {evdev.KEY_A, "a"}, {evdev.KEY_S, "s"},
		{evdev.KEY_D, "d"}, {evdev.KEY_F, "f"}, {evdev.KEY_G, "g"}, {evdev.KEY_H, "h"},
		{evdev.KEY_J, "j"}, {evdev.KEY_K, "k"}, {evdev.KEY_L, "l"}, {evdev.KEY_Z, "z"},
		{evdev.KEY_X, "x"}, {evdev.KEY_C, "c"}, {evdev.KEY_V, "v"}, {evdev.KEY_B, "b"},
		{evdev.KEY_N, "n"}, {evdev.KEY_M, "m"},
	}
	for _, l := range letters {
		row(l.code, l.name, string(rune(l.name[0]-'a'+'A')))
	}

	row(evdev.KEY_LEFTBRACE, "bracketleft", "braceleft")
	row(evdev.KEY_RIGHTBRACE, "bracketright", "braceright")
	row(evdev.KEY_ENTER, "Return")
	row(evdev.KEY_LEFTCTRL, "Control_L")
	row(evdev.KEY_SEMICOLON, "semicolon", "colon")
	row(evdev.KEY_APOSTROPHE, "apostrophe", "quotedbl")
	row(evdev.KEY_GRAVE, "grave", "asciitilde")
	row(evdev.KEY_LEFTSHIFT, "Shift_L")
	row(evdev.KEY_BACKSLASH, "backslash", "bar")
	row(evdev.KEY_COMMA, "comma", "less")
	row(evdev.KEY_DOT, "period", "greater")
	row(evdev.KEY_SLASH, "slash", "question")
	row(evdev.KEY_RIGHTSHIFT, "Shift_R")
	row(evdev.KEY_KPASTERISK, "KP_Multiply")
	row(evdev.KEY_LEFTALT, "Alt_L")
	row(evdev.KEY_SPACE, "space")
	row(evdev.KEY_CAPSLOCK, "Caps_Lock")
	row(evdev.KEY_F1, "F1")
	row(evdev.KEY_F2, "F2")
	row(evdev.KEY_F3, "F3")
	row(evdev.KEY_F4, "F4")
	row(evdev.KEY_F5, "F5")
	row(evdev.KEY_F6, "F6")
	row(evdev.KEY_F7, "F7")
	row(evdev.KEY_F8, "F8")
	row(evdev.KEY_F9, "F9")
	row(evdev.KEY_F10, "F10")
	row(evdev.KEY_NUMLOCK, "Num_Lock")
	row(evdev.KEY_SCROLLLOCK, "Scroll_Lock")
	row(evdev.KEY_KP7, "KP_Home", "KP_7")
	row(evdev.KEY_KP8, "KP_Up", "KP_8")
	row(evdev.KEY_KP9, "KP_Prior", "KP_9")
	row(evdev.KEY_KPMINUS, "KP_Subtract")
	row(evdev.KEY_KP4, "KP_Left", "KP_4")
	row(evdev.KEY_KP5, "KP_Begin", "KP_5")
	row(evdev.KEY_KP6, "KP_Right", "KP_6")
	row(evdev.KEY_KPPLUS, "KP_Add")
	row(evdev.KEY_KP1, "KP_End", "KP_1")
	row(evdev.KEY_KP2, "KP_Down", "KP_2")
	row(evdev.KEY_KP3, "KP_Next", "KP_3")
	row(evdev.KEY_KP0, "KP_Insert", "KP_0")
	row(evdev.KEY_KPDOT, "KP_Delete", "KP_Decimal")
	row(evdev.KEY_F11, "F11")
	row(evdev.KEY_F12, "F12")
	row(evdev.KEY_KPENTER, "KP_Enter")
	row(evdev.KEY_RIGHTCTRL, "Control_R")
	row(evdev.KEY_KPSLASH, "KP_Divide")
	row(evdev.KEY_SYSRQ, "Print")
	row(evdev.KEY_RIGHTALT, "Alt_R")
	row(evdev.KEY_HOME, "Home")
	row(evdev.KEY_UP, "Up")
	row(evdev.KEY_PAGEUP, "Prior")
	row(evdev.KEY_LEFT, "Left")
	row(evdev.KEY_RIGHT, "Right")
	row(evdev.KEY_END, "End")
	row(evdev.KEY_DOWN, "Down")
	row(evdev.KEY_PAGEDOWN, "Next")
	row(evdev.KEY_INSERT, "Insert")
	row(evdev.KEY_DELETE, "Delete")
	row(evdev.KEY_PAUSE, "Pause")
	row(evdev.KEY_LEFTMETA, "Super_L")
	row(evdev.KEY_RIGHTMETA, "Super_R")
	row(evdev.KEY_COMPOSE, "Menu")

	return t
}
