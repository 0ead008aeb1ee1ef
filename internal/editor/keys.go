package editor

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// action is a named editor command with its shortcuts and status bar label.
type action struct {
	name  string
	label string
	keys  []KeyShortcut
	run   func() bool
}

// letter returns the rune and key-code forms of a letter shortcut. Drivers
// differ in which of the two they fill in.
func letter(r rune, code key.Code, mods key.Modifiers) []KeyShortcut {
	return []KeyShortcut{{Rune: r, Modifiers: mods}, {Code: code, Modifiers: mods}}
}

func code(c key.Code) []KeyShortcut {
	return []KeyShortcut{{Code: c}}
}

// shortcutFor normalises a key event into the lookup forms tried in order.
func shortcutFor(e key.Event) []KeyShortcut {
	mods := e.Modifiers & key.ModControl
	var out []KeyShortcut
	if e.Rune > 0 && unicode.IsPrint(e.Rune) {
		out = append(out, KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: mods})
	}
	return append(out, KeyShortcut{Code: e.Code, Modifiers: mods})
}
