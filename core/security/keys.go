package security

import "strings"

// KeyPress is a keyboard signal reported by the client.
type KeyPress struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
}

func (k KeyPress) String() string {
	var b strings.Builder
	if k.Ctrl {
		b.WriteString("Ctrl+")
	}
	if k.Alt {
		b.WriteString("Alt+")
	}
	if k.Shift {
		b.WriteString("Shift+")
	}
	b.WriteString(k.Key)
	return b.String()
}

type keyCombo struct {
	ctrl  bool
	alt   bool
	shift bool
	key   string
}

// prohibitedKeys are the combinations suppressed during a session:
// clipboard, view-source, find/history/address-bar shortcuts, new/close
// tab, reload, and the devtools escapes.
var prohibitedKeys = []keyCombo{
	{ctrl: true, key: "c"},
	{ctrl: true, key: "v"},
	{ctrl: true, key: "u"},
	{ctrl: true, key: "i"},
	{ctrl: true, key: "s"},
	{ctrl: true, key: "a"},
	{ctrl: true, key: "f"},
	{ctrl: true, key: "h"},
	{ctrl: true, key: "j"},
	{ctrl: true, key: "k"},
	{ctrl: true, key: "l"},
	{ctrl: true, key: "n"},
	{ctrl: true, key: "r"},
	{ctrl: true, key: "t"},
	{ctrl: true, key: "w"},
	{key: "F12"},
	{alt: true, key: "Tab"},
	{ctrl: true, shift: true, key: "I"},
	{ctrl: true, shift: true, key: "J"},
	{ctrl: true, shift: true, key: "C"},
}

// IsProhibited reports whether the key press matches a prohibited
// combination. The key name comparison is case-insensitive; modifiers not
// named by a combination may still be held.
func IsProhibited(k KeyPress) bool {
	for _, combo := range prohibitedKeys {
		if combo.ctrl && !k.Ctrl {
			continue
		}
		if combo.alt && !k.Alt {
			continue
		}
		if combo.shift && !k.Shift {
			continue
		}
		if strings.EqualFold(combo.key, k.Key) {
			return true
		}
	}
	return false
}
