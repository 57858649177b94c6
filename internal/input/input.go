// Package input defines the logical keyboard surface polled once per frame.
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a logical key, independent of any windowing backend.
type Key uint8

const (
	KeyNone Key = iota

	CameraForward
	CameraBack
	CameraLeft
	CameraRight
	CameraUp
	CameraDown

	SelectRongeur
	SelectTube
	SelectEndoscope

	PosXPlus
	PosXMinus
	PosYPlus
	PosYMinus
	PosZPlus
	PosZMinus
	RotXPlus
	RotXMinus
	RotYPlus
	RotYMinus
	RotZPlus
	RotZMinus

	AnimationLow
	AnimationHigh

	TargetXPlus
	TargetXMinus
	TargetYPlus
	TargetYMinus
	TargetZPlus
	TargetZMinus

	Insert
	Withdraw

	keyCount
)

var keyNames = [keyCount]string{
	KeyNone:         "none",
	CameraForward:   "camera.forward",
	CameraBack:      "camera.back",
	CameraLeft:      "camera.left",
	CameraRight:     "camera.right",
	CameraUp:        "camera.up",
	CameraDown:      "camera.down",
	SelectRongeur:   "select.rongeur",
	SelectTube:      "select.tube",
	SelectEndoscope: "select.endoscope",
	PosXPlus:        "position.x+",
	PosXMinus:       "position.x-",
	PosYPlus:        "position.y+",
	PosYMinus:       "position.y-",
	PosZPlus:        "position.z+",
	PosZMinus:       "position.z-",
	RotXPlus:        "rotation.x+",
	RotXMinus:       "rotation.x-",
	RotYPlus:        "rotation.y+",
	RotYMinus:       "rotation.y-",
	RotZPlus:        "rotation.z+",
	RotZMinus:       "rotation.z-",
	AnimationLow:    "animation.low",
	AnimationHigh:   "animation.high",
	TargetXPlus:     "target.x+",
	TargetXMinus:    "target.x-",
	TargetYPlus:     "target.y+",
	TargetYMinus:    "target.y-",
	TargetZPlus:     "target.z+",
	TargetZMinus:    "target.z-",
	Insert:          "insert",
	Withdraw:        "withdraw",
}

func (k Key) String() string {
	if k >= keyCount {
		return fmt.Sprintf("key(%d)", uint8(k))
	}
	return keyNames[k]
}

// ParseKey resolves a logical key name such as "position.x+".
func ParseKey(name string) (Key, error) {
	for k := KeyNone + 1; k < keyCount; k++ {
		if keyNames[k] == name {
			return k, nil
		}
	}
	return KeyNone, fmt.Errorf("unknown key %q", name)
}

// Keys returns every logical key in declaration order.
func Keys() []Key {
	keys := make([]Key, 0, keyCount-1)
	for k := KeyNone + 1; k < keyCount; k++ {
		keys = append(keys, k)
	}
	return keys
}

// State is the set of logical keys held down during one frame.
type State uint64

// Of builds a state with the given keys pressed.
func Of(keys ...Key) State {
	var s State
	for _, k := range keys {
		s = s.With(k)
	}
	return s
}

// With returns s with k pressed.
func (s State) With(k Key) State {
	return s | 1<<k
}

// Pressed reports whether k is held.
func (s State) Pressed(k Key) bool {
	return s&(1<<k) != 0
}

// Empty reports whether no key is held.
func (s State) Empty() bool {
	return s == 0
}

func (s State) String() string {
	var names []string
	for _, k := range Keys() {
		if s.Pressed(k) {
			names = append(names, k.String())
		}
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Keymap binds logical keys to backend key names, e.g. PosXPlus -> "K".
type Keymap map[Key][]string

// DefaultKeymap returns the stock bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		CameraForward: {"W"},
		CameraBack:    {"S"},
		CameraLeft:    {"A"},
		CameraRight:   {"D"},
		CameraUp:      {"Q"},
		CameraDown:    {"E"},

		SelectRongeur:   {"Digit1"},
		SelectTube:      {"Digit2"},
		SelectEndoscope: {"Digit3"},

		PosXPlus:  {"K"},
		PosXMinus: {"I"},
		PosYPlus:  {"U"},
		PosYMinus: {"O"},
		PosZPlus:  {"L"},
		PosZMinus: {"J"},
		RotXPlus:  {"G"},
		RotXMinus: {"B"},
		RotYPlus:  {"N"},
		RotYMinus: {"V"},
		RotZPlus:  {"F"},
		RotZMinus: {"H"},

		AnimationLow:  {"Z"},
		AnimationHigh: {"X"},

		TargetXPlus:  {"ArrowRight"},
		TargetXMinus: {"ArrowLeft"},
		TargetYPlus:  {"ArrowUp"},
		TargetYMinus: {"ArrowDown"},
		TargetZPlus:  {"PageUp"},
		TargetZMinus: {"PageDown"},

		Insert:   {"T"},
		Withdraw: {"R"},
	}
}

// Override replaces bindings from a name -> backend keys table, as read from
// configuration. Unknown logical names are rejected.
func (m Keymap) Override(bindings map[string][]string) error {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		k, err := ParseKey(name)
		if err != nil {
			return fmt.Errorf("keymap: %w", err)
		}
		m[k] = bindings[name]
	}
	return nil
}

// Resolve builds the frame state by asking the backend which of its keys are down.
func (m Keymap) Resolve(down func(backendKey string) bool) State {
	var s State
	for k, names := range m {
		for _, name := range names {
			if down(name) {
				s = s.With(k)
				break
			}
		}
	}
	return s
}

// BackendKeys returns every backend key name bound in m.
func (m Keymap) BackendKeys() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, names := range m {
		for _, n := range names {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}
