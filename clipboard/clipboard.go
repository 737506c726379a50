// Package clipboard provides the clipboard capability the clipmirror server
// owns: text get/set addressed by selection slot.
package clipboard

import (
	"errors"
	"fmt"
	"strings"
)

// Selection names one clipboard slot.
type Selection int

const (
	Primary Selection = iota
	Clipboard
	Secondary
)

// Selections lists every singular slot in the order multi-slot writes apply them.
var Selections = []Selection{Primary, Clipboard, Secondary}

var (
	ErrUnavailable          = errors.New("clipboard: not available on this system")
	ErrUnsupportedSelection = errors.New("clipboard: selection not supported by backend")
	ErrUnknownBackend       = errors.New("clipboard: unknown backend")
)

// Capability is the clipboard primitive. Both calls are synchronous and act on
// exactly one slot.
type Capability interface {
	Get(sel Selection) (string, error)
	Set(sel Selection, text string) error
}

func (s Selection) String() string {
	switch s {
	case Primary:
		return "primary"
	case Clipboard:
		return "clipboard"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("selection(%d)", int(s))
	}
}

func (s Selection) Valid() bool {
	return s >= Primary && s <= Secondary
}

// ParseSelection maps a slot name to a Selection. The empty string means Clipboard.
func ParseSelection(name string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "clipboard":
		return Clipboard, nil
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return 0, fmt.Errorf("unknown selection %q: want one of primary, clipboard, secondary", name)
	}
}

// Backend names accepted by Open.
const (
	BackendSystem = "system"
	BackendMemory = "memory"
)

// Open acquires the named backend. An empty name selects the system clipboard.
func Open(backend string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSystem:
		return openSystem()
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func unsupported(sel Selection) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedSelection, sel)
}
