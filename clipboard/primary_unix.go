//go:build freebsd || linux || netbsd || openbsd || solaris || dragonfly

package clipboard

import atotto "github.com/atotto/clipboard"

const primarySupported = true

// withPrimary points atotto at the X primary selection for the duration of fn.
// Callers are serialized by the server loop.
func withPrimary(primary bool, fn func() error) error {
	prev := atotto.Primary
	atotto.Primary = primary
	defer func() { atotto.Primary = prev }()
	return fn()
}
