//go:build !windows && !(freebsd || linux || netbsd || openbsd || solaris || dragonfly)

package clipboard

const primarySupported = false

func withPrimary(_ bool, fn func() error) error {
	return fn()
}
