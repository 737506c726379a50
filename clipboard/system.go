//go:build !windows

package clipboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	atotto "github.com/atotto/clipboard"
)

// System talks to the desktop clipboard. The Clipboard slot, and Primary where
// the platform has one, go through atotto/clipboard; Secondary needs xclip.
type System struct {
	xclip string
}

// xclipWaitDelay bounds how long a finished xclip may hold our pipes open.
const xclipWaitDelay = time.Second

func NewSystem() (*System, error) {
	if atotto.Unsupported {
		return nil, ErrUnavailable
	}
	return newSystem(), nil
}

// newSystem resolves xclip from PATH. Without it Secondary is unsupported.
func newSystem() *System {
	s := &System{}
	if path, err := exec.LookPath("xclip"); err == nil {
		s.xclip = path
	}
	return s
}

func openSystem() (Capability, error) {
	return NewSystem()
}

func (s *System) Get(sel Selection) (string, error) {
	var text string
	read := func() error {
		var err error
		text, err = atotto.ReadAll()
		return err
	}
	switch sel {
	case Clipboard:
		if err := withPrimary(false, read); err != nil {
			return "", fmt.Errorf("read %s: %w", sel, err)
		}
		return text, nil
	case Primary:
		if !primarySupported {
			return "", unsupported(sel)
		}
		if err := withPrimary(true, read); err != nil {
			return "", fmt.Errorf("read %s: %w", sel, err)
		}
		return text, nil
	case Secondary:
		return s.xclipRead(sel)
	default:
		return "", unsupported(sel)
	}
}

func (s *System) Set(sel Selection, text string) error {
	write := func() error { return atotto.WriteAll(text) }
	switch sel {
	case Clipboard:
		if err := withPrimary(false, write); err != nil {
			return fmt.Errorf("write %s: %w", sel, err)
		}
		return nil
	case Primary:
		if !primarySupported {
			return unsupported(sel)
		}
		if err := withPrimary(true, write); err != nil {
			return fmt.Errorf("write %s: %w", sel, err)
		}
		return nil
	case Secondary:
		return s.xclipWrite(sel, text)
	default:
		return unsupported(sel)
	}
}

func (s *System) xclipRead(sel Selection) (string, error) {
	if s.xclip == "" {
		return "", unsupported(sel)
	}
	var stderr bytes.Buffer
	cmd := exec.Command(s.xclip, "-selection", sel.String(), "-o")
	cmd.Stderr = &stderr
	cmd.WaitDelay = xclipWaitDelay
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("read %s: xclip: %w: %s", sel, err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func (s *System) xclipWrite(sel Selection, text string) error {
	if s.xclip == "" {
		return unsupported(sel)
	}
	// xclip -i forks a child that serves the selection until another client
	// takes it. The child inherits stdout and stderr, so they must not be pipes
	// or Run would wait for it.
	cmd := exec.Command(s.xclip, "-selection", sel.String(), "-i")
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = xclipWaitDelay
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("write %s: xclip: %w", sel, err)
	}
	return nil
}

var _ Capability = (*System)(nil)
