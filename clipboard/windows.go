//go:build windows

package clipboard

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	kernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	openClipboard              = user32.NewProc("OpenClipboard")
	emptyClipboard             = user32.NewProc("EmptyClipboard")
	getClipboardData           = user32.NewProc("GetClipboardData")
	setClipboardData           = user32.NewProc("SetClipboardData")
	isClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")
	closeClipboard             = user32.NewProc("CloseClipboard")
	globalAlloc                = kernel32.NewProc("GlobalAlloc")
	globalFree                 = kernel32.NewProc("GlobalFree")
	globalLock                 = kernel32.NewProc("GlobalLock")
	globalUnlock               = kernel32.NewProc("GlobalUnlock")
	memcpy                     = kernel32.NewProc("RtlMoveMemory")
	cfUnicodeText              = uintptr(13)
	gmemMoveable               = uintptr(2)
)

const openAttempts = 5

// Windows is the Win32 clipboard. Windows has a single clipboard, so only the
// Clipboard selection is served.
type Windows struct{}

func NewWindows() (*Windows, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := kernel32.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Windows{}, nil
}

func openSystem() (Capability, error) {
	return NewWindows()
}

func (w *Windows) Get(sel Selection) (string, error) {
	if sel != Clipboard {
		return "", unsupported(sel)
	}
	if err := open(); err != nil {
		return "", err
	}
	defer closeClipboard.Call()
	if r, _, _ := isClipboardFormatAvailable.Call(cfUnicodeText); r == 0 {
		return "", nil
	}
	h, _, err := getClipboardData.Call(cfUnicodeText)
	if h == 0 {
		return "", fmt.Errorf("GetClipboardData: %w", err)
	}
	p, _, err := globalLock.Call(h)
	if p == 0 {
		return "", fmt.Errorf("GlobalLock: %w", err)
	}
	defer globalUnlock.Call(h)
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(p))), nil
}

func (w *Windows) Set(sel Selection, text string) error {
	if sel != Clipboard {
		return unsupported(sel)
	}
	utf16, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("convert clipboard text: %w", err)
	}
	if err := open(); err != nil {
		return err
	}
	defer closeClipboard.Call()
	emptyClipboard.Call()
	size := uintptr(len(utf16) * 2)
	h, _, err := globalAlloc.Call(gmemMoveable, size)
	if h == 0 {
		return fmt.Errorf("GlobalAlloc: %w", err)
	}
	p, _, _ := globalLock.Call(h)
	if p == 0 {
		globalFree.Call(h)
		return fmt.Errorf("GlobalLock failed")
	}
	memcpy.Call(p, uintptr(unsafe.Pointer(&utf16[0])), size)
	globalUnlock.Call(h)
	if r, _, err := setClipboardData.Call(cfUnicodeText, h); r == 0 {
		globalFree.Call(h)
		return fmt.Errorf("SetClipboardData: %w", err)
	}
	return nil
}

// open retries briefly since another process may be holding the clipboard.
func open() error {
	var err error
	for i := 0; i < openAttempts; i++ {
		var r uintptr
		if r, _, err = openClipboard.Call(0); r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("OpenClipboard: %w", err)
}

var _ Capability = (*Windows)(nil)
