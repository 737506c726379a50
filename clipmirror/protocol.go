package clipmirror

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trypsynth/clipmirror/clipboard"
)

// Operation is byte 0 of a request frame.
type Operation byte

const (
	OperationRead Operation = iota
	OperationWrite
)

func (o Operation) String() string {
	switch o {
	case OperationRead:
		return "read"
	case OperationWrite:
		return "write"
	default:
		return fmt.Sprintf("operation(%d)", byte(o))
	}
}

// Byte 1 of a frame is read with the enumeration picked by the operation.
// Read frames address a single slot; write frames may also address every slot.
var (
	readSelections = []clipboard.Selection{
		clipboard.Primary,
		clipboard.Clipboard,
		clipboard.Secondary,
	}
	writeSelections = []clipboard.Selection{
		clipboard.Primary,
		clipboard.Clipboard,
		clipboard.Secondary,
	}
)

// WriteAll is the write selection byte that applies a write to every slot.
const WriteAll byte = 0

var (
	// ErrProtocol is matched by every frame decoding error.
	ErrProtocol      = errors.New("malformed frame")
	ErrEmptyFrame    = fmt.Errorf("%w: shorter than 2 bytes", ErrProtocol)
	ErrInvalidText   = fmt.Errorf("%w: payload is not valid UTF-8", ErrProtocol)
	ErrFrameTooLarge = fmt.Errorf("%w: exceeds size limit", ErrProtocol)
)

type UnknownOperationError struct {
	Byte byte
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("malformed frame: unknown operation %d", e.Byte)
}

func (e *UnknownOperationError) Is(target error) bool { return target == ErrProtocol }

type UnknownSelectionError struct {
	Operation Operation
	Byte      byte
}

func (e *UnknownSelectionError) Error() string {
	return fmt.Sprintf("malformed frame: unknown %s selection %d", e.Operation, e.Byte)
}

func (e *UnknownSelectionError) Is(target error) bool { return target == ErrProtocol }

// Request is one decoded frame. Selection holds the raw selection byte, whose
// meaning depends on Operation.
type Request struct {
	Operation Operation
	Selection byte
	Text      string
}

// DecodeRequest parses a complete frame. The selection byte is only looked at
// after the operation is known.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < 2 {
		return Request{}, ErrEmptyFrame
	}
	op := Operation(b[0])
	sel := b[1]
	switch op {
	case OperationRead:
		if int(sel) >= len(readSelections) {
			return Request{}, &UnknownSelectionError{Operation: op, Byte: sel}
		}
		return Request{Operation: op, Selection: sel}, nil
	case OperationWrite:
		if int(sel) > len(writeSelections) {
			return Request{}, &UnknownSelectionError{Operation: op, Byte: sel}
		}
		payload := b[2:]
		if !utf8.Valid(payload) {
			return Request{}, ErrInvalidText
		}
		return Request{Operation: op, Selection: sel, Text: string(payload)}, nil
	default:
		return Request{}, &UnknownOperationError{Byte: b[0]}
	}
}

// EncodeRequest lays out [op, selection, payload...]. The end of the payload is
// the end of the stream, so there is no length prefix.
func EncodeRequest(op Operation, selection byte, payload []byte) []byte {
	buf := make([]byte, 0, 2+len(payload))
	buf = append(buf, byte(op), selection)
	return append(buf, payload...)
}

func (r Request) Encode() []byte {
	return EncodeRequest(r.Operation, r.Selection, []byte(r.Text))
}

// Targets returns the slots the request acts on, in application order.
func (r Request) Targets() []clipboard.Selection {
	switch r.Operation {
	case OperationRead:
		if int(r.Selection) < len(readSelections) {
			return []clipboard.Selection{readSelections[r.Selection]}
		}
	case OperationWrite:
		if r.Selection == WriteAll {
			return clipboard.Selections
		}
		if i := int(r.Selection) - 1; i >= 0 && i < len(writeSelections) {
			return []clipboard.Selection{writeSelections[i]}
		}
	}
	return nil
}

func (r Request) String() string {
	targets := r.Targets()
	if r.Operation == OperationWrite && r.Selection == WriteAll {
		return fmt.Sprintf("%s all (%d bytes)", r.Operation, len(r.Text))
	}
	if len(targets) != 1 {
		return fmt.Sprintf("%s selection(%d)", r.Operation, r.Selection)
	}
	if r.Operation == OperationWrite {
		return fmt.Sprintf("%s %s (%d bytes)", r.Operation, targets[0], len(r.Text))
	}
	return fmt.Sprintf("%s %s", r.Operation, targets[0])
}

// ReadSelection returns the read selection byte for sel.
func ReadSelection(sel clipboard.Selection) (byte, error) {
	for i, s := range readSelections {
		if s == sel {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("no read selection for %s", sel)
}

// WriteSelection returns the write selection byte for sel.
func WriteSelection(sel clipboard.Selection) (byte, error) {
	for i, s := range writeSelections {
		if s == sel {
			return byte(i + 1), nil
		}
	}
	return 0, fmt.Errorf("no write selection for %s", sel)
}

// ParseReadSelection maps a slot name to its read selection byte.
func ParseReadSelection(name string) (byte, error) {
	sel, err := clipboard.ParseSelection(name)
	if err != nil {
		return 0, err
	}
	return ReadSelection(sel)
}

// ParseWriteSelection is ParseReadSelection for writes, and also accepts "all".
func ParseWriteSelection(name string) (byte, error) {
	if strings.EqualFold(strings.TrimSpace(name), "all") {
		return WriteAll, nil
	}
	sel, err := clipboard.ParseSelection(name)
	if err != nil {
		return 0, fmt.Errorf("%w (or all)", err)
	}
	return WriteSelection(sel)
}
