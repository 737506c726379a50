package clipboard

import "sync"

// Memory is an in-process clipboard with one text slot per selection.
type Memory struct {
	mu    sync.Mutex
	slots [3]string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(sel Selection) (string, error) {
	if !sel.Valid() {
		return "", unsupported(sel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[sel], nil
}

func (m *Memory) Set(sel Selection, text string) error {
	if !sel.Valid() {
		return unsupported(sel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[sel] = text
	return nil
}

var _ Capability = (*Memory)(nil)
