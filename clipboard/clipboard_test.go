package clipboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	for name, want := range map[string]Selection{
		"":           Clipboard,
		"clipboard":  Clipboard,
		"primary":    Primary,
		" Secondary": Secondary,
	} {
		got, err := ParseSelection(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseSelection("all")
	require.Error(t, err)
}

func TestSelectionString(t *testing.T) {
	assert.Equal(t, "primary", Primary.String())
	assert.Equal(t, "clipboard", Clipboard.String())
	assert.Equal(t, "secondary", Secondary.String())
	assert.Equal(t, "selection(7)", Selection(7).String())
}

func TestMemoryKeepsSlotsIndependent(t *testing.T) {
	m := NewMemory()

	text, err := m.Get(Clipboard)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, m.Set(Primary, "one"))
	require.NoError(t, m.Set(Secondary, "two"))

	for sel, want := range map[Selection]string{Primary: "one", Clipboard: "", Secondary: "two"} {
		got, err := m.Get(sel)
		require.NoError(t, err)
		assert.Equal(t, want, got, sel.String())
	}
}

func TestMemoryRejectsUnknownSelection(t *testing.T) {
	m := NewMemory()
	err := m.Set(Selection(3), "x")
	assert.True(t, errors.Is(err, ErrUnsupportedSelection))
	_, err = m.Get(Selection(-1))
	assert.True(t, errors.Is(err, ErrUnsupportedSelection))
}

func TestOpen(t *testing.T) {
	c, err := Open("memory")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = Open("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
