package wall

import (
	"errors"
	"testing"

	"github.com/atotto/clipboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClipboard(t *testing.T, fn func(string) error) {
	t.Helper()
	orig := clipboardWrite
	clipboardWrite = fn
	t.Cleanup(func() { clipboardWrite = orig })
}

func TestCopyLink(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("no clipboard utility on this system")
	}
	var copied string
	stubClipboard(t, func(s string) error {
		copied = s
		return nil
	})

	link, err := CopyLink("http://192.168.0.9:3000/", HoldCollection{})
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.0.9:3000/?holds=%5B%5D", link)
	assert.Equal(t, link, copied)
}

func TestCopyLink_FallsBackToManualCopy(t *testing.T) {
	stubClipboard(t, func(string) error { return errors.New("no display") })

	link, err := CopyLink("http://localhost:3000/", HoldCollection{})
	assert.True(t, errors.Is(err, ErrClipboardUnavailable))
	assert.Equal(t, "http://localhost:3000/?holds=%5B%5D", link)
}

func TestCopyLink_BadBase(t *testing.T) {
	_, err := CopyLink("http://[::1", HoldCollection{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrClipboardUnavailable))
}
