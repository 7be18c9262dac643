package wall

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable means the link could not be placed on the system
// clipboard and has to be copied by hand
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// clipboardWrite is swapped out in tests
var clipboardWrite = clipboard.WriteAll

// CopyLink builds the share link for a layout and copies it to the system
// clipboard. The link is returned even when copying fails, so the caller
// can show it for manual copying.
func CopyLink(base string, c HoldCollection) (string, error) {
	link, err := ShareURL(base, c)
	if err != nil {
		return "", err
	}
	if clipboard.Unsupported {
		return link, ErrClipboardUnavailable
	}
	if err := clipboardWrite(link); err != nil {
		return link, fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return link, nil
}
