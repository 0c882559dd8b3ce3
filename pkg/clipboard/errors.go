package clipboard

import "errors"

var (
	// ErrEmpty indicates there is nothing on the clipboard.
	ErrEmpty = errors.New("clipboard is empty")

	// ErrUnknownFormat indicates clipboard text that is neither a JSON nor a
	// YAML clip, or an unknown format name.
	ErrUnknownFormat = errors.New("unknown clipboard format")
)
