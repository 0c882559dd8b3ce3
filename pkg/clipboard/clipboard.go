package clipboard

import (
	"errors"
	"log"
	"sync"

	"github.com/atotto/clipboard"
)

// Clipboard stores one piece of text.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
}

// Buffer is an in-process clipboard. The zero value is empty and ready to
// use; it is safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	text string
}

// Write replaces the buffer content.
func (b *Buffer) Write(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	return nil
}

// Read returns the buffer content, or ErrEmpty.
func (b *Buffer) Read() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.text == "" {
		return "", ErrEmpty
	}
	return b.text, nil
}

// System is the operating system clipboard.
type System struct{}

// SystemAvailable reports whether a system clipboard backend was found
// (pbcopy, xclip, xsel, wl-copy, or the Windows API).
func SystemAvailable() bool {
	return !clipboard.Unsupported
}

// Write copies text to the system clipboard.
func (System) Write(text string) error {
	return clipboard.WriteAll(text)
}

// Read returns the system clipboard text, or ErrEmpty.
func (System) Read() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// Mirror writes to a local buffer and, best effort, to a second clipboard
// (normally System). Reads prefer the second clipboard so that text copied
// in another program can be pasted, and fall back to the buffer.
type Mirror struct {
	Local  Buffer
	Remote Clipboard
	Logger *log.Logger // receives remote failures; nil discards them
}

// NewMirror returns a Mirror over remote. A nil remote makes it a plain
// Buffer.
func NewMirror(remote Clipboard, logger *log.Logger) *Mirror {
	return &Mirror{Remote: remote, Logger: logger}
}

// Write implements Clipboard. Only a local failure is reported.
func (m *Mirror) Write(text string) error {
	if err := m.Local.Write(text); err != nil {
		return err
	}
	if m.Remote != nil {
		if err := m.Remote.Write(text); err != nil {
			m.warn("system clipboard write failed: %v", err)
		}
	}
	return nil
}

// Read implements Clipboard.
func (m *Mirror) Read() (string, error) {
	if m.Remote != nil {
		text, err := m.Remote.Read()
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrEmpty) {
			m.warn("system clipboard read failed: %v", err)
		}
	}
	return m.Local.Read()
}

func (m *Mirror) warn(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf("warning: "+format, args...)
	}
}
