package relay

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxMessageChars caps a chat line when no limit is configured.
const DefaultMaxMessageChars = 500

var (
	ErrEmptyMessage   = errors.New("relay: message text is empty")
	ErrInvalidUTF8    = errors.New("relay: message contains invalid UTF-8")
	ErrMessageTooLong = errors.New("relay: message too long")
	ErrUnknownSignal  = errors.New("relay: unknown signaling kind")
)

// ValidateMessage checks that a chat line is non-empty, valid UTF-8 and at
// most maxChars characters long. A maxChars of zero or less uses
// DefaultMaxMessageChars.
func ValidateMessage(text string, maxChars int) error {
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	if len(text) == 0 {
		return ErrEmptyMessage
	}
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	if n := utf8.RuneCountInString(text); n > maxChars {
		return fmt.Errorf("%w: %d characters, limit is %d", ErrMessageTooLong, n, maxChars)
	}
	return nil
}
