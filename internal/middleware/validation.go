package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageRunes bounds a single chat widget message.
const MaxMessageRunes = 4000

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageEncoding = errors.New("message must be valid UTF-8")
	ErrConversationID  = errors.New("invalid conversation ID format")
)

// ValidateMessageContent checks a chat widget message.
func ValidateMessageContent(content string) error {
	switch {
	case !utf8.ValidString(content):
		return ErrMessageEncoding
	case strings.TrimSpace(content) == "":
		return ErrEmptyMessage
	case utf8.RuneCountInString(content) > MaxMessageRunes:
		return ErrMessageTooLong
	}
	return nil
}

// ValidateConversationID checks that id is a UUID minted by the chat endpoint.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrConversationID
	}
	return nil
}
