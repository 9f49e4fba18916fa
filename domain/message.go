// Package domain contains core concepts of the presence system.
// This file defines chat messages. Messages are immutable once created.
package domain

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ChatMessage is an accepted community chat message.
type ChatMessage struct {
	ID              string    `json:"id"`
	AuthorSessionID string    `json:"-"`
	AuthorUserID    string    `json:"userId"`
	AuthorDisplay   string    `json:"userName"`
	AuthorAvatar    string    `json:"userAvatar"`
	AuthorColor     string    `json:"userColor"`
	Text            string    `json:"message"`
	Lang            string    `json:"lang,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewChatMessage builds a message authored by the session. The text is stored trimmed.
func NewChatMessage(author *Session, text, lang string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:              ulid.Make().String(),
		AuthorSessionID: author.ID,
		AuthorUserID:    author.UserID,
		AuthorDisplay:   author.DisplayName,
		AuthorAvatar:    author.Avatar,
		AuthorColor:     author.Color,
		Text:            strings.TrimSpace(text),
		Lang:            lang,
		Timestamp:       at.UTC(),
	}
}

// ScopedMessage is an accepted message together with the chat scope it belongs to.
type ScopedMessage struct {
	Scope   string
	Message ChatMessage
}
