// Package domain contains core concepts of the relay.
// This file defines inbound chat events and the records persisted from them.
package domain

import (
	"strings"
	"time"
)

// TextType is the content type the transport reports for plain text messages.
const TextType = "text"

// ChatEvent is a single inbound notification delivered by the chat session.
// Identifiers are transport JIDs rendered as strings.
type ChatEvent struct {
	ID         string
	Chat       string
	Sender     string
	Recipient  string
	SenderName string
	Body       string
	Type       string
	Timestamp  time.Time
	FromMe     bool
	IsGroup    bool
}

// IsText reports whether the event carries plain text.
func (e ChatEvent) IsText() bool {
	return e.Type == TextType
}

// IsSelfChat reports whether the event was written by the account owner
// into their own conversation ("message yourself").
func (e ChatEvent) IsSelfChat() bool {
	return e.FromMe && sameUser(e.Sender, e.Recipient)
}

// Accepted decides whether the relay processes the event at all.
// Messages received from others are accepted, messages the owner writes to
// somebody else are not, and the owner's self-chat is.
// Group conversations are only accepted when allowGroups is set.
func (e ChatEvent) Accepted(allowGroups bool) bool {
	if !e.IsText() {
		return false
	}
	if e.IsGroup && !allowGroups {
		return false
	}
	if e.FromMe {
		return e.IsSelfChat()
	}
	return true
}

// sameUser compares two JIDs on their user part, ignoring device suffixes.
func sameUser(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return userPart(a) == userPart(b)
}

func userPart(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	user, _, _ = strings.Cut(user, ":")
	user, _, _ = strings.Cut(user, ".")
	return user
}

// StoredMessage is the record written for every accepted text event.
// Records are appended only; nothing updates or deletes them.
type StoredMessage struct {
	ID         string
	Sender     string
	SenderName *string
	Content    string
	Timestamp  time.Time
}
