// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for identity and the chat transcript.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the label shown before a message.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Bot"
	default:
		return string(r)
	}
}

// =============================================================================
// ENTRY TYPES
// =============================================================================

// TranscriptEntry is a read-only snapshot of one transcript message.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Streaming bool      `json:"streaming"`
	Timestamp time.Time `json:"timestamp"`
}

// IsEmpty returns true if the entry has no text.
func (e TranscriptEntry) IsEmpty() bool {
	return len(e.Text) == 0
}

// Preview returns a truncated preview of the entry text.
// Uses rune-based truncation to handle Unicode correctly.
func (e TranscriptEntry) Preview(maxLen int) string {
	runes := []rune(e.Text)
	if maxLen <= 3 || len(runes) <= maxLen {
		return e.Text
	}
	return string(runes[:maxLen-3]) + "..."
}

// entry is the mutable record held by a Transcript.
// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
type entry struct {
	id        string
	role      Role
	timestamp time.Time
	text      strings.Builder
	streaming bool
}

func newEntry(role Role, text string, streaming bool) *entry {
	e := &entry{
		id:        generateID(),
		role:      role,
		timestamp: time.Now(),
		streaming: streaming,
	}
	e.text.WriteString(text)
	return e
}

func (e *entry) snapshot() TranscriptEntry {
	return TranscriptEntry{
		ID:        e.id,
		Role:      e.role,
		Text:      e.text.String(),
		Streaming: e.streaming,
		Timestamp: e.timestamp,
	}
}

// generateID creates a unique entry ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
