// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for identity and the chat transcript.
package model

import (
	"errors"
	"sync"
)

// ErrStreamActive is returned when a streaming entry is requested while another
// assistant entry is still receiving text.
var ErrStreamActive = errors.New("an assistant entry is already streaming")

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the ordered, append-only message history of one session.
// Entries are never edited after they are appended, except the text of the
// single entry that is currently streaming.
//
// The Transcript is safe for concurrent use.
type Transcript struct {
	mu      sync.RWMutex
	entries []*entry
	active  *entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		entries: make([]*entry, 0),
	}
}

// =============================================================================
// APPENDING
// =============================================================================

// AppendUser appends a finished user entry.
func (t *Transcript) AppendUser(text string) TranscriptEntry {
	return t.append(newEntry(RoleUser, text, false))
}

// AppendAssistant appends a finished assistant entry, such as a failure notice.
func (t *Transcript) AppendAssistant(text string) TranscriptEntry {
	return t.append(newEntry(RoleAssistant, text, false))
}

func (t *Transcript) append(e *entry) TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	return e.snapshot()
}

// BeginStreaming appends an empty assistant entry with Streaming set and
// returns the handle used to feed it. Only one entry may stream at a time.
func (t *Transcript) BeginStreaming() (*StreamingEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return nil, ErrStreamActive
	}

	e := newEntry(RoleAssistant, "", true)
	t.entries = append(t.entries, e)
	t.active = e
	return &StreamingEntry{t: t, e: e}, nil
}

// =============================================================================
// READING
// =============================================================================

// Snapshot returns a copy of every entry in order.
func (t *Transcript) Snapshot() []TranscriptEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TranscriptEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.snapshot()
	}
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// IsEmpty returns true if there are no entries.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// Last returns the most recent entry.
func (t *Transcript) Last() (TranscriptEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return TranscriptEntry{}, false
	}
	return t.entries[len(t.entries)-1].snapshot(), true
}

// Streaming returns the entry currently receiving text, if any.
func (t *Transcript) Streaming() (TranscriptEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.active == nil {
		return TranscriptEntry{}, false
	}
	return t.active.snapshot(), true
}

// Clear removes all entries. A streaming handle that outlives Clear keeps
// working but its entry is no longer part of the transcript.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make([]*entry, 0)
	t.active = nil
}

// =============================================================================
// STREAMING ENTRY
// =============================================================================

// StreamingEntry is the write handle for the assistant entry that is
// receiving a streamed response.
type StreamingEntry struct {
	t    *Transcript
	e    *entry
	done bool
}

// ID returns the entry ID.
func (s *StreamingEntry) ID() string {
	return s.e.id
}

// Append adds decoded text to the end of the entry. Ignored after Finish.
func (s *StreamingEntry) Append(text string) {
	if text == "" {
		return
	}
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.done {
		return
	}
	s.e.text.WriteString(text)
}

// Replace sets the entry text, discarding anything streamed so far.
// Used for error indicators on responses that never produced a body.
func (s *StreamingEntry) Replace(text string) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.done {
		return
	}
	s.e.text.Reset()
	s.e.text.WriteString(text)
}

// Len returns the number of bytes streamed so far.
func (s *StreamingEntry) Len() int {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	return s.e.text.Len()
}

// Finish clears the Streaming flag and releases the transcript's streaming
// slot. It is safe to call more than once.
func (s *StreamingEntry) Finish() TranscriptEntry {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()

	if !s.done {
		s.done = true
		s.e.streaming = false
		if s.t.active == s.e {
			s.t.active = nil
		}
	}
	return s.e.snapshot()
}

// Snapshot returns the current state of the entry.
func (s *StreamingEntry) Snapshot() TranscriptEntry {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	return s.e.snapshot()
}
