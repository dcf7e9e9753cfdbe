// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for identity and the chat transcript.
//
// # Key Types
//
//   - Identity: Immutable snapshot of the signed-in user (nil means anonymous)
//   - Transcript: Ordered, append-only sequence of entries owned by one session
//   - TranscriptEntry: Read-only snapshot of one user or assistant message
//   - StreamingEntry: Write handle for the single assistant entry receiving streamed text
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
//	t := model.NewTranscript()
//	t.AppendUser("Hello!")
//	s, err := t.BeginStreaming()
//	if err != nil {
//	    return err
//	}
//	s.Append("Hi")
//	s.Append(" there")
//	entry := s.Finish()
package model
