// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/session"
)

// Surface forwards controller notifications into a Bubble Tea program.
//
// Streaming text does not go through Program.Send; it is kept in a
// StreamingBuffer that the Model drains on its tick, which also scrolls.
// Program.Send blocks until the update loop receives, so controller methods
// must be called from tea.Cmds, never from Update itself. Surface is safe
// for concurrent use.
type Surface struct {
	mu      sync.Mutex
	program *tea.Program
	queued  []tea.Msg

	stream *StreamingBuffer
}

// NewSurface creates a detached surface.
func NewSurface() *Surface {
	return &Surface{stream: NewStreamingBuffer()}
}

// Attach connects the surface to p and delivers everything queued so far.
func (s *Surface) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	queued := s.queued
	s.queued = nil
	s.mu.Unlock()

	for _, msg := range queued {
		p.Send(msg)
	}
}

// Stream returns the buffer holding the latest streaming entry.
func (s *Surface) Stream() *StreamingBuffer {
	return s.stream
}

func (s *Surface) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	if p == nil {
		s.queued = append(s.queued, msg)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// Program.Send blocks until the program reads it; never hold the lock
	p.Send(msg)
}

// Pending returns and clears the queued messages of a detached surface.
func (s *Surface) Pending() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queued
	s.queued = nil
	return out
}

// =============================================================================
// session.Surface
// =============================================================================

func (s *Surface) IdentityChanged(id *model.Identity) {
	s.send(IdentityMsg{Identity: id})
}

func (s *Surface) StageChanged(records []attach.Record) {
	s.send(StageMsg{Records: records})
}

func (s *Surface) TranscriptChanged(entries []model.TranscriptEntry) {
	s.send(TranscriptMsg{Entries: entries})
}

func (s *Surface) EntryUpdated(entry model.TranscriptEntry, _ string) {
	s.stream.Write(entry)
}

func (s *Surface) ScrollToTail() {}

func (s *Surface) Status(st session.Status) {
	s.send(StatusMsg{Status: st})
}

func (s *Surface) ModelsLoaded(models []backend.ModelInfo, selected string) {
	s.send(ModelsMsg{Models: models, Selected: selected})
}

func (s *Surface) BusyChanged(busy bool) {
	s.send(BusyMsg{Busy: busy})
}

var _ session.Surface = (*Surface)(nil)
