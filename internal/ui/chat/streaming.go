// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/warriorchat/internal/model"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches streaming entry updates for rendering.
// Only the newest snapshot is kept; it is released when either:
// 1. The batch size threshold is reached (e.g., 15 chunks)
// 2. Enough time has passed since the last flush (e.g., 33ms for 30fps)
//
// Writes come from the send goroutine and flushes from the update loop.
type StreamingBuffer struct {
	mu        sync.Mutex
	entry     model.TranscriptEntry
	dirty     bool
	chunks    int
	lastFlush time.Time

	// Configuration
	batchSize int           // Chunks per batch (default: 15)
	maxFPS    int           // Max frames per second (default: 30)
	minFlush  time.Duration // Min time between flushes (1000/maxFPS)
}

// NewStreamingBuffer creates a streaming buffer with default settings.
func NewStreamingBuffer() *StreamingBuffer {
	const (
		defaultBatchSize = 15
		defaultMaxFPS    = 30
	)
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a streaming buffer with custom settings.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}

	return &StreamingBuffer{
		batchSize: batchSize,
		maxFPS:    maxFPS,
		minFlush:  time.Duration(1000/maxFPS) * time.Millisecond,
		lastFlush: time.Now(),
	}
}

// Write records the newest snapshot of the streaming entry.
func (sb *StreamingBuffer) Write(entry model.TranscriptEntry) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.entry = entry
	sb.dirty = true
	sb.chunks++
}

// Flush returns the newest snapshot if a flush is due.
func (sb *StreamingBuffer) Flush() (model.TranscriptEntry, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if !sb.shouldFlushLocked() {
		return model.TranscriptEntry{}, false
	}
	return sb.takeLocked()
}

// ForceFlush returns the newest snapshot regardless of thresholds.
func (sb *StreamingBuffer) ForceFlush() (model.TranscriptEntry, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if !sb.dirty {
		return model.TranscriptEntry{}, false
	}
	return sb.takeLocked()
}

// Reset drops any unflushed snapshot.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.entry = model.TranscriptEntry{}
	sb.dirty = false
	sb.chunks = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of writes since the last flush.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.chunks
}

// GetConfig returns the batch size, frame cap and minimum flush interval.
func (sb *StreamingBuffer) GetConfig() (batchSize, maxFPS int, minFlush time.Duration) {
	return sb.batchSize, sb.maxFPS, sb.minFlush
}

func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if !sb.dirty {
		return false
	}
	if sb.chunks >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlush
}

func (sb *StreamingBuffer) takeLocked() (model.TranscriptEntry, bool) {
	entry := sb.entry
	sb.dirty = false
	sb.chunks = 0
	sb.lastFlush = time.Now()
	return entry, true
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd sends StreamTickMsg at 30fps while a send is in flight.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
