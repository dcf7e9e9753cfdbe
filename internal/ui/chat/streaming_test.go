// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/jeranaias/warriorchat/internal/model"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func snapshot(text string) model.TranscriptEntry {
	return model.TranscriptEntry{ID: "e1", Role: model.RoleAssistant, Text: text, Streaming: true}
}

func TestNewStreamingBuffer(t *testing.T) {
	sb := NewStreamingBuffer()

	batchSize, maxFPS, minFlush := sb.GetConfig()
	if batchSize != 15 {
		t.Errorf("Expected default batch size 15, got %d", batchSize)
	}
	if maxFPS != 30 {
		t.Errorf("Expected default maxFPS 30, got %d", maxFPS)
	}
	if want := time.Duration(1000/30) * time.Millisecond; minFlush != want {
		t.Errorf("Expected minFlush %v, got %v", want, minFlush)
	}
}

func TestNewStreamingBufferWithConfig_ClampsBadValues(t *testing.T) {
	sb := NewStreamingBufferWithConfig(0, 500)

	batchSize, maxFPS, _ := sb.GetConfig()
	if batchSize != 15 || maxFPS != 30 {
		t.Errorf("Expected defaults 15/30, got %d/%d", batchSize, maxFPS)
	}
}

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write(snapshot("Hel"))
	sb.Write(snapshot("Hello"))
	sb.Write(snapshot("Hello World"))

	if pending := sb.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending writes, got %d", pending)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 1) // Batch size 3, 1s interval

	sb.Write(snapshot("A"))
	sb.Write(snapshot("AB"))

	if _, ok := sb.Flush(); ok {
		t.Error("Should not flush before reaching batch size")
	}

	sb.Write(snapshot("ABC"))

	entry, ok := sb.Flush()
	if !ok {
		t.Fatal("Should flush after reaching batch size")
	}
	if entry.Text != "ABC" {
		t.Errorf("Expected newest snapshot 'ABC', got '%s'", entry.Text)
	}
	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending writes after flush, got %d", pending)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 10) // 100ms interval

	sb.Write(snapshot("A"))
	if _, ok := sb.Flush(); ok {
		t.Error("Should not flush immediately")
	}

	time.Sleep(120 * time.Millisecond)

	entry, ok := sb.Flush()
	if !ok {
		t.Fatal("Should flush after time threshold")
	}
	if entry.Text != "A" {
		t.Errorf("Expected 'A', got '%s'", entry.Text)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush on an empty buffer should return nothing")
	}

	sb.Write(snapshot("Test"))

	entry, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("ForceFlush should return the snapshot")
	}
	if entry.Text != "Test" || !entry.Streaming {
		t.Errorf("Unexpected snapshot %+v", entry)
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("A flushed snapshot should not be returned twice")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write(snapshot("A"))
	sb.Write(snapshot("AB"))
	sb.Reset()

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending after reset, got %d", pending)
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("Should have no snapshot after reset")
	}
}

func TestStreamingBufferConcurrency(t *testing.T) {
	sb := NewStreamingBuffer()

	done := make(chan bool)
	go func() {
		text := ""
		for i := 0; i < 100; i++ {
			text += "x"
			sb.Write(snapshot(text))
			time.Sleep(time.Millisecond)
		}
		done <- true
	}()

	flushCount := 0
	go func() {
		for i := 0; i < 100; i++ {
			if _, ok := sb.Flush(); ok {
				flushCount++
			}
			time.Sleep(time.Millisecond)
		}
		done <- true
	}()

	<-done
	<-done

	entry, ok := sb.ForceFlush()
	if ok && len(entry.Text) != 100 {
		t.Errorf("Expected the last snapshot to hold 100 chars, got %d", len(entry.Text))
	}
	t.Logf("Completed with %d flushes", flushCount)
}
