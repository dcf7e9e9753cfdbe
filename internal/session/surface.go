// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
)

// =============================================================================
// STATUS
// =============================================================================

// StatusArea is the part of the display a status message belongs to.
type StatusArea int

const (
	AreaAuth StatusArea = iota
	AreaFiles
	AreaChat
)

func (a StatusArea) String() string {
	switch a {
	case AreaAuth:
		return "auth"
	case AreaFiles:
		return "files"
	case AreaChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Status is a user-visible message local to one action's area.
// An empty Text clears the area.
type Status struct {
	Area  StatusArea
	Text  string
	Error bool
}

// =============================================================================
// SURFACE PORT
// =============================================================================

// Surface receives every change the display has to reflect. Calls are made
// from whichever goroutine performed the change, never while the controller
// holds its lock; implementations must not block.
type Surface interface {
	IdentityChanged(id *model.Identity)
	StageChanged(records []attach.Record)
	TranscriptChanged(entries []model.TranscriptEntry)

	// EntryUpdated reports text appended to the streaming entry.
	EntryUpdated(entry model.TranscriptEntry, appended string)
	ScrollToTail()

	Status(s Status)
	ModelsLoaded(models []backend.ModelInfo, selected string)
	BusyChanged(busy bool)
}

// NopSurface ignores every notification. Embed it to implement only the
// notifications a surface cares about.
type NopSurface struct{}

func (NopSurface) IdentityChanged(*model.Identity) {}
func (NopSurface) StageChanged([]attach.Record) {}
func (NopSurface) TranscriptChanged([]model.TranscriptEntry) {}
func (NopSurface) EntryUpdated(model.TranscriptEntry, string) {}
func (NopSurface) ScrollToTail() {}
func (NopSurface) Status(Status) {}
func (NopSurface) ModelsLoaded([]backend.ModelInfo, string) {}
func (NopSurface) BusyChanged(bool) {}

var _ Surface = NopSurface{}
