// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/session"
)

// =============================================================================
// CONTROLLER NOTIFICATIONS
// =============================================================================
// Sent by Surface from whichever goroutine the controller ran on.

// IdentityMsg reports a sign-in or sign-out. A nil Identity is anonymous.
type IdentityMsg struct {
	Identity *model.Identity
}

// StageMsg carries the attachment records after any stage change.
type StageMsg struct {
	Records []attach.Record
}

// TranscriptMsg carries the whole transcript after an entry was added or
// finished.
type TranscriptMsg struct {
	Entries []model.TranscriptEntry
}

// StatusMsg is a status line update for one area.
type StatusMsg struct {
	Status session.Status
}

// ModelsMsg reports the model list and the selection.
type ModelsMsg struct {
	Models   []backend.ModelInfo
	Selected string
}

// BusyMsg reports whether a send is in flight.
type BusyMsg struct {
	Busy bool
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// bootstrapDoneMsg is returned by the startup session probe.
type bootstrapDoneMsg struct {
	identity *model.Identity
}

// authDoneMsg is returned by login, register and logout.
type authDoneMsg struct {
	action string
	email  string
	err    error
}

// sendDoneMsg is returned when a send finished, whatever the outcome.
type sendDoneMsg struct {
	err error
}

// attachDoneMsg is returned after local files were read and staged.
type attachDoneMsg struct {
	staged int
	err    error
}

// filesDoneMsg is returned by a session file listing.
type filesDoneMsg struct {
	files []backend.SessionFile
	err   error
}

// modelsListedMsg is returned by /models once the list was reloaded.
type modelsListedMsg struct {
	models []backend.ModelInfo
}

// previewDecodedMsg carries the decoded header of one staged image.
type previewDecodedMsg struct {
	recordID string
	image    preview.Image
	err      error
}

// noticeMsg shows a transient message on the status line.
type noticeMsg struct {
	text  string
	isErr bool
}

// StreamTickMsg paces streaming redraws.
type StreamTickMsg struct {
	Time time.Time
}
