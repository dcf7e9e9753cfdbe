// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/stream"
)

// Transcript text for failed sends.
const (
	noticeGenerateFailed = "Error generating response."
	noticeUploadFailed   = "Upload failed"
)

// SendError reports a send whose generate request did not complete.
type SendError struct {
	Result stream.Result
}

func (e *SendError) Error() string {
	return fmt.Sprintf("generate %s: %s", e.Result.Kind, e.Result.Message)
}

// =============================================================================
// SEND
// =============================================================================

// Send posts prompt with every staged attachment and streams the reply into
// the transcript.
//
// Send returns ErrNothingToSend for an empty prompt with nothing staged,
// ErrSendInFlight while another send runs and ErrNotAuthenticated when
// anonymous; none of these change any state. A failed upload returns a
// *attach.StagingError, appends a notice and keeps the attachments staged.
// Once the generate request has been issued the stage is always cleared; a
// non-completed stream returns a *SendError. A Logout while Send runs makes
// it return ErrSessionEnded without touching the cleared state.
//
// ctx cancels the upload and the stream. Cancel has the same effect.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	c.mu.Lock()
	switch {
	case prompt == "" && c.stage.IsEmpty():
		c.mu.Unlock()
		return ErrNothingToSend
	case c.inFlight:
		c.mu.Unlock()
		return ErrSendInFlight
	case c.identity.IsAnonymous():
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	c.inFlight = true
	epoch := c.epoch
	ctx, cancel := context.WithCancel(ctx)
	c.cancelSend = cancel
	req := backend.GenerateRequest{
		Model:     c.model,
		Prompt:    prompt,
		System:    c.opts.SystemPrompt,
		LLMParams: c.opts.LLMParams,
	}
	c.mu.Unlock()

	c.surface.BusyChanged(true)
	defer c.endSend(cancel)

	if prompt != "" {
		if !c.within(epoch, func() { c.transcript.AppendUser(prompt) }) {
			return ErrSessionEnded
		}
		c.notifyTranscript()
	}

	attachments, err := c.stage.FinalizeForSend(ctx, prompt)
	if err != nil {
		msg := noticeUploadFailed + ": " + stagingMessage(err)
		if !c.within(epoch, func() { c.transcript.AppendAssistant(msg) }) {
			return ErrSessionEnded
		}
		c.notifyTranscript()
		c.status(AreaChat, msg, true)
		return err
	}
	req.Attachments = attachments
	if len(attachments) > 0 {
		c.notifyStage()
	}

	var entry *model.StreamingEntry
	if !c.within(epoch, func() { entry, err = c.transcript.BeginStreaming() }) {
		return ErrSessionEnded
	}
	if err != nil {
		c.stage.Clear()
		c.notifyStage()
		return err
	}
	c.notifyTranscript()

	sink := &entrySink{entry: entry, surface: c.surface, live: func() bool { return c.within(epoch, nil) }}
	result := c.consumer.Consume(ctx, req, sink)

	var marked bool
	if !c.within(epoch, func() {
		marked = applyOutcome(entry, result)
		entry.Finish()
		c.stage.Clear()
	}) {
		c.logger.Debug("send ended by logout", "outcome", result.Kind, "model", req.Model)
		return ErrSessionEnded
	}
	if marked {
		c.surface.EntryUpdated(entry.Snapshot(), "")
	}
	c.notifyStage()
	c.notifyTranscript()

	c.logger.Debug("send finished",
		"outcome", result.Kind,
		"model", req.Model,
		"files", len(attachments),
		"chunks", result.Chunks,
		"bytes", result.Bytes,
	)

	if result.Kind != stream.Completed {
		c.status(AreaChat, result.Message, true)
		return &SendError{Result: result}
	}
	c.status(AreaChat, "", false)
	return nil
}

// Cancel aborts the running send, if any. It reports whether one was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	cancel := c.cancelSend
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func (c *Controller) endSend(cancel context.CancelFunc) {
	cancel()
	c.mu.Lock()
	c.inFlight = false
	c.cancelSend = nil
	c.mu.Unlock()
	c.surface.BusyChanged(false)
}

// applyOutcome writes the error indicator for a failed stream and reports
// whether it changed the entry. Text that already streamed is kept and the
// marker goes after it.
func applyOutcome(entry *model.StreamingEntry, result stream.Result) bool {
	switch result.Kind {
	case stream.Errored:
		entry.Replace("Error: " + result.Message)
	case stream.NetworkFailed:
		if result.Chunks == 0 {
			entry.Replace(noticeGenerateFailed)
		} else {
			entry.Append("\n\n[error: " + result.Message + "]")
		}
	default:
		return false
	}
	return true
}

func stagingMessage(err error) string {
	if clientErr := backend.AsClientError(err); clientErr != nil {
		if clientErr.Body != "" && clientErr.Type == backend.ErrTypeInvalidResponse {
			return clientErr.Body
		}
		return backend.UserMessage(err, "could not reach the server")
	}
	return err.Error()
}

// =============================================================================
// STREAM SINK
// =============================================================================

// entrySink applies streamed text to the transcript entry and forwards the
// change to the surface while the session that started the send is live.
type entrySink struct {
	entry   *model.StreamingEntry
	surface Surface
	live    func() bool
}

func (s *entrySink) Append(text string) {
	s.entry.Append(text)
	if s.live() {
		s.surface.EntryUpdated(s.entry.Snapshot(), text)
	}
}

func (s *entrySink) ScrollToTail() {
	if s.live() {
		s.surface.ScrollToTail()
	}
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

// AddLocalFiles stages files read by the surface.
func (c *Controller) AddLocalFiles(files ...attach.LocalFile) []attach.Record {
	if len(files) == 0 {
		return nil
	}
	out := make([]attach.Record, 0, len(files))
	for _, f := range files {
		out = append(out, c.stage.AddLocal(f))
	}
	c.notifyStage()
	return out
}

// RemoveLocal unstages the local file at index. Out-of-range is a no-op.
func (c *Controller) RemoveLocal(index int) bool {
	if !c.stage.RemoveLocal(index) {
		return false
	}
	c.notifyStage()
	return true
}

// RemoveRemote deletes a session file and unstages it. Failures are
// reported on the files area and leave the stage unchanged.
func (c *Controller) RemoveRemote(ctx context.Context, remoteID string) error {
	if err := c.stage.RemoveRemote(ctx, remoteID); err != nil {
		c.status(AreaFiles, "Failed to delete file from session.", true)
		return err
	}
	c.status(AreaFiles, "", false)
	c.notifyStage()
	return nil
}

// ClearLocalAttachments unstages every local file and keeps remote files.
func (c *Controller) ClearLocalAttachments() int {
	n := c.stage.ClearLocal()
	c.notifyStage()
	return n
}

// ListSessionFiles refreshes the remote records from the backend.
func (c *Controller) ListSessionFiles(ctx context.Context) ([]backend.SessionFile, error) {
	c.status(AreaFiles, "Loading session files…", false)

	files, err := c.backend.ListSessionFiles(ctx)
	if err != nil {
		c.logger.Debug("list files failed", "op", "list_files", "err", err)
		c.status(AreaFiles, "Failed to list session files.", true)
		return nil, err
	}
	c.stage.ReplaceRemote(files)
	c.status(AreaFiles, "", false)
	c.notifyStage()
	return files, nil
}
