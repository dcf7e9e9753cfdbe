// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/backend"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 16 * 1024

// DefaultReadSize is the read buffer size used when none is configured.
const DefaultReadSize = 4096

// =============================================================================
// PORTS
// =============================================================================

// Generator issues a generate request. *backend.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req backend.GenerateRequest) (*backend.GenerateResponse, error)
}

// Sink receives decoded text in the order it was read.
type Sink interface {
	// Append adds text to the end of the streaming entry.
	Append(text string)
	// ScrollToTail asks the display to reveal the newest text.
	ScrollToTail()
}

// =============================================================================
// RESULT
// =============================================================================

// Kind is the terminal outcome of a Consume call.
type Kind int

const (
	// Completed means the body closed without error.
	Completed Kind = iota
	// Errored means a non-success status or a missing body. No text was applied.
	Errored
	// NetworkFailed means the transport failed before or during the body.
	NetworkFailed
)

// String returns the outcome name used in logs.
func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	case NetworkFailed:
		return "network_failed"
	default:
		return "unknown"
	}
}

// Result describes how a Consume call ended.
type Result struct {
	Kind       Kind
	Message    string // empty for Completed
	StatusCode int    // zero when no response was obtained
	Chunks     int    // pieces handed to the sink
	Bytes      int    // decoded bytes handed to the sink
	Duration   time.Duration
}

// OK reports whether the stream completed.
func (r Result) OK() bool {
	return r.Kind == Completed
}

// =============================================================================
// CONSUMER
// =============================================================================

// Consumer drives a single generate request to a terminal outcome.
// It holds no per-request state and may be reused; callers serialize
// requests that share a Sink.
type Consumer struct {
	gen      Generator
	readSize int
	logger   *log.Logger
}

// NewConsumer creates a consumer. A nil logger disables logging.
func NewConsumer(gen Generator, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Consumer{
		gen:      gen,
		readSize: DefaultReadSize,
		logger:   logger.WithPrefix("stream"),
	}
}

// WithReadSize sets the read buffer size. Values below one are ignored.
func (c *Consumer) WithReadSize(n int) *Consumer {
	if n > 0 {
		c.readSize = n
	}
	return c
}

// Consume issues req and applies the streamed body to sink. ctx cancels the
// request and the body read; pass context.Background() to run to the end.
func (c *Consumer) Consume(ctx context.Context, req backend.GenerateRequest, sink Sink) Result {
	start := time.Now()
	result := c.consume(ctx, req, sink)
	result.Duration = time.Since(start)

	c.logger.Debug("generate finished",
		"outcome", result.Kind,
		"status", result.StatusCode,
		"model", req.Model,
		"chunks", result.Chunks,
		"bytes", result.Bytes,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result
}

func (c *Consumer) consume(ctx context.Context, req backend.GenerateRequest, sink Sink) Result {
	resp, err := c.gen.Generate(ctx, req)
	if err != nil {
		return Result{Kind: NetworkFailed, Message: networkMessage(ctx, err)}
	}
	if resp == nil {
		return Result{Kind: NetworkFailed, Message: "no response"}
	}
	defer resp.Close()

	if !resp.OK() || resp.Body == nil {
		return Result{
			Kind:       Errored,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	result := Result{StatusCode: resp.StatusCode}
	dec := NewDecoder()
	buf := make([]byte, c.readSize)

	emit := func(text string) {
		if text == "" {
			return
		}
		sink.Append(text)
		sink.ScrollToTail()
		result.Chunks++
		result.Bytes += len(text)
	}

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			emit(dec.Decode(buf[:n]))
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			emit(dec.Flush())
			result.Kind = Completed
			return result
		}

		// Partial sequences are dropped on failure
		dec.Reset()
		result.Kind = NetworkFailed
		result.Message = networkMessage(ctx, readErr)
		return result
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// errorMessage derives the message for an Errored outcome from the body
// text or the status line.
func errorMessage(resp *backend.GenerateResponse) string {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}
	if resp.OK() {
		return "empty response"
	}
	return backend.StatusError("generate", resp.StatusCode, resp.Status, body).Message
}

func networkMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if clientErr := backend.AsClientError(err); clientErr != nil && clientErr.Cause != nil {
		return clientErr.Cause.Error()
	}
	return err.Error()
}
