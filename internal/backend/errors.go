// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the WarriorChat backend API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTransport: the request could not be sent or the response could not be read.
	ErrTypeTransport
	// ErrTypeTimeout: the request deadline passed or the caller cancelled.
	ErrTypeTimeout
	// ErrTypeStatus: the backend answered with a non-success status.
	ErrTypeStatus
	// ErrTypeUnauthorized: 401 from the backend.
	ErrTypeUnauthorized
	// ErrTypeNotFound: 404 from the backend.
	ErrTypeNotFound
	// ErrTypeInvalidResponse: the body could not be decoded, or reported ok=false.
	ErrTypeInvalidResponse
)

// String returns the name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "transport"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeNotFound:
		return "not_found"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the backend client.
type ClientError struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "login", "upload")
	StatusCode int    // HTTP status, zero for transport errors
	Message    string // Human-readable message, the backend's detail when present
	Body       string // Raw response body, trimmed
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Detail returns the message meant for the user, without the operation prefix.
func (e *ClientError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "request failed"
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func transportError(op string, err error) *ClientError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeTimeout, Op: op, Message: "request cancelled or timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeTransport, Op: op, Message: "request failed", Cause: err}
}

// statusError builds a ClientError from a non-success response. The body
// is consumed.
func statusError(op string, resp *http.Response) *ClientError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return StatusError(op, resp.StatusCode, resp.Status, body)
}

// StatusError builds a ClientError from a status code and an error body.
// The message is the backend's detail when the body carries one, otherwise
// the trimmed body text, otherwise the status line.
func StatusError(op string, code int, status string, body []byte) *ClientError {
	typ := ErrTypeStatus
	switch code {
	case http.StatusUnauthorized:
		typ = ErrTypeUnauthorized
	case http.StatusNotFound:
		typ = ErrTypeNotFound
	}

	raw := strings.TrimSpace(string(body))
	msg := DetailFromBody(body)
	if msg == "" {
		msg = raw
	}
	if msg == "" {
		msg = statusLine(code, status)
	}

	return &ClientError{Type: typ, Op: op, StatusCode: code, Message: msg, Body: raw}
}

// DetailFromBody extracts the "detail" field of a FastAPI error body.
// Validation errors carry a list of objects; their "msg" fields are joined.
func DetailFromBody(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func statusLine(code int, status string) string {
	if status = strings.TrimSpace(status); status != "" {
		return status
	}
	if text := http.StatusText(code); text != "" {
		return strconv.Itoa(code) + " " + text
	}
	return "status " + strconv.Itoa(code)
}

// =============================================================================
// ERROR CHECKS
// =============================================================================

// AsClientError returns the ClientError in err's chain, or nil.
func AsClientError(err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return nil
}

// IsNotFound checks if an error is a 404 from the backend.
func IsNotFound(err error) bool {
	if e := AsClientError(err); e != nil {
		return e.Type == ErrTypeNotFound
	}
	return false
}

// IsUnauthorized checks if an error is a 401 from the backend.
func IsUnauthorized(err error) bool {
	if e := AsClientError(err); e != nil {
		return e.Type == ErrTypeUnauthorized
	}
	return false
}

// IsTransport checks if an error happened before a response was obtained.
func IsTransport(err error) bool {
	if e := AsClientError(err); e != nil {
		return e.Type == ErrTypeTransport || e.Type == ErrTypeTimeout
	}
	return false
}

// UserMessage returns the text shown to the user for err, or fallback when
// err carries no backend detail.
func UserMessage(err error, fallback string) string {
	e := AsClientError(err)
	if e == nil || e.Type == ErrTypeTransport || e.Type == ErrTypeTimeout {
		return fallback
	}
	if e.Message == "" {
		return fallback
	}
	return e.Message
}
