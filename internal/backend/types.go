// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the WarriorChat backend API.
package backend

import (
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/warriorchat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// credentials is the JSON body for /auth/register.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// resetRequest is the JSON body for /auth/request_password_reset.
type resetRequest struct {
	Email string `json:"email"`
}

// resetPassword is the JSON body for /auth/reset_password.
type resetPassword struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	// Model is sent as the ?model= query parameter, not in the body.
	Model string `json:"-"`

	Prompt      string         `json:"prompt"`
	System      string         `json:"system,omitempty"`
	Attachments []RemoteFile   `json:"attachments,omitempty"`
	LLMParams   map[string]any `json:"llm_params,omitempty"`
}

// UploadFile is one file part of a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// meResponse is the response from /me.
type meResponse struct {
	User *model.Identity `json:"user"`
}

// RegisteredUser is the response from /auth/register.
type RegisteredUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// loginResponse is the response from /auth/login.
type loginResponse struct {
	OK   bool            `json:"ok"`
	User *model.Identity `json:"user,omitempty"`
}

// ResetRequestResponse is the response from /auth/request_password_reset.
// ResetToken is only populated by non-production backends.
type ResetRequestResponse struct {
	OK               bool   `json:"ok"`
	ResetToken       string `json:"reset_token,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
}

// ModelInfo describes one model offered by the backend.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type,omitempty"`
}

// Label returns the human-readable model name.
func (m ModelInfo) Label() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.Name
}

// RemoteFile describes a file persisted server-side for the session. It is
// both the upload result and the attachment descriptor sent to /api/generate.
type RemoteFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Stored string `json:"stored,omitempty"`
	Type   string `json:"type,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// SessionFile is one entry of the /files/session listing.
type SessionFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size,omitempty"`
	Modified  int64  `json:"modified,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// sessionFilesResponse is the object form of the /files/session listing.
type sessionFilesResponse struct {
	SID   string        `json:"sid"`
	Files []SessionFile `json:"files"`
}

// UploadResponse is the response from /files/upload.
type UploadResponse struct {
	OK         bool         `json:"ok"`
	SID        string       `json:"sid,omitempty"`
	Files      []RemoteFile `json:"files"`
	TTLSeconds int          `json:"ttl_seconds,omitempty"`
}

// GenerateResponse is the raw response of a generate call. The body is not
// read by the client; callers own Body and must close it.
type GenerateResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// OK reports whether the status is 2xx.
func (r *GenerateResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Close closes the body if present.
func (r *GenerateResponse) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
