// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the WarriorChat backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/model"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s).
	// Generate requests are bounded only by their context.
	Timeout time.Duration

	// ModelsPath is the model listing endpoint (default: /models)
	ModelsPath string

	// Logger receives debug lines for each request. Nil disables logging.
	Logger *log.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    "http://127.0.0.1:8000",
		Timeout:    30 * time.Second,
		ModelsPath: "/models",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the backend.
// The session cookie lives in an in-memory jar shared by all requests.
//
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	logger       *log.Logger
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ModelsPath == "" {
		config.ModelsPath = "/models"
	}

	// cookiejar.New only fails when given options it cannot apply
	jar, _ := cookiejar.New(nil)

	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
		// No client timeout for streaming (we handle timeout via context)
		streamClient: &http.Client{
			Jar: jar,
		},
		logger: logger.WithPrefix("backend"),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// SESSION & AUTH
// =============================================================================

// Me probes the current session. It returns nil without error when the
// backend reports no signed-in user (401 or {"user": null}).
func (c *Client) Me(ctx context.Context) (*model.Identity, error) {
	var resp meResponse
	err := c.doJSON(ctx, "me", http.MethodGet, "/me", nil, &resp)
	if err != nil {
		if IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.User, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, email, password string) (*RegisteredUser, error) {
	var resp RegisteredUser
	body := credentials{Email: email, Password: password}
	if err := c.doJSON(ctx, "register", http.MethodPost, "/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login signs in with the form-encoded username/password pair the backend's
// OAuth2 password form expects. On success the session cookie is stored in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var resp loginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", c.httpClient, &resp)
	if err != nil {
		return err
	}
	return nil
}

// Logout clears the session cookie server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil)
}

// RequestPasswordReset asks for a reset token for email. The backend answers
// ok whether or not the account exists.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResponse, error) {
	var resp ResetRequestResponse
	body := resetRequest{Email: email}
	if err := c.doJSON(ctx, "request_reset", http.MethodPost, "/auth/request_password_reset", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := resetPassword{Token: token, NewPassword: newPassword}
	return c.doJSON(ctx, "reset_password", http.MethodPost, "/auth/reset_password", body, nil)
}

// =============================================================================
// MODELS
// =============================================================================

// ListModels retrieves the models offered by the backend.
// A missing endpoint surfaces as a ClientError with ErrTypeNotFound.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var resp []ModelInfo
	if err := c.doJSON(ctx, "list_models", http.MethodGet, c.config.ModelsPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// =============================================================================
// SESSION FILES
// =============================================================================

// ListSessionFiles lists the files uploaded during this session. Both the
// object form ({"files": [...]}) and a bare array are accepted.
func (c *Client) ListSessionFiles(ctx context.Context) ([]SessionFile, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "list_files", http.MethodGet, "/files/session", nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var files []SessionFile
		if err := json.Unmarshal(trimmed, &files); err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Op: "list_files", Message: "failed to decode response", Cause: err}
		}
		return files, nil
	}

	var resp sessionFilesResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Op: "list_files", Message: "failed to decode response", Cause: err}
	}
	return resp.Files, nil
}

// Upload sends every file plus the caption text in one multipart request.
// A response with ok=false is reported as ErrTypeInvalidResponse so that
// callers never treat a partial upload as success.
func (c *Client) Upload(ctx context.Context, files []UploadFile, message string) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range files {
		name := f.Name
		if name == "" {
			name = "attachment"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", multipartDisposition("files", name))
		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Op: "upload", Message: "failed to build request", Cause: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Op: "upload", Message: "failed to build request", Cause: err}
		}
	}
	if err := mw.WriteField("message", message); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Op: "upload", Message: "failed to build request", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Op: "upload", Message: "failed to build request", Cause: err}
	}

	var resp UploadResponse
	if err := c.do(ctx, "upload", http.MethodPost, "/files/upload", &buf, mw.FormDataContentType(), c.httpClient, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		payload, _ := json.Marshal(resp)
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Op: "upload", Message: "upload not accepted", Body: string(payload)}
	}
	return &resp, nil
}

// DeleteSessionFile removes one uploaded file from the session.
func (c *Client) DeleteSessionFile(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete_file", http.MethodDelete, "/files/session/"+url.PathEscape(id), nil, nil)
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate starts a streaming generate request. The returned response is
// handed back whatever its status; only transport failures are returned as
// errors. The caller owns resp.Body.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Op: "generate", Message: "failed to marshal request", Cause: err}
	}

	path := "/api/generate"
	if strings.TrimSpace(req.Model) != "" {
		path += "?" + url.Values{"model": {req.Model}}.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Op: "generate", Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "op", "generate", "err", err)
		return nil, transportError("generate", err)
	}
	c.logger.Debug("response", "op", "generate", "status", resp.StatusCode, "model", req.Model,
		"attachments", len(req.Attachments))

	return &GenerateResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// doJSON sends body (if any) as JSON and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Type: ErrTypeUnknown, Op: op, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, reader, contentType, c.httpClient, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, httpClient *http.Client, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeTransport, Op: op, Message: "failed to create request", Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "err", err)
		return transportError(op, err)
	}
	defer drainAndClose(resp.Body)

	c.logger.Debug("response", "op", op, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Op: op, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// multipartDisposition mirrors multipart.Writer.CreateFormFile but keeps the
// caller's Content-Type.
func multipartDisposition(field, filename string) string {
	quoter := strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
	return `form-data; name="` + quoter.Replace(field) + `"; filename="` + quoter.Replace(filename) + `"`
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
	r.Close()
}
