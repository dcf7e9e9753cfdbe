// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend implements enough of the WarriorChat API to exercise the client.
type fakeBackend struct {
	mu       sync.Mutex
	users    map[string]string // email -> password
	sessions map[string]string // cookie -> email
	files    map[string]string // id -> name
	nextID   int

	lastUploadMessage string
	lastGenerate      map[string]any
	lastModel         string
	modelsMissing     bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:    map[string]string{"ada@example.com": "secret"},
		sessions: make(map[string]string),
		files:    make(map[string]string),
	}
}

func (f *fakeBackend) user(r *http.Request) string {
	c, err := r.Cookie("session")
	if err != nil {
		return ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[c.Value]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		email := f.user(r)
		if email == "" {
			writeJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 1, "email": email}})
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.users[body.Email]; ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
			return
		}
		f.users[body.Email] = body.Password
		writeJSON(w, http.StatusOK, map[string]any{"id": len(f.users), "email": body.Email})
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad form"})
			return
		}
		email, password := r.PostForm.Get("username"), r.PostForm.Get("password")
		f.mu.Lock()
		ok := f.users[email] == password && password != ""
		if ok {
			f.sessions["tok-"+email] = email
		}
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok-" + email, Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			f.mu.Lock()
			delete(f.sessions, c.Value)
			f.mu.Unlock()
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /auth/request_password_reset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reset_token": "tok123", "expires_in_minutes": 30})
	})

	mux.HandleFunc("POST /auth/reset_password", func(w http.ResponseWriter, r *http.Request) {
		var body resetPassword
		json.NewDecoder(r.Body).Decode(&body)
		if body.Token != "tok123" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		missing := f.modelsMissing
		f.mu.Unlock()
		if missing {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]string{
			{"name": "gpt-oss", "display_name": "GPT OSS"},
			{"name": "llama3"},
		})
	})

	mux.HandleFunc("GET /files/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		files := make([]map[string]any, 0, len(f.files))
		for id, name := range f.files {
			files = append(files, map[string]any{"id": id, "name": name})
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"sid": "s1", "files": files})
	})

	mux.HandleFunc("POST /files/upload", func(w http.ResponseWriter, r *http.Request) {
		if f.user(r) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastUploadMessage = r.FormValue("message")
		var out []map[string]any
		for _, fh := range r.MultipartForm.File["files"] {
			f.nextID++
			id := "f" + string(rune('0'+f.nextID))
			f.files[id] = fh.Filename
			out = append(out, map[string]any{
				"id": id, "name": fh.Filename, "url": "/files/" + id,
				"type": fh.Header.Get("Content-Type"), "size": fh.Size,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "files": out, "ttl_seconds": 3600})
	})

	mux.HandleFunc("DELETE /files/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.files[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "File not found"})
			return
		}
		delete(f.files, id)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastGenerate = body
		f.lastModel = r.URL.Query().Get("model")
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range []string{"Hel", "lo, ", "world"} {
			io.WriteString(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		}
	})

	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	fake := newFakeBackend()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL + "/", Timeout: 5 * time.Second})
	return client, fake
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{})
	assert.Equal(t, "http://127.0.0.1:8000", client.BaseURL())
	assert.Equal(t, 30*time.Second, client.config.Timeout)
	assert.Equal(t, "/models", client.config.ModelsPath)
	assert.Zero(t, client.streamClient.Timeout, "stream client must not carry a timeout")
	assert.Same(t, client.httpClient.Jar, client.streamClient.Jar, "clients must share one cookie jar")
}

func TestNewClientWithConfig_TrimsTrailingSlash(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "https://chat.example.com///"})
	assert.Equal(t, "https://chat.example.com", client.BaseURL())
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestClient_LoginSetsSessionCookie(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me, "fresh client should be anonymous")

	require.NoError(t, client.Login(ctx, "ada@example.com", "secret"))

	me, err = client.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, "ada@example.com", me.Email)

	require.NoError(t, client.Logout(ctx))
	me, err = client.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me, "logout should end the session")
}

func TestClient_LoginInvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", UserMessage(err, "fallback"))
}

func TestClient_Register(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	user, err := client.Register(ctx, "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)

	_, err = client.Register(ctx, "bob@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", UserMessage(err, "Registration failed"))

	// Registration does not sign in.
	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestClient_PasswordReset(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	resp, err := client.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "tok123", resp.ResetToken)
	assert.Equal(t, 30, resp.ExpiresInMinutes)

	require.NoError(t, client.ResetPassword(ctx, "tok123", "new"))

	err = client.ResetPassword(ctx, "bogus", "new")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired token", UserMessage(err, "Reset failed"))
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestClient_ListModels(t *testing.T) {
	client, fake := newTestClient(t)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "GPT OSS", models[0].Label())
	assert.Equal(t, "llama3", models[1].Label(), "label falls back to name")

	fake.mu.Lock()
	fake.modelsMissing = true
	fake.mu.Unlock()
	_, err = client.ListModels(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestClient_UploadListDelete(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx, "ada@example.com", "secret"))

	resp, err := client.Upload(ctx, []UploadFile{
		{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
		{Name: "cat.png", ContentType: "image/png", Data: []byte("\x89PNG")},
	}, "see attached")
	require.NoError(t, err)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "notes.txt", resp.Files[0].Name)
	assert.Equal(t, "image/png", resp.Files[1].Type)
	assert.Equal(t, int64(5), resp.Files[0].Size)
	fake.mu.Lock()
	assert.Equal(t, "see attached", fake.lastUploadMessage)
	fake.mu.Unlock()

	files, err := client.ListSessionFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, client.DeleteSessionFile(ctx, resp.Files[0].ID))

	err = client.DeleteSessionFile(ctx, resp.Files[0].ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	files, err = client.ListSessionFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestClient_UploadRejected(t *testing.T) {
	client, _ := newTestClient(t)

	// Not signed in
	_, err := client.Upload(context.Background(), []UploadFile{{Name: "a.txt", Data: []byte("a")}}, "")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestClient_UploadNotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "files": []any{}})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	_, err := client.Upload(context.Background(), []UploadFile{{Name: "a.txt", Data: []byte("a")}}, "")
	require.Error(t, err)

	clientErr := AsClientError(err)
	require.NotNil(t, clientErr)
	assert.Equal(t, ErrTypeInvalidResponse, clientErr.Type)
	assert.Contains(t, clientErr.Body, `"ok":false`)
}

func TestClient_ListSessionFilesBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{{"id": "x1", "name": "a.txt"}})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	files, err := client.ListSessionFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "x1", files[0].ID)
}

func TestClient_DeleteSessionFileEscapesID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	require.NoError(t, client.DeleteSessionFile(context.Background(), "a/b c"))
	assert.Equal(t, "/files/session/a%2Fb%20c", gotPath)
}

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestClient_GenerateStreamsBody(t *testing.T) {
	client, fake := newTestClient(t)

	resp, err := client.Generate(context.Background(), GenerateRequest{
		Model:       "gpt-oss",
		Prompt:      "hi",
		System:      "be brief",
		Attachments: []RemoteFile{{ID: "f1", Name: "a.txt"}},
		LLMParams:   map[string]any{"temperature": 0.2},
	})
	require.NoError(t, err)
	defer resp.Close()

	require.True(t, resp.OK())
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", string(body))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "gpt-oss", fake.lastModel)
	assert.Equal(t, "hi", fake.lastGenerate["prompt"])
	assert.Equal(t, "be brief", fake.lastGenerate["system"])
	assert.NotContains(t, fake.lastGenerate, "model", "model travels in the query string")
	attachments, ok := fake.lastGenerate["attachments"].([]any)
	require.True(t, ok)
	assert.Len(t, attachments, 1)
}

func TestClient_GenerateOmitsEmptyFields(t *testing.T) {
	client, fake := newTestClient(t)

	resp, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	resp.Close()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.lastModel)
	assert.NotContains(t, fake.lastGenerate, "system")
	assert.NotContains(t, fake.lastGenerate, "attachments")
	assert.NotContains(t, fake.lastGenerate, "llm_params")
}

func TestClient_GenerateReturnsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: server.URL})
	resp, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err, "non-2xx is not a transport failure")
	defer resp.Close()
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestClient_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Me(ctx)
	require.Error(t, err)
	clientErr := AsClientError(err)
	require.NotNil(t, clientErr)
	assert.Equal(t, ErrTypeTimeout, clientErr.Type)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestDetailFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail": "Invalid credentials"}`, "Invalid credentials"},
		{"validation list", `{"detail": [{"msg": "field required"}, {"msg": "too short"}]}`, "field required; too short"},
		{"no detail", `{"error": "x"}`, ""},
		{"not json", `Internal Server Error`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailFromBody([]byte(tt.body)))
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	err := StatusError("generate", 500, "500 Internal Server Error", []byte("  model crashed \n"))
	assert.Equal(t, "model crashed", err.Message)
	assert.Equal(t, ErrTypeStatus, err.Type)

	err = StatusError("generate", 503, "", nil)
	assert.Equal(t, "503 Service Unavailable", err.Message)

	err = StatusError("me", 401, "401 Unauthorized", []byte(`{"detail":"Not authenticated"}`))
	assert.Equal(t, ErrTypeUnauthorized, err.Type)
	assert.Equal(t, "Not authenticated", err.Detail())
	assert.True(t, strings.HasPrefix(err.Error(), "me: "))
}
