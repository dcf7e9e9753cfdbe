// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/session"
)

// =============================================================================
// FAKE CONTROLLER
// =============================================================================

// fakeController answers like session.Controller and reports through surface.
type fakeController struct {
	mu       sync.Mutex
	surface  *Surface
	identity *model.Identity
	loginErr error
	prompts  []string
	removed  []int
	selected string
	models   []backend.ModelInfo
	added    []attach.LocalFile
}

func newFakeController(surface *Surface) *fakeController {
	return &fakeController{
		surface: surface,
		models:  []backend.ModelInfo{{Name: "warrior-7b"}, {Name: "warrior-70b"}},
	}
}

func (f *fakeController) Bootstrap(context.Context) *model.Identity {
	f.surface.IdentityChanged(f.identity.Clone())
	return f.identity.Clone()
}

func (f *fakeController) Login(_ context.Context, email, _ string) error {
	if f.loginErr != nil {
		f.surface.Status(session.Status{Area: session.AreaAuth, Text: "Invalid credentials", Error: true})
		return f.loginErr
	}
	f.identity = &model.Identity{Email: email}
	f.surface.IdentityChanged(f.identity.Clone())
	f.surface.ModelsLoaded(f.models, f.models[0].Name)
	return nil
}

func (f *fakeController) Logout(context.Context) error {
	f.identity = nil
	f.surface.IdentityChanged(nil)
	return nil
}

func (f *fakeController) Register(_ context.Context, email, _ string) (string, error) {
	return strings.TrimSpace(email), nil
}

func (f *fakeController) Send(_ context.Context, prompt string) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	user := model.TranscriptEntry{ID: "u1", Role: model.RoleUser, Text: prompt, Timestamp: time.Now()}
	reply := model.TranscriptEntry{ID: "a1", Role: model.RoleAssistant, Streaming: true, Timestamp: time.Now()}

	f.surface.BusyChanged(true)
	f.surface.TranscriptChanged([]model.TranscriptEntry{user, reply})
	reply.Text = "Hello there"
	f.surface.EntryUpdated(reply, "Hello there")
	reply.Streaming = false
	f.surface.TranscriptChanged([]model.TranscriptEntry{user, reply})
	f.surface.BusyChanged(false)
	return nil
}

func (f *fakeController) Cancel() bool { return false }

func (f *fakeController) AddLocalFiles(files ...attach.LocalFile) []attach.Record {
	f.added = append(f.added, files...)
	out := make([]attach.Record, len(files))
	for i, file := range files {
		out[i] = attach.Record{ID: file.Name, Name: file.Name, LocalIndex: i}
	}
	f.surface.StageChanged(out)
	return out
}

func (f *fakeController) RemoveLocal(index int) bool {
	f.removed = append(f.removed, index)
	return index == 0
}

func (f *fakeController) RemoveRemote(context.Context, string) error { return nil }
func (f *fakeController) ClearLocalAttachments() int                { return 0 }

func (f *fakeController) ListSessionFiles(context.Context) ([]backend.SessionFile, error) {
	return nil, nil
}

func (f *fakeController) LoadModels(context.Context) []backend.ModelInfo {
	f.surface.ModelsLoaded(f.models, f.selected)
	return f.models
}

func (f *fakeController) SelectModel(name string) error {
	for _, m := range f.models {
		if m.Name == name {
			f.selected = name
			f.surface.ModelsLoaded(f.models, name)
			return nil
		}
	}
	return session.ErrUnknownModel
}

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	t       *testing.T
	m       Model
	surface *Surface
	ctrl    *fakeController
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	surface := NewSurface()
	ctrl := newFakeController(surface)
	opts.Controller = ctrl
	opts.Surface = surface
	h := &harness{t: t, m: New(opts), surface: surface, ctrl: ctrl}
	h.update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

// update applies msg, runs the returned command and feeds back every
// message the command or the surface produced.
func (h *harness) update(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	for _, out := range h.run(cmd) {
		h.update(out)
	}
	for _, queued := range h.surface.Pending() {
		h.update(queued)
	}
}

// run executes cmd, expanding batches. Timers are dropped so the loop ends.
func (h *harness) run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, tea.QuitMsg, StreamTickMsg, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, h.run(c)...)
		}
		return out
	default:
		// Cursor blink messages
		if name := fmt.Sprintf("%T", msg); strings.HasPrefix(name, "cursor.") || strings.HasPrefix(name, "textinput.") {
			return nil
		}
		return []tea.Msg{msg}
	}
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(k tea.KeyType) {
	h.t.Helper()
	h.update(tea.KeyMsg{Type: k})
}

func (h *harness) signIn() {
	h.t.Helper()
	h.update(bootstrapDoneMsg{})
	h.typeText("user@example.mil")
	h.press(tea.KeyTab)
	h.typeText("secret")
	h.press(tea.KeyEnter)
	require.True(h.t, h.m.SignedIn(), "expected to be signed in")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_AnonymousShowsSignInForm(t *testing.T) {
	h := newHarness(t, Options{BaseURL: "http://chat.local"})

	assert.Contains(t, h.m.View(), "Connecting to http://chat.local")

	h.update(bootstrapDoneMsg{})
	view := h.m.View()
	assert.Contains(t, view, "Sign in")
	assert.Contains(t, view, "Email")
	assert.False(t, h.m.SignedIn())
}

func TestModel_LoginRevealsChat(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	assert.Equal(t, "warrior-7b", h.m.Selected())
	view := h.m.View()
	assert.Contains(t, view, "WarriorChat")
	assert.Contains(t, view, "user@example.mil")
	assert.NotContains(t, view, "secret")
}

func TestModel_LoginFailureStaysOnForm(t *testing.T) {
	h := newHarness(t, Options{})
	h.ctrl.loginErr = errors.New("401")
	h.update(bootstrapDoneMsg{})

	h.typeText("user@example.mil")
	h.press(tea.KeyTab)
	h.typeText("wrong")
	h.press(tea.KeyEnter)

	assert.False(t, h.m.SignedIn())
	assert.Equal(t, "Invalid credentials", h.m.StatusText(session.AreaAuth))
	assert.Contains(t, h.m.View(), "Invalid credentials")
}

func TestModel_EmptyFormIsRejectedLocally(t *testing.T) {
	h := newHarness(t, Options{})
	h.update(bootstrapDoneMsg{})

	h.press(tea.KeyEnter)

	assert.Equal(t, "Email and password are required.", h.m.StatusText(session.AreaAuth))
}

func TestModel_SendStreamsReply(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("hi there")
	h.press(tea.KeyEnter)

	assert.Equal(t, []string{"hi there"}, h.ctrl.prompts)
	assert.Empty(t, h.m.Input())
	assert.False(t, h.m.Busy())

	entries := h.m.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello there", entries[1].Text)
	assert.Contains(t, h.m.viewport.View(), "Hello there")
}

func TestModel_StreamingSnapshotIsShownOnTick(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	entries := []model.TranscriptEntry{
		{ID: "a1", Role: model.RoleAssistant, Streaming: true, Timestamp: time.Now()},
	}
	h.update(BusyMsg{Busy: true})
	h.update(TranscriptMsg{Entries: entries})

	h.surface.EntryUpdated(model.TranscriptEntry{ID: "a1", Role: model.RoleAssistant, Text: "partial", Streaming: true}, "partial")
	h.m.flushStream(true)

	assert.Contains(t, h.m.viewport.View(), "partial")
}

func TestModel_SlashModel(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("/model warrior-70b")
	h.press(tea.KeyEnter)
	assert.Equal(t, "warrior-70b", h.m.Selected())

	h.typeText("/model nope")
	h.press(tea.KeyEnter)
	require.NotNil(t, h.m.notice)
	assert.True(t, h.m.notice.isErr)
	assert.Contains(t, h.m.notice.text, "(see /models)")
	assert.Equal(t, "warrior-70b", h.m.Selected())
}

func TestModel_SlashRemove(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("/rm abc")
	h.press(tea.KeyEnter)
	require.NotNil(t, h.m.notice)
	assert.True(t, h.m.notice.isErr)
	assert.Empty(t, h.ctrl.removed)

	h.typeText("/rm 3")
	h.press(tea.KeyEnter)
	assert.Equal(t, []int{3}, h.ctrl.removed)
	assert.Equal(t, "No attachment #3.", h.m.notice.text)
}

func TestModel_REPLOnlyCommandIsRefused(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("/register")
	h.press(tea.KeyEnter)

	require.NotNil(t, h.m.notice)
	assert.True(t, h.m.notice.isErr)
}

func TestModel_AttachUsesReader(t *testing.T) {
	var paths []string
	h := newHarness(t, Options{
		ReadFiles: func(p ...string) ([]attach.LocalFile, error) {
			paths = append(paths, p...)
			return []attach.LocalFile{{Name: "notes.txt", Data: []byte("x")}}, nil
		},
	})
	h.signIn()

	h.typeText("/attach notes.txt")
	h.press(tea.KeyEnter)

	assert.Equal(t, []string{"notes.txt"}, paths)
	require.Len(t, h.m.Records(), 1)
	assert.Equal(t, "Staged 1 file.", h.m.notice.text)
	assert.Contains(t, h.m.View(), "#0 notes.txt")
}

func TestModel_ImagePreviewIsDecodedAndRevoked(t *testing.T) {
	store := preview.NewMemoryStore()
	h := newHarness(t, Options{Previews: store})
	h.signIn()

	url := store.Create(pngBytes(t, 4, 3), "image/png")
	h.update(StageMsg{Records: []attach.Record{{
		ID: "r1", Name: "photo.png", Kind: attach.Local, PreviewURL: url, IsImage: true,
	}}})

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, "png 4x3", h.m.images["r1"].String())
	assert.Contains(t, h.m.View(), "png 4x3")

	h.update(StageMsg{})
	assert.Empty(t, h.m.images)
}

func TestModel_LongChipNamesAreTruncated(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	long := strings.Repeat("a", 60) + ".txt"
	h.update(StageMsg{Records: []attach.Record{{ID: "r1", Name: long, Kind: attach.Local}}})

	chips := h.m.renderChips()
	assert.NotContains(t, chips, long)
	assert.Contains(t, chips, "…")
}

func TestModel_TabCompletesCommands(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("/mo")
	h.press(tea.KeyTab)
	first := h.m.Input()
	assert.True(t, strings.HasPrefix(first, "/model"), "got %q", first)

	h.press(tea.KeyTab)
	second := h.m.Input()
	assert.True(t, strings.HasPrefix(second, "/model"), "got %q", second)
	assert.NotEqual(t, first, second)

	h.press(tea.KeyEsc)
	assert.Equal(t, "/mo", h.m.Input())
}

func TestModel_LogoutReturnsToForm(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()
	h.typeText("hello")
	h.press(tea.KeyEnter)
	require.NotEmpty(t, h.m.Transcript())

	h.typeText("/logout")
	h.press(tea.KeyEnter)

	assert.False(t, h.m.SignedIn())
	assert.Empty(t, h.m.Transcript())
	assert.Contains(t, h.m.View(), "Sign in")
}

func TestModel_HelpOverlay(t *testing.T) {
	h := newHarness(t, Options{})
	h.signIn()

	h.typeText("/help")
	h.press(tea.KeyEnter)
	view := h.m.View()
	assert.Contains(t, view, "/attach")
	assert.NotContains(t, view, "/reset-request")

	h.typeText("x")
	assert.NotContains(t, h.m.View(), "Press any key")
}

func TestModel_CtrlQQuits(t *testing.T) {
	h := newHarness(t, Options{})

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
