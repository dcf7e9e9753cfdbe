// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/preview"
	"github.com/jeranaias/warriorchat/internal/session"
	"github.com/jeranaias/warriorchat/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	// Controller notifications
	case IdentityMsg:
		return m.handleIdentity(msg.Identity)

	case StageMsg:
		return m.handleStage(msg)

	case TranscriptMsg:
		m.transcript = msg.Entries
		if last := len(m.transcript) - 1; last < 0 || !m.transcript[last].Streaming {
			m.streaming = nil
		}
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, nil

	case StatusMsg:
		if msg.Status.Text == "" {
			delete(m.status, msg.Status.Area)
		} else {
			m.status[msg.Status.Area] = msg.Status
		}
		return m, nil

	case ModelsMsg:
		m.models = msg.Models
		m.selected = msg.Selected
		return m, nil

	case BusyMsg:
		return m.handleBusy(msg.Busy)

	case StreamTickMsg:
		return m.handleStreamTick()

	case spinner.TickMsg:
		if !m.busy && !m.authBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// Command results
	case bootstrapDoneMsg:
		m.probing = false
		return m.handleIdentity(msg.identity)

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case attachDoneMsg:
		if msg.err != nil {
			m.notice = &noticeMsg{text: msg.err.Error(), isErr: true}
		} else {
			m.notice = &noticeMsg{text: fmt.Sprintf("Staged %s.", plural(msg.staged, "file"))}
		}
		return m, nil

	case filesDoneMsg:
		if msg.err == nil {
			m.notice = &noticeMsg{text: fmt.Sprintf("%s in this session.", plural(len(msg.files), "file"))}
		}
		return m, nil

	case modelsListedMsg:
		m.notice = &noticeMsg{text: m.modelsNotice(msg)}
		return m, nil

	case previewDecodedMsg:
		if msg.err != nil {
			m.logger.Debug("preview decode failed", "record", msg.recordID, "err", msg.err)
			return m, nil
		}
		m.images[msg.recordID] = msg.image
		return m, nil

	case noticeMsg:
		m.notice = &msg
		return m, nil
	}

	return m, nil
}

// =============================================================================
// RESIZE
// =============================================================================

// Layout: header + viewport (dynamic) + chips + status + input
const (
	headerHeight = 1
	chipsHeight  = 1
	statusHeight = 1
	inputHeight  = 3 // Bordered
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.theme.SetSize(m.width, m.height)

	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-headerHeight-chipsHeight-statusHeight-inputHeight, 1)

	// Border and padding take 4 columns
	const promptLen = 2 // "> "
	m.input.Width = max(m.width-promptLen-5, 10)
	m.email.Width = max(min(m.width-16, 48), 10)
	m.password.Width = m.email.Width

	// Rendered markdown depends on the wrap width
	m.renderer = nil
	m.rendered = make(map[string]string)
	if m.markdown {
		r, err := styles.NewMarkdownRenderer(m.glamourStyle, m.width-4, m.theme.ColorProfile)
		if err != nil {
			m.logger.Warn("markdown disabled", "err", err)
		} else {
			m.renderer = r
		}
	}

	m.updateViewport()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+Q always quits regardless of state
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if !m.SignedIn() {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.busy {
			return m, m.cancelCmd()
		}
		if m.completion.active() {
			m.setInput(m.completion.base)
			m.completion.reset()
			return m, nil
		}
		m.notice = nil
		if msg.String() == "ctrl+c" {
			m.input.Reset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		return m.handleTabCompletion()

	case key.Matches(msg, m.keys.Submit):
		m.completion.reset()
		return m.submitInput()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	m.completion.reset()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextField):
		m.focusField(1 - m.focus)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ToggleSignUp):
		m.signUp = !m.signUp
		delete(m.status, session.AreaAuth)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitForm()
	}

	var cmd tea.Cmd
	if m.focus == fieldEmail {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusField(f formField) {
	m.focus = f
	if f == fieldEmail {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.password.Focus()
		m.email.Blur()
	}
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	if m.authBusy || m.probing {
		return m, nil
	}
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()

	if m.focus == fieldEmail && email != "" && password == "" {
		m.focusField(fieldPassword)
		return m, textinput.Blink
	}
	if email == "" || password == "" {
		m.status[session.AreaAuth] = session.Status{
			Area:  session.AreaAuth,
			Text:  "Email and password are required.",
			Error: true,
		}
		return m, nil
	}

	m.authBusy = true
	if m.signUp {
		return m, tea.Batch(m.spinner.Tick, m.registerCmd(email, password))
	}
	return m, tea.Batch(m.spinner.Tick, m.loginCmd(email, password))
}

// submitInput sends the input line or runs it as a slash command.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" && len(m.records) == 0 {
		return m, nil
	}

	if strings.HasPrefix(content, "/") {
		m.input.Reset()
		return m.handleCommand(content)
	}

	if m.busy {
		m.notice = &noticeMsg{text: session.ErrSendInFlight.Error(), isErr: true}
		return m, nil
	}

	m.input.Reset()
	m.notice = nil
	return m, m.sendCmd(content)
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

func (m Model) handleIdentity(id *model.Identity) (tea.Model, tea.Cmd) {
	wasSignedIn := m.SignedIn()
	m.identity = id.Clone()

	switch {
	case m.SignedIn() && !wasSignedIn:
		m.password.Reset()
		m.authBusy = false
		m.input.Focus()
		delete(m.status, session.AreaAuth)
		m.updateViewport()
		return m, textinput.Blink

	case !m.SignedIn() && wasSignedIn:
		m.transcript = nil
		m.streaming = nil
		m.records = nil
		m.rendered = make(map[string]string)
		m.busy = false
		if m.surface != nil {
			m.surface.Stream().Reset()
		}
		m.input.Reset()
		m.focusField(fieldEmail)
		m.updateViewport()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleStage(msg StageMsg) (tea.Model, tea.Cmd) {
	m.records = msg.Records

	live := make(map[string]bool, len(m.records))
	var cmds []tea.Cmd
	for _, rec := range m.records {
		live[rec.ID] = true
		if !rec.IsImage || rec.PreviewURL == "" {
			continue
		}
		if _, done := m.images[rec.ID]; done {
			continue
		}
		cmds = append(cmds, m.decodePreviewCmd(rec))
	}
	for id := range m.images {
		if !live[id] {
			delete(m.images, id)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleBusy(busy bool) (tea.Model, tea.Cmd) {
	wasBusy := m.busy
	m.busy = busy
	if busy && !wasBusy {
		return m, tea.Batch(m.spinner.Tick, streamTickCmd())
	}
	if !busy {
		m.flushStream(true)
	}
	return m, nil
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.busy {
		return m, nil
	}
	m.flushStream(false)
	return m, streamTickCmd()
}

// flushStream moves the newest streaming snapshot into the viewport.
func (m *Model) flushStream(force bool) {
	if m.surface == nil {
		return
	}
	var (
		entry model.TranscriptEntry
		ok    bool
	)
	if force {
		entry, ok = m.surface.Stream().ForceFlush()
	} else {
		entry, ok = m.surface.Stream().Flush()
	}
	if !ok || !m.isStreaming(entry.ID) {
		return
	}
	m.streaming = &entry
	atBottom := m.viewport.AtBottom()
	m.updateViewport()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) isStreaming(id string) bool {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].ID == id {
			return m.transcript[i].Streaming
		}
	}
	return false
}

func (m Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	m.authBusy = false
	switch msg.action {
	case actionRegister:
		if msg.err == nil {
			m.signUp = false
			m.email.SetValue(msg.email)
			m.password.Reset()
			m.focusField(fieldPassword)
		}
	case actionLogin:
		if msg.err != nil {
			m.password.Reset()
			m.focusField(fieldPassword)
		}
	case actionLogout:
		if msg.err == nil {
			m.notice = nil
		}
	}
	return m, nil
}

func (m Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	var stagingErr *attach.StagingError
	var sendErr *session.SendError
	switch {
	case msg.err == nil,
		errors.Is(msg.err, session.ErrNothingToSend),
		errors.Is(msg.err, session.ErrSessionEnded),
		errors.As(msg.err, &stagingErr),
		errors.As(msg.err, &sendErr):
		// Reported in the transcript and status line
	case errors.Is(msg.err, session.ErrSendInFlight),
		errors.Is(msg.err, session.ErrNotAuthenticated):
		m.notice = &noticeMsg{text: msg.err.Error(), isErr: true}
	default:
		m.logger.Warn("send failed", "err", msg.err)
		m.notice = &noticeMsg{text: msg.err.Error(), isErr: true}
	}
	return m, nil
}

func (m Model) modelsNotice(msg modelsListedMsg) string {
	if len(msg.models) == 0 {
		return "No models available."
	}
	names := make([]string, 0, len(msg.models))
	for _, mi := range msg.models {
		name := mi.Label()
		if mi.Name == m.selected {
			name += "*"
		}
		names = append(names, name)
	}
	return "Models: " + strings.Join(names, ", ")
}

// =============================================================================
// CONTROLLER COMMANDS
// =============================================================================
// Controller calls notify the Surface, which waits for the update loop, so
// they always run as tea.Cmds.

const (
	actionLogin    = "login"
	actionRegister = "register"
	actionLogout   = "logout"
)

func (m Model) bootstrapCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return bootstrapDoneMsg{identity: ctrl.Bootstrap(ctx)}
	}
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		err := ctrl.Login(ctx, email, password)
		return authDoneMsg{action: actionLogin, email: email, err: err}
	}
}

func (m Model) registerCmd(email, password string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		trimmed, err := ctrl.Register(ctx, email, password)
		return authDoneMsg{action: actionRegister, email: trimmed, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return authDoneMsg{action: actionLogout, err: ctrl.Logout(ctx)}
	}
}

func (m Model) sendCmd(prompt string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: ctrl.Send(ctx, prompt)}
	}
}

func (m Model) cancelCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if ctrl.Cancel() {
			return noticeMsg{text: "Cancelled."}
		}
		return nil
	}
}

func (m Model) attachCmd(paths []string) tea.Cmd {
	ctrl, readFiles := m.ctrl, m.readFile
	return func() tea.Msg {
		files, err := readFiles(paths...)
		if err != nil {
			return attachDoneMsg{err: err}
		}
		return attachDoneMsg{staged: len(ctrl.AddLocalFiles(files...))}
	}
}

func (m Model) removeLocalCmd(index int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if !ctrl.RemoveLocal(index) {
			return noticeMsg{text: fmt.Sprintf("No attachment #%d.", index), isErr: true}
		}
		return noticeMsg{text: fmt.Sprintf("Removed #%d.", index)}
	}
}

func (m Model) removeRemoteCmd(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if err := ctrl.RemoveRemote(ctx, id); err != nil {
			return nil
		}
		return noticeMsg{text: "Deleted " + id + " from the session."}
	}
}

func (m Model) clearCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		n := ctrl.ClearLocalAttachments()
		return noticeMsg{text: fmt.Sprintf("Cleared %s.", plural(n, "local attachment"))}
	}
}

func (m Model) filesCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		files, err := ctrl.ListSessionFiles(ctx)
		return filesDoneMsg{files: files, err: err}
	}
}

func (m Model) modelsCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return modelsListedMsg{models: ctrl.LoadModels(ctx)}
	}
}

func (m Model) selectModelCmd(name string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.SelectModel(name); err != nil {
			return noticeMsg{text: fmt.Sprintf("%v %q (see /models)", err, name), isErr: true}
		}
		return noticeMsg{text: "Model: " + name}
	}
}

// decodePreviewCmd reads the image header of rec and revokes its preview URL.
func (m Model) decodePreviewCmd(rec attach.Record) tea.Cmd {
	store := m.previews
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		img, err := preview.DecodeAndRevoke(store, rec.PreviewURL)
		return previewDecodedMsg{recordID: rec.ID, image: img, err: err}
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
