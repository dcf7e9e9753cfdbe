// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/commands"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/session"
	"github.com/jeranaias/warriorchat/internal/ui/styles"
)

// maxChipName is the widest attachment name shown on a chip, in cells.
const maxChipName = 24

// View renders the current screen.
func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case !m.ready:
		return "Loading..."
	case m.probing:
		return m.renderCentered(m.theme.FormHint.Render("Connecting to " + m.baseURL + "..."))
	case !m.SignedIn():
		return m.renderForm()
	case m.showHelp:
		return m.renderHelp()
	}
	return m.renderChat()
}

// =============================================================================
// CHAT VIEW
// =============================================================================

// renderChat renders header + viewport + chips + status + input.
// Heights must match the constants used in handleResize.
func (m Model) renderChat() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderChips(),
		m.renderStatusBar(),
		m.renderInput(),
	)
}

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("WarriorChat")
	user := m.theme.HeaderUser.Render(m.identity.Label())
	modelName := m.theme.HeaderModel.Render(m.selectedLabel())

	parts := []string{brand, modelName, user}
	if m.theme.GetLayoutMode() == styles.LayoutWide && m.baseURL != "" {
		parts = append(parts, m.theme.Timestamp.Render(m.baseURL))
	}
	line := strings.Join(parts, "  ")
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(line)
}

// updateViewport re-renders the transcript into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderTranscript())
}

func (m *Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return m.theme.FormHint.Render("No messages yet. Type a message, or /attach a file.")
	}

	width := max(m.width-2, styles.MinWrapWidth)
	blocks := make([]string, 0, len(m.transcript))
	for _, entry := range m.transcript {
		blocks = append(blocks, m.renderEntry(entry, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderEntry(entry model.TranscriptEntry, width int) string {
	stamp := m.theme.Timestamp.Render(entry.Timestamp.Format("15:04"))

	if entry.Role == model.RoleUser {
		label := m.theme.UserLabel.Render(entry.Role.DisplayName())
		body := m.theme.UserText.Width(width).Render(entry.Text)
		return label + " " + stamp + "\n" + body
	}

	label := m.theme.AssistantLabel.Render(entry.Role.DisplayName())
	var body string
	switch {
	case entry.Streaming:
		text := entry.Text
		if m.streaming != nil && m.streaming.ID == entry.ID {
			text = m.streaming.Text
		}
		if text == "" {
			text = m.spinner.View()
		}
		body = m.theme.StreamingText.Width(width).Render(text)
	case isErrorText(entry.Text):
		body = m.theme.ErrorText.Width(width).Render(entry.Text)
	default:
		body = m.renderMarkdown(entry)
		if body == "" {
			body = m.theme.AssistantText.Width(width).Render(entry.Text)
		}
	}
	return label + " " + stamp + "\n" + body
}

// renderMarkdown returns the cached glamour rendering of a finished entry,
// or "" when markdown is off.
func (m *Model) renderMarkdown(entry model.TranscriptEntry) string {
	if m.renderer == nil {
		return ""
	}
	if out, ok := m.rendered[entry.ID]; ok {
		return out
	}
	out := styles.RenderMarkdown(m.renderer, entry.Text)
	m.rendered[entry.ID] = out
	return out
}

func isErrorText(text string) bool {
	return strings.HasPrefix(text, "Error") || strings.HasPrefix(text, "Upload failed")
}

// =============================================================================
// ATTACHMENT CHIPS
// =============================================================================

// renderChips renders one line of staged attachments. Chips that do not fit
// are summarised as "+N more".
func (m Model) renderChips() string {
	if len(m.records) == 0 {
		return ""
	}

	// Room for the widest possible "+N more" suffix
	reserve := len(fmt.Sprintf(" +%d more", len(m.records)))

	var row strings.Builder
	for i, rec := range m.records {
		chip := m.renderChip(rec)
		if row.Len() > 0 && lipgloss.Width(row.String())+lipgloss.Width(chip)+1+reserve > m.width {
			row.WriteString(m.theme.Timestamp.Render(fmt.Sprintf(" +%d more", len(m.records)-i)))
			break
		}
		if row.Len() > 0 {
			row.WriteString(" ")
		}
		row.WriteString(chip)
	}
	return row.String()
}

func (m Model) renderChip(rec attach.Record) string {
	name := runewidth.Truncate(rec.Label(), maxChipName, "…")

	switch {
	case rec.Kind == attach.Remote:
		return m.theme.RemoteChip.Render(name)
	case rec.IsImage:
		label := m.theme.ChipIndex.Render(fmt.Sprintf("#%d", rec.LocalIndex)) + " " + name
		if img, ok := m.images[rec.ID]; ok {
			label += " " + img.String()
		}
		return m.theme.ImageChip.Render(label)
	default:
		label := m.theme.ChipIndex.Render(fmt.Sprintf("#%d", rec.LocalIndex)) + " " + name
		if rec.Size > 0 {
			label += " " + humanize.IBytes(uint64(rec.Size))
		}
		return m.theme.Chip.Render(label)
	}
}

// =============================================================================
// STATUS & INPUT
// =============================================================================

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.notice != nil:
		left = m.statusText(m.notice.text, m.notice.isErr)
	case m.status[session.AreaChat].Text != "":
		st := m.status[session.AreaChat]
		left = m.statusText(st.Text, st.Error)
	case m.status[session.AreaFiles].Text != "":
		st := m.status[session.AreaFiles]
		left = m.statusText(st.Text, st.Error)
	case m.status[session.AreaAuth].Text != "":
		st := m.status[session.AreaAuth]
		left = m.statusText(st.Text, st.Error)
	}
	if m.busy {
		left = m.spinner.View() + " " + m.theme.StatusInfo.Render("Generating") + "  " + left
	}

	right := ""
	if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		right = m.renderShortcuts(m.keys.ShortHelp())
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).MaxHeight(statusHeight).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(statusHeight).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) statusText(text string, isErr bool) string {
	if isErr {
		return m.theme.StatusError.Render(text)
	}
	return m.theme.StatusInfo.Render(text)
}

func (m Model) renderShortcuts(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderInput() string {
	return m.theme.InputBorder.Width(max(m.width-2, 1)).Render(m.input.View())
}

// =============================================================================
// SIGN-IN FORM
// =============================================================================

func (m Model) renderForm() string {
	title := "Sign in"
	if m.signUp {
		title = "Create account"
	}

	field := func(label, input string, focused bool) string {
		style := m.theme.FormLabel
		if focused {
			style = m.theme.FormFocused
		}
		return style.Render(label) + "\n" + input
	}

	lines := []string{
		m.theme.FormTitle.Render(title),
		field("Email", m.email.View(), m.focus == fieldEmail),
		field("Password", m.password.View(), m.focus == fieldPassword),
	}
	if st, ok := m.status[session.AreaAuth]; ok {
		text := st.Text
		if m.authBusy {
			text = m.spinner.View() + " " + text
		}
		lines = append(lines, m.statusText(text, st.Error))
	}
	lines = append(lines, m.theme.FormHint.Render(m.renderShortcuts(m.keys.FormHelp())))

	return m.renderCentered(m.theme.FormBox.Render(strings.Join(lines, "\n\n")))
}

func (m Model) renderCentered(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// =============================================================================
// HELP
// =============================================================================

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.FormTitle.Render("Commands"))
	b.WriteString("\n\n")
	for _, cmd := range m.registry.For(commands.SurfaceTUI) {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&b, "%s  %s\n", m.theme.ShortcutKey.Render(fmt.Sprintf("%-22s", usage)), m.theme.ShortcutDesc.Render(cmd.Description))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.FormTitle.Render("Keys"))
	b.WriteString("\n\n")
	for _, binding := range []key.Binding{m.keys.Submit, m.keys.Cancel, m.keys.Complete, m.keys.PageUp, m.keys.PageDown, m.keys.Quit} {
		h := binding.Help()
		fmt.Fprintf(&b, "%s  %s\n", m.theme.ShortcutKey.Render(fmt.Sprintf("%-22s", h.Key)), m.theme.ShortcutDesc.Render(h.Desc))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.FormHint.Render("Press any key to return."))
	return m.renderCentered(m.theme.FormBox.Render(b.String()))
}
