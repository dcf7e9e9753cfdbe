// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/warriorchat/internal/commands"
)

// =============================================================================
// COMMAND HANDLING
// =============================================================================

// handleCommand runs a slash command typed into the chat input.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(content)
	if result.Error != nil || result.Command == nil {
		m.notice = &noticeMsg{text: fmt.Sprintf("Unknown command %q. Try /help.", content), isErr: true}
		if result.Error != nil {
			m.notice.text = result.Error.Error()
		}
		return m, nil
	}
	if !result.Command.Available(commands.SurfaceTUI) {
		m.notice = &noticeMsg{
			text:  fmt.Sprintf("%s is only available in 'warriorchat chat'.", result.Command.Name),
			isErr: true,
		}
		return m, nil
	}

	args := result.Args
	switch result.Command.Name {
	case commands.Help:
		m.showHelp = true
		return m, nil

	case commands.Quit:
		m.quitting = true
		return m, tea.Quit

	case commands.Attach:
		return m, m.attachCmd(args)

	case commands.Remove:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			m.notice = &noticeMsg{text: fmt.Sprintf("%q is not an attachment index.", args[0]), isErr: true}
			return m, nil
		}
		return m, m.removeLocalCmd(n)

	case commands.RemoveFile:
		return m, m.removeRemoteCmd(args[0])

	case commands.Files:
		return m, m.filesCmd()

	case commands.Clear:
		return m, m.clearCmd()

	case commands.Models:
		return m, m.modelsCmd()

	case commands.Model:
		if len(args) == 0 {
			m.notice = &noticeMsg{text: "Model: " + m.selectedLabel()}
			return m, nil
		}
		return m, m.selectModelCmd(args[0])

	case commands.Logout:
		// Logout also cancels a reply in flight
		return m, m.logoutCmd()
	}

	m.notice = &noticeMsg{text: "Unhandled command " + result.Command.Name, isErr: true}
	return m, nil
}

func (m Model) selectedLabel() string {
	for _, mi := range m.models {
		if mi.Name == m.selected {
			return mi.Label()
		}
	}
	if m.selected == "" {
		return "(none)"
	}
	return m.selected
}
