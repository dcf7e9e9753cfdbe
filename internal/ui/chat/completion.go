// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/warriorchat/internal/attach"
)

// =============================================================================
// COMPLETION STATE
// =============================================================================

// completion holds the candidates of the current Tab cycle.
type completion struct {
	items []string // Full replacement lines
	index int      // Selected item
	base  string   // Input before completion started
}

func (c *completion) active() bool {
	return len(c.items) > 1
}

func (c *completion) reset() {
	c.items = nil
	c.index = 0
	c.base = ""
}

// =============================================================================
// TAB HANDLING
// =============================================================================

// handleTabCompletion completes the input line.
// First Tab: apply the first candidate (or the only one)
// Further Tabs: cycle through the candidates
func (m Model) handleTabCompletion() (tea.Model, tea.Cmd) {
	if m.completion.active() {
		m.completion.index = (m.completion.index + 1) % len(m.completion.items)
		m.setInput(m.completion.items[m.completion.index])
		return m, nil
	}

	m.bindCompleter()
	input := m.input.Value()
	items := m.completer.Line(input)
	if len(items) == 0 {
		return m, nil
	}

	m.completion.base = input
	m.completion.items = items
	m.completion.index = 0
	m.setInput(items[0])
	if len(items) == 1 {
		m.completion.reset()
	}
	return m, nil
}

func (m *Model) setInput(value string) {
	m.input.SetValue(value)
	m.input.CursorEnd()
}

// bindCompleter points the completer callbacks at the current session
// mirror. It runs before every completion since the Model is copied on
// each update.
func (m Model) bindCompleter() {
	models := m.models
	records := m.records
	m.completer.ModelsFn = func() []string {
		names := make([]string, 0, len(models))
		for _, mi := range models {
			names = append(names, mi.Name)
		}
		return names
	}
	m.completer.IndicesFn = func() []string {
		return localIndices(records)
	}
	m.completer.RemoteFn = func() []string {
		var ids []string
		for _, rec := range records {
			if rec.Kind == attach.Remote {
				ids = append(ids, rec.RemoteID)
			}
		}
		return ids
	}
}

func localIndices(records []attach.Record) []string {
	var out []string
	for _, rec := range records {
		if rec.HasLocalIndex() {
			out = append(out, strconv.Itoa(rec.LocalIndex))
		}
	}
	return out
}
