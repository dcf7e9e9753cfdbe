// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling shared by the warriorchat TUI and
the line-oriented commands.

# Colors (colors.go)

All colors are Lip Gloss AdaptiveColor values so light and dark terminals
both read well:

	Purple  - assistant replies, accents
	Cyan    - brand, user labels, prompts
	Emerald - success
	Amber   - warnings, streaming state
	Rose    - errors

Status helpers (RenderSuccess, RenderError, RenderWarning, RenderInfo) prefix
an ASCII indicator so meaning survives without color.

# Color profile (profile.go)

ResolveProfile maps the ui.color setting ("auto", "always", "never") onto a
termenv profile; ApplyColorMode installs it for lipgloss.

# Theme (theme.go)

Theme groups the lipgloss styles of the chat screen: header, transcript
labels, attachment chips, status line, input and sign-in form.

# Markdown (markdown.go)

NewMarkdownRenderer builds a glamour renderer for finished replies.
*/
package styles
