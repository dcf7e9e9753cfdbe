// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// MinWrapWidth is the narrowest word-wrap width used for markdown.
const MinWrapWidth = 20

// NewMarkdownRenderer builds a glamour renderer. style is "auto", "dark",
// "light" or "notty"; an Ascii profile always renders without color.
func NewMarkdownRenderer(style string, width int, profile termenv.Profile) (*glamour.TermRenderer, error) {
	if width < MinWrapWidth {
		width = MinWrapWidth
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(profile),
	}
	switch {
	case profile == termenv.Ascii:
		opts = append(opts, glamour.WithStandardStyle("notty"))
	case style == "" || style == "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	return glamour.NewTermRenderer(opts...)
}

// RenderMarkdown renders text, returning it unchanged when r is nil or
// rendering fails. Surrounding blank lines are trimmed.
func RenderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
