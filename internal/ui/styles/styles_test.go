// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProfile(t *testing.T) {
	tests := []struct {
		mode     string
		detected termenv.Profile
		want     termenv.Profile
	}{
		{ColorAuto, termenv.TrueColor, termenv.TrueColor},
		{ColorAuto, termenv.Ascii, termenv.Ascii},
		{ColorNever, termenv.TrueColor, termenv.Ascii},
		{ColorAlways, termenv.Ascii, termenv.ANSI256},
		{ColorAlways, termenv.TrueColor, termenv.TrueColor},
		{"", termenv.ANSI, termenv.ANSI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveProfile(tt.mode, tt.detected), "%s/%v", tt.mode, tt.detected)
	}
}

func TestStatusRenderers_KeepIndicators(t *testing.T) {
	ApplyColorMode(ColorNever, termenv.TrueColor)

	assert.Equal(t, "[OK] done", RenderSuccess("done"))
	assert.Equal(t, "[X] failed", RenderError("failed"))
	assert.Equal(t, "[!] careful", RenderWarning("careful"))
	assert.Equal(t, "[i] note", RenderInfo("note"))
	assert.Equal(t, "[X] bad", RenderStatus(true, "bad"))
	assert.Equal(t, "[i] fine", RenderStatus(false, "fine"))
}

func TestSpinnerConfig(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, LineSpinner.Duration())
	assert.Equal(t, time.Second, SpinnerConfig{}.Duration())

	s := DotsSpinner.Bubbles()
	assert.Equal(t, DotsSpinner.Frames, s.Frames)
	assert.Equal(t, DotsSpinner.Duration(), s.FPS)
}

func TestTheme_LayoutMode(t *testing.T) {
	th := NewTheme()
	th.SetSize(40, 20)
	assert.Equal(t, LayoutNarrow, th.GetLayoutMode())
	th.SetSize(80, 20)
	assert.Equal(t, LayoutMedium, th.GetLayoutMode())
	th.SetSize(120, 20)
	assert.Equal(t, LayoutWide, th.GetLayoutMode())
}

func TestRenderMarkdown(t *testing.T) {
	assert.Equal(t, "**raw**", RenderMarkdown(nil, "**raw**"))

	r, err := NewMarkdownRenderer("auto", 5, termenv.Ascii)
	require.NoError(t, err)
	out := RenderMarkdown(r, "# Title\n\nSome **bold** text.")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.False(t, strings.HasPrefix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n"))
}
