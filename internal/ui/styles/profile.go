// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color modes accepted by ui.color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ResolveProfile picks the color profile for mode given the detected one.
// "always" upgrades a colorless terminal to 256 colors.
func ResolveProfile(mode string, detected termenv.Profile) termenv.Profile {
	switch mode {
	case ColorNever:
		return termenv.Ascii
	case ColorAlways:
		if detected == termenv.Ascii {
			return termenv.ANSI256
		}
		return detected
	default:
		return detected
	}
}

// ApplyColorMode installs the profile for mode on the default lipgloss
// renderer and returns it.
func ApplyColorMode(mode string, detected termenv.Profile) termenv.Profile {
	profile := ResolveProfile(mode, detected)
	lipgloss.SetColorProfile(profile)
	return profile
}
