// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands holds the slash command table shared by the TUI and the
// REPL.
//
// The package only describes and parses commands. Each surface dispatches
// on Command.Name and owns its handlers, because the TUI answers with
// tea.Cmd values and the REPL writes to the terminal directly.
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res := commands.NewParser(reg).Parse("/rm 2")
//	if res.IsCommand && res.Command != nil {
//	    switch res.Command.Name {
//	    case commands.Remove:
//	        // ...
//	    }
//	}
package commands
