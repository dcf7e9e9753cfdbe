// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the warriorchat command tree.
//
// With no arguments warriorchat opens the TUI. The remaining commands are
// line-oriented and suit scripts:
//
//   - chat: interactive REPL with line editing
//   - ask: send one prompt (with attachments) and stream the reply
//   - register, reset request, reset confirm: account management
//   - models: list the models the backend offers
//   - config path|show|init|check: configuration file helpers
//   - version: print build information
//
// Every command maps its failure onto an exit code (see errors.go) so
// scripts can tell a bad flag from a failed login or an unreachable server.
package cli
