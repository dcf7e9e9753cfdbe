// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dropwatch stages files dropped into a watched folder.
//
// A terminal has no drag-and-drop target, so the TUI and the REPL can watch
// a folder instead: every regular file created or rewritten there is read
// once it has settled and handed to the session as a local attachment.
package dropwatch
