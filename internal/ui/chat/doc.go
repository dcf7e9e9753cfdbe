// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat interface for warriorchat.

The package implements a Bubble Tea program over a session.Controller. The
controller owns every piece of session state; the Model only mirrors what
the controller reports through the Surface adapter.

# Key Components

## Surface (surface.go)

Surface implements session.Surface and forwards each notification into the
running program with Program.Send. Notifications that arrive before the
program starts are queued.

## Model (model.go, update.go)

The Model shows a sign-in form while the session is anonymous and the chat
view once a user is signed in. Controller operations run as tea.Cmds so the
update loop never blocks on the network.

## View Rendering (view.go)

  - Header with the server, user and selected model
  - Transcript viewport; finished replies are rendered as Markdown
  - Attachment chips, truncated to fit the terminal width
  - Status line, spinner while a message is in flight and the input line

## Streaming (streaming.go)

StreamingBuffer keeps only the latest snapshot of the streaming entry and
releases it at a capped frame rate, so fast streams do not re-render the
viewport for every chunk.

# Usage

	surface := chat.NewSurface()
	previews := preview.NewMemoryStore()
	ctrl := session.New(session.Deps{Backend: client, Surface: surface, Previews: previews})
	m := chat.New(chat.Options{Controller: ctrl, Surface: surface, Previews: previews})
	p := tea.NewProgram(m, tea.WithAltScreen())
	surface.Attach(p)
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
