// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates identity, staged attachments and the transcript
// for one signed-in user.
//
// The Controller is the state machine behind both terminal surfaces. It owns
// the Identity, the attachment Stage, the Transcript and the single-flight
// guard that keeps at most one generate request running. Surfaces drive it
// through its methods and observe it through the Surface port, so the whole
// flow can be exercised without a terminal.
//
// # States
//
//   - Anonymous: no identity; only account operations are available
//   - Authenticated: identity set by Bootstrap or Login; chat is available
//
// Logout returns to Anonymous and clears the transcript and the stage.
// Registration and password reset never change the state.
//
// # Usage
//
//	ctrl := session.New(session.Deps{
//	    Backend: client,
//	    Surface: surface,
//	    Logger:  logger,
//	    Options: session.Options{DefaultModel: "gpt-oss"},
//	})
//	ctrl.Bootstrap(ctx)
//	if err := ctrl.Login(ctx, email, password); err != nil {
//	    return err
//	}
//	err := ctrl.Send(ctx, "Summarize the attached file")
package session
