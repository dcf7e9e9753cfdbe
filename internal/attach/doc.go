// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach stages file attachments before they are sent.
//
// A Stage holds two kinds of Record in insertion order:
//
//   - local records: files read from disk that have not been uploaded,
//     identified by a contiguous 0-based LocalIndex
//   - remote records: files already stored server-side for the session,
//     identified by a stable RemoteID
//
// FinalizeForSend uploads every local file with the caption in one request.
// On success the uploaded records become remote records and the returned
// descriptors go on the generate request. On failure the local records stay
// staged so the user can retry.
//
// # Usage
//
//	stage := attach.NewStage(client, preview.NewMemoryStore(), logger)
//	stage.AddLocal(attach.LocalFile{Name: "notes.txt", Data: data})
//	files, err := stage.FinalizeForSend(ctx, "see attached")
package attach
