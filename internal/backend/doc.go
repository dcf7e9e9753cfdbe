// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the WarriorChat backend API.
//
// Every call carries the session cookie kept in the client's in-memory
// cookie jar. Nothing is written to disk.
//
// # Key Types
//
//   - Client: HTTP client for auth, model listing, session files and generation
//   - ClientError: Typed error separating transport failures from protocol failures
//   - GenerateRequest: Request body for the streaming /api/generate endpoint
//   - GenerateResponse: Raw streaming response; the caller reads and closes Body
//   - RemoteFile: Descriptor of a file already uploaded to the session
//
// # Usage
//
//	client := backend.NewClient()
//	if err := client.Login(ctx, "me@example.com", "secret"); err != nil {
//	    return err
//	}
//	resp, err := client.Generate(ctx, backend.GenerateRequest{Prompt: "Hello"})
//	if err != nil {
//	    return err // transport failure
//	}
//	defer resp.Body.Close()
package backend
