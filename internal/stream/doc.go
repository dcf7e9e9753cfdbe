// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes the raw-text body of a generate response.
//
// A Consumer drives exactly one generate request: it issues the request,
// reads the body incrementally and hands decoded text to a Sink in the
// order it arrives. The call resolves to one of three outcomes:
//
//   - Completed: the body closed cleanly
//   - Errored: the backend answered with a non-success status or no body
//   - NetworkFailed: the request could not be sent, or a read failed
//
// # Decoding
//
// Transport reads do not respect character boundaries. The Decoder keeps
// any incomplete UTF-8 sequence at the end of a read and completes it with
// the next one, so a character split across two reads is emitted once.
//
// # Usage
//
//	consumer := stream.NewConsumer(client, logger)
//	result := consumer.Consume(ctx, backend.GenerateRequest{Prompt: "Hi"}, entry)
//	if result.Kind != stream.Completed {
//	    fmt.Println(result.Message)
//	}
package stream
