// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/warriorchat/internal/attach"
	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/model"
	"github.com/jeranaias/warriorchat/internal/session"
)

func TestSurface_QueuesUntilAttached(t *testing.T) {
	s := NewSurface()

	s.IdentityChanged(&model.Identity{Email: "a@b.c"})
	s.StageChanged([]attach.Record{{ID: "r1"}})
	s.Status(session.Status{Area: session.AreaChat, Text: "hi"})
	s.ModelsLoaded([]backend.ModelInfo{{Name: "m"}}, "m")
	s.BusyChanged(true)

	msgs := s.Pending()
	require.Len(t, msgs, 5)
	assert.Equal(t, "a@b.c", msgs[0].(IdentityMsg).Identity.Email)
	assert.Equal(t, "r1", msgs[1].(StageMsg).Records[0].ID)
	assert.Equal(t, "hi", msgs[2].(StatusMsg).Status.Text)
	assert.Equal(t, "m", msgs[3].(ModelsMsg).Selected)
	assert.True(t, msgs[4].(BusyMsg).Busy)

	assert.Empty(t, s.Pending(), "Pending clears the queue")
}

func TestSurface_StreamingBypassesQueue(t *testing.T) {
	s := NewSurface()

	s.EntryUpdated(model.TranscriptEntry{ID: "e1", Text: "abc", Streaming: true}, "abc")
	s.ScrollToTail()

	assert.Empty(t, s.Pending())
	entry, ok := s.Stream().ForceFlush()
	require.True(t, ok)
	assert.Equal(t, "abc", entry.Text)
}
