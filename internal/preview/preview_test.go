// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("abc")
	url := s.Create(data, "image/png")

	assert.True(t, strings.HasPrefix(url, Scheme))
	assert.Equal(t, 1, s.Len())

	// Store keeps its own copy
	data[0] = 'x'
	blob, err := s.Open(url)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(blob.Data))
	assert.Equal(t, "image/png", blob.ContentType)

	assert.True(t, s.Revoke(url))
	assert.False(t, s.Revoke(url), "second revoke reports a dead URL")
	assert.Equal(t, 0, s.Len())

	_, err = s.Open(url)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestMemoryStore_UniqueURLs(t *testing.T) {
	s := NewMemoryStore()
	a := s.Create(nil, "")
	b := s.Create(nil, "")
	assert.NotEqual(t, a, b)
}

func TestDecodeAndRevoke(t *testing.T) {
	s := NewMemoryStore()
	url := s.Create(pngBytes(t, 4, 3), "image/png")

	img, err := DecodeAndRevoke(s, url)
	require.NoError(t, err)
	assert.Equal(t, Image{Format: "png", Width: 4, Height: 3}, img)
	assert.Equal(t, "png 4x3", img.String())
	assert.Equal(t, 0, s.Len(), "URL revoked after decode")
}

func TestDecodeAndRevoke_BadImageStillRevokes(t *testing.T) {
	s := NewMemoryStore()
	url := s.Create([]byte("not an image"), "image/png")

	_, err := DecodeAndRevoke(s, url)
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDecodeAndRevoke_Unknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := DecodeAndRevoke(s, Scheme+"missing")
	assert.ErrorIs(t, err, ErrRevoked)

	_, err = DecodeAndRevoke(s, "https://example.com/a.png")
	assert.Error(t, err)
}
