// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preview keeps revocable in-memory preview URLs for staged images.
//
// The stage creates a URL when an image is added; the display opens it once,
// decodes the image and revokes it so the bytes are released.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	// Registered decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

// Scheme prefixes every URL handed out by a Store.
const Scheme = "blob:"

// ErrRevoked is returned when a URL is unknown or was already revoked.
var ErrRevoked = errors.New("preview URL revoked or unknown")

// =============================================================================
// STORE
// =============================================================================

// Store is the port the attachment stage uses to manage preview URLs.
type Store interface {
	Create(data []byte, contentType string) string
	Open(url string) (Blob, error)
	Revoke(url string) bool
}

// Blob is the content behind a preview URL.
type Blob struct {
	Data        []byte
	ContentType string
}

// MemoryStore is a Store that holds blobs in memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

// Create registers a copy of data and returns its URL.
func (s *MemoryStore) Create(data []byte, contentType string) string {
	url := Scheme + uuid.NewString()
	blob := Blob{Data: append([]byte(nil), data...), ContentType: contentType}

	s.mu.Lock()
	s.blobs[url] = blob
	s.mu.Unlock()
	return url
}

// Open returns the blob behind url.
func (s *MemoryStore) Open(url string) (Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[url]
	if !ok {
		return Blob{}, ErrRevoked
	}
	return blob, nil
}

// Revoke releases url. It reports whether the URL was live.
func (s *MemoryStore) Revoke(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[url]; !ok {
		return false
	}
	delete(s.blobs, url)
	return true
}

// Len returns the number of live URLs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// =============================================================================
// DISPLAY
// =============================================================================

// Image is what the display shows for a decoded preview.
type Image struct {
	Format string
	Width  int
	Height int
}

// String returns e.g. "png 640x480".
func (i Image) String() string {
	return fmt.Sprintf("%s %dx%d", i.Format, i.Width, i.Height)
}

// DecodeAndRevoke reads the image header behind url and revokes the URL,
// whether or not decoding succeeded.
func DecodeAndRevoke(store Store, url string) (Image, error) {
	if !strings.HasPrefix(url, Scheme) {
		return Image{}, fmt.Errorf("not a preview URL: %q", url)
	}
	blob, err := store.Open(url)
	if err != nil {
		return Image{}, err
	}
	defer store.Revoke(url)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob.Data))
	if err != nil {
		return Image{}, fmt.Errorf("decode preview: %w", err)
	}
	return Image{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
