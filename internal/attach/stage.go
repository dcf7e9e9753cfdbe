// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/preview"
)

var (
	// ErrRecordNotFound is returned when no staged record matches.
	ErrRecordNotFound = errors.New("attachment not found")

	// ErrStageCleared is returned by FinalizeForSend when Clear ran during
	// the upload.
	ErrStageCleared = errors.New("stage cleared during upload")
)

// =============================================================================
// PORTS & ERRORS
// =============================================================================

// FileStore is the remote side of the stage. *backend.Client satisfies it.
type FileStore interface {
	Upload(ctx context.Context, files []backend.UploadFile, message string) (*backend.UploadResponse, error)
	DeleteSessionFile(ctx context.Context, id string) error
}

// StagingError reports an upload that did not complete for all pending files.
type StagingError struct {
	Files int
	Err   error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("upload of %d file(s) failed: %v", e.Files, e.Err)
}

func (e *StagingError) Unwrap() error {
	return e.Err
}

// =============================================================================
// STAGE
// =============================================================================

// item is a record plus the bytes of a local file.
type item struct {
	rec  Record
	data []byte
}

// Stage is the ordered set of attachments staged for the next message.
// Network calls run without holding the lock, so additions and removals
// made during an upload are not blocked by it.
//
// The Stage is safe for concurrent use.
type Stage struct {
	mu       sync.Mutex
	items    []*item
	gen      uint64 // bumped by Clear
	store    FileStore
	previews preview.Store
	logger   *log.Logger
}

// NewStage creates an empty stage. previews may be nil, in which case image
// records carry no preview URL.
func NewStage(store FileStore, previews preview.Store, logger *log.Logger) *Stage {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Stage{
		items:    make([]*item, 0),
		store:    store,
		previews: previews,
		logger:   logger.WithPrefix("attach"),
	}
}

// AddLocal appends a local record with LocalIndex equal to the current
// local count. Images get a preview URL.
func (s *Stage) AddLocal(file LocalFile) Record {
	name := NormalizeName(file.Name)
	contentType := DetectContentType(name, file.ContentType, file.Data)

	it := &item{
		rec: Record{
			ID:          uuid.NewString(),
			Name:        name,
			Kind:        Local,
			ContentType: contentType,
			IsImage:     IsImageType(contentType),
			Size:        int64(len(file.Data)),
		},
		data: file.Data,
	}
	if it.rec.IsImage && s.previews != nil {
		it.rec.PreviewURL = s.previews.Create(file.Data, contentType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	it.rec.LocalIndex = s.localCountLocked()
	s.items = append(s.items, it)
	return it.rec
}

// RemoveLocal removes the local record at index and shifts the later local
// records down by one. Out-of-range indices are ignored.
func (s *Stage) RemoveLocal(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.rec.Kind == Local && it.rec.LocalIndex == index {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.release(it)
			s.renumberLocked()
			return true
		}
	}
	return false
}

// RemoveRemote deletes the file server-side and, on success, drops the
// matching record. On failure the stage is unchanged.
func (s *Stage) RemoveRemote(ctx context.Context, remoteID string) error {
	s.mu.Lock()
	found := s.indexOfRemoteLocked(remoteID) >= 0
	s.mu.Unlock()
	if !found {
		return ErrRecordNotFound
	}

	if err := s.store.DeleteSessionFile(ctx, remoteID); err != nil {
		s.logger.Debug("delete failed", "op", "delete_file", "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfRemoteLocked(remoteID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return nil
}

// FinalizeForSend uploads every local file together with caption in a single
// request. With no local records it returns immediately without a request.
// On success the uploaded records are replaced by remote records and the
// descriptors for the generate call are returned. On failure a *StagingError
// is returned and the local records are left in place. When the stage is
// cleared while the upload runs, nothing is applied and ErrStageCleared is
// returned.
func (s *Stage) FinalizeForSend(ctx context.Context, caption string) ([]backend.RemoteFile, error) {
	// Snapshot the upload set; records added from here on are not part of it
	s.mu.Lock()
	gen := s.gen
	pending := make([]*item, 0)
	files := make([]backend.UploadFile, 0)
	for _, it := range s.items {
		if it.rec.Kind == Local {
			pending = append(pending, it)
			files = append(files, backend.UploadFile{
				Name:        it.rec.Label(),
				ContentType: it.rec.ContentType,
				Data:        it.data,
			})
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return []backend.RemoteFile{}, nil
	}

	resp, err := s.store.Upload(ctx, files, caption)
	if err != nil {
		s.logger.Debug("upload failed", "op", "upload", "files", len(files), "err", err)
		return nil, &StagingError{Files: len(files), Err: err}
	}
	s.logger.Debug("upload complete", "op", "upload", "files", len(resp.Files))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, ErrStageCleared
	}

	uploaded := make(map[*item]bool, len(pending))
	for _, it := range pending {
		uploaded[it] = true
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if uploaded[it] {
			s.release(it)
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept
	s.renumberLocked()

	for _, f := range resp.Files {
		s.appendRemoteLocked(f.ID, f.Name, f.Type, f.Size)
	}

	out := make([]backend.RemoteFile, len(resp.Files))
	copy(out, resp.Files)
	return out, nil
}

// Clear empties the stage and releases every preview URL.
func (s *Stage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		s.release(it)
	}
	s.items = make([]*item, 0)
	s.gen++
}

// ClearLocal drops every local record and keeps remote records.
func (s *Stage) ClearLocal() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	kept := s.items[:0]
	for _, it := range s.items {
		if it.rec.Kind == Local {
			s.release(it)
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept
	return dropped
}

// ReplaceRemote makes the remote records match a session listing. Local
// records and the IDs of remote records still listed are preserved.
func (s *Stage) ReplaceRemote(files []backend.SessionFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listed := make(map[string]backend.SessionFile, len(files))
	for _, f := range files {
		if f.ID != "" {
			listed[f.ID] = f
		}
	}

	kept := s.items[:0]
	for _, it := range s.items {
		if it.rec.Kind == Remote {
			f, ok := listed[it.rec.RemoteID]
			if !ok {
				continue
			}
			it.rec.Name = f.Name
			it.rec.Size = f.Size
			delete(listed, f.ID)
		}
		kept = append(kept, it)
	}
	s.items = kept

	// Listing order for the new ones
	for _, f := range files {
		if _, ok := listed[f.ID]; ok {
			s.appendRemoteLocked(f.ID, f.Name, "", f.Size)
			delete(listed, f.ID)
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Snapshot returns a copy of every record in display order.
func (s *Stage) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.items))
	for i, it := range s.items {
		out[i] = it.rec
	}
	return out
}

// LocalCount returns the number of local records.
func (s *Stage) LocalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localCountLocked()
}

// Len returns the number of records.
func (s *Stage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IsEmpty returns true if nothing is staged.
func (s *Stage) IsEmpty() bool {
	return s.Len() == 0
}

// =============================================================================
// HELPERS (caller holds s.mu)
// =============================================================================

func (s *Stage) localCountLocked() int {
	n := 0
	for _, it := range s.items {
		if it.rec.Kind == Local {
			n++
		}
	}
	return n
}

func (s *Stage) renumberLocked() {
	next := 0
	for _, it := range s.items {
		if it.rec.Kind == Local {
			it.rec.LocalIndex = next
			next++
		}
	}
}

func (s *Stage) indexOfRemoteLocked(remoteID string) int {
	if remoteID == "" {
		return -1
	}
	for i, it := range s.items {
		if it.rec.Kind == Remote && it.rec.RemoteID == remoteID {
			return i
		}
	}
	return -1
}

func (s *Stage) appendRemoteLocked(remoteID, name, contentType string, size int64) {
	if remoteID == "" || s.indexOfRemoteLocked(remoteID) >= 0 {
		return
	}
	s.items = append(s.items, &item{rec: Record{
		ID:          uuid.NewString(),
		Name:        NormalizeName(name),
		Kind:        Remote,
		LocalIndex:  -1,
		RemoteID:    remoteID,
		ContentType: contentType,
		IsImage:     contentType != "" && IsImageType(contentType),
		Size:        size,
	}})
}

// release frees the preview URL and file bytes of a dropped record.
func (s *Stage) release(it *item) {
	if it.rec.PreviewURL != "" && s.previews != nil {
		s.previews.Revoke(it.rec.PreviewURL)
	}
	it.data = nil
}
