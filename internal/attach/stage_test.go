// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/warriorchat/internal/backend"
	"github.com/jeranaias/warriorchat/internal/preview"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeStore struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	uploads   [][]backend.UploadFile
	captions  []string
	deleted   []string
	nextID    int

	// onUpload runs inside Upload before it returns
	onUpload func()
}

func (f *fakeStore) Upload(ctx context.Context, files []backend.UploadFile, message string) (*backend.UploadResponse, error) {
	if f.onUpload != nil {
		f.onUpload()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, files)
	f.captions = append(f.captions, message)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	resp := &backend.UploadResponse{OK: true}
	for _, file := range files {
		f.nextID++
		resp.Files = append(resp.Files, backend.RemoteFile{
			ID:   fmt.Sprintf("r%d", f.nextID),
			Name: file.Name,
			Type: file.ContentType,
			Size: int64(len(file.Data)),
		})
	}
	return resp, nil
}

func (f *fakeStore) DeleteSessionFile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func localIndices(recs []Record) []int {
	var out []int
	for _, r := range recs {
		if r.Kind == Local {
			out = append(out, r.LocalIndex)
		}
	}
	return out
}

func textFile(name string) LocalFile {
	return LocalFile{Name: name, ContentType: "text/plain", Data: []byte(name)}
}

// =============================================================================
// LOCAL RECORD TESTS
// =============================================================================

func TestAddLocal_IndicesAndClassification(t *testing.T) {
	previews := preview.NewMemoryStore()
	s := NewStage(&fakeStore{}, previews, nil)

	a := s.AddLocal(textFile("a.txt"))
	img := s.AddLocal(LocalFile{Name: "cat.png", ContentType: "image/png", Data: []byte("png")})

	assert.Equal(t, 0, a.LocalIndex)
	assert.False(t, a.IsImage)
	assert.Empty(t, a.PreviewURL, "plain files get a name chip only")
	assert.True(t, a.HasLocalIndex())

	assert.Equal(t, 1, img.LocalIndex)
	assert.True(t, img.IsImage)
	assert.NotEmpty(t, img.PreviewURL)
	assert.Equal(t, 1, previews.Len())

	assert.NotEqual(t, a.ID, img.ID)
	assert.Equal(t, 2, s.LocalCount())
}

func TestAddLocal_DetectsMissingType(t *testing.T) {
	s := NewStage(&fakeStore{}, nil, nil)

	byExt := s.AddLocal(LocalFile{Name: "photo.jpg", Data: []byte("x")})
	assert.True(t, byExt.IsImage)
	assert.Empty(t, byExt.PreviewURL, "no preview store configured")

	pngHeader := []byte("\x89PNG\r\n\x1a\n0000")
	sniffed := s.AddLocal(LocalFile{Name: "noext", Data: pngHeader})
	assert.Equal(t, "image/png", sniffed.ContentType)
	assert.True(t, sniffed.IsImage)
}

func TestRemoveLocal_Renumbers(t *testing.T) {
	previews := preview.NewMemoryStore()
	s := NewStage(&fakeStore{}, previews, nil)
	s.AddLocal(textFile("a"))
	s.AddLocal(LocalFile{Name: "b.png", ContentType: "image/png", Data: []byte("b")})
	s.AddLocal(textFile("c"))

	require.True(t, s.RemoveLocal(1))

	recs := s.Snapshot()
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Name)
	assert.Equal(t, "c", recs[1].Name)
	assert.Equal(t, []int{0, 1}, localIndices(recs))
	assert.Equal(t, 0, previews.Len(), "preview URL released on removal")
}

func TestRemoveLocal_OutOfRange(t *testing.T) {
	s := NewStage(&fakeStore{}, nil, nil)
	s.AddLocal(textFile("a"))

	assert.False(t, s.RemoveLocal(5))
	assert.False(t, s.RemoveLocal(-1))
	assert.Equal(t, 1, s.Len())
}

func TestLocalIndices_StayContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStage(&fakeStore{}, nil, nil)

	for step := 0; step < 500; step++ {
		if rng.Intn(3) == 0 && s.LocalCount() > 0 {
			s.RemoveLocal(rng.Intn(s.LocalCount() + 1))
		} else {
			s.AddLocal(textFile(fmt.Sprintf("f%d", step)))
		}

		got := localIndices(s.Snapshot())
		for i, idx := range got {
			if idx != i {
				t.Fatalf("step %d: indices = %v, want 0..%d", step, got, len(got)-1)
			}
		}
	}
}

// =============================================================================
// REMOTE RECORD TESTS
// =============================================================================

func stageWithRemotes(t *testing.T, store *fakeStore) *Stage {
	t.Helper()
	s := NewStage(store, nil, nil)
	s.ReplaceRemote([]backend.SessionFile{{ID: "r1", Name: "one"}, {ID: "r2", Name: "two"}})
	s.AddLocal(textFile("local"))
	return s
}

func TestRemoveRemote_RemovesOnlyMatch(t *testing.T) {
	store := &fakeStore{}
	s := stageWithRemotes(t, store)
	before := s.Snapshot()

	require.NoError(t, s.RemoveRemote(context.Background(), "r1"))

	after := s.Snapshot()
	require.Len(t, after, 2)
	assert.Equal(t, before[1], after[0], "other remote record untouched")
	assert.Equal(t, before[2], after[1], "local record untouched")
	assert.Equal(t, []string{"r1"}, store.deleted)
}

func TestRemoveRemote_FailureLeavesStage(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("boom")}
	s := stageWithRemotes(t, store)
	before := s.Snapshot()

	err := s.RemoveRemote(context.Background(), "r2")
	require.Error(t, err)
	assert.Equal(t, before, s.Snapshot())
}

func TestRemoveRemote_Unknown(t *testing.T) {
	store := &fakeStore{}
	s := stageWithRemotes(t, store)

	err := s.RemoveRemote(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Empty(t, store.deleted, "no request for unknown ids")
}

func TestReplaceRemote_PreservesLocalsAndIDs(t *testing.T) {
	s := stageWithRemotes(t, &fakeStore{})
	before := s.Snapshot()

	s.ReplaceRemote([]backend.SessionFile{{ID: "r2", Name: "two"}, {ID: "r3", Name: "three"}, {ID: "r3", Name: "dup"}})

	after := s.Snapshot()
	require.Len(t, after, 3)
	assert.Equal(t, before[1].ID, after[0].ID, "r2 keeps its record ID")
	assert.Equal(t, Local, after[1].Kind)
	assert.Equal(t, "r3", after[2].RemoteID)
	assert.Equal(t, "three", after[2].Name)
}

// =============================================================================
// FINALIZE TESTS
// =============================================================================

func TestFinalizeForSend_NoLocals(t *testing.T) {
	store := &fakeStore{}
	s := NewStage(store, nil, nil)

	files, err := s.FinalizeForSend(context.Background(), "caption")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, store.uploads, "no request without local files")
}

func TestFinalizeForSend_ConvertsLocals(t *testing.T) {
	store := &fakeStore{}
	previews := preview.NewMemoryStore()
	s := NewStage(store, previews, nil)
	s.AddLocal(textFile("a.txt"))
	s.AddLocal(LocalFile{Name: "b.png", ContentType: "image/png", Data: []byte("b")})

	files, err := s.FinalizeForSend(context.Background(), "look")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)

	require.Len(t, store.uploads, 1, "one request for every file")
	assert.Len(t, store.uploads[0], 2)
	assert.Equal(t, []string{"look"}, store.captions)

	recs := s.Snapshot()
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, Remote, r.Kind)
		assert.Equal(t, -1, r.LocalIndex)
		assert.NotEmpty(t, r.RemoteID)
	}
	assert.True(t, recs[1].IsImage)
	assert.Equal(t, 0, previews.Len())
}

func TestFinalizeForSend_FailureKeepsLocals(t *testing.T) {
	store := &fakeStore{uploadErr: errors.New("413 too large")}
	s := NewStage(store, nil, nil)
	s.AddLocal(textFile("a"))
	s.AddLocal(textFile("b"))
	before := s.Snapshot()

	files, err := s.FinalizeForSend(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, files)

	var stagingErr *StagingError
	require.ErrorAs(t, err, &stagingErr)
	assert.Equal(t, 2, stagingErr.Files)
	assert.Equal(t, before, s.Snapshot())
}

func TestFinalizeForSend_AddDuringUploadSurvives(t *testing.T) {
	store := &fakeStore{}
	s := NewStage(store, nil, nil)
	s.AddLocal(textFile("a"))
	store.onUpload = func() {
		s.AddLocal(textFile("late"))
	}

	files, err := s.FinalizeForSend(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Len(t, store.uploads[0], 1, "late file was not part of the upload")

	recs := s.Snapshot()
	require.Len(t, recs, 2)
	assert.Equal(t, "late", recs[0].Name)
	assert.Equal(t, 0, recs[0].LocalIndex)
	assert.Equal(t, Remote, recs[1].Kind)
}

func TestFinalizeForSend_ClearDuringUploadDiscardsResult(t *testing.T) {
	store := &fakeStore{}
	s := NewStage(store, nil, nil)
	s.AddLocal(textFile("a"))
	store.onUpload = s.Clear

	files, err := s.FinalizeForSend(context.Background(), "")
	require.ErrorIs(t, err, ErrStageCleared)
	assert.Nil(t, files)
	assert.True(t, s.IsEmpty(), "uploaded files must not reappear as remote records")
}

func TestFinalizeForSend_FreshRecordIDs(t *testing.T) {
	s := NewStage(&fakeStore{}, nil, nil)
	removed := s.AddLocal(textFile("gone"))
	s.RemoveLocal(removed.LocalIndex)
	kept := s.AddLocal(textFile("kept"))

	_, err := s.FinalizeForSend(context.Background(), "")
	require.NoError(t, err)

	for _, r := range s.Snapshot() {
		assert.NotEqual(t, removed.ID, r.ID)
		assert.NotEqual(t, kept.ID, r.ID, "converted records get new IDs")
	}
}

// =============================================================================
// CLEAR TESTS
// =============================================================================

func TestClear(t *testing.T) {
	previews := preview.NewMemoryStore()
	s := NewStage(&fakeStore{}, previews, nil)
	s.AddLocal(LocalFile{Name: "a.png", ContentType: "image/png", Data: []byte("a")})
	s.ReplaceRemote([]backend.SessionFile{{ID: "r1", Name: "one"}})

	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, previews.Len())
}

func TestClearLocal_KeepsRemotes(t *testing.T) {
	s := stageWithRemotes(t, &fakeStore{})

	assert.Equal(t, 1, s.ClearLocal())
	recs := s.Snapshot()
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, Remote, r.Kind)
	}
}

// =============================================================================
// NAME TESTS
// =============================================================================

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "notes.txt", NormalizeName("  /tmp/dir/notes.txt "))
	assert.Equal(t, "", NormalizeName(""))
	// "e" + combining acute composes to "é"
	assert.Equal(t, "caf\u00e9.txt", NormalizeName("cafe\u0301.txt"))
}

func TestIsImageType(t *testing.T) {
	assert.True(t, IsImageType("image/png"))
	assert.True(t, IsImageType("IMAGE/JPEG; q=1"))
	assert.False(t, IsImageType("text/plain"))
	assert.False(t, IsImageType(""))
}
