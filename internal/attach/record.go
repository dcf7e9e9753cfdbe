// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes unsent files from session-persisted ones.
type Kind int

const (
	Local Kind = iota
	Remote
)

func (k Kind) String() string {
	if k == Remote {
		return "remote"
	}
	return "local"
}

// Record is one staged attachment as seen by the display.
// For a Local record LocalIndex is meaningful and RemoteID is empty; for a
// Remote record RemoteID is set and LocalIndex is -1.
type Record struct {
	ID          string
	Name        string
	Kind        Kind
	LocalIndex  int
	RemoteID    string
	PreviewURL  string
	IsImage     bool
	ContentType string
	Size        int64
}

// HasLocalIndex reports whether LocalIndex identifies the record.
func (r Record) HasLocalIndex() bool {
	return r.Kind == Local
}

// Label returns the chip text for the record.
func (r Record) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return "attachment"
}

// LocalFile is a file read by a surface and handed to the stage.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// NormalizeName trims the path and returns the file name in NFC form so
// that names typed and names read from disk compare equal.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return norm.NFC.String(name)
}

// DetectContentType returns the declared type when present, otherwise the
// type implied by the extension, otherwise the sniffed type.
func DetectContentType(name, declared string, data []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if ext := filepath.Ext(name); ext != "" {
		if typ := mime.TypeByExtension(ext); typ != "" {
			return typ
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}

// IsImageType reports whether contentType is an image/* type.
func IsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
