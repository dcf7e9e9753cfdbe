// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxFileSize bounds a file read from disk for staging.
const MaxFileSize = 32 << 20

// ReadFile reads path for staging. A leading "~/" is expanded. Directories
// and files over MaxFileSize are rejected. The content type is left for
// the stage to derive.
func ReadFile(path string) (LocalFile, error) {
	path = ExpandHome(strings.TrimSpace(path))

	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	if info.IsDir() {
		return LocalFile{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return LocalFile{}, fmt.Errorf("%s is %s, larger than the %s limit",
			filepath.Base(path), humanize.IBytes(uint64(info.Size())), humanize.IBytes(MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LocalFile{}, err
	}
	return LocalFile{Name: NormalizeName(path), Data: data}, nil
}

// ReadFiles reads every path. It stops at the first failure.
func ReadFiles(paths ...string) ([]LocalFile, error) {
	files := make([]LocalFile, 0, len(paths))
	for _, p := range paths {
		f, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
