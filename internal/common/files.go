package common

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// File permission constants.
const (
	DirPerm  = 0o755
	FilePerm = 0o644
)

// WriteFileAtomic replaces path with content through a synced temporary file
// renamed over the target, so readers see either the old or the new file.
// Nothing is written when the file already holds exactly content, and an
// existing file keeps its mode.
func WriteFileAtomic(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)

	switch {
	case err == nil:
		if bytes.Equal(existing, content) {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := renameio.WriteFile(path, content, FilePerm, renameio.WithExistingPermissions()); err != nil {
		return false, fmt.Errorf("replacing %s: %w", path, err)
	}

	return true, nil
}
