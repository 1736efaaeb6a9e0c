// Package fileutil holds the crash-safe file write used by the local content
// engine and the upload store.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempMarker separates a target file name from the random suffix of its
// in-flight temporary file.
const TempMarker = ".tmp."

// BeforeRenameFunc runs after the temporary file is fully written and closed
// but before it replaces the target. Returning an error aborts the write.
type BeforeRenameFunc func(tmpPath string) error

// WriteFileAtomic writes data to a uniquely named temporary file next to path
// and renames it onto path. Readers see either the old or the new content,
// never a partial file. On failure the temporary file is removed and path is
// left untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, beforeRename BeforeRenameFunc) (err error) {
	tmpPath := path + TempMarker + uuid.NewString()

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if beforeRename != nil {
		if err := beforeRename(tmpPath); err != nil {
			return err
		}
	}

	// Same directory, same filesystem: rename is atomic on POSIX.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// CopyFile copies src over dst, truncating any previous dst.
func CopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// IsTempFile reports whether name looks like an in-flight temporary file
// created by WriteFileAtomic.
func IsTempFile(name string) bool {
	return strings.Contains(filepath.Base(name), TempMarker)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
