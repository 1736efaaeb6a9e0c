package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"portfoliocms/pkg/fileutil"
	"portfoliocms/pkg/logger"
)

// LocalEngine keeps the document in a JSON file on local disk with a
// single-generation backup next to it.
//
// Writes are guarded by an in-process flag: a second writer arriving while a
// write is in flight fails immediately with ErrWriteInProgress.
type LocalEngine struct {
	path       string
	backupPath string
	writing    atomic.Bool

	// beforeRename is a test seam run between the temp write and the rename.
	beforeRename fileutil.BeforeRenameFunc
}

func NewLocalEngine(path, backupPath string) *LocalEngine {
	return &LocalEngine{path: path, backupPath: backupPath}
}

func (e *LocalEngine) Name() string { return "local" }

// Path returns the document file path.
func (e *LocalEngine) Path() string { return e.path }

// Init creates the data directory and writes the default document when no
// document file exists yet. Safe to run on every boot.
func (e *LocalEngine) Init(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if fileutil.Exists(e.path) {
		return nil
	}

	data, err := EncodeDocument(DefaultDocument())
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(e.path, data, 0o644, nil); err != nil {
		return fmt.Errorf("writing default content: %w", err)
	}
	logger.Sugar.Infof("Created default content file at %s", e.path)
	return nil
}

// Load reads the document file. A missing file yields the default document.
func (e *LocalEngine) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Snapshot{Doc: DefaultDocument()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Doc: doc}, nil
}

// Save backs up the current file and atomically replaces it with doc.
func (e *LocalEngine) Save(_ context.Context, doc Document, _ int64) error {
	if !e.writing.CompareAndSwap(false, true) {
		return ErrWriteInProgress
	}
	defer e.writing.Store(false)

	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encoding content: %w", err)
	}

	if fileutil.Exists(e.path) {
		if err := fileutil.CopyFile(e.path, e.backupPath, 0o644); err != nil {
			return fmt.Errorf("backing up content: %w", err)
		}
	}

	if err := fileutil.WriteFileAtomic(e.path, data, 0o644, e.beforeRename); err != nil {
		logger.Sugar.Errorf("Failed to write content file %s: %v", e.path, err)
		return err
	}
	return nil
}

// Restore replaces the document with the last backup.
func (e *LocalEngine) Restore(ctx context.Context) error {
	data, err := os.ReadFile(e.backupPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoBackup
	}
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return fmt.Errorf("backup is not valid content: %w", err)
	}
	return e.Save(ctx, doc, 0)
}
