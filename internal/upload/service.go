package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"portfoliocms/pkg/fileutil"
	"portfoliocms/pkg/logger"
)

// MaxFileSize bounds a single uploaded image.
const MaxFileSize = 10 << 20

var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
	ErrNotAnImage   = errors.New("file is not a supported image")
	ErrFileTooLarge = errors.New("file too large")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileInfo describes a stored upload.
type FileInfo struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName,omitempty"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype,omitempty"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Service stores uploaded images in a local directory served under URLPrefix.
type Service struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

func NewService(dir, urlPrefix string) *Service {
	return &Service{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/"), now: time.Now}
}

// Init creates the upload directory.
func (s *Service) Init() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// Save stores r under a name derived from originalName and the current time.
func (s *Service) Save(originalName string, r io.Reader) (*FileInfo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	mimetype := http.DetectContentType(data)
	ext, ok := allowedTypes[mimetype]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, mimetype)
	}

	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = unsafeChars.ReplaceAllString(base, "")
	if base == "" {
		base = "image"
	}
	now := s.now()
	name := fmt.Sprintf("%s-%d%s", base, now.UnixMilli(), ext)

	if err := fileutil.WriteFileAtomic(filepath.Join(s.Dir, name), data, 0o644, nil); err != nil {
		logger.Sugar.Errorf("Failed to store upload %s: %v", name, err)
		return nil, err
	}

	return &FileInfo{
		Filename:     name,
		OriginalName: originalName,
		Size:         int64(len(data)),
		Mimetype:     mimetype,
		URL:          s.URLPrefix + "/" + name,
		UploadedAt:   now,
	}, nil
}

// List returns stored uploads, newest first.
func (s *Service) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || fileutil.IsTempFile(e.Name()) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Filename:   e.Name(),
			Size:       info.Size(),
			URL:        s.URLPrefix + "/" + e.Name(),
			UploadedAt: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	return files, nil
}

// Delete removes one stored upload. Names containing path separators are
// rejected.
func (s *Service) Delete(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
