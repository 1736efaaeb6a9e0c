package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"portfoliocms/pkg/logger"
)

const (
	DefaultGistAPI      = "https://api.github.com"
	DefaultGistCacheTTL = 30 * time.Second
	GistFileName        = "content.json"

	gistUserAgent = "Singer-Portfolio-Backend"
)

// GistConfig configures a GistEngine. GistID and Token may be empty at
// startup; the engine then fails with ErrNotConfigured on use.
type GistConfig struct {
	GistID     string
	Token      string
	BaseURL    string
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// GistEngine stores the document as content.json inside a GitHub Gist.
//
// Reads are served from an in-memory copy for CacheTTL to respect the API
// rate limit. When the API fails, a stale copy is preferred over an error.
// Writes are not serialized: two concurrent writers can lose an update.
type GistEngine struct {
	cfg    GistConfig
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	cache     Document
	etag      string
	fetchedAt time.Time
	// writes counts successful saves; a fetch started before a save must
	// not replace the cache that save installed.
	writes uint64
}

func NewGistEngine(cfg GistConfig) *GistEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGistAPI
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultGistCacheTTL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GistEngine{cfg: cfg, client: client, now: time.Now}
}

func (e *GistEngine) Name() string { return "gist" }

func (e *GistEngine) configured() bool {
	return e.cfg.GistID != "" && e.cfg.Token != ""
}

// Init only reports the configuration state; missing secrets are not fatal.
func (e *GistEngine) Init(_ context.Context) error {
	if !e.configured() {
		logger.Sugar.Warn("GIST_ID or GITHUB_TOKEN not set, content requests will fail until configured")
		return nil
	}
	logger.Sugar.Infof("Gist storage initialized (gist %s)", e.cfg.GistID)
	return nil
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistResponse struct {
	Files map[string]*gistFile `json:"files"`
}

type gistUpdate struct {
	Files map[string]gistFileUpdate `json:"files"`
}

type gistFileUpdate struct {
	Content string `json:"content"`
}

func (e *GistEngine) Load(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	if e.cache != nil && e.now().Sub(e.fetchedAt) < e.cfg.CacheTTL {
		doc := e.cache.Clone()
		e.mu.Unlock()
		return &Snapshot{Doc: doc}, nil
	}
	etag := e.etag
	gen := e.writes
	e.mu.Unlock()

	if !e.configured() {
		return e.fallback(ErrNotConfigured)
	}

	doc, newETag, notModified, err := e.fetch(ctx, etag)
	if err != nil {
		return e.fallback(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writes != gen && e.cache != nil {
		return &Snapshot{Doc: e.cache.Clone()}, nil
	}
	if notModified {
		if e.cache == nil {
			return nil, fmt.Errorf("%w: gist not modified but nothing cached", ErrStoreUnavailable)
		}
		e.fetchedAt = e.now()
		return &Snapshot{Doc: e.cache.Clone()}, nil
	}
	e.cache = doc.Clone()
	e.etag = newETag
	e.fetchedAt = e.now()
	return &Snapshot{Doc: doc}, nil
}

// fallback serves the stale cache when one exists, otherwise surfaces cause
// as StoreUnavailable.
func (e *GistEngine) fallback(cause error) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		logger.Sugar.Warnf("Failed to read from Gist, serving cached content: %v", cause)
		return &Snapshot{Doc: e.cache.Clone()}, nil
	}
	logger.Sugar.Errorf("Failed to read from Gist: %v", cause)
	if errors.Is(cause, ErrStoreUnavailable) {
		return nil, cause
	}
	return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
}

func (e *GistEngine) fetch(ctx context.Context, etag string) (Document, string, bool, error) {
	req, err := e.newRequest(ctx, http.MethodGet, e.gistURL(), nil)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", false, fmt.Errorf("fetching gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, etag, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", false, remoteError(resp)
	}

	var gist gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&gist); err != nil {
		return nil, "", false, fmt.Errorf("decoding gist response: %w", err)
	}

	file, ok := gist.Files[GistFileName]
	if !ok || file == nil {
		// An empty gist is a first run: start from the skeleton.
		return DefaultDocument(), resp.Header.Get("ETag"), false, nil
	}

	content := []byte(file.Content)
	if file.Truncated {
		content, err = e.fetchRaw(ctx, file.RawURL)
		if err != nil {
			return nil, "", false, err
		}
	}

	doc, err := DecodeDocument(content)
	if err != nil {
		return nil, "", false, err
	}
	return doc, resp.Header.Get("ETag"), false, nil
}

// fetchRaw downloads a file the API truncated.
func (e *GistEngine) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("gist file %s truncated without raw_url", GistFileName)
	}
	req, err := e.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching raw gist content: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remoteError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Save pushes the full document. The cache is refreshed only on success.
func (e *GistEngine) Save(ctx context.Context, doc Document, _ int64) error {
	if !e.configured() {
		return ErrNotConfigured
	}

	content, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encoding content: %w", err)
	}
	body, err := json.Marshal(gistUpdate{Files: map[string]gistFileUpdate{
		GistFileName: {Content: string(content)},
	}})
	if err != nil {
		return err
	}

	req, err := e.newRequest(ctx, http.MethodPatch, e.gistURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Sugar.Errorf("Failed to write to Gist: %v", err)
		return fmt.Errorf("%w: updating gist: %w", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := remoteError(resp)
		logger.Sugar.Errorf("Failed to write to Gist: %v", err)
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	e.mu.Lock()
	e.cache = doc.Clone()
	e.etag = resp.Header.Get("ETag")
	e.fetchedAt = e.now()
	e.writes++
	e.mu.Unlock()

	logger.Sugar.Info("Content saved to Gist successfully")
	return nil
}

func (e *GistEngine) gistURL() string {
	return e.cfg.BaseURL + "/gists/" + e.cfg.GistID
}

func (e *GistEngine) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", gistUserAgent)
	return req, nil
}

func remoteError(resp *http.Response) *RemoteError {
	msg := http.StatusText(resp.StatusCode)
	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
}
