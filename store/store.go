// Package store owns the single content document of the site and persists it
// through interchangeable engines: a local JSON file with backup, a GitHub
// Gist, or a Postgres row.
//
// Every mutation is read-modify-write: the whole document is loaded, one
// section is changed in memory and the whole document is written back.
package store

import (
	"context"
	"fmt"
	"time"

	"portfoliocms/pkg/metrics"
)

// Document maps section names to arbitrary JSON values.
type Document map[string]any

// Item is one element of an array-valued section. Persisted items always
// carry a string "id".
type Item map[string]any

// Snapshot is a loaded document plus the engine-specific version it was read
// at. Engines without conditional writes always report version 0.
type Snapshot struct {
	Doc     Document
	Version int64
}

// Engine is a backing medium for the content document.
//
// Load must return a document owned by the caller. Save must not retain doc
// without copying it.
type Engine interface {
	Name() string
	Init(ctx context.Context) error
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, doc Document, baseVersion int64) error
}

// Store is the content contract consumed by the HTTP facade.
type Store interface {
	ReadContent(ctx context.Context) (Document, error)
	UpdateSection(ctx context.Context, section string, value any) (Document, error)
	AddItem(ctx context.Context, section string, item any) (Document, Item, error)
	UpdateItem(ctx context.Context, section, itemID string, patch any) (Document, error)
	DeleteItem(ctx context.Context, section, itemID string) (Document, error)
}

// ContentStore implements Store over any Engine.
type ContentStore struct {
	engine Engine
}

var _ Store = (*ContentStore)(nil)

func New(engine Engine) *ContentStore {
	return &ContentStore{engine: engine}
}

// EngineName reports which engine backs the store.
func (s *ContentStore) EngineName() string {
	return s.engine.Name()
}

// Init prepares the backing medium. It is idempotent.
func (s *ContentStore) Init(ctx context.Context) error {
	return s.engine.Init(ctx)
}

func (s *ContentStore) ReadContent(ctx context.Context) (doc Document, err error) {
	defer s.observe("read", time.Now(), &err)

	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

// UpdateSection replaces section wholesale, creating it if absent.
func (s *ContentStore) UpdateSection(ctx context.Context, section string, value any) (doc Document, err error) {
	defer s.observe("update_section", time.Now(), &err)

	v, err := normalize(value)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", section, err)
	}

	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap.Doc[section] = v
	if err := s.engine.Save(ctx, snap.Doc, snap.Version); err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

// AddItem appends item to an array section, assigning a fresh id when the
// item has none.
func (s *ContentStore) AddItem(ctx context.Context, section string, item any) (doc Document, added Item, err error) {
	defer s.observe("add_item", time.Now(), &err)

	obj, err := toItem(item)
	if err != nil {
		return nil, nil, err
	}
	id, err := itemID(obj)
	if err != nil {
		return nil, nil, err
	}
	if id == "" {
		id = NewID()
		obj["id"] = id
	}

	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	items, ok := snap.Doc[section].([]any)
	if !ok {
		return nil, nil, notAnArray(section)
	}
	if findItem(items, id) >= 0 {
		return nil, nil, fmt.Errorf("%w: %q in %q", ErrDuplicateItem, id, section)
	}

	snap.Doc[section] = append(items, map[string]any(obj))
	if err := s.engine.Save(ctx, snap.Doc, snap.Version); err != nil {
		return nil, nil, err
	}
	return snap.Doc, Item(cloneMap(obj)), nil
}

// UpdateItem shallow-merges patch onto the item with the given id. The id
// itself cannot be changed through a patch.
func (s *ContentStore) UpdateItem(ctx context.Context, section, itemID string, patch any) (doc Document, err error) {
	defer s.observe("update_item", time.Now(), &err)

	fields, err := toItem(patch)
	if err != nil {
		return nil, err
	}

	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	items, ok := snap.Doc[section].([]any)
	if !ok {
		return nil, notAnArray(section)
	}
	idx := findItem(items, itemID)
	if idx < 0 {
		return nil, itemNotFound(section, itemID)
	}

	current := items[idx].(map[string]any)
	for k, v := range fields {
		current[k] = v
	}
	current["id"] = itemID

	if err := s.engine.Save(ctx, snap.Doc, snap.Version); err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

// DeleteItem removes exactly one item with the given id.
func (s *ContentStore) DeleteItem(ctx context.Context, section, itemID string) (doc Document, err error) {
	defer s.observe("delete_item", time.Now(), &err)

	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	items, ok := snap.Doc[section].([]any)
	if !ok {
		return nil, notAnArray(section)
	}
	idx := findItem(items, itemID)
	if idx < 0 {
		return nil, itemNotFound(section, itemID)
	}

	snap.Doc[section] = append(items[:idx:idx], items[idx+1:]...)
	if err := s.engine.Save(ctx, snap.Doc, snap.Version); err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

// Restorer is implemented by engines that keep a backup generation.
type Restorer interface {
	Restore(ctx context.Context) error
}

// RestoreBackup rolls the document back to the engine's backup and returns
// the restored document.
func (s *ContentStore) RestoreBackup(ctx context.Context) (doc Document, err error) {
	defer s.observe("restore", time.Now(), &err)

	r, ok := s.engine.(Restorer)
	if !ok {
		return nil, fmt.Errorf("%w: %s engine keeps no backup", ErrUnsupported, s.engine.Name())
	}
	if err := r.Restore(ctx); err != nil {
		return nil, err
	}
	snap, err := s.engine.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Doc, nil
}

func (s *ContentStore) observe(op string, start time.Time, errp *error) {
	metrics.ObserveStoreOp(s.engine.Name(), op, start, *errp)
}
