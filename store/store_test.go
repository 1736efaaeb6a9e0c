package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memEngine keeps the document in memory and counts writes.
type memEngine struct {
	doc   Document
	saves int
}

func (m *memEngine) Name() string                 { return "memory" }
func (m *memEngine) Init(_ context.Context) error { return nil }

func (m *memEngine) Load(_ context.Context) (*Snapshot, error) {
	if m.doc == nil {
		return &Snapshot{Doc: DefaultDocument()}, nil
	}
	return &Snapshot{Doc: m.doc.Clone()}, nil
}

func (m *memEngine) Save(_ context.Context, doc Document, _ int64) error {
	m.doc = doc.Clone()
	m.saves++
	return nil
}

func newLocalStore(t *testing.T) (*ContentStore, *LocalEngine) {
	t.Helper()
	dir := t.TempDir()
	engine := NewLocalEngine(filepath.Join(dir, "content.json"), filepath.Join(dir, "content.backup.json"))
	st := New(engine)
	require.NoError(t, st.Init(context.Background()))
	return st, engine
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestReadContentReturnsDefaultsWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	st := New(NewLocalEngine(filepath.Join(dir, "content.json"), filepath.Join(dir, "backup.json")))

	doc, err := st.ReadContent(context.Background())
	require.NoError(t, err)
	assert.Contains(t, doc, "hero")
	assert.True(t, IsArray(doc["events"]))
	assert.Equal(t, "local", st.EngineName())
}

func TestReadContentIsIdempotent(t *testing.T) {
	st, _ := newLocalStore(t)
	ctx := context.Background()

	first, err := st.ReadContent(ctx)
	require.NoError(t, err)
	first["hero"] = "mutated by caller"

	second, err := st.ReadContent(ctx)
	require.NoError(t, err)
	third, err := st.ReadContent(ctx)
	require.NoError(t, err)

	assert.Equal(t, second, third)
	assert.NotEqual(t, "mutated by caller", second["hero"])
}

func TestUpdateSectionRoundTrip(t *testing.T) {
	st, _ := newLocalStore(t)
	ctx := context.Background()

	hero := map[string]any{"title": "Aria", "subtitle": "Soprano", "year": 2024}
	doc, err := st.UpdateSection(ctx, "hero", hero)
	require.NoError(t, err)
	assert.JSONEq(t, toJSON(t, hero), toJSON(t, doc["hero"]))

	read, err := st.ReadContent(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, toJSON(t, hero), toJSON(t, read["hero"]))
	// Other sections are untouched.
	assert.Contains(t, read, "about")
}

func TestUpdateSectionCreatesMissingSection(t *testing.T) {
	st := New(&memEngine{})
	ctx := context.Background()

	_, err := st.UpdateSection(ctx, "pressKit", []any{"a", "b"})
	require.NoError(t, err)

	doc, err := st.ReadContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, doc["pressKit"])
}

func TestUpdateSectionRejectsUnserializableValue(t *testing.T) {
	engine := &memEngine{}
	st := New(engine)

	_, err := st.UpdateSection(context.Background(), "hero", make(chan int))
	require.Error(t, err)
	assert.Zero(t, engine.saves)
}

func TestAddItemAssignsUniqueIDs(t *testing.T) {
	st, _ := newLocalStore(t)
	ctx := context.Background()

	_, first, err := st.AddItem(ctx, "events", map[string]any{"title": "Opening Night"})
	require.NoError(t, err)
	doc, second, err := st.AddItem(ctx, "events", map[string]any{"title": "Closing Night"})
	require.NoError(t, err)

	id1, _ := first["id"].(string)
	id2, _ := second["id"].(string)
	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)

	events := doc["events"].([]any)
	require.Len(t, events, 2)
	assert.Equal(t, "Closing Night", events[1].(map[string]any)["title"])
}

func TestAddItemKeepsSuppliedIDAndRejectsDuplicates(t *testing.T) {
	st := New(&memEngine{})
	ctx := context.Background()

	_, added, err := st.AddItem(ctx, "gallery", map[string]any{"id": "img-1", "src": "/uploads/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "img-1", added["id"])

	_, _, err = st.AddItem(ctx, "gallery", map[string]any{"id": "img-1", "src": "/uploads/b.jpg"})
	assert.ErrorIs(t, err, ErrDuplicateItem)

	doc, err := st.ReadContent(ctx)
	require.NoError(t, err)
	assert.Len(t, doc["gallery"], 1)
}

func TestAddItemRejectsInvalidItems(t *testing.T) {
	engine := &memEngine{}
	st := New(engine)
	ctx := context.Background()

	_, _, err := st.AddItem(ctx, "events", "not an object")
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, _, err = st.AddItem(ctx, "events", map[string]any{"id": 42})
	assert.ErrorIs(t, err, ErrInvalidItem)

	assert.Zero(t, engine.saves)
}

func TestItemOperationsRequireArraySection(t *testing.T) {
	engine := &memEngine{}
	st := New(engine)
	ctx := context.Background()

	for _, section := range []string{"hero", "doesNotExist"} {
		_, _, err := st.AddItem(ctx, section, map[string]any{"title": "x"})
		assert.ErrorIs(t, err, ErrNotAnArray, section)

		_, err = st.UpdateItem(ctx, section, "x", map[string]any{"title": "y"})
		assert.ErrorIs(t, err, ErrNotAnArray, section)

		_, err = st.DeleteItem(ctx, section, "x")
		assert.ErrorIs(t, err, ErrNotAnArray, section)
	}
	assert.Zero(t, engine.saves)
}

func TestUpdateItemShallowMergeKeepsID(t *testing.T) {
	st := New(&memEngine{})
	ctx := context.Background()

	_, _, err := st.AddItem(ctx, "events", map[string]any{
		"id":    "evt-1",
		"title": "Recital",
		"venue": map[string]any{"name": "Hall A", "city": "Vienna"},
	})
	require.NoError(t, err)

	doc, err := st.UpdateItem(ctx, "events", "evt-1", map[string]any{
		"id":    "evt-2",
		"title": "Recital (sold out)",
		"venue": map[string]any{"name": "Hall B"},
	})
	require.NoError(t, err)

	events := doc["events"].([]any)
	require.Len(t, events, 1)
	evt := events[0].(map[string]any)
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "Recital (sold out)", evt["title"])
	// Nested objects are replaced, not merged.
	assert.Equal(t, map[string]any{"name": "Hall B"}, evt["venue"])
}

func TestMissingItemLeavesDocumentUnchanged(t *testing.T) {
	st, engine := newLocalStore(t)
	ctx := context.Background()

	_, _, err := st.AddItem(ctx, "testimonials", map[string]any{"id": "t-1", "quote": "Stunning"})
	require.NoError(t, err)
	before, err := os.ReadFile(engine.Path())
	require.NoError(t, err)

	_, err = st.UpdateItem(ctx, "testimonials", "missing", map[string]any{"quote": "x"})
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = st.DeleteItem(ctx, "testimonials", "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	after, err := os.ReadFile(engine.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeleteItemRemovesExactlyOne(t *testing.T) {
	st := New(&memEngine{})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := st.AddItem(ctx, "socialLinks", map[string]any{"id": id})
		require.NoError(t, err)
	}

	doc, err := st.DeleteItem(ctx, "socialLinks", "b")
	require.NoError(t, err)
	links := doc["socialLinks"].([]any)
	require.Len(t, links, 2)
	assert.Equal(t, "a", links[0].(map[string]any)["id"])
	assert.Equal(t, "c", links[1].(map[string]any)["id"])
}

func TestEventLifecycle(t *testing.T) {
	st, _ := newLocalStore(t)
	ctx := context.Background()

	_, added, err := st.AddItem(ctx, "events", map[string]any{
		"title": "Winter Gala",
		"date":  "2025-12-20",
		"venue": "Royal Albert Hall",
	})
	require.NoError(t, err)
	id := added["id"].(string)

	_, err = st.UpdateItem(ctx, "events", id, map[string]any{"venue": "Wigmore Hall"})
	require.NoError(t, err)

	doc, err := st.ReadContent(ctx)
	require.NoError(t, err)
	events := doc["events"].([]any)
	require.Len(t, events, 1)
	evt := events[0].(map[string]any)
	assert.Equal(t, "Winter Gala", evt["title"])
	assert.Equal(t, "Wigmore Hall", evt["venue"])
	assert.Equal(t, "2025-12-20", evt["date"])

	_, err = st.DeleteItem(ctx, "events", id)
	require.NoError(t, err)

	doc, err = st.ReadContent(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc["events"])
}

func TestRestoreBackupUnsupportedEngine(t *testing.T) {
	st := New(&memEngine{})
	_, err := st.RestoreBackup(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, doc)

	doc, err = DecodeDocument([]byte(`{"stats":[{"value":1.5}]}`))
	require.NoError(t, err)
	value := doc["stats"].([]any)[0].(map[string]any)["value"]
	assert.Equal(t, json.Number("1.5"), value)

	_, err = DecodeDocument([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = DecodeDocument([]byte(`{`))
	assert.Error(t, err)
}

func TestDefaultDocumentIsFreshCopy(t *testing.T) {
	a := DefaultDocument()
	a["hero"].(map[string]any)["title"] = "changed"

	b := DefaultDocument()
	assert.NotEqual(t, "changed", b["hero"].(map[string]any)["title"])
	for _, section := range []string{"featureStats", "musicReleases", "events", "gallery", "testimonials", "socialLinks", "journeyMilestones"} {
		assert.True(t, IsArray(b[section]), section)
	}
}
