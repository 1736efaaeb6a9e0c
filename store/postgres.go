package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"portfoliocms/pkg/logger"
)

const createContentTable = `
CREATE TABLE IF NOT EXISTS content_documents (
	id         TEXT PRIMARY KEY,
	content    JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertContent = `INSERT INTO content_documents (id, content, version, updated_at) VALUES ($1, $2, 1, NOW())
ON CONFLICT (id) DO NOTHING`

// DefaultDocumentID is the row key of the single content document.
const DefaultDocumentID = "content"

// PostgresEngine keeps the document in one JSONB row. Writes are conditional
// on the version read, so concurrent writers get ErrConflict instead of
// silently overwriting each other.
type PostgresEngine struct {
	DB    *sql.DB
	docID string
}

func NewPostgresEngine(db *sql.DB) *PostgresEngine {
	return &PostgresEngine{DB: db, docID: DefaultDocumentID}
}

func (e *PostgresEngine) Name() string { return "postgres" }

// Init creates the table and seeds the default document when no row exists.
func (e *PostgresEngine) Init(ctx context.Context) error {
	if _, err := e.DB.ExecContext(ctx, createContentTable); err != nil {
		logger.Sugar.Errorf("Failed to create content table: %v", err)
		return fmt.Errorf("creating content table: %w", err)
	}

	data, err := EncodeDocument(DefaultDocument())
	if err != nil {
		return err
	}
	result, err := e.DB.ExecContext(ctx, insertContent, e.docID, string(data))
	if err != nil {
		return fmt.Errorf("seeding default content: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		logger.Sugar.Infof("Seeded default content document %s", e.docID)
	}
	return nil
}

// Load returns the stored row, or the default document at version 0 when the
// row does not exist yet.
func (e *PostgresEngine) Load(ctx context.Context) (*Snapshot, error) {
	var raw []byte
	var version int64
	err := e.DB.QueryRowContext(ctx, "SELECT content, version FROM content_documents WHERE id = $1", e.docID).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return &Snapshot{Doc: DefaultDocument()}, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load content document %s: %v", e.docID, err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Doc: doc, Version: version}, nil
}

func (e *PostgresEngine) Save(ctx context.Context, doc Document, baseVersion int64) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encoding content: %w", err)
	}

	var result sql.Result
	if baseVersion == 0 {
		result, err = e.DB.ExecContext(ctx, insertContent, e.docID, string(data))
	} else {
		result, err = e.DB.ExecContext(ctx,
			`UPDATE content_documents SET content = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3`, string(data), e.docID, baseVersion)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to save content document %s: %v", e.docID, err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: document %q is no longer at version %d", ErrConflict, e.docID, baseVersion)
	}
	return nil
}
