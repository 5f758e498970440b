package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JIWOOK23/LocalMind/internal/core/domain"
	"github.com/JIWOOK23/LocalMind/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveDocument stores or updates document metadata.
func (s *chunkStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, title, format, content, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			format = excluded.format,
			content = excluded.content,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Path, doc.Title, doc.Format, doc.Content, doc.IngestedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id.
func (s *chunkStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, path, title, format, content, ingested_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var ingestedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Path, &doc.Title, &doc.Format, &doc.Content, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if ingestedAt.Valid {
		doc.IngestedAt = ingestedAt.Time
	}
	return &doc, nil
}

// ListDocuments returns all ingested documents.
func (s *chunkStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, path, title, format, content, ingested_at
		FROM documents ORDER BY ingested_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var ingestedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Path, &doc.Title, &doc.Format, &doc.Content, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if ingestedAt.Valid {
			doc.IngestedAt = ingestedAt.Time
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes document metadata.
func (s *chunkStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ReplaceChunks atomically replaces the document's chunks: prior rows
// are deleted, new rows inserted with freshly allocated ids, and the
// consistency version bumped, all in one transaction. On any error
// the transaction rolls back and the prior state is intact.
func (s *chunkStore) ReplaceChunks(
	ctx context.Context, documentID string, chunks []domain.Chunk,
) (inserted []domain.Chunk, removed []int64, err error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY id", documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying prior chunks: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning prior chunk id: %w", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("iterating prior chunks: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return nil, nil, fmt.Errorf("deleting prior chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, content, position, start_offset, end_offset, categories, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted = make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		categoriesJSON, err := json.Marshal(orEmpty(chunk.Categories))
		if err != nil {
			return nil, nil, fmt.Errorf("marshalling categories: %w", err)
		}

		res, err := stmt.ExecContext(ctx,
			documentID, chunk.Content, chunk.Position,
			chunk.StartOffset, chunk.EndOffset,
			string(categoriesJSON), float32SliceToBytes(chunk.Embedding))
		if err != nil {
			return nil, nil, fmt.Errorf("inserting chunk: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("reading chunk id: %w", err)
		}
		chunk.ID = id
		chunk.DocumentID = documentID
		inserted = append(inserted, chunk)
	}

	if err := bumpVersion(ctx, tx); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}
	return inserted, removed, nil
}

// Get retrieves a single chunk by id.
func (s *chunkStore) Get(ctx context.Context, id int64) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, content, position, start_offset, end_offset, categories, embedding
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunkRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// GetMany retrieves chunks by id, aligned to input order.
func (s *chunkStore) GetMany(ctx context.Context, ids []int64) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := s.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get chunk %d: %w", id, err)
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, nil
}

// Delete removes chunks by id and bumps the consistency version.
func (s *chunkStore) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting chunk %d: %w", id, err)
		}
	}

	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IDs returns all chunk ids, ascending.
func (s *chunkStore) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT id FROM chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []int64 //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Counts returns document, chunk, and per-category chunk counts.
// Session and turn counts are filled in by the conversation store.
func (s *chunkStore) Counts(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{CategoryCounts: make(map[string]int)}

	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents")
	if err := row.Scan(&stats.DocumentCount); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, "SELECT categories FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("querying chunk categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning categories: %w", err)
		}
		stats.ChunkCount++

		var categories []string
		if err := json.Unmarshal([]byte(raw), &categories); err != nil {
			return nil, fmt.Errorf("unmarshaling categories: %w", err)
		}
		for _, c := range categories {
			stats.CategoryCounts[c]++
		}
	}
	return stats, rows.Err()
}

// ConsistencyVersion returns the version bumped on every mutation.
func (s *chunkStore) ConsistencyVersion(ctx context.Context) (uint64, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'consistency_version'")

	var raw string
	if err := row.Scan(&raw); err != nil {
		return 0, fmt.Errorf("reading consistency version: %w", err)
	}
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing consistency version: %w", err)
	}
	return version, nil
}

// bumpVersion increments the consistency version within tx.
func bumpVersion(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE meta SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)
		WHERE key = 'consistency_version'
	`)
	if err != nil {
		return fmt.Errorf("bumping consistency version: %w", err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanChunkRow scans a single chunk row.
func scanChunkRow(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var categoriesJSON string
	var embedding []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.Position,
		&chunk.StartOffset, &chunk.EndOffset, &categoriesJSON, &embedding); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categoriesJSON), &chunk.Categories); err != nil {
		return nil, fmt.Errorf("unmarshaling categories: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embedding)
	return &chunk, nil
}

// orEmpty keeps JSON columns as [] rather than null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
