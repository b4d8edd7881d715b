package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alonegg/mistral-ocr-tool/models"
)

// ErrNotFound is returned when no stored conversion matches the ID.
var ErrNotFound = errors.New("conversion not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		id TEXT PRIMARY KEY,
		source_name TEXT,
		source_url TEXT,
		ocr_model TEXT,
		structured_model TEXT,
		page_count INTEGER,
		markdown TEXT,
		structured TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		conversion_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_page INTEGER NOT NULL,
		end_page INTEGER NOT NULL,
		content TEXT,
		PRIMARY KEY (conversion_id, chunk_index),
		FOREIGN KEY (conversion_id) REFERENCES conversions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_source_name ON conversions(source_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StoreConversion stores a conversion, replacing any previous conversion
// of the same source bytes, and returns its ID.
func (s *SQLiteStore) StoreConversion(ctx context.Context, conv *models.Conversion) (string, error) {
	if conv.ID == "" {
		return "", errors.New("conversion has no ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var structured any
	if len(conv.Structured) > 0 {
		structured = string(conv.Structured)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversions (id, source_name, source_url, ocr_model, structured_model, page_count, markdown, structured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.SourceName, conv.SourceURL, conv.OCRModel, conv.StructuredModel,
		conv.PageCount, conv.Markdown, structured)
	if err != nil {
		return "", fmt.Errorf("failed to insert conversion: %w", err)
	}

	// Replacing a conversion must not leave chunks of the old one behind.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE conversion_id = ?`, conv.ID); err != nil {
		return "", fmt.Errorf("failed to clear previous chunks: %w", err)
	}
	for _, chunk := range conv.Chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (conversion_id, chunk_index, start_page, end_page, content)
			VALUES (?, ?, ?, ?, ?)
		`, conv.ID, chunk.Index, chunk.StartPage, chunk.EndPage, chunk.Content)
		if err != nil {
			return "", fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return conv.ID, nil
}

// GetConversion retrieves a full conversion by ID.
func (s *SQLiteStore) GetConversion(ctx context.Context, id string) (*models.Conversion, error) {
	conv := &models.Conversion{ID: id}
	var structured sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT source_name, source_url, ocr_model, structured_model, page_count, markdown, structured
		FROM conversions WHERE id = ?
	`, id).Scan(&conv.SourceName, &conv.SourceURL, &conv.OCRModel, &conv.StructuredModel,
		&conv.PageCount, &conv.Markdown, &structured)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion: %w", err)
	}
	if structured.Valid {
		conv.Structured = models.StructuredData(structured.String)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_index, start_page, end_page, content
		FROM chunks WHERE conversion_id = ? ORDER BY chunk_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var chunk models.ChunkContent
		if err := rows.Scan(&chunk.Index, &chunk.StartPage, &chunk.EndPage, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		conv.Chunks = append(conv.Chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetMarkdown retrieves only the merged Markdown for a conversion.
func (s *SQLiteStore) GetMarkdown(ctx context.Context, id string) (string, error) {
	var markdown string
	err := s.db.QueryRowContext(ctx, `SELECT markdown FROM conversions WHERE id = ?`, id).Scan(&markdown)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query markdown: %w", err)
	}
	return markdown, nil
}

// GetChunk retrieves one chunk's content by 0-based index.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string, index int) (*models.ChunkContent, error) {
	chunk := &models.ChunkContent{Index: index}
	err := s.db.QueryRowContext(ctx, `
		SELECT start_page, end_page, content FROM chunks
		WHERE conversion_id = ? AND chunk_index = ?
	`, id, index).Scan(&chunk.StartPage, &chunk.EndPage, &chunk.Content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	return chunk, nil
}

// GetStructured retrieves the structured-extraction output, if any.
func (s *SQLiteStore) GetStructured(ctx context.Context, id string) (models.StructuredData, error) {
	var structured sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT structured FROM conversions WHERE id = ?`, id).Scan(&structured)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query structured data: %w", err)
	}
	if !structured.Valid {
		return nil, fmt.Errorf("%w: no structured data for conversion %s", ErrNotFound, id)
	}
	return models.StructuredData(structured.String), nil
}

// ListConversions returns summaries of all stored conversions.
func (s *SQLiteStore) ListConversions(ctx context.Context) ([]models.ConversionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.source_name, c.source_url, c.ocr_model, c.page_count,
		       c.structured IS NOT NULL, c.created_at,
		       (SELECT COUNT(*) FROM chunks WHERE conversion_id = c.id)
		FROM conversions c ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var infos []models.ConversionInfo
	for rows.Next() {
		var info models.ConversionInfo
		if err := rows.Scan(&info.ID, &info.SourceName, &info.SourceURL, &info.OCRModel,
			&info.PageCount, &info.Structured, &info.CreatedAt, &info.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteConversion removes a conversion and its chunks.
func (s *SQLiteStore) DeleteConversion(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE conversion_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
