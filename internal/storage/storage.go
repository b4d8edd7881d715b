package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/alonegg/mistral-ocr-tool/models"
)

// Store persists finished conversions so the MCP server can expose them
// as resources.
type Store interface {
	// StoreConversion stores a conversion, replacing any previous
	// conversion of the same source bytes, and returns its ID.
	StoreConversion(ctx context.Context, conv *models.Conversion) (string, error)

	// GetConversion retrieves a full conversion by ID.
	GetConversion(ctx context.Context, id string) (*models.Conversion, error)

	// GetMarkdown retrieves only the merged Markdown for a conversion.
	GetMarkdown(ctx context.Context, id string) (string, error)

	// GetChunk retrieves one chunk's content by 0-based index.
	GetChunk(ctx context.Context, id string, index int) (*models.ChunkContent, error)

	// GetStructured retrieves the structured-extraction output, if any.
	GetStructured(ctx context.Context, id string) (models.StructuredData, error)

	// ListConversions returns summaries of all stored conversions.
	ListConversions(ctx context.Context) ([]models.ConversionInfo, error)

	// DeleteConversion removes a conversion and its chunks.
	DeleteConversion(ctx context.Context, id string) error

	// Close closes the database connection.
	Close() error
}

// ConversionID derives the stable conversion ID from the source bytes,
// so re-converting an unchanged document replaces its stored row.
func ConversionID(sourceData []byte) string {
	sum := sha256.Sum256(sourceData)
	return hex.EncodeToString(sum[:])
}
