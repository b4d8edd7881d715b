package models

import "encoding/json"

// StructuredData is the result of the structured-extraction pass: a tree
// of key-value data as returned by the model, kept verbatim.
type StructuredData = json.RawMessage

// Conversion is one stored document conversion: the merged Markdown plus
// the per-chunk content it was assembled from.
type Conversion struct {
	ID              string         `json:"id"`
	SourceName      string         `json:"source_name,omitempty"`
	SourceURL       string         `json:"source_url,omitempty"`
	OCRModel        string         `json:"ocr_model,omitempty"`
	StructuredModel string         `json:"structured_model,omitempty"`
	PageCount       int            `json:"page_count,omitempty"`
	Markdown        string         `json:"markdown,omitempty"`
	Chunks          []ChunkContent `json:"chunks,omitempty"`
	Structured      StructuredData `json:"structured,omitempty"`
}

// ChunkContent is the Markdown recognized for one page-range chunk.
type ChunkContent struct {
	Index     int    `json:"index"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Content   string `json:"content"`
}

// ConversionInfo is the listing view of a stored conversion.
type ConversionInfo struct {
	ID         string `json:"id"`
	SourceName string `json:"source_name,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	OCRModel   string `json:"ocr_model,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Structured bool   `json:"structured"`
	CreatedAt  string `json:"created_at,omitempty"`
}
