package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/document"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/internal/ocr"
	"github.com/alonegg/mistral-ocr-tool/internal/pipeline"
	"github.com/alonegg/mistral-ocr-tool/internal/storage"
	"github.com/alonegg/mistral-ocr-tool/models"
)

type DocumentConvertQuery struct {
	Path       string `json:"path,omitempty"`
	URL        string `json:"url,omitempty"`
	RawData    []byte `json:"raw_data,omitempty"`
	Split      bool   `json:"split,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Structured bool   `json:"structured,omitempty"`
}

type DocumentConvertResponse struct {
	ConversionID string                `json:"conversion_id"`
	PageCount    int                   `json:"page_count"`
	ChunkCount   int                   `json:"chunk_count"`
	Markdown     string                `json:"markdown"`
	Structured   models.StructuredData `json:"structured,omitempty"`
}

func DocumentConvertTool() *mcp.Tool {
	inputschema, err := jsonschema.For[DocumentConvertQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "document-convert",
		Description: "Convert a PDF or image to Markdown via the remote OCR service, optionally splitting large PDFs into page-range chunks and optionally extracting structured JSON from the recognized text",
		InputSchema: inputschema,
	}
}

func DocumentConvertToolHandler(ctx context.Context, req *mcp.CallToolRequest, query DocumentConvertQuery, store storage.Store, cfg config.Config, log logger.Logger) (*mcp.CallToolResult, *DocumentConvertResponse, error) {
	src, err := loadSource(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	cfg.Split = query.Split
	if query.ChunkCount > 0 {
		cfg.ChunkCount = query.ChunkCount
	}
	cfg.Structured = query.Structured
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	p := pipeline.New(ocr.NewClient(cfg, log), cfg, log)
	result, err := p.Run(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	conv := &models.Conversion{
		ID:              storage.ConversionID(src.Data),
		SourceName:      src.Name,
		SourceURL:       src.URL,
		OCRModel:        cfg.OCRModel,
		StructuredModel: cfg.StructuredModel,
		PageCount:       result.PageCount,
		Markdown:        result.Markdown,
		Chunks:          result.Chunks,
		Structured:      result.Structured,
	}
	if _, err := store.StoreConversion(ctx, conv); err != nil {
		log.Error("Failed to store conversion: %v", err)
		return nil, nil, err
	}

	callResult := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Converted %s: %d pages in %d chunks. Resource: conversion://%s",
					src.Name, result.PageCount, len(result.Chunks), conv.ID),
			},
		},
	}
	response := &DocumentConvertResponse{
		ConversionID: conv.ID,
		PageCount:    result.PageCount,
		ChunkCount:   len(result.Chunks),
		Markdown:     result.Markdown,
		Structured:   result.Structured,
	}
	return callResult, response, nil
}

func loadSource(ctx context.Context, query DocumentConvertQuery) (*document.Source, error) {
	switch {
	case len(query.RawData) > 0:
		return document.FromBytes("document", query.RawData)
	case query.Path != "":
		return document.Load(query.Path)
	case query.URL != "":
		return document.Fetch(ctx, query.URL)
	default:
		return nil, errors.New("no document provided: pass path, url or raw_data")
	}
}
