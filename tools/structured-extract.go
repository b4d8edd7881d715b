package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/internal/ocr"
	"github.com/alonegg/mistral-ocr-tool/internal/retry"
	"github.com/alonegg/mistral-ocr-tool/internal/storage"
	"github.com/alonegg/mistral-ocr-tool/models"
)

type StructuredExtractQuery struct {
	ConversionID string `json:"conversion_id,omitempty"`
	Markdown     string `json:"markdown,omitempty"`
}

type StructuredExtractResponse struct {
	ConversionID string                `json:"conversion_id,omitempty"`
	Structured   models.StructuredData `json:"structured"`
}

func StructuredExtractTool() *mcp.Tool {
	inputschema, err := jsonschema.For[StructuredExtractQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "structured-extract",
		Description: "Extract structured JSON data from recognized document text, given either a prior conversion ID or raw Markdown",
		InputSchema: inputschema,
	}
}

func StructuredExtractToolHandler(ctx context.Context, req *mcp.CallToolRequest, query StructuredExtractQuery, store storage.Store, cfg config.Config, log logger.Logger) (*mcp.CallToolResult, *StructuredExtractResponse, error) {
	markdown := query.Markdown
	if query.ConversionID != "" {
		md, err := store.GetMarkdown(ctx, query.ConversionID)
		if err != nil {
			return nil, nil, err
		}
		markdown = md
	}
	if markdown == "" {
		return nil, nil, errors.New("nothing to extract from: pass conversion_id or markdown")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client := ocr.NewClient(cfg, log)
	policy := retry.Policy{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		IsTransient:  ocr.IsTransient,
	}
	structured, err := retry.Do(ctx, policy, log, func(ctx context.Context) (models.StructuredData, error) {
		return client.ExtractStructured(ctx, markdown)
	})
	if err != nil {
		return nil, nil, err
	}

	if query.ConversionID != "" {
		conv, err := store.GetConversion(ctx, query.ConversionID)
		if err == nil {
			conv.Structured = structured
			conv.StructuredModel = cfg.StructuredModel
			if _, err := store.StoreConversion(ctx, conv); err != nil {
				log.Warn("Failed to persist structured data for %s: %v", query.ConversionID, err)
			}
		}
	}

	callResult := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(structured)},
		},
	}
	response := &StructuredExtractResponse{
		ConversionID: query.ConversionID,
		Structured:   structured,
	}
	return callResult, response, nil
}
