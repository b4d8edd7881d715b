package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alonegg/mistral-ocr-tool/internal/storage"
)

// ConversionResourceHandler serves stored document conversions as MCP
// resources under the conversion:// scheme.
type ConversionResourceHandler struct {
	store storage.Store
}

// NewConversionResourceHandler creates a new conversion resource handler
func NewConversionResourceHandler(store storage.Store) *ConversionResourceHandler {
	return &ConversionResourceHandler{store: store}
}

// ListResources returns a list of available resources
func (h *ConversionResourceHandler) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	convs, err := h.store.ListConversions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	var resources []mcp.Resource
	for _, conv := range convs {
		resources = append(resources, mcp.Resource{
			URI:         fmt.Sprintf("conversion://%s", conv.ID),
			Name:        fmt.Sprintf("%s (Conversion)", conv.SourceName),
			Description: fmt.Sprintf("OCR conversion of %s (%d pages, %d chunks)", conv.SourceName, conv.PageCount, conv.ChunkCount),
			MIMEType:    "application/json",
		})
		resources = append(resources, mcp.Resource{
			URI:         fmt.Sprintf("conversion://%s/markdown", conv.ID),
			Name:        fmt.Sprintf("%s (Markdown)", conv.SourceName),
			Description: "Merged Markdown output of the conversion",
			MIMEType:    "text/markdown",
		})
		if conv.Structured {
			resources = append(resources, mcp.Resource{
				URI:         fmt.Sprintf("conversion://%s/structured", conv.ID),
				Name:        fmt.Sprintf("%s (Structured)", conv.SourceName),
				Description: "Structured data extracted from the recognized text",
				MIMEType:    "application/json",
			})
		}
	}

	return resources, nil
}

// ReadResource reads a specific resource by URI. Supported forms:
// conversion://list, conversion://{id}, conversion://{id}/markdown,
// conversion://{id}/chunks/{index}, conversion://{id}/structured.
func (h *ConversionResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, "conversion://") {
		return nil, fmt.Errorf("invalid URI scheme, expected conversion://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "conversion://"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("invalid URI, missing conversion ID")
	}
	id := parts[0]

	if id == "list" && len(parts) == 1 {
		content, err := h.getList(ctx)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: uri, MIMEType: "application/json", Text: content},
			},
		}, nil
	}

	resourceType := ""
	if len(parts) > 1 {
		resourceType = parts[1]
	}

	var content, mimeType string
	var err error
	switch resourceType {
	case "":
		content, err = h.getSummary(ctx, id)
		mimeType = "application/json"
	case "markdown":
		content, err = h.store.GetMarkdown(ctx, id)
		mimeType = "text/markdown"
	case "chunks":
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid URI, missing chunk index")
		}
		index, convErr := strconv.Atoi(parts[2])
		if convErr != nil {
			return nil, fmt.Errorf("invalid chunk index: %s", parts[2])
		}
		content, err = h.getChunk(ctx, id, index)
		mimeType = "application/json"
	case "structured":
		var structured json.RawMessage
		structured, err = h.store.GetStructured(ctx, id)
		content = string(structured)
		mimeType = "application/json"
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     content,
			},
		},
	}, nil
}

func (h *ConversionResourceHandler) getList(ctx context.Context) (string, error) {
	convs, err := h.store.ListConversions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list conversions: %w", err)
	}
	data, err := json.MarshalIndent(convs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *ConversionResourceHandler) getSummary(ctx context.Context, id string) (string, error) {
	conv, err := h.store.GetConversion(ctx, id)
	if err != nil {
		return "", err
	}

	summary := map[string]any{
		"id":          conv.ID,
		"source_name": conv.SourceName,
		"ocr_model":   conv.OCRModel,
		"page_count":  conv.PageCount,
		"chunk_count": len(conv.Chunks),
		"structured":  len(conv.Structured) > 0,
	}
	if conv.SourceURL != "" {
		summary["source_url"] = conv.SourceURL
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *ConversionResourceHandler) getChunk(ctx context.Context, id string, index int) (string, error) {
	chunk, err := h.store.GetChunk(ctx, id, index)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(chunk, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
