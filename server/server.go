package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/internal/storage"
	"github.com/alonegg/mistral-ocr-tool/resources"
	"github.com/alonegg/mistral-ocr-tool/tools"
)

func CreateServer(log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mistral-ocr", Version: "v0.1.0"}, nil)

	store, err := initializeStorage(log)
	if err != nil {
		log.Fatal("Failed to initialize storage: %v", err)
	}

	cfg := config.Default()

	conversionResourceHandler := resources.NewConversionResourceHandler(store)

	// Register tools with storage, config and logger dependencies
	mcp.AddTool(server, tools.DocumentConvertTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.DocumentConvertQuery) (*mcp.CallToolResult, *tools.DocumentConvertResponse, error) {
		return tools.DocumentConvertToolHandler(ctx, req, query, store, cfg, log)
	})

	mcp.AddTool(server, tools.StructuredExtractTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.StructuredExtractQuery) (*mcp.CallToolResult, *tools.StructuredExtractResponse, error) {
		return tools.StructuredExtractToolHandler(ctx, req, query, store, cfg, log)
	})

	// Index of stored conversions
	server.AddResource(&mcp.Resource{
		URI:         "conversion://list",
		Name:        "conversion-list",
		Description: "Index of all stored document conversions",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return conversionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for conversion summary
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "conversion://{conversionId}",
		Name:        "conversion",
		Description: "Summary of a stored document conversion",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return conversionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for the merged Markdown
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "conversion://{conversionId}/markdown",
		Name:        "conversion-markdown",
		Description: "Full Markdown produced from the document",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return conversionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for individual chunk
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "conversion://{conversionId}/chunks/{chunkIndex}",
		Name:        "conversion-chunk",
		Description: "A specific page-range chunk of the conversion (0-indexed)",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return conversionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for structured data
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "conversion://{conversionId}/structured",
		Name:        "conversion-structured",
		Description: "Structured JSON data extracted from the document",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return conversionResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	return server
}

// initializeStorage creates and initializes the storage backend
func initializeStorage(log logger.Logger) (storage.Store, error) {
	dbPath := os.Getenv("MISTRAL_OCR_DB_PATH")
	if dbPath == "" {
		// Default to ~/.mistral-ocr/conversions.db
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dbDir := filepath.Join(homeDir, ".mistral-ocr")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "conversions.db")
	}

	log.Info("Initializing SQLite database at: %s", dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}

	return store, nil
}
