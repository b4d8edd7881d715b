package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/server"
)

func main() {
	// Stdout carries the MCP protocol, so log to a file by default.
	log, err := logger.New(logger.Config{Output: "file"})
	if err != nil {
		panic(err)
	}

	log.Info("Starting mistral-ocr MCP server")

	srv := server.CreateServer(log)
	err = srv.Run(context.Background(), &mcp.StdioTransport{})
	if err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
