package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/document"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/internal/ocr"
	"github.com/alonegg/mistral-ocr-tool/internal/pipeline"
	"github.com/alonegg/mistral-ocr-tool/internal/render"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		output       = flag.String("o", "", "output Markdown path (default: input name with .md extension)")
		apiKey       = flag.String("api-key", "", "API key (default: MISTRAL_API_KEY)")
		baseURL      = flag.String("base-url", "", "API base URL (default: MISTRAL_BASE_URL or "+config.DefaultBaseURL+")")
		model        = flag.String("model", config.DefaultOCRModel, "OCR model")
		split        = flag.Bool("split", false, "split multi-page PDFs into chunks before conversion")
		chunks       = flag.Int("chunks", config.DefaultChunkCount, "number of chunks to split into")
		concurrency  = flag.Int("concurrency", config.DefaultConcurrency, "maximum chunk requests in flight")
		structured   = flag.Bool("structured", false, "also extract structured JSON from the recognized text")
		structModel  = flag.String("structured-model", config.DefaultStructuredModel, "model for structured extraction")
		maxRetries   = flag.Int("max-retries", config.DefaultMaxRetries, "attempt budget per remote call")
		retryDelay   = flag.Duration("retry-delay", config.DefaultRetryDelay, "initial retry delay, doubled per retry")
		htmlOut      = flag.Bool("html", false, "also render the Markdown to an HTML file")
		keepPartials = flag.Bool("keep-partials", false, "on chunk failure, save completed chunk outputs to chunk_outputs/")
		logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <pdf-or-image-or-url>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	input := flag.Arg(0)

	log, err := logger.New(logger.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg := config.Config{
		APIKey:          *apiKey,
		BaseURL:         *baseURL,
		OCRModel:        *model,
		StructuredModel: *structModel,
		MaxRetries:      *maxRetries,
		RetryDelay:      *retryDelay,
		Split:           *split,
		ChunkCount:      *chunks,
		Concurrency:     *concurrency,
		Structured:      *structured,
		KeepPartials:    *keepPartials,
	}
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src *document.Source
	start := time.Now()
	if document.IsURL(input) {
		log.Info("Downloading %s", input)
		src, err = document.Fetch(ctx, input)
	} else {
		src, err = document.Load(input)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	p := pipeline.New(ocr.NewClient(cfg, log), cfg, log)
	result, runErr := p.Run(ctx, src)
	if result == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}

	outPath := *output
	if outPath == "" {
		outPath = outputStem(input) + ".md"
	}
	if err := os.WriteFile(outPath, []byte(result.Markdown), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", outPath, err)
		return 1
	}
	log.Info("Wrote %s (%d pages, %d chunks) in %v", outPath, result.PageCount, len(result.Chunks), time.Since(start).Round(time.Millisecond))

	if *htmlOut {
		htmlPath := trimExt(outPath) + ".html"
		rendered, err := render.HTML(src.Name, []byte(result.Markdown))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to render HTML: %v\n", err)
			return 1
		}
		if err := os.WriteFile(htmlPath, rendered, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", htmlPath, err)
			return 1
		}
		log.Info("Wrote %s", htmlPath)
	}

	if runErr != nil {
		// Structured extraction failed after a successful OCR phase. The
		// Markdown artifact above is kept; report the failure and exit
		// non-zero.
		var stageErr *pipeline.StageError
		if errors.As(runErr, &stageErr) {
			fmt.Fprintf(os.Stderr, "Error: %v (Markdown output was kept)\n", runErr)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}

	if len(result.Structured) > 0 {
		jsonPath := trimExt(outPath) + ".json"
		if err := os.WriteFile(jsonPath, result.Structured, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", jsonPath, err)
			return 1
		}
		log.Info("Wrote %s", jsonPath)
	}

	return 0
}

// outputStem derives the default output base name from the input argument.
// Local paths keep their directory; URL outputs land in the working
// directory under the final path segment.
func outputStem(input string) string {
	name := input
	if document.IsURL(input) {
		name = filepath.Base(input)
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" || stem == "." || stem == "/" {
		stem = "document"
	}
	return stem
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
