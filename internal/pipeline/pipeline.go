// Package pipeline drives a whole-document conversion: optional page-range
// splitting, retry-guarded remote recognition per chunk, deterministic
// reassembly in chunk order, and an optional structured-extraction pass
// over the merged output.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/alonegg/mistral-ocr-tool/internal/config"
	"github.com/alonegg/mistral-ocr-tool/internal/document"
	"github.com/alonegg/mistral-ocr-tool/internal/logger"
	"github.com/alonegg/mistral-ocr-tool/internal/ocr"
	"github.com/alonegg/mistral-ocr-tool/internal/retry"
	"github.com/alonegg/mistral-ocr-tool/internal/splitter"
	"github.com/alonegg/mistral-ocr-tool/models"
)

// Pipeline converts one document. All state is scoped to a Run call; the
// Pipeline itself is safe to reuse across documents.
type Pipeline struct {
	converter   ocr.Converter
	cfg         config.Config
	log         logger.Logger
	isTransient func(error) bool
}

// New builds a pipeline. The transient/permanent classifier defaults to
// ocr.IsTransient.
func New(converter ocr.Converter, cfg config.Config, log logger.Logger) *Pipeline {
	return &Pipeline{
		converter:   converter,
		cfg:         cfg,
		log:         log,
		isTransient: ocr.IsTransient,
	}
}

// Result is the terminal success artifact of a conversion.
type Result struct {
	Markdown   string
	Structured models.StructuredData
	PageCount  int
	Chunks     []models.ChunkContent
}

// Run executes the conversion. On structured-extraction failure after a
// successful OCR phase, Run returns both a non-nil Result carrying the
// Markdown artifact and a *StageError for the extraction stage, so the
// caller can keep the OCR output while still reporting the failure.
func (p *Pipeline) Run(ctx context.Context, src *document.Source) (*Result, error) {
	var result *Result
	var err error
	if p.cfg.Split && src.Media == document.MediaPDF && src.Pages > 1 {
		result, err = p.runChunked(ctx, src)
	} else {
		if p.cfg.Split && src.Media != document.MediaPDF {
			p.log.Info("Input is not a paginated document; processing it in a single call")
		}
		result, err = p.runSingle(ctx, src)
	}
	if err != nil {
		return nil, err
	}

	if p.cfg.Structured {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		structured, err := retry.Do(ctx, p.policy(), p.log, func(ctx context.Context) (models.StructuredData, error) {
			return p.converter.ExtractStructured(ctx, result.Markdown)
		})
		if err != nil {
			// The OCR artifact survives; the caller decides what to keep.
			return result, &StageError{Stage: StageExtract, Chunk: -1, Err: err}
		}
		result.Structured = structured
	}

	return result, nil
}

// runSingle treats the entire document as one chunk.
func (p *Pipeline) runSingle(ctx context.Context, src *document.Source) (*Result, error) {
	p.log.Info("Processing %s in a single call", src.Name)
	markdown, err := retry.Do(ctx, p.policy(), p.log, func(ctx context.Context) (string, error) {
		return p.converter.ConvertDocument(ctx, src.Data, src.Media, src.Name)
	})
	if err != nil {
		return nil, &StageError{Stage: StageChunk, Chunk: 0, Err: err}
	}
	return &Result{
		Markdown:  markdown,
		PageCount: src.Pages,
		Chunks: []models.ChunkContent{
			{Index: 0, StartPage: 0, EndPage: src.Pages - 1, Content: markdown},
		},
	}, nil
}

// runChunked splits the source, processes chunks with bounded concurrency
// and reassembles partial results in sequence-index order. Any chunk's
// terminal failure fails the document.
func (p *Pipeline) runChunked(ctx context.Context, src *document.Source) (*Result, error) {
	split, err := splitter.Split(src, p.cfg.ChunkCount)
	if err != nil {
		return nil, &StageError{Stage: StageSplit, Chunk: -1, Err: err}
	}
	// Chunk files are released on every exit path, cancellation included.
	defer split.Cleanup()

	chunks := split.Chunks
	p.log.Info("Split %s (%d pages) into %d chunks", src.Name, src.Pages, len(chunks))

	partials := make([]*partialResult, len(chunks))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Concurrency)

	for _, chunk := range chunks {
		eg.Go(func() error {
			data, err := chunk.Data()
			if err != nil {
				return &StageError{Stage: StageChunk, Chunk: chunk.Index, Err: err}
			}
			name := fmt.Sprintf("%s.pages_%d-%d.pdf", src.Name, chunk.StartPage+1, chunk.EndPage+1)
			p.log.Info("Processing chunk %d/%d (pages %d-%d)", chunk.Index+1, len(chunks), chunk.StartPage+1, chunk.EndPage+1)
			markdown, err := retry.Do(gctx, p.policy(), p.log, func(ctx context.Context) (string, error) {
				return p.converter.ConvertDocument(ctx, data, document.MediaPDF, name)
			})
			if err != nil {
				return &StageError{Stage: StageChunk, Chunk: chunk.Index, Err: err}
			}
			// Each cell is written by exactly one goroutine.
			partials[chunk.Index] = &partialResult{index: chunk.Index, content: markdown}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if p.cfg.KeepPartials {
			p.savePartials(partials)
		}
		return nil, err
	}

	merged, err := mergePartials(partials)
	if err != nil {
		return nil, &StageError{Stage: StageMerge, Chunk: -1, Err: err}
	}

	result := &Result{
		Markdown:  merged,
		PageCount: src.Pages,
		Chunks:    make([]models.ChunkContent, len(chunks)),
	}
	for i, chunk := range chunks {
		result.Chunks[i] = models.ChunkContent{
			Index:     chunk.Index,
			StartPage: chunk.StartPage,
			EndPage:   chunk.EndPage,
			Content:   partials[i].content,
		}
	}
	return result, nil
}

func (p *Pipeline) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  p.cfg.MaxRetries,
		InitialDelay: p.cfg.RetryDelay,
		IsTransient:  p.isTransient,
	}
}

// savePartials writes already-succeeded chunk outputs to the partial
// directory for manual recovery. Best effort: the document conversion has
// already failed and this must not mask that error.
func (p *Pipeline) savePartials(partials []*partialResult) {
	dir := p.cfg.PartialDir
	if dir == "" {
		dir = "chunk_outputs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		p.log.Error("Failed to create partial output directory %s: %v", dir, err)
		return
	}
	saved := 0
	for _, partial := range partials {
		if partial == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("chunk_%03d.md", partial.index+1))
		if err := os.WriteFile(path, []byte(partial.content), 0644); err != nil {
			p.log.Error("Failed to write partial output %s: %v", path, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		p.log.Warn("Saved %d completed chunk outputs to %s; the merged document was NOT produced", saved, dir)
	}
}
