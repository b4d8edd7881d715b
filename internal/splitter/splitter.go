package splitter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/alonegg/mistral-ocr-tool/internal/document"
)

var (
	// ErrInvalidChunkCount is returned when the requested chunk count is
	// less than one.
	ErrInvalidChunkCount = errors.New("chunk count must be at least 1")

	// ErrUnsupportedInput is returned when the source is not a paginated
	// document and therefore cannot be split.
	ErrUnsupportedInput = errors.New("input cannot be split: not a paginated document")
)

// Chunk is a contiguous page range of the source document, written out as
// a standalone PDF. Pages are 0-based and inclusive on both ends.
type Chunk struct {
	Index     int
	StartPage int
	EndPage   int
	Path      string
}

// Pages returns the number of pages in the chunk.
func (c Chunk) Pages() int {
	return c.EndPage - c.StartPage + 1
}

// Data reads the chunk PDF from its temporary location.
func (c Chunk) Data() ([]byte, error) {
	return os.ReadFile(c.Path)
}

// Result holds the ordered chunks and owns their temporary directory.
// Callers must arrange Cleanup on every exit path.
type Result struct {
	Chunks []Chunk
	dir    string
}

// Cleanup removes the temporary chunk files. Safe to call more than once.
func (r *Result) Cleanup() error {
	if r.dir == "" {
		return nil
	}
	err := os.RemoveAll(r.dir)
	r.dir = ""
	return err
}

// Dir exposes the temporary directory holding the chunk files.
func (r *Result) Dir() string {
	return r.dir
}

type pageRange struct {
	start, end int // 0-based, inclusive
}

// planRanges partitions pages [0, pages) into min(chunkCount, pages)
// ordered, non-overlapping ranges. Each range takes ceil(pages/chunkCount)
// pages, except that later ranges shrink so every remaining range still
// gets at least one page: 12 pages into 5 chunks yields 3,3,3,2,1.
// Callers guarantee pages >= 1 and chunkCount >= 1; no range is empty.
func planRanges(pages, chunkCount int) []pageRange {
	perChunk := (pages + chunkCount - 1) / chunkCount
	if perChunk < 1 {
		perChunk = 1
	}
	n := chunkCount
	if pages < n {
		n = pages
	}
	ranges := make([]pageRange, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := perChunk
		// Leave one page for each range still to come.
		if room := pages - start - (n - 1 - i); size > room {
			size = room
		}
		ranges = append(ranges, pageRange{start: start, end: start + size - 1})
		start += size
	}
	return ranges
}

// Split divides a multi-page PDF into at most chunkCount page-range
// chunks, writing each chunk as a PDF into a scoped temporary directory.
func Split(src *document.Source, chunkCount int) (*Result, error) {
	if chunkCount < 1 {
		return nil, ErrInvalidChunkCount
	}
	if src.Media != document.MediaPDF || src.Pages < 1 {
		return nil, ErrUnsupportedInput
	}

	dir, err := os.MkdirTemp("", "mistral-ocr-chunks-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ranges := planRanges(src.Pages, chunkCount)
	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		path := filepath.Join(dir, fmt.Sprintf("chunk_%03d.pdf", i+1))
		if err := writeChunk(src.Data, path, r, conf); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to extract pages %d-%d: %w", r.start+1, r.end+1, err)
		}
		chunks = append(chunks, Chunk{
			Index:     i,
			StartPage: r.start,
			EndPage:   r.end,
			Path:      path,
		})
	}

	return &Result{Chunks: chunks, dir: dir}, nil
}

func writeChunk(pdf []byte, path string, r pageRange, conf *model.Configuration) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	// pdfcpu page selections are 1-based.
	selection := []string{fmt.Sprintf("%d-%d", r.start+1, r.end+1)}
	if err := api.Trim(bytes.NewReader(pdf), out, selection, conf); err != nil {
		return err
	}
	return out.Close()
}
