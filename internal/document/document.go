package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// MediaType identifies the kind of input the pipeline is asked to convert.
type MediaType string

const (
	MediaPDF     MediaType = "pdf"
	MediaImage   MediaType = "image"
	MediaUnknown MediaType = "unknown"
)

// ErrUnsupportedFormat is returned for inputs that are neither PDFs nor
// supported image formats.
var ErrUnsupportedFormat = errors.New("unsupported file format (supported: .pdf, .jpg, .jpeg, .png)")

// Source is the input document. Immutable once loaded.
type Source struct {
	// Name is the base file name, used for output naming and logging.
	Name string
	// Path is the local path the document was read from, empty for URLs.
	Path string
	// URL is the remote origin, empty for local files.
	URL string

	Data  []byte
	Size  int64
	Media MediaType

	// Pages is the page count for PDFs, 1 for images.
	Pages int
}

// Load reads a local file and determines its media type and page count.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	src := &Source{
		Name: filepath.Base(path),
		Path: path,
		Data: data,
		Size: int64(len(data)),
	}
	if err := src.detect(); err != nil {
		return nil, err
	}
	return src, nil
}

// Fetch downloads a document over HTTP(S) and loads it like a local file.
func Fetch(ctx context.Context, url string) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	src := &Source{
		Name: filepath.Base(req.URL.Path),
		URL:  url,
		Data: data,
		Size: int64(len(data)),
	}
	if err := src.detect(); err != nil {
		return nil, err
	}
	return src, nil
}

// FromBytes wraps already-loaded document bytes as a Source.
func FromBytes(name string, data []byte) (*Source, error) {
	src := &Source{
		Name: name,
		Data: data,
		Size: int64(len(data)),
	}
	if err := src.detect(); err != nil {
		return nil, err
	}
	return src, nil
}

// IsURL reports whether the input argument names a remote document.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func (s *Source) detect() error {
	s.Media = DetectMediaType(s.Name, s.Data)
	switch s.Media {
	case MediaPDF:
		pages, err := api.PageCount(bytes.NewReader(s.Data), nil)
		if err != nil {
			return fmt.Errorf("failed to read PDF page count: %w", err)
		}
		s.Pages = pages
	case MediaImage:
		s.Pages = 1
	default:
		return ErrUnsupportedFormat
	}
	return nil
}

// DetectMediaType classifies input by content magic first, extension second.
func DetectMediaType(name string, data []byte) MediaType {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return MediaPDF
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}): // JPEG
		return MediaImage
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}): // PNG
		return MediaImage
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MediaPDF
	case ".jpg", ".jpeg", ".png":
		return MediaImage
	}
	return MediaUnknown
}

// ImageMIMEType returns the MIME type to use in data URLs for image input.
func ImageMIMEType(name string, data []byte) string {
	if bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}) {
		return "image/png"
	}
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
