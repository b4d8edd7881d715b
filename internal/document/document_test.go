package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		expected MediaType
	}{
		{"PDF magic", "doc.bin", []byte("%PDF-1.7\n..."), MediaPDF},
		{"JPEG magic", "photo.bin", []byte{0xFF, 0xD8, 0xFF, 0xE0}, MediaImage},
		{"PNG magic", "shot.bin", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, MediaImage},
		{"pdf extension", "report.pdf", []byte("not really"), MediaPDF},
		{"jpg extension", "scan.JPG", []byte("not really"), MediaImage},
		{"jpeg extension", "scan.jpeg", []byte{}, MediaImage},
		{"png extension", "scan.png", nil, MediaImage},
		{"unknown", "notes.txt", []byte("plain text"), MediaUnknown},
		{"empty", "x", nil, MediaUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectMediaType(tt.filename, tt.data)
			if got != tt.expected {
				t.Errorf("DetectMediaType(%q) = %v, want %v", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestImageMIMEType(t *testing.T) {
	if got := ImageMIMEType("a.png", nil); got != "image/png" {
		t.Errorf("png extension: got %s", got)
	}
	if got := ImageMIMEType("a.bin", []byte{0x89, 'P', 'N', 'G'}); got != "image/png" {
		t.Errorf("png magic: got %s", got)
	}
	if got := ImageMIMEType("a.jpg", []byte{0xFF, 0xD8, 0xFF}); got != "image/jpeg" {
		t.Errorf("jpeg: got %s", got)
	}
}

func TestLoadUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.jpg")
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if src.Media != MediaImage {
		t.Errorf("Media = %v, want image", src.Media)
	}
	if src.Pages != 1 {
		t.Errorf("Pages = %d, want 1", src.Pages)
	}
	if src.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", src.Size, len(data))
	}
	if src.Name != "scan.jpg" {
		t.Errorf("Name = %q", src.Name)
	}
}

func TestLoadSamplePDFs(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "samples", "*.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Skip("No sample PDFs found in samples directory")
	}
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			src, err := Load(f)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if src.Media != MediaPDF {
				t.Errorf("Media = %v, want pdf", src.Media)
			}
			if src.Pages < 1 {
				t.Errorf("Pages = %d, want >= 1", src.Pages)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("https://example.com/a.pdf") || !IsURL("http://example.com/a.pdf") {
		t.Error("expected http(s) URLs to be recognized")
	}
	if IsURL("/tmp/a.pdf") || IsURL("a.pdf") {
		t.Error("expected local paths not to be recognized as URLs")
	}
}
