package render

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	out, err := HTML("report.pdf", []byte("# Title\n\nSome *text*.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	got := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>report.pdf</title>",
		"<h1>Title</h1>",
		"<em>text</em>",
		"<table>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestHTMLEscapesTitle(t *testing.T) {
	out, err := HTML(`<script>"x"</script>`, []byte("body"))
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Error("title was not escaped")
	}
}
