package pipeline

import (
	"errors"
	"math/rand"
	"testing"
)

func TestMergePartialsOrder(t *testing.T) {
	partials := []*partialResult{
		{index: 0, content: "# Page one"},
		{index: 1, content: "# Page two"},
		{index: 2, content: "# Page three"},
	}
	merged, err := mergePartials(partials)
	if err != nil {
		t.Fatalf("mergePartials() error = %v", err)
	}
	want := "# Page one\n\n# Page two\n\n# Page three"
	if merged != want {
		t.Errorf("merged = %q, want %q", merged, want)
	}
}

func TestMergePartialsIndependentOfCompletionOrder(t *testing.T) {
	// The slice is filled by index, so however the remote calls finished,
	// filling cells in any order yields the same concatenation.
	const n = 16
	reference := make([]*partialResult, n)
	for i := 0; i < n; i++ {
		reference[i] = &partialResult{index: i, content: string(rune('A' + i))}
	}
	wantMerged, err := mergePartials(reference)
	if err != nil {
		t.Fatalf("mergePartials() error = %v", err)
	}

	for trial := 0; trial < 10; trial++ {
		order := rand.Perm(n)
		partials := make([]*partialResult, n)
		for _, i := range order {
			partials[i] = &partialResult{index: i, content: string(rune('A' + i))}
		}
		merged, err := mergePartials(partials)
		if err != nil {
			t.Fatalf("trial %d: mergePartials() error = %v", trial, err)
		}
		if merged != wantMerged {
			t.Errorf("trial %d: merged output differs from reference", trial)
		}
	}
}

func TestMergePartialsMissingChunk(t *testing.T) {
	partials := []*partialResult{
		{index: 0, content: "a"},
		nil,
		{index: 2, content: "c"},
	}
	_, err := mergePartials(partials)
	if !errors.Is(err, ErrIncompleteResults) {
		t.Errorf("mergePartials() error = %v, want ErrIncompleteResults", err)
	}
}

func TestMergePartialsIndexMismatch(t *testing.T) {
	partials := []*partialResult{
		{index: 0, content: "a"},
		{index: 2, content: "c"},
	}
	_, err := mergePartials(partials)
	if !errors.Is(err, ErrIncompleteResults) {
		t.Errorf("mergePartials() error = %v, want ErrIncompleteResults", err)
	}
}

func TestMergePartialsEmptyContentAllowed(t *testing.T) {
	// An empty recognition result is a valid (if useless) partial; only a
	// missing one is an accounting failure.
	merged, err := mergePartials([]*partialResult{{index: 0, content: ""}, {index: 1, content: "b"}})
	if err != nil {
		t.Fatalf("mergePartials() error = %v", err)
	}
	if merged != "\n\nb" {
		t.Errorf("merged = %q", merged)
	}
}
