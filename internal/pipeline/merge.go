package pipeline

import (
	"fmt"
	"strings"
)

// chunkSeparator joins chunk contents in the merged document. Page-range
// boundaries may leave formatting artifacts (a heading split across
// chunks, for example); the merger does not try to hide them.
const chunkSeparator = "\n\n"

// partialResult is the Markdown recognized for one chunk.
type partialResult struct {
	index   int
	content string
}

// mergePartials concatenates partial results in sequence-index order.
// Every index must be accounted for: a gap means chunk bookkeeping went
// wrong somewhere, and silently emitting a document with a hole would be
// worse than failing.
func mergePartials(partials []*partialResult) (string, error) {
	contents := make([]string, len(partials))
	for i, partial := range partials {
		if partial == nil {
			return "", fmt.Errorf("%w: no result for chunk %d of %d", ErrIncompleteResults, i, len(partials))
		}
		if partial.index != i {
			return "", fmt.Errorf("%w: result at position %d carries index %d", ErrIncompleteResults, i, partial.index)
		}
		contents[i] = partial.content
	}
	return strings.Join(contents, chunkSeparator), nil
}
