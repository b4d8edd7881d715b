package pipeline

import (
	"errors"
	"fmt"
)

// ErrIncompleteResults indicates the merger was handed a result set with
// a missing chunk. It points at a bookkeeping bug and is always fatal.
var ErrIncompleteResults = errors.New("incomplete result set")

// Stage names the pipeline phase an error came from.
type Stage string

const (
	StageSplit   Stage = "split"
	StageChunk   Stage = "chunk"
	StageMerge   Stage = "merge"
	StageExtract Stage = "structured-extraction"
)

// StageError annotates a failure with the stage and, for chunk failures,
// the 0-based chunk sequence index that produced it.
type StageError struct {
	Stage Stage
	Chunk int // -1 when no chunk applies
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == StageChunk && e.Chunk >= 0 {
		return fmt.Sprintf("chunk %d failed: %v", e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
