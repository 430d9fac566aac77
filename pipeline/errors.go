package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// ErrPersistence indicates the dataset could not be written. Earlier checkpoints on disk
// remain valid.
type ErrPersistence struct {
	Path string
	Err  error
}

func (e ErrPersistence) Error() string {
	return fmt.Errorf("persist %s: %w", e.Path, e.Err).Error()
}

func (e ErrPersistence) Unwrap() error {
	return e.Err
}
