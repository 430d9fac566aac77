package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// DualWriter keeps the JSON dataset and mirrors every snapshot to a CSV sibling.
//
// Only the JSON write can fail a checkpoint. A failed CSV mirror is logged and kept; the
// next successful mirror clears it, otherwise Validate reports it.
type DualWriter struct {
	dataset *JSONWriter
	mirror  *CSVWriter
	logger  *slog.Logger

	mu         sync.Mutex
	mirrorErr  error
	mirrorFail int
}

// NewDualWriter creates a writer for jsonFilename mirrored to csvFilename.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	mirror, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create CSV mirror: %w", err)
	}
	dataset, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, fmt.Errorf("create JSON writer: %w", err)
	}
	return &DualWriter{dataset: dataset, mirror: mirror, logger: slog.Default()}, nil
}

// Write stores the snapshot as JSON, then refreshes the CSV mirror.
func (dw *DualWriter) Write(records []*models.Perfume) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.dataset.Write(records); err != nil {
		return err
	}
	if err := dw.mirror.Write(records); err != nil {
		dw.mirrorErr = err
		dw.mirrorFail++
		dw.logger.Warn("csv mirror write failed",
			slog.String("path", dw.mirror.path),
			slog.Int("failures", dw.mirrorFail),
			slog.Any("error", err),
		)
		return nil
	}
	dw.mirrorErr = nil
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return errors.Join(dw.dataset.Close(), dw.mirror.Close())
}

// Validate checks both files, and fails when the last mirror write did.
func (dw *DualWriter) Validate() error {
	dw.mu.Lock()
	mirrorErr := dw.mirrorErr
	dw.mu.Unlock()

	var errs []error
	if err := dw.dataset.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}
	if mirrorErr != nil {
		errs = append(errs, fmt.Errorf("CSV mirror is stale: %w", mirrorErr))
	} else if err := dw.mirror.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}
	return errors.Join(errs...)
}
