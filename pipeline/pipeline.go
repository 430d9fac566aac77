// Package pipeline validates, merges and checkpoints extracted records.
package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/config"
	"github.com/aluiziolira/go-scrape-perfumes/models"
	"github.com/aluiziolira/go-scrape-perfumes/parser"
)

// OutputWriter persists a full snapshot of the dataset on every Write.
type OutputWriter interface {
	Write(records []*models.Perfume) error
	Close() error
	Validate() error
}

// Pipeline merges records into the dataset and checkpoints it every CheckpointEvery
// accepted records. It is driven synchronously by a single orchestrator.
type Pipeline struct {
	dataset *Dataset
	writer  OutputWriter
	path    string
	every   int
	refresh bool
	logger  *slog.Logger
	now     func() time.Time

	sinceCheckpoint int
	checkpoints     int

	metrics metrics

	mu     sync.Mutex
	closed bool
}

// NewPipeline builds a pipeline over dataset that persists through writer.
func NewPipeline(dataset *Dataset, writer OutputWriter, cfg *config.Config) *Pipeline {
	if dataset == nil {
		dataset = NewDataset()
	}
	every := cfg.CheckpointEvery
	if every <= 0 {
		every = 1
	}
	return &Pipeline{
		dataset: dataset,
		writer:  writer,
		path:    cfg.OutputFile,
		every:   every,
		refresh: cfg.Refresh,
		logger:  slog.Default(),
		now:     time.Now,
		metrics: newMetrics(),
	}
}

// Process validates rec and merges it into the dataset. Invalid records are counted and
// dropped. A failed checkpoint is returned as ErrPersistence.
func (p *Pipeline) Process(rec *models.Perfume) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if rec != nil {
		Normalize(rec)
	}
	if err := parser.ValidateRecord(rec); err != nil {
		p.metrics.addValidation("invalid_record")
		p.logger.Warn("record rejected", slog.Any("error", err))
		return nil
	}

	added, err := p.dataset.Upsert(rec, p.refresh, p.now())
	if err != nil {
		p.metrics.addValidation("merge_failed")
		p.logger.Warn("record merge failed", slog.String("url", rec.URL), slog.Any("error", err))
		return nil
	}
	if added {
		p.metrics.added++
	} else {
		p.metrics.merged++
	}
	p.metrics.processed++

	p.sinceCheckpoint++
	if p.sinceCheckpoint >= p.every {
		return p.checkpointLocked()
	}
	return nil
}

// Checkpoint rewrites the whole dataset.
func (p *Pipeline) Checkpoint() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkpointLocked()
}

func (p *Pipeline) checkpointLocked() error {
	if err := p.writer.Write(p.dataset.Records()); err != nil {
		return ErrPersistence{Path: p.path, Err: err}
	}
	p.checkpoints++
	p.sinceCheckpoint = 0
	p.logger.Debug("checkpoint written",
		slog.String("path", p.path),
		slog.Int("records", p.dataset.Len()),
	)
	return nil
}

// Close prevents further submissions and closes the writer. It does not checkpoint.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Checkpoints returns the number of snapshots written so far.
func (p *Pipeline) Checkpoints() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkpoints
}

// Len returns the dataset size.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dataset.Len()
}

// Dataset exposes the collection being built.
func (p *Pipeline) Dataset() *Dataset {
	return p.dataset
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.snapshot()
}

type metrics struct {
	processed  int64
	added      int64
	merged     int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addValidation(kind string) {
	m.validation[kind]++
}

func (m *metrics) snapshot() map[string]interface{} {
	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"added_records":     m.added,
		"merged_records":    m.merged,
		"validation_errors": copyValidation,
	}
}
