package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

// TabularSink writes every batch as .xlsx and .csv under one output
// directory, then hands it to any extra writers (e.g. PostgreSQL).
type TabularSink struct {
	dir     string
	logger  *utils.Logger
	writers []BatchWriter
}

// NewTabularSink creates a sink writing into dir. The directory is created
// on first flush.
func NewTabularSink(dir string, logger *utils.Logger, extra ...BatchWriter) *TabularSink {
	writers := []BatchWriter{NewXLSXWriter(dir), NewCSVWriter(dir)}
	writers = append(writers, extra...)
	return &TabularSink{dir: dir, logger: logger, writers: writers}
}

// Flush writes the batch with every writer, stopping at the first failure.
// Empty batches still produce files with only a header row.
func (s *TabularSink) Flush(ctx context.Context, batch *models.Batch) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("storage: create output dir: %w", err)
	}

	for _, w := range s.writers {
		if err := w.WriteBatch(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Debug("[storage] Flushed %d rows for %s", batch.Len(), batch.Unit.FileStem())
	return nil
}

// Close closes every writer and reports all failures.
func (s *TabularSink) Close() error {
	var errs []error
	for _, w := range s.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
