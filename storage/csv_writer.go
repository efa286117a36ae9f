package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"gmaps-scraper/models"
)

// CSVWriter writes each batch to <dir>/<file stem>.csv, replacing any
// previous file for the same search unit.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a CSVWriter rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// Path returns the file a batch for unit is written to.
func (c *CSVWriter) Path(unit models.SearchUnit) string {
	return filepath.Join(c.dir, unit.FileStem()+".csv")
}

// WriteBatch writes the header row and one row per business, in batch order.
func (c *CSVWriter) WriteBatch(_ context.Context, batch *models.Batch) error {
	path := c.Path(batch.Unit)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.Columns()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, b := range batch.Businesses {
		if err := w.Write(b.Row()); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return f.Close()
}

// Close is a no-op; every batch owns its file.
func (c *CSVWriter) Close() error {
	return nil
}
