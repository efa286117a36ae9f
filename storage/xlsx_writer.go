package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"gmaps-scraper/models"
)

// SheetName is the worksheet every batch is written to.
const SheetName = "Sheet1"

// XLSXWriter writes each batch to <dir>/<file stem>.xlsx.
type XLSXWriter struct {
	dir string
}

// NewXLSXWriter creates an XLSXWriter rooted at dir.
func NewXLSXWriter(dir string) *XLSXWriter {
	return &XLSXWriter{dir: dir}
}

// Path returns the file a batch for unit is written to.
func (x *XLSXWriter) Path(unit models.SearchUnit) string {
	return filepath.Join(x.dir, unit.FileStem()+".xlsx")
}

// WriteBatch writes a header row and one typed row per business.
func (x *XLSXWriter) WriteBatch(_ context.Context, batch *models.Batch) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, 0, len(models.Columns()))
	for _, col := range models.Columns() {
		header = append(header, col)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, b := range batch.Businesses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		row := []interface{}{
			b.Name,
			b.Address,
			b.Website,
			b.PhoneNumber,
			b.ReviewsCount,
			b.ReviewsAverage,
			b.Latitude,
			b.Longitude,
			b.OneStarReviews,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+1, err)
		}
	}

	path := x.Path(batch.Unit)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

// Close is a no-op; every batch owns its file.
func (x *XLSXWriter) Close() error {
	return nil
}
