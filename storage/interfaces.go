package storage

import (
	"context"

	"gmaps-scraper/models"
)

// BatchWriter is the interface any storage backend must satisfy. Each call
// receives one search unit's complete batch.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch *models.Batch) error
	Close() error
}
