package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

const insertChunkSize = 50

// businessColumns are the inserted columns, search unit first.
var businessColumns = []string{
	"search_term", "region",
	"name", "address", "website", "phone_number",
	"reviews_count", "reviews_average", "latitude", "longitude", "one_star_reviews",
}

// PostgresWriter persists flushed batches to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations, and returns a ready-to-use writer.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	pw, err := NewPostgresWriterWithDB(ctx, db, retry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

// NewPostgresWriterWithDB wraps an already opened database handle.
func NewPostgresWriterWithDB(ctx context.Context, db *sql.DB, retry *utils.RetryConfig) (*PostgresWriter, error) {
	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS businesses (
			id               SERIAL PRIMARY KEY,
			search_term      TEXT             NOT NULL,
			region           TEXT             NOT NULL,
			name             TEXT             NOT NULL DEFAULT '',
			address          TEXT             NOT NULL DEFAULT '',
			website          TEXT             NOT NULL DEFAULT '',
			phone_number     TEXT             NOT NULL DEFAULT '',
			reviews_count    INTEGER          NOT NULL DEFAULT 0,
			reviews_average  DOUBLE PRECISION NOT NULL DEFAULT 0,
			latitude         DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude        DOUBLE PRECISION NOT NULL DEFAULT 0,
			one_star_reviews INTEGER          NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_businesses_unit   ON businesses(search_term, region);
		CREATE INDEX IF NOT EXISTS idx_businesses_rating ON businesses(reviews_average);
	`)
	return err
}

// WriteBatch replaces the stored rows of the batch's search unit with the
// batch, in one transaction, mirroring how the unit's files are overwritten.
func (pw *PostgresWriter) WriteBatch(ctx context.Context, batch *models.Batch) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM businesses WHERE search_term = $1 AND region = $2`,
		batch.Unit.Term, batch.Unit.Region,
	); err != nil {
		return fmt.Errorf("postgres: clear unit: %w", err)
	}

	for i := 0; i < len(batch.Businesses); i += insertChunkSize {
		end := min(i+insertChunkSize, len(batch.Businesses))
		if err := insertChunk(ctx, tx, batch.Unit, batch.Businesses[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, unit models.SearchUnit, chunk []models.Business) error {
	width := len(businessColumns)
	valueStrings := make([]string, 0, len(chunk))
	valueArgs := make([]interface{}, 0, len(chunk)*width)

	for idx, b := range chunk {
		placeholders := make([]string, width)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*width+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			unit.Term, unit.Region,
			b.Name, b.Address, b.Website, b.PhoneNumber,
			b.ReviewsCount, b.ReviewsAverage, b.Latitude, b.Longitude, b.OneStarReviews)
	}

	query := fmt.Sprintf(`INSERT INTO businesses (%s) VALUES %s`,
		strings.Join(businessColumns, ", "), strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored businesses, used by the insight service.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]*models.StoredBusiness, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT id, search_term, region, name, address, website, phone_number,
		       reviews_count, reviews_average, latitude, longitude, one_star_reviews
		FROM businesses
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var businesses []*models.StoredBusiness
	for rows.Next() {
		b := &models.StoredBusiness{}
		if err := rows.Scan(
			&b.ID, &b.Unit.Term, &b.Unit.Region, &b.Name, &b.Address, &b.Website, &b.PhoneNumber,
			&b.ReviewsCount, &b.ReviewsAverage, &b.Latitude, &b.Longitude, &b.OneStarReviews,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}
