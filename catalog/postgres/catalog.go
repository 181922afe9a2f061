package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/igame-lab/assistant/catalog"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register pg catalog with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type postgresCatalog struct {
	options catalog.Options
	conn    *sql.DB
}

func (c *postgresCatalog) Create(ctx context.Context, rec catalog.Record) error {
	query := `
		INSERT INTO memory_documents (
			id, title, content, doc_type, file_name, total_chunks, chunk_ids, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := c.conn.ExecContext(
		ctx,
		query,
		rec.Id,
		rec.Title,
		rec.Content,
		rec.Type,
		rec.FileName,
		rec.TotalChunks,
		pq.Array(rec.ChunkIds),
		catalog.StatusActive,
	); err != nil {
		return err
	}

	return nil
}

func (c *postgresCatalog) List(ctx context.Context) ([]catalog.Record, error) {
	query := `
		SELECT id, title, content, doc_type, file_name, total_chunks, chunk_ids, created_at, updated_at, status
		FROM memory_documents
		WHERE status = $1
		ORDER BY created_at DESC
	`

	rows, err := c.conn.QueryContext(ctx, query, catalog.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []catalog.Record

	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (c *postgresCatalog) Get(ctx context.Context, id string) (catalog.Record, error) {
	query := `
		SELECT id, title, content, doc_type, file_name, total_chunks, chunk_ids, created_at, updated_at, status
		FROM memory_documents
		WHERE id = $1 AND status = $2
	`

	row := c.conn.QueryRowContext(ctx, query, id, catalog.StatusActive)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Record{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Record{}, err
	}

	return rec, nil
}

func (c *postgresCatalog) MarkDeleted(ctx context.Context, id string) error {
	query := `
		UPDATE memory_documents
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := c.conn.ExecContext(ctx, query, catalog.StatusDeleted, id)
	if err != nil {
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return catalog.ErrNotFound
	}

	return nil
}

func scanRecord(scan func(dest ...any) error) (catalog.Record, error) {
	var rec catalog.Record
	var chunkIds pq.StringArray

	if err := scan(
		&rec.Id,
		&rec.Title,
		&rec.Content,
		&rec.Type,
		&rec.FileName,
		&rec.TotalChunks,
		&chunkIds,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.Status,
	); err != nil {
		return catalog.Record{}, err
	}

	rec.ChunkIds = chunkIds

	return rec, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS memory_documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		doc_type TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		total_chunks INT NOT NULL DEFAULT 1,
		chunk_ids TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		status TEXT NOT NULL DEFAULT 'active'
	)
`

func NewCatalog(opts ...catalog.Option) (catalog.Catalog, error) {
	options := catalog.NewOptions(opts...)

	if len(options.Location) == 0 {
		return nil, errors.New("postgres connection string is required")
	}

	conn, err := sql.Open(DRIVER, options.Location)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(options.Context); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	if _, err := conn.ExecContext(options.Context, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure memory_documents table: %w", err)
	}

	return &postgresCatalog{
		options: options,
		conn:    conn,
	}, nil
}
