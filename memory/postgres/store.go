// Package postgres is an alternate persistent backend built on pgvector. It
// trades Pinecone's managed index for a table we fully control — which also
// makes GetAll an exact listing instead of an approximation.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/igame-lab/assistant/memory"
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
		detail := "failed to register pg memory store with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type postgresStore struct {
	options memory.Options
	conn    *sql.DB
}

func (s *postgresStore) AddDocument(ctx context.Context, doc memory.Document) error {
	embedding, err := s.options.Embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	query := `
		INSERT INTO memory_chunks (
			id,
			content,
			title,
			doc_type,
			created_at,
			file_name,
			chunk_index,
			total_chunks,
			embedding
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
	`

	if _, err := s.conn.ExecContext(
		ctx,
		query,
		doc.Id,
		doc.Content,
		doc.Title,
		doc.Type,
		doc.CreatedAt.UTC(),
		doc.FileName,
		doc.ChunkIndex,
		doc.TotalChunks,
		pgvector.NewVector(embedding),
	); err != nil {
		return err
	}

	return nil
}

func (s *postgresStore) SearchRelevant(ctx context.Context, query string, limit int) ([]memory.Document, error) {
	if limit < 1 {
		return nil, nil
	}

	embedding, err := s.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	stmt := `
		SELECT id, content, title, doc_type, created_at, file_name, chunk_index, total_chunks
		FROM memory_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := s.conn.QueryContext(ctx, stmt, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *postgresStore) GetAll(ctx context.Context) ([]memory.Document, error) {
	stmt := `
		SELECT id, content, title, doc_type, created_at, file_name, chunk_index, total_chunks
		FROM memory_chunks
		ORDER BY created_at DESC, chunk_index ASC
	`

	rows, err := s.conn.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (s *postgresStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM memory_chunks WHERE id = $1`, id); err != nil {
		return err
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]memory.Document, error) {
	var docs []memory.Document

	for rows.Next() {
		var doc memory.Document
		var createdAt time.Time

		if err := rows.Scan(
			&doc.Id,
			&doc.Content,
			&doc.Title,
			&doc.Type,
			&createdAt,
			&doc.FileName,
			&doc.ChunkIndex,
			&doc.TotalChunks,
		); err != nil {
			return nil, err
		}

		doc.CreatedAt = createdAt
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

const schema = `
	CREATE TABLE IF NOT EXISTS memory_chunks (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		doc_type TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		file_name TEXT NOT NULL DEFAULT '',
		chunk_index INT NOT NULL DEFAULT 0,
		total_chunks INT NOT NULL DEFAULT 1,
		embedding vector
	)
`

func NewStore(opts ...memory.Option) (memory.Store, error) {
	options := memory.NewOptions(opts...)

	if len(options.Location) == 0 {
		return nil, errors.New("postgres connection string is required")
	}
	if options.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	conn, err := sql.Open(DRIVER, options.Location)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(options.Context); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	if _, err := conn.ExecContext(options.Context, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure memory_chunks table: %w", err)
	}

	return &postgresStore{
		options: options,
		conn:    conn,
	}, nil
}
