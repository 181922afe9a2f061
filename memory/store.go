// Package memory defines the vector memory contract shared by the persistent
// and in-memory backends, plus the sentence chunker the ingestion pipeline
// feeds them with.
package memory

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is one chunk-sized memory record. A logical document ingested in N
// chunks produces N Documents that share TotalChunks=N and carry distinct
// ChunkIndex values in [0, N).
type Document struct {
	Id          string    `json:"id"`
	Content     string    `json:"content"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	FileName    string    `json:"fileName"`
	ChunkIndex  int       `json:"chunkIndex"`
	TotalChunks int       `json:"totalChunks"`
}

// Store is the uniform interface over the vector backends.
//
// GetAll is best-effort on similarity-only backends: the pinecone
// implementation enumerates via probe queries and may return a partial set.
type Store interface {
	// AddDocument embeds the document content and upserts one vector record.
	AddDocument(ctx context.Context, doc Document) error
	// SearchRelevant embeds the query and returns up to limit documents
	// ranked by relevance.
	SearchRelevant(ctx context.Context, query string, limit int) ([]Document, error)
	// GetAll returns every active record the backend can reach.
	GetAll(ctx context.Context) ([]Document, error)
	// DeleteDocument removes one record. Deleting a missing id is not an
	// error.
	DeleteDocument(ctx context.Context, id string) error
}
