// Package catalog is the relational sidecar for the ingestion pipeline: one
// aggregate record per uploaded document, holding the whole content and the
// ordered ids of its chunk vectors. It exists for display and deletion
// bookkeeping; the vector store stays the source of truth for retrieval, and
// no transactional consistency between the two is attempted.
package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog record not found")

const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

type Record struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	FileName    string    `json:"fileName"`
	TotalChunks int       `json:"totalChunks"`
	ChunkIds    []string  `json:"chunkIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Status      string    `json:"status"`
}

type Catalog interface {
	Create(ctx context.Context, rec Record) error
	// List returns active records, newest first.
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// MarkDeleted soft-deletes; the vector records are removed separately.
	MarkDeleted(ctx context.Context, id string) error
}
