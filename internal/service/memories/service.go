// Package memories runs the ingestion pipeline: split an uploaded document
// into sentence-aligned chunks, embed and store each chunk, record the
// aggregate in the catalog, and mirror the raw upload to disk. Deletion is
// asynchronous and observable through background jobs.
package memories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/igame-lab/assistant/catalog"
	"github.com/igame-lab/assistant/memory"
)

const deleteTimeout = 60 * time.Second

var ErrEmptyContent = errors.New("document content is empty")

type Service struct {
	store     memory.Store
	catalog   catalog.Catalog
	dataDir   string
	chunkSize int
	now       func() time.Time
	jobs      map[string]*Job
	mtx       sync.RWMutex
	wg        sync.WaitGroup
}

// Result summarizes one ingestion.
type Result struct {
	DocumentId string   `json:"documentId"`
	ChunkIds   []string `json:"ids"`
	Chunks     int      `json:"chunksCount"`
}

// Ingest chunks the content and stores one vector record per chunk. All
// chunks share the document's metadata and TotalChunks; chunk ids are derived
// from the document id so the chunks of a document can always be recovered.
func (s *Service) Ingest(ctx context.Context, title, content, docType, fileName string) (Result, error) {
	if len(strings.TrimSpace(content)) == 0 {
		return Result{}, ErrEmptyContent
	}

	documentId := uuid.New().String()
	chunks := memory.Split(content, s.chunkSize)
	createdAt := s.now()

	chunkIds := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		chunkId := fmt.Sprintf("%s_chunk_%d", documentId, i)

		doc := memory.Document{
			Id:          chunkId,
			Content:     chunk,
			Title:       title,
			Type:        docType,
			CreatedAt:   createdAt,
			FileName:    fileName,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
		}

		if err := s.store.AddDocument(ctx, doc); err != nil {
			return Result{}, fmt.Errorf("failed to store chunk %d of %d: %w", i, len(chunks), err)
		}

		chunkIds = append(chunkIds, chunkId)
	}

	// The catalog and the file mirror are sidecars: losing either degrades
	// listing and re-ingestion, not retrieval, so their failures only warn.
	if s.catalog != nil {
		rec := catalog.Record{
			Id:          documentId,
			Title:       title,
			Content:     content,
			Type:        docType,
			FileName:    fileName,
			TotalChunks: len(chunks),
			ChunkIds:    chunkIds,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
			Status:      catalog.StatusActive,
		}
		if err := s.catalog.Create(ctx, rec); err != nil {
			slog.WarnContext(ctx, "failed to record document in catalog", "documentId", documentId, "error", err)
		}
	}

	s.mirror(ctx, documentId, fileName, title, content)

	return Result{
		DocumentId: documentId,
		ChunkIds:   chunkIds,
		Chunks:     len(chunks),
	}, nil
}

// List returns the document records for display: the catalog's aggregate view
// when one is configured, falling back to enumerating the store when the
// catalog is unavailable.
func (s *Service) List(ctx context.Context) ([]memory.Document, error) {
	if s.catalog != nil {
		recs, err := s.catalog.List(ctx)
		if err == nil {
			docs := make([]memory.Document, 0, len(recs))
			for _, rec := range recs {
				docs = append(docs, memory.Document{
					Id:          rec.Id,
					Content:     rec.Content,
					Title:       rec.Title,
					Type:        rec.Type,
					CreatedAt:   rec.CreatedAt,
					FileName:    rec.FileName,
					TotalChunks: rec.TotalChunks,
				})
			}
			return docs, nil
		}
		slog.WarnContext(ctx, "catalog listing failed, enumerating the store", "error", err)
	}

	return s.store.GetAll(ctx)
}

// Records returns the catalog's aggregate view of the active documents.
func (s *Service) Records(ctx context.Context) ([]catalog.Record, error) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.List(ctx)
}

// Delete resolves the document's chunk ids, then removes them in a background
// job and returns the job id immediately. Unknown documents return
// memory.ErrNotFound.
func (s *Service) Delete(ctx context.Context, documentId string) (string, error) {
	chunkIds, err := s.resolveChunks(ctx, documentId)
	if err != nil {
		return "", err
	}

	job := s.newJob(documentId)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runDelete(job.Id, documentId, chunkIds)
	}()

	return job.Id, nil
}

func (s *Service) resolveChunks(ctx context.Context, documentId string) ([]string, error) {
	if s.catalog != nil {
		rec, err := s.catalog.Get(ctx, documentId)
		if err == nil {
			return rec.ChunkIds, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up document: %w", err)
		}
		// Fall through: the store may hold chunks the catalog missed.
	}

	docs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate documents: %w", err)
	}

	prefix := documentId + "_chunk_"
	var chunkIds []string
	for _, doc := range docs {
		if doc.Id == documentId || strings.HasPrefix(doc.Id, prefix) {
			chunkIds = append(chunkIds, doc.Id)
		}
	}

	if len(chunkIds) == 0 {
		return nil, memory.ErrNotFound
	}

	return chunkIds, nil
}

func (s *Service) runDelete(jobId, documentId string, chunkIds []string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	s.setJobRunning(jobId)

	var errs []string
	for _, chunkId := range chunkIds {
		if err := s.store.DeleteDocument(ctx, chunkId); err != nil {
			slog.WarnContext(ctx, "failed to delete chunk", "documentId", documentId, "chunkId", chunkId, "error", err)
			errs = append(errs, fmt.Sprintf("%s: %v", chunkId, err))
		}
	}

	if s.catalog != nil {
		if err := s.catalog.MarkDeleted(ctx, documentId); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			slog.WarnContext(ctx, "failed to mark document deleted in catalog", "documentId", documentId, "error", err)
			errs = append(errs, fmt.Sprintf("catalog: %v", err))
		}
	}

	s.removeMirror(ctx, documentId)

	s.finishJob(jobId, errs)
}

func (s *Service) mirror(ctx context.Context, documentId, fileName, title, content string) {
	if len(s.dataDir) == 0 {
		return
	}

	name := fileName
	if len(name) == 0 {
		name = title + ".txt"
	}

	path := filepath.Join(s.dataDir, fmt.Sprintf("%s_%s", documentId, name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		slog.WarnContext(ctx, "failed to mirror document to disk", "path", path, "error", err)
	}
}

func (s *Service) removeMirror(ctx context.Context, documentId string) {
	if len(s.dataDir) == 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(s.dataDir, documentId+"_*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "failed to remove mirrored document", "path", path, "error", err)
		}
	}
}

type ServiceOption func(*Service)

func WithCatalog(c catalog.Catalog) ServiceOption {
	return func(s *Service) {
		s.catalog = c
	}
}

func WithDataDir(dir string) ServiceOption {
	return func(s *Service) {
		s.dataDir = dir
	}
}

func WithChunkSize(size int) ServiceOption {
	return func(s *Service) {
		s.chunkSize = size
	}
}

func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func New(store memory.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		chunkSize: memory.DefaultChunkSize,
		now:       time.Now,
		jobs:      map[string]*Job{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
