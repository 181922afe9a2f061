package memories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/igame-lab/assistant/catalog"
	"github.com/igame-lab/assistant/memory"
)

type recordingStore struct {
	docs    map[string]memory.Document
	order   []string
	failAdd bool
	failIds map[string]bool
	mtx     sync.Mutex
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		docs:    map[string]memory.Document{},
		failIds: map[string]bool{},
	}
}

func (r *recordingStore) AddDocument(ctx context.Context, doc memory.Document) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.failAdd {
		return errors.New("upsert failed")
	}
	if _, ok := r.docs[doc.Id]; !ok {
		r.order = append(r.order, doc.Id)
	}
	r.docs[doc.Id] = doc
	return nil
}

func (r *recordingStore) SearchRelevant(ctx context.Context, query string, limit int) ([]memory.Document, error) {
	return r.GetAll(ctx)
}

func (r *recordingStore) GetAll(ctx context.Context) ([]memory.Document, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	docs := make([]memory.Document, 0, len(r.docs))
	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *recordingStore) DeleteDocument(ctx context.Context, id string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.failIds[id] {
		return errors.New("delete failed")
	}
	delete(r.docs, id)
	return nil
}

type fakeCatalog struct {
	records  map[string]catalog.Record
	failList bool
	mtx      sync.Mutex
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: map[string]catalog.Record{}}
}

func (f *fakeCatalog) Create(ctx context.Context, rec catalog.Record) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.records[rec.Id] = rec
	return nil
}

func (f *fakeCatalog) List(ctx context.Context) ([]catalog.Record, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.failList {
		return nil, errors.New("catalog unavailable")
	}
	recs := make([]catalog.Record, 0, len(f.records))
	for _, rec := range f.records {
		if rec.Status == catalog.StatusActive {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (catalog.Record, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Status != catalog.StatusActive {
		return catalog.Record{}, catalog.ErrNotFound
	}
	return rec, nil
}

func (f *fakeCatalog) MarkDeleted(ctx context.Context, id string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return catalog.ErrNotFound
	}
	rec.Status = catalog.StatusDeleted
	f.records[id] = rec
	return nil
}

// Three sentences sized so a chunk size of 40 runes yields exactly three
// chunks.
func threeChunkContent() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s",
		strings.Repeat("a", 30)+".",
		strings.Repeat("b", 30)+".",
		strings.Repeat("c", 30)+".",
	))
}

func TestIngestSplitsIntoIndexedChunks(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	cat := newFakeCatalog()

	svc := New(store, WithCatalog(cat), WithChunkSize(40))

	result, err := svc.Ingest(ctx, "组织结构", threeChunkContent(), "text", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.Chunks != 3 {
		t.Fatalf("expected 3 chunks, got %d", result.Chunks)
	}

	docs, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 stored records, got %d", len(docs))
	}

	for i, doc := range docs {
		if doc.ChunkIndex != i {
			t.Errorf("record %d: chunkIndex = %d", i, doc.ChunkIndex)
		}
		if doc.TotalChunks != 3 {
			t.Errorf("record %d: totalChunks = %d", i, doc.TotalChunks)
		}
		if doc.Title != "组织结构" {
			t.Errorf("record %d: title = %q", i, doc.Title)
		}
		want := fmt.Sprintf("%s_chunk_%d", result.DocumentId, i)
		if doc.Id != want {
			t.Errorf("record %d: id = %q, want %q", i, doc.Id, want)
		}
	}

	rec, err := cat.Get(ctx, result.DocumentId)
	if err != nil {
		t.Fatalf("catalog record missing: %v", err)
	}
	if rec.TotalChunks != 3 || len(rec.ChunkIds) != 3 {
		t.Fatalf("catalog record incomplete: %+v", rec)
	}
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	svc := New(newRecordingStore())

	if _, err := svc.Ingest(context.Background(), "t", "   ", "text", ""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestIngestFailsWhenStoreFails(t *testing.T) {
	store := newRecordingStore()
	store.failAdd = true
	svc := New(store)

	if _, err := svc.Ingest(context.Background(), "t", "some content.", "text", ""); err == nil {
		t.Fatal("expected an error from a failing store")
	}
}

func TestDeleteRemovesAllChunksEventually(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	cat := newFakeCatalog()
	svc := New(store, WithCatalog(cat), WithChunkSize(40))

	result, err := svc.Ingest(ctx, "t", threeChunkContent(), "text", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	jobId, err := svc.Delete(ctx, result.DocumentId)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	svc.wg.Wait()

	job, ok := svc.Job(ctx, jobId)
	if !ok {
		t.Fatal("job missing")
	}
	if job.Status != JobDone {
		t.Fatalf("job status = %s, errors = %v", job.Status, job.Errors)
	}

	docs, _ := store.GetAll(ctx)
	if len(docs) != 0 {
		t.Fatalf("expected 0 records after deletion, got %d", len(docs))
	}

	if _, err := cat.Get(ctx, result.DocumentId); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("catalog record should be soft-deleted, got %v", err)
	}
}

func TestDeleteContinuesPastChunkFailures(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	svc := New(store, WithChunkSize(40))

	result, err := svc.Ingest(ctx, "t", threeChunkContent(), "text", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	// One chunk refuses to die; the other two must still be removed.
	store.failIds[result.ChunkIds[1]] = true

	jobId, err := svc.Delete(ctx, result.DocumentId)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	svc.wg.Wait()

	job, _ := svc.Job(ctx, jobId)
	if job.Status != JobFailed {
		t.Fatalf("job status = %s, want %s", job.Status, JobFailed)
	}
	if len(job.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", job.Errors)
	}

	docs, _ := store.GetAll(ctx)
	if len(docs) != 1 {
		t.Fatalf("expected only the stuck chunk to remain, got %d records", len(docs))
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc := New(newRecordingStore(), WithCatalog(newFakeCatalog()))

	if _, err := svc.Delete(context.Background(), "no-such-id"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected memory.ErrNotFound, got %v", err)
	}
}

func TestDeleteResolvesChunksWithoutCatalog(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	svc := New(store, WithChunkSize(40))

	result, err := svc.Ingest(ctx, "t", threeChunkContent(), "text", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if _, err := svc.Delete(ctx, result.DocumentId); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	svc.wg.Wait()

	docs, _ := store.GetAll(ctx)
	if len(docs) != 0 {
		t.Fatalf("expected 0 records, got %d", len(docs))
	}
}

func TestListPrefersCatalog(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	cat := newFakeCatalog()
	cat.Create(ctx, catalog.Record{
		Id:          "doc-1",
		Title:       "组织结构",
		Content:     "实验室共有6名教师。",
		TotalChunks: 2,
		Status:      catalog.StatusActive,
	})

	svc := New(store, WithCatalog(cat))

	docs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected the catalog record, got %d docs", len(docs))
	}
	if docs[0].Id != "doc-1" || docs[0].Title != "组织结构" || docs[0].TotalChunks != 2 {
		t.Fatalf("catalog record mangled: %+v", docs[0])
	}
}

func TestListFallsBackWhenCatalogFails(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	store.AddDocument(ctx, memory.Document{Id: "chunk-1", Content: "一些内容。"})

	cat := newFakeCatalog()
	cat.failList = true

	svc := New(store, WithCatalog(cat))

	docs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Id != "chunk-1" {
		t.Fatalf("expected the store enumeration, got %+v", docs)
	}
}
