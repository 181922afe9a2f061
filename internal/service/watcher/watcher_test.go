package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/igame-lab/assistant/internal/service/memories"
)

type fakeIngester struct {
	titles []string
	mtx    sync.Mutex
}

func (f *fakeIngester) Ingest(ctx context.Context, title, content, docType, fileName string) (memories.Result, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.titles = append(f.titles, title)
	return memories.Result{DocumentId: "doc", Chunks: 1}, nil
}

func (f *fakeIngester) count() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.titles)
}

func TestWatchIngestsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	ingester := &fakeIngester{}
	w := New(ingester, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Watch(ctx)
	}()

	// Give the watcher a moment to register before dropping files.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "news.md"), []byte("实验室新闻。"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("binary"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for ingester.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-done

	if ingester.count() != 1 {
		t.Fatalf("expected 1 ingestion, got %d (%v)", ingester.count(), ingester.titles)
	}
	if ingester.titles[0] != "news" {
		t.Fatalf("unexpected title: %q", ingester.titles[0])
	}
}

func TestIngestableSkipsMirrorsAndUnsupportedTypes(t *testing.T) {
	mirror := uuid.New().String() + "_notes.txt"

	tests := []struct {
		name string
		want bool
	}{
		{"notes.txt", true},
		{"README.md", true},
		{"upper.TXT", true},
		{"image.png", false},
		{"archive.tar.gz", false},
		{mirror, false},
	}

	for _, tc := range tests {
		if got := ingestable(tc.name); got != tc.want {
			t.Errorf("ingestable(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
