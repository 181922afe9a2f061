// Package watcher auto-ingests documents dropped into the data directory.
// New .txt and .md files are read and fed through the ingestion pipeline;
// files mirrored there by the pipeline itself are recognized by their id
// prefix and skipped.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/igame-lab/assistant/internal/service/memories"
)

type Ingester interface {
	Ingest(ctx context.Context, title, content, docType, fileName string) (memories.Result, error)
}

type Watcher struct {
	ingester Ingester
	dir      string
	seen     map[string]bool
	mtx      sync.Mutex
}

func New(ingester Ingester, dir string) *Watcher {
	return &Watcher{
		ingester: ingester,
		dir:      dir,
		seen:     map[string]bool{},
	}
}

// Watch ingests files as they appear in the directory until the context is
// canceled. It blocks, so callers run it in its own goroutine.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	slog.InfoContext(ctx, "watching for documents", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.ingest(ctx, event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "watch error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	name := filepath.Base(path)
	if !ingestable(name) {
		return
	}

	w.mtx.Lock()
	if w.seen[path] {
		w.mtx.Unlock()
		return
	}
	w.seen[path] = true
	w.mtx.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		slog.WarnContext(ctx, "failed to read dropped file", "path", path, "error", err)
		return
	}

	title := strings.TrimSuffix(name, filepath.Ext(name))

	result, err := w.ingester.Ingest(ctx, title, string(content), "file", name)
	if err != nil {
		slog.WarnContext(ctx, "failed to ingest dropped file", "path", path, "error", err)
		return
	}

	slog.InfoContext(ctx, "ingested dropped file",
		"path", path,
		"documentId", result.DocumentId,
		"chunks", result.Chunks,
	)
}

// ingestable accepts .txt and .md files that are not pipeline mirrors. A
// mirror file name starts with the document's uuid followed by an underscore.
func ingestable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
	default:
		return false
	}

	if len(name) > 36 && name[36] == '_' {
		if err := uuid.Validate(name[:36]); err == nil {
			return false
		}
	}

	return true
}
