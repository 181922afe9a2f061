package memories

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/igame-lab/assistant/catalog"
	"github.com/igame-lab/assistant/memory"
	"github.com/igame-lab/assistant/internal/service/memories"
	"github.com/igame-lab/assistant/util/getsafe"
)

const maxUploadBytes = 10 << 20

type memoriesHandler struct {
	service *memories.Service
}

// HandleUpload answers POST /memories/upload. It accepts either a multipart
// form with a "file" part (.txt or .md) or a JSON body with type "text" and
// inline content.
func (h *memoriesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	title, content, docType, fileName, err := parseUpload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), title, content, docType, fileName)
	if err != nil {
		if errors.Is(err, memories.ErrEmptyContent) {
			http.Error(w, "document content is empty", http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"documentId":  result.DocumentId,
		"chunksCount": result.Chunks,
		"ids":         result.ChunkIds,
	})
}

func parseUpload(r *http.Request) (title, content, docType, fileName string, err error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", "", "", "", errors.New("invalid multipart form")
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return "", "", "", "", errors.New("file part is required")
		}
		defer file.Close()

		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".txt", ".md":
		default:
			return "", "", "", "", errors.New("only .txt and .md files are supported")
		}

		raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return "", "", "", "", errors.New("failed to read file")
		}

		name := header.Filename
		title = r.FormValue("title")
		if len(title) == 0 {
			title = strings.TrimSuffix(name, filepath.Ext(name))
		}
		return title, string(raw), "file", name, nil
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", "", "", "", errors.New("invalid json")
	}
	defer r.Body.Close()

	if getsafe.String(body, "type") != "text" {
		return "", "", "", "", errors.New("type must be \"text\" for inline uploads")
	}

	return getsafe.String(body, "title"), getsafe.String(body, "content"), "text", "", nil
}

// HandleList answers GET /memories. The list comes from the document catalog
// when one is configured, and from enumerating the store otherwise — in which
// case an approximate backend may return a partial set.
func (h *memoriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []memory.Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"documents": docs,
	})
}

// HandleRecords answers GET /memories/records with the catalog's aggregate
// view: one record per uploaded document instead of one per chunk.
func (h *memoriesHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Records(r.Context())
	if err != nil {
		http.Error(w, "failed to list document records", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []catalog.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"records": recs,
	})
}

// HandleDelete answers DELETE /memories. The reply is immediate; chunk
// removal runs in a background job identified in the response.
func (h *memoriesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	documentId := getsafe.String(body, "documentId")
	if len(documentId) == 0 {
		http.Error(w, "documentId is required", http.StatusBadRequest)
		return
	}

	jobId, err := h.service.Delete(r.Context(), documentId)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"jobId":   jobId,
	})
}

// HandleJob answers GET /memories/jobs/{id} with the deletion job's status.
func (h *memoriesHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := h.service.Job(r.Context(), id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func NewHandler(service *memories.Service) *memoriesHandler {
	return &memoriesHandler{
		service: service,
	}
}
