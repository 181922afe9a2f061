// Package pinecone is the persistent vector backend, speaking the Pinecone
// data-plane REST API directly.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/igame-lab/assistant/memory"
	"github.com/igame-lab/assistant/util/getsafe"
)

type pineconeStore struct {
	options memory.Options
	client  *http.Client
}

func (s *pineconeStore) AddDocument(ctx context.Context, doc memory.Document) error {
	embedding, err := s.options.Embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	req := upsertRequest{
		Namespace: s.options.Index,
		Vectors: []vector{
			{
				Id:     doc.Id,
				Values: embedding,
				Metadata: map[string]any{
					"content":     doc.Content,
					"title":       doc.Title,
					"type":        doc.Type,
					"createdAt":   doc.CreatedAt.UTC().Format(time.RFC3339),
					"fileName":    doc.FileName,
					"chunkIndex":  doc.ChunkIndex,
					"totalChunks": doc.TotalChunks,
				},
			},
		},
	}

	return s.do(ctx, "/vectors/upsert", req, nil)
}

func (s *pineconeStore) SearchRelevant(ctx context.Context, query string, limit int) ([]memory.Document, error) {
	if limit < 1 {
		return nil, nil
	}

	embedding, err := s.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	req := queryRequest{
		Vector:          embedding,
		TopK:            limit,
		IncludeMetadata: true,
		IncludeValues:   false,
		Namespace:       s.options.Index,
	}

	var rsp queryResponse
	if err := s.do(ctx, "/query", req, &rsp); err != nil {
		return nil, err
	}

	docs := make([]memory.Document, 0, len(rsp.Matches))
	for _, m := range rsp.Matches {
		docs = append(docs, documentFromMatch(m))
	}

	return docs, nil
}

func (s *pineconeStore) DeleteDocument(ctx context.Context, id string) error {
	return s.do(ctx, "/vectors/delete", deleteRequest{Ids: []string{id}, Namespace: s.options.Index}, nil)
}

func (s *pineconeStore) stats(ctx context.Context) (statsResponse, error) {
	var rsp statsResponse
	err := s.do(ctx, "/describe_index_stats", struct{}{}, &rsp)
	return rsp, err
}

func (s *pineconeStore) query(ctx context.Context, vec []float32, topK int) ([]match, error) {
	req := queryRequest{
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeValues:   false,
		Namespace:       s.options.Index,
	}

	var rsp queryResponse
	if err := s.do(ctx, "/query", req, &rsp); err != nil {
		return nil, err
	}

	return rsp.Matches, nil
}

func (s *pineconeStore) do(ctx context.Context, path string, req any, rsp any) error {
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.options.Location+path, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Api-Key", s.options.ApiKey)

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("pinecone http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func documentFromMatch(m match) memory.Document {
	createdAt, _ := time.Parse(time.RFC3339, getsafe.String(m.Metadata, "createdAt"))

	return memory.Document{
		Id:          m.Id,
		Content:     getsafe.String(m.Metadata, "content"),
		Title:       getsafe.String(m.Metadata, "title"),
		Type:        getsafe.String(m.Metadata, "type"),
		CreatedAt:   createdAt,
		FileName:    getsafe.String(m.Metadata, "fileName"),
		ChunkIndex:  getsafe.Int(m.Metadata, "chunkIndex"),
		TotalChunks: getsafe.Int(m.Metadata, "totalChunks"),
	}
}

func NewStore(opts ...memory.Option) (memory.Store, error) {
	options := memory.NewOptions(opts...)

	if len(options.Location) == 0 {
		return nil, errors.New("pinecone index host is required")
	}
	if len(options.ApiKey) == 0 {
		return nil, errors.New("pinecone api key is required")
	}
	if options.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	s := &pineconeStore{
		options: options,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	// Fail here, not on first use, so strict-mode startup can refuse to run
	// against an unreachable index.
	if _, err := s.stats(options.Context); err != nil {
		return nil, fmt.Errorf("pinecone index unreachable: %w", err)
	}

	return s, nil
}
