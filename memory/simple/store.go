// Package simple is the in-memory fallback backend. It does no real
// vectorization: relevance is a keyword-overlap score, which keeps retrieval
// working when the embedding service is unreachable or unconfigured.
package simple

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/igame-lab/assistant/memory"
)

type simpleStore struct {
	options memory.Options
	docs    []memory.Document
	mtx     sync.RWMutex
}

func (s *simpleStore) AddDocument(ctx context.Context, doc memory.Document) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.docs = append(s.docs, doc)

	return nil
}

func (s *simpleStore) SearchRelevant(ctx context.Context, query string, limit int) ([]memory.Document, error) {
	if limit < 1 {
		return nil, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	queryLower := strings.ToLower(query)

	type scored struct {
		doc   memory.Document
		score int
		order int
	}

	var candidates []scored
	for i, doc := range s.docs {
		score := relevanceScore(strings.ToLower(doc.Content), queryLower)
		if score > 0 {
			candidates = append(candidates, scored{doc: doc, score: score, order: i})
		}
	}

	// Ties keep store insertion order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]memory.Document, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.doc)
	}

	return results, nil
}

func (s *simpleStore) GetAll(ctx context.Context) ([]memory.Document, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	cpy := make([]memory.Document, len(s.docs))
	copy(cpy, s.docs)

	return cpy, nil
}

func (s *simpleStore) DeleteDocument(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for i, doc := range s.docs {
		if doc.Id == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}

	return nil
}

// relevanceScore sums, per query token, 3 points for each exact occurrence
// and 1 point for substring presence. Tokens shorter than two runes are
// skipped.
func relevanceScore(content string, query string) int {
	score := 0

	for _, word := range strings.Fields(query) {
		if utf8.RuneCountInString(word) < 2 {
			continue
		}

		score += strings.Count(content, word) * 3

		if strings.Contains(content, word) {
			score++
		}
	}

	return score
}

func NewStore(opts ...memory.Option) memory.Store {
	options := memory.NewOptions(opts...)

	return &simpleStore{
		options: options,
	}
}
