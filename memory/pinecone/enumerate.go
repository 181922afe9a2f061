package pinecone

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"github.com/igame-lab/assistant/memory"
)

// GetAll approximates "list everything" on an index that only supports
// similarity search: it fans a fixed set of probe vectors across the space
// and unions the matches. Callers must treat the result as best-effort —
// coverage below the reported total is logged, never returned as an error.
func (s *pineconeStore) GetAll(ctx context.Context) ([]memory.Document, error) {
	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	if stats.TotalVectorCount == 0 {
		return nil, nil
	}

	dimension := stats.Dimension
	if dimension == 0 {
		dimension = s.options.VectorSize
	}

	topK := stats.TotalVectorCount
	if topK > s.options.ProbeCap {
		topK = s.options.ProbeCap
	}

	seen := map[string]struct{}{}
	var docs []memory.Document

	for _, probe := range probeVectors(dimension) {
		if len(docs) >= stats.TotalVectorCount {
			break
		}

		matches, err := s.query(ctx, probe.vector, topK)
		if err != nil {
			slog.WarnContext(ctx, "probe query failed", "probe", probe.name, "error", err)
			continue
		}

		for _, m := range matches {
			if _, ok := seen[m.Id]; ok {
				continue
			}
			seen[m.Id] = struct{}{}
			docs = append(docs, documentFromMatch(m))
		}
	}

	if len(docs) < stats.TotalVectorCount {
		slog.WarnContext(ctx, "approximate enumeration is incomplete",
			"retrieved", len(docs),
			"reported", stats.TotalVectorCount,
		)
	}

	return docs, nil
}

type probe struct {
	name   string
	vector []float32
}

// probeVectors builds the fixed probe sequence: the zero vector, two
// small-magnitude random vectors, and two deterministic sinusoidal patterns.
func probeVectors(dimension int) []probe {
	zero := make([]float32, dimension)

	random1 := make([]float32, dimension)
	random2 := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		random1[i] = float32((rand.Float64() - 0.5) * 0.01)
		random2[i] = float32((rand.Float64() - 0.5) * 0.01)
	}

	pattern1 := make([]float32, dimension)
	pattern2 := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		pattern1[i] = float32(math.Sin(float64(i) * 0.01))
		pattern2[i] = float32(math.Cos(float64(i) * 0.01))
	}

	return []probe{
		{name: "zero", vector: zero},
		{name: "random1", vector: random1},
		{name: "random2", vector: random2},
		{name: "pattern1", vector: pattern1},
		{name: "pattern2", vector: pattern2},
	}
}
