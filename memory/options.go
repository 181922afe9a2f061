package memory

import (
	"context"

	"github.com/igame-lab/assistant/embedder"
)

type Option func(*Options)

type Options struct {
	Location   string
	ApiKey     string
	Index      string
	VectorSize int
	ProbeCap   int
	Embedder   embedder.Embedder
	Context    context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

// WithIndex names the partition within the backend, e.g. a pinecone
// namespace.
func WithIndex(index string) Option {
	return func(o *Options) {
		o.Index = index
	}
}

func WithVectorSize(size int) Option {
	return func(o *Options) {
		o.VectorSize = size
	}
}

func WithProbeCap(cap int) Option {
	return func(o *Options) {
		o.ProbeCap = cap
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		VectorSize: 1536,
		ProbeCap:   1000,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
