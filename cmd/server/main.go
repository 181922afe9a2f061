package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/igame-lab/assistant/catalog"
	catalogpg "github.com/igame-lab/assistant/catalog/postgres"
	"github.com/igame-lab/assistant/classifier"
	"github.com/igame-lab/assistant/classifier/deepseek"
	"github.com/igame-lab/assistant/embedder"
	embeddergoogle "github.com/igame-lab/assistant/embedder/google"
	embedderopenai "github.com/igame-lab/assistant/embedder/openai"
	"github.com/igame-lab/assistant/generator"
	generatoranthropic "github.com/igame-lab/assistant/generator/anthropic"
	generatoropenai "github.com/igame-lab/assistant/generator/openai"
	"github.com/igame-lab/assistant/memory"
	"github.com/igame-lab/assistant/memory/pinecone"
	memorypg "github.com/igame-lab/assistant/memory/postgres"
	"github.com/igame-lab/assistant/memory/simple"

	chathandler "github.com/igame-lab/assistant/cmd/server/handler/chat"
	memorieshandler "github.com/igame-lab/assistant/cmd/server/handler/memories"
	"github.com/igame-lab/assistant/internal/service/chat"
	"github.com/igame-lab/assistant/internal/service/memories"
	"github.com/igame-lab/assistant/internal/service/session"
	"github.com/igame-lab/assistant/internal/service/watcher"
)

var (
	cfg struct {
		// Server config
		HttpAddress    string        `help:"Address for the http server to listen on" default:":8080"`
		RequestTimeout time.Duration `help:"Per-call timeout for upstream services" default:"20s"`
		Timezone       string        `help:"IANA timezone for time answers" default:"Asia/Shanghai"`

		// Memory config
		MemoryMode     string `help:"Startup behavior when the persistent store is unreachable" enum:"strict,degraded" default:"degraded"`
		MemoryBackend  string `help:"Vector store backend" enum:"pinecone,postgres,memory" default:"pinecone"`
		RetrievalLimit int    `help:"Number of chunks retrieved per query" default:"5"`
		DataDir        string `help:"Directory for mirrored uploads" default:"./data/memories"`
		Watch          bool   `help:"Auto-ingest files dropped into the data directory" default:"true"`

		// Embedder config
		Embedder       string `help:"Embedding provider" enum:"openai,google" default:"openai"`
		EmbeddingModel string `help:"Model identifier for vector embeddings" default:"text-embedding-3-small"`

		// Generator config
		Generator      string `help:"Generation provider" enum:"openai,anthropic" default:"openai"`
		OpenaiApiKey   string `help:"API key for openai" env:"OPENAI_API_KEY" default:""`
		OpenaiLocation string `help:"Base URL override for openai-compatible endpoints" default:""`
		ChatModel      string `help:"Model identifier for generation" default:"gpt-4o-mini"`

		AnthropicApiKey string `help:"API key for anthropic" env:"ANTHROPIC_API_KEY" default:""`
		AnthropicModel  string `help:"Model identifier for anthropic generation" default:"claude-sonnet-4-20250514"`

		GoogleApiKey string `help:"API key for google embeddings" env:"GOOGLE_API_KEY" default:""`

		// Classifier config
		DeepseekApiKey   string `help:"API key for deepseek classification" env:"DEEPSEEK_API_KEY" default:""`
		DeepseekLocation string `help:"Base URL for the deepseek API" default:"https://api.deepseek.com/v1"`
		DeepseekModel    string `help:"Model identifier for classification" default:"deepseek-chat"`

		// Pinecone config
		PineconeLocation  string `help:"Pinecone index host URL" env:"PINECONE_HOST" default:""`
		PineconeApiKey    string `help:"API key for pinecone" env:"PINECONE_API_KEY" default:""`
		PineconeNamespace string `help:"Namespace within the pinecone index" default:""`
		VectorSize        int    `help:"Embedding dimension" default:"1536"`

		// Postgres config
		PostgresLocation string `help:"Postgres DSN for the pgvector store and the document catalog" env:"POSTGRES_URL" default:""`
	}
)

func main() {
	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create embedder
	emb := buildEmbedder(ctx)

	// Create vector store, honoring the configured startup mode
	store := buildStore(ctx, emb)

	// Create the document catalog sidecar
	cat := buildCatalog(ctx)

	// Create classifier
	var cl classifier.Classifier
	if len(cfg.DeepseekApiKey) > 0 {
		cl = deepseek.NewClassifier(
			classifier.WithApiKey(cfg.DeepseekApiKey),
			classifier.WithLocation(cfg.DeepseekLocation),
			classifier.WithModel(cfg.DeepseekModel),
		)
	} else {
		slog.WarnContext(ctx, "no classification api key configured, using keyword classifier")
		cl = classifier.NewKeywordClassifier()
	}

	// Create generator
	var gen generator.Generator
	switch cfg.Generator {
	case "anthropic":
		gen = generatoranthropic.NewGenerator(
			generator.WithApiKey(cfg.AnthropicApiKey),
			generator.WithModel(cfg.AnthropicModel),
		)
	default:
		gen = generatoropenai.NewGenerator(
			generator.WithApiKey(cfg.OpenaiApiKey),
			generator.WithLocation(cfg.OpenaiLocation),
			generator.WithModel(cfg.ChatModel),
		)
	}

	// Create services
	sessions := session.New()

	chatService := chat.New(
		cl,
		gen,
		store,
		sessions,
		cfg.Timezone,
		chat.WithTimeout(cfg.RequestTimeout),
		chat.WithRetrievalLimit(cfg.RetrievalLimit),
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("failed to create data directory %s: %v", cfg.DataDir, err)
	}

	memoriesService := memories.New(
		store,
		memories.WithCatalog(cat),
		memories.WithDataDir(cfg.DataDir),
	)

	if cfg.Watch {
		w := watcher.New(memoriesService, cfg.DataDir)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "watcher stopped", "error", err)
			}
		}()
	}

	// Create handlers and routes
	chatHandler := chathandler.NewHandler(chatService, sessions)
	memoriesHandler := memorieshandler.NewHandler(memoriesService)

	router := mux.NewRouter()
	router.HandleFunc("/chat", chatHandler.HandleMessage).Methods(http.MethodPost)
	router.HandleFunc("/chat", chatHandler.HandleSessions).Methods(http.MethodGet)
	router.HandleFunc("/memories/upload", memoriesHandler.HandleUpload).Methods(http.MethodPost)
	router.HandleFunc("/memories", memoriesHandler.HandleList).Methods(http.MethodGet)
	router.HandleFunc("/memories/records", memoriesHandler.HandleRecords).Methods(http.MethodGet)
	router.HandleFunc("/memories", memoriesHandler.HandleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/memories/jobs/{id}", memoriesHandler.HandleJob).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              cfg.HttpAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server listening", "address", cfg.HttpAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func buildEmbedder(ctx context.Context) embedder.Embedder {
	switch cfg.Embedder {
	case "google":
		emb, err := embeddergoogle.NewEmbedder(
			embedder.WithApiKey(cfg.GoogleApiKey),
			embedder.WithModel(cfg.EmbeddingModel),
		)
		if err != nil {
			if cfg.MemoryMode == "strict" {
				log.Fatalf("failed to create embedder: %v", err)
			}
			slog.WarnContext(ctx, "failed to create embedder, persistent memory disabled", "error", err)
			return nil
		}
		return emb
	default:
		return embedderopenai.NewEmbedder(
			embedder.WithApiKey(cfg.OpenaiApiKey),
			embedder.WithLocation(cfg.OpenaiLocation),
			embedder.WithModel(cfg.EmbeddingModel),
		)
	}
}

// buildStore wires the configured vector backend. In strict mode an
// unreachable backend is fatal; in degraded mode the service comes up on the
// in-memory store instead.
func buildStore(ctx context.Context, emb embedder.Embedder) memory.Store {
	var store memory.Store
	var err error

	switch cfg.MemoryBackend {
	case "pinecone":
		if emb == nil {
			err = errors.New("pinecone backend requires an embedder")
			break
		}
		store, err = pinecone.NewStore(
			memory.WithLocation(cfg.PineconeLocation),
			memory.WithApiKey(cfg.PineconeApiKey),
			memory.WithIndex(cfg.PineconeNamespace),
			memory.WithVectorSize(cfg.VectorSize),
			memory.WithEmbedder(emb),
		)
	case "postgres":
		if emb == nil {
			err = errors.New("postgres backend requires an embedder")
			break
		}
		store, err = memorypg.NewStore(
			memory.WithLocation(cfg.PostgresLocation),
			memory.WithVectorSize(cfg.VectorSize),
			memory.WithEmbedder(emb),
		)
	default:
		return simple.NewStore()
	}

	if err != nil {
		if cfg.MemoryMode == "strict" {
			log.Fatalf("failed to connect to %s: %v", cfg.MemoryBackend, err)
		}
		slog.WarnContext(ctx, "persistent memory unavailable, falling back to in-memory store",
			"backend", cfg.MemoryBackend,
			"error", err,
		)
		return simple.NewStore()
	}

	return store
}

func buildCatalog(ctx context.Context) catalog.Catalog {
	if len(cfg.PostgresLocation) == 0 {
		return nil
	}

	cat, err := catalogpg.NewCatalog(
		catalog.WithLocation(cfg.PostgresLocation),
	)
	if err != nil {
		if cfg.MemoryMode == "strict" {
			log.Fatalf("failed to connect document catalog: %v", err)
		}
		slog.WarnContext(ctx, "document catalog unavailable", "error", err)
		return nil
	}

	return cat
}
