package thoughtweave

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/thoughtweave/internal/cache"
	"github.com/kart-io/thoughtweave/internal/capture"
	"github.com/kart-io/thoughtweave/internal/conversation"
	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/export"
	"github.com/kart-io/thoughtweave/internal/graph"
	"github.com/kart-io/thoughtweave/internal/lexical"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/rawstore"
	"github.com/kart-io/thoughtweave/internal/retrieval"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/synthesis"
	"github.com/kart-io/thoughtweave/internal/thoughtweave/handler"
	"github.com/kart-io/thoughtweave/internal/thoughtweave/router"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
	pgcomponent "github.com/kart-io/thoughtweave/pkg/component/postgres"
	"github.com/kart-io/thoughtweave/pkg/infra/app"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
	"github.com/kart-io/thoughtweave/pkg/infra/server"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/kart-io/thoughtweave/pkg/llm"
	"github.com/kart-io/thoughtweave/pkg/llm/resilience"

	// Register the HTTP framework bridge.
	_ "github.com/kart-io/thoughtweave/pkg/infra/adapter/gin"

	// Register LLM providers.
	_ "github.com/kart-io/thoughtweave/pkg/llm/deepseek"
	_ "github.com/kart-io/thoughtweave/pkg/llm/gemini"
	_ "github.com/kart-io/thoughtweave/pkg/llm/huggingface"
	_ "github.com/kart-io/thoughtweave/pkg/llm/ollama"
	_ "github.com/kart-io/thoughtweave/pkg/llm/openai"
	_ "github.com/kart-io/thoughtweave/pkg/llm/siliconflow"
)

const (
	appName        = "thoughtweave"
	appDescription = `ThoughtWeave Knowledge Engine

A personal knowledge engine: capture short thoughts, ask natural-language
questions answered strictly from your own notes with citations, hold
encrypted multi-turn conversations, and explore a clustered theme graph.

This server provides:
  - Durable thought capture with asynchronous enrichment
  - Hybrid lexical + vector retrieval with grounded, cited synthesis
  - Envelope-encrypted, searchable conversations
  - K-means theme graphs with LLM-generated labels
  - Incremental export for offline sync`
)

// NewApp creates the HTTP service application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run wires every component and serves until shutdown.
func Run(opts *Options) error {
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting ThoughtWeave service...")

	if err := pool.InitGlobal(); err != nil {
		return fmt.Errorf("failed to initialize worker pools: %w", err)
	}

	deps, err := buildCore(context.Background(), opts)
	if err != nil {
		return err
	}
	defer deps.Close()

	exportSvc := export.NewService(deps.Meta, deps.Envelope)
	h := handler.New(deps.Capture, deps.Meta, deps.Conversations, deps.Retrieval, deps.Synth, deps.Graph, exportSvc)
	if cached, ok := deps.Embedder.(*llm.CachedEmbeddingProvider); ok {
		h.SetCacheStatsHandler(func(c transport.Context) {
			stats, err := cached.GetCacheStats(c.Request())
			if err != nil {
				c.JSON(500, map[string]string{"error": "cache statistics unavailable"})
				return
			}
			c.JSON(200, stats)
		})
	}

	serverManager := server.NewManager(
		server.WithMode(opts.Server.Mode),
		server.WithHTTPOptions(opts.Server.HTTP),
		server.WithShutdownTimeout(opts.Server.ShutdownTimeout),
	)

	if err := router.Register(serverManager, h); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Info("ThoughtWeave service is ready")
	return serverManager.Run()
}

// coreDeps is the wired component set shared by the HTTP service and the
// indexer worker.
type coreDeps struct {
	Meta          store.Factory
	Raw           rawstore.Store
	Queue         queue.IndexQueue
	Vectors       vectorstore.Index
	Lexical       lexical.Index
	Envelope      *crypto.Envelope
	Embedder      llm.EmbeddingProvider
	Chat          llm.ChatProvider
	Capture       *capture.Service
	Retrieval     *retrieval.Engine
	Synth         *synthesis.Synthesizer
	Conversations *conversation.Service
	Graph         *graph.Builder

	closers []func()
}

// Close releases every held connection, most recently opened first.
func (d *coreDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildCore constructs the shared component graph: stores, queue, vector
// index, providers, and the six core services.
func buildCore(ctx context.Context, opts *Options) (*coreDeps, error) {
	deps := &coreDeps{}

	// Metadata store (Postgres via gorm).
	pgClient, err := pgcomponent.NewWithContext(ctx, opts.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	deps.closers = append(deps.closers, func() { _ = pgClient.Close() })
	deps.Meta = store.New(pgClient.DB())
	if err := deps.Meta.AutoMigrate(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to migrate metadata schema: %w", err)
	}
	logger.Info("Metadata store initialized")

	// Lexical index rides the same Postgres connection.
	pgIndex := lexical.NewPGIndex(pgClient.DB())
	if err := pgIndex.EnsureSchema(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to ensure lexical schema: %w", err)
	}
	deps.Lexical = pgIndex
	logger.Info("Lexical index initialized")

	// Raw object store.
	raw, err := rawstore.NewFSStore(opts.RawStore.Dir)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize raw store: %w", err)
	}
	deps.Raw = raw

	// Index queue (NATS JetStream).
	natsQueue, err := queue.NewNATSQueue(opts.NATS.URL)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize index queue: %w", err)
	}
	deps.closers = append(deps.closers, func() { _ = natsQueue.Close() })
	deps.Queue = natsQueue
	logger.Info("Index queue initialized")

	// Vector index (Qdrant).
	vectors, err := vectorstore.NewQdrantIndex(ctx, vectorstore.Config{
		URL:            opts.Qdrant.URL,
		APIKey:         opts.Qdrant.APIKey,
		CollectionName: opts.Qdrant.CollectionName,
		VectorSize:     opts.Qdrant.VectorSize,
	})
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	deps.closers = append(deps.closers, func() { _ = vectors.Close() })
	deps.Vectors = vectors
	logger.Info("Vector index initialized")

	// Envelope encryption.
	envelope, err := crypto.New(opts.Encryption.MasterKey())
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize envelope encryption: %w", err)
	}
	deps.Envelope = envelope

	// LLM providers, wrapped with retries and a circuit breaker.
	embedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	chat, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	var resilientEmbedder llm.EmbeddingProvider = resilience.NewResilientEmbeddingProvider(embedder, nil, nil)
	deps.Chat = resilience.NewResilientChatProvider(chat, nil, nil)
	logger.Infow("LLM providers initialized",
		"embedding.provider", opts.Embedding.Provider,
		"embedding.model", opts.Embedding.Model,
		"chat.provider", opts.Chat.Provider,
		"chat.model", opts.Chat.Model,
	)

	// Redis: embedding cache plus the query/graph cache.
	var jsonCache cache.JSONCache
	if opts.Cache.Enabled && opts.Cache.Redis != nil {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:         fmt.Sprintf("%s:%d", opts.Redis.Host, opts.Redis.Port),
			Password:     opts.Redis.Password,
			DB:           opts.Redis.Database,
			PoolSize:     opts.Redis.PoolSize,
			MinIdleConns: opts.Redis.MinIdleConns,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("failed to connect to redis, caching disabled", "error", err.Error())
			_ = redisClient.Close()
		} else {
			deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
			jsonCache = cache.NewRedisCache(redisClient)
			resilientEmbedder = llm.NewCachedEmbeddingProvider(resilientEmbedder, redisClient, &llm.EmbeddingCacheConfig{
				Enabled:   true,
				TTL:       opts.Cache.TTL,
				KeyPrefix: opts.Cache.KeyPrefix + "embedding:",
			})
			logger.Infow("Redis cache initialized", "host", opts.Redis.Host, "port", opts.Redis.Port)
		}
	} else {
		logger.Info("Cache is disabled")
	}
	deps.Embedder = resilientEmbedder

	// Core services.
	deps.Capture = capture.NewService(deps.Raw, deps.Meta, deps.Queue)
	deps.Retrieval = retrieval.NewEngine(deps.Lexical, deps.Vectors, deps.Embedder, deps.Chat, retrieval.Config{
		ThoughtLimit:       opts.Engine.ThoughtLimit,
		ConversationLimit:  opts.Engine.ConversationLimit,
		EnableQueryRewrite: opts.Engine.EnableQueryRewrite,
		EnableHyDE:         opts.Engine.EnableHyDE,
	})
	deps.Synth = synthesis.NewSynthesizer(deps.Chat)
	deps.Conversations = conversation.NewService(deps.Meta, deps.Envelope, deps.Queue, deps.Retrieval, deps.Synth)
	deps.Graph = graph.NewBuilder(deps.Vectors, deps.Meta, deps.Chat, jsonCache)
	logger.Info("Core services initialized")

	return deps, nil
}
