// Command reverie ingests dream-interpretation texts and retrieves passages
// for persona interpreters.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	memcache "github.com/custodia-labs/reverie/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/reverie/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/reverie/internal/adapters/driven/config/file"
	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/reverie/internal/adapters/driven/embedding/resilient"
	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/reverie/internal/adapters/driving/cli"
	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/services"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/normalisers"
	"github.com/custodia-labs/reverie/internal/postprocessors"
	"github.com/custodia-labs/reverie/internal/postprocessors/chunker"
	"github.com/custodia-labs/reverie/internal/postprocessors/classifier"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if lvl := os.Getenv("REVERIE_LOG_LEVEL"); lvl != "" {
		l, err := logger.ParseLevel(lvl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		logger.SetLevel(l)
	}

	configStore, err := file.NewConfigStore(os.Getenv("REVERIE_HOME"), file.WithEnvPrefix("REVERIE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading settings: %v\n", err)
		return err
	}
	if err := settingsService.Validate(); err != nil {
		logger.Warn("settings: %v", err)
	}

	store, err := openStore(ctx, settings.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening knowledge store: %v\n", err)
		return err
	}
	defer store.Close()

	inner, err := newEmbedder(settings.Embedding)
	if err != nil {
		// Commands that need no embeddings still work; the rest degrade.
		logger.Warn("embedding provider unavailable, using hashing embedder: %v", err)
		inner = hashing.NewEmbeddingService(domain.DefaultHashingDimensions)
	}
	defer inner.Close()

	cache := newCache(settings.Cache)
	resilience := func(op string, c driven.EmbeddingCache) *resilient.EmbeddingService {
		return resilient.New(inner, resilient.Config{
			Timeout:           settings.Embedding.Timeout,
			RequestsPerSecond: settings.Embedding.RequestsPerSecond,
			Cache:             c,
			Op:                op,
		})
	}
	queryEmbedder := resilience("query", cache)
	ingestEmbedder := resilience("ingest", nil)

	themeService, err := services.NewThemeService(settings.VocabularyPath, store, resilience("theme", nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading theme vocabulary: %v\n", err)
		return err
	}
	if err := themeService.Reload(ctx); err != nil {
		logger.Warn("themes: stored embeddings not loaded: %v", err)
	}

	var counter chunker.TokenCounter
	if c, err := chunker.NewTiktokenCounter(chunker.DefaultEncoding); err != nil {
		logger.Debug("token counts disabled: %v", err)
	} else {
		counter = c
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	cls := classifier.New(themeService, classifier.WithPersonas(settings.Personas))

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Segmentation:   services.NewSegmentationService(counter),
		Classification: cls,
		Extraction:     services.NewExtractionService(normalisers.Default()),
		Ingestion: services.NewIngestionService(
			registry, ingestEmbedder, cls, store, themeService, settings.Personas, settings.Ingest,
		),
		Retrieval:  services.NewRetrievalService(queryEmbedder, store, settings.Personas, settings.Retrieval),
		Themes:     themeService,
		Reclassify: services.NewReclassificationService(cls, store, themeService, settings.Personas),
		Settings:   settingsService,
		Embedder:   queryEmbedder,
	})

	return cli.Execute(ctx)
}

func openStore(ctx context.Context, cfg domain.StoreSettings) (driven.KnowledgeStore, error) {
	switch cfg.Backend {
	case domain.StoreBackendMemory:
		return memory.NewKnowledgeStore(), nil
	case domain.StoreBackendPostgres:
		return postgres.Open(ctx, cfg.DSN)
	default:
		return sqlite.NewStore(cfg.DataDir)
	}
}

func newEmbedder(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.EmbeddingProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		}), nil
	case domain.EmbeddingProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})
	default:
		return hashing.NewEmbeddingService(cfg.Dimensions), nil
	}
}

// newCache returns nil when caching is disabled.
func newCache(cfg domain.CacheSettings) driven.EmbeddingCache {
	switch cfg.Backend {
	case domain.CacheBackendMemory:
		return memcache.New(memcache.DefaultCapacity, cfg.TTL)
	case domain.CacheBackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		return rediscache.New(client, cfg.TTL)
	default:
		return nil
	}
}
