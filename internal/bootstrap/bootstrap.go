// Package bootstrap builds the adapters shared by the migrator and the trigger from config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/config"
	dbRedis "github.com/kailas-cloud/vecmigrate/internal/db/redis"
	"github.com/kailas-cloud/vecmigrate/internal/domain"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
	"github.com/kailas-cloud/vecmigrate/internal/repository/embcache"
	"github.com/kailas-cloud/vecmigrate/internal/repository/searchindex"
	"github.com/kailas-cloud/vecmigrate/internal/transport/azuresearch"
	ollamaEmb "github.com/kailas-cloud/vecmigrate/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/vecmigrate/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecmigrate/internal/usecase/embedding"
	"github.com/kailas-cloud/vecmigrate/internal/usecase/migrate"
)

// Index is a search index usable as both migration source and target.
type Index interface {
	migrate.Source
	migrate.Target
}

// Cache is the key-value store behind the embedding cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// OpenRedis connects to Redis and waits until it answers.
func OpenRedis(ctx context.Context, rc config.RedisConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    rc.Addrs,
		Password: rc.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	return store, nil
}

// azureCredential resolves the Entra ID identity used when an azure index has no admin key.
var azureCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// OpenIndex addresses the index described by ic. The returned close func releases any
// connection opened for it and is never nil.
func OpenIndex(ctx context.Context, ic config.IndexConfig, logger *zap.Logger) (Index, func(), error) {
	switch ic.Backend {
	case config.BackendAzure:
		cfg := azuresearch.Config{
			Endpoint:   ic.Endpoint,
			APIKey:     ic.APIKey,
			APIVersion: ic.APIVersion,
			Logger:     logger,
		}
		if ic.APIKey == "" {
			cred, err := azureCredential()
			if err != nil {
				return nil, func() {}, fmt.Errorf("azure credential for %q: %w", ic.Index, err)
			}
			cfg.Credential = cred
			logger.Info("No admin key configured, using Entra ID token auth", zap.String("index", ic.Index))
		}
		client, err := azuresearch.NewClient(cfg)
		if err != nil {
			return nil, func() {}, err
		}
		return client.Index(ic.Index), func() {}, nil
	case config.BackendRedis:
		store, err := OpenRedis(ctx, ic.Redis)
		if err != nil {
			return nil, func() {}, err
		}
		return searchindex.New(store, ic.Redis.KeyPrefix, ic.Index), store.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidConfig, ic.Backend)
	}
}

// Embedder assembles the decorator chain: provider -> cache -> dimension guard -> instrumented.
// cache may be nil.
func Embedder(ec config.EmbeddingConfig, cache Cache, keyPrefix string, logger *zap.Logger) (*embeddinguc.InstrumentedEmbedder, error) {
	timeout := time.Duration(ec.TimeoutSec) * time.Second

	var base domain.Embedder
	switch ec.Variant {
	case domain.VariantOllama:
		e, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			ServerURL: ec.Endpoint,
			Model:     ec.Model,
			Timeout:   timeout,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		base = e
	default:
		e, err := openaiEmb.NewEmbedder(&openaiEmb.Config{
			Variant:    ec.Variant,
			APIKey:     ec.APIKey,
			BaseURL:    ec.Endpoint,
			APIVersion: ec.APIVersion,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Timeout:    timeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		base = e
	}

	embedder := base
	if cache != nil {
		embedder = embcache.New(embedder, cache, embcache.Config{
			KeyPrefix:  keyPrefix,
			Model:      ec.Model,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}
	embedder = embeddinguc.NewDimensionGuard(embedder, ec.Dimensions)

	return embeddinguc.NewInstrumentedEmbedder(embedder, string(ec.Variant), ec.Model, logger), nil
}
