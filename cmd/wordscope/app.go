package main

import (
	"context"
	"time"

	"github.com/23skdu/wordscope/internal/ann"
	"github.com/23skdu/wordscope/internal/cache"
	"github.com/23skdu/wordscope/internal/embedding"
	"github.com/23skdu/wordscope/internal/query"
	"github.com/rs/zerolog"
)

// App is the immutable state built once at startup and shared by every
// command.
type App struct {
	Config Config
	Logger zerolog.Logger
	Table  *embedding.Table
	Index  *ann.Pair
	Engine *query.Engine
	Cached *cache.CachedEngine
}

// Bootstrap loads the embeddings, builds the index and wires the query
// engine behind the result cache.
func Bootstrap(ctx context.Context, cfg Config, logger zerolog.Logger) (*App, error) {
	start := time.Now()

	table, err := embedding.LoadFile(ctx, cfg.EmbeddingsPath,
		embedding.WithLimit(cfg.VocabLimit),
		embedding.WithDimension(cfg.Dimension),
		embedding.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	pair, err := ann.Build(ctx, table, cfg.IndexConfig(), logger)
	if err != nil {
		return nil, err
	}

	engine, err := query.NewEngine(table, pair,
		query.WithEpsilon(cfg.Epsilon),
		query.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("vocabulary", table.Len()).
		Int("dimension", table.Dimension()).
		Str("backend", string(pair.Backend)).
		Dur("elapsed", time.Since(start)).
		Msg("Engine ready")

	return &App{
		Config: cfg,
		Logger: logger,
		Table:  table,
		Index:  pair,
		Engine: engine,
		Cached: cache.NewCachedEngine(engine, cfg.CacheCapacity, logger),
	}, nil
}
