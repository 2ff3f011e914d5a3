package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/23skdu/wordscope/internal/core"
	wserrors "github.com/23skdu/wordscope/internal/errors"
	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ValidateConfig(&cfg))
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty embeddings path", func(c *Config) { c.EmbeddingsPath = "" }, ErrInvalidEmbeddingsPath},
		{"negative vocab limit", func(c *Config) { c.VocabLimit = -1 }, ErrInvalidVocabLimit},
		{"negative dimension", func(c *Config) { c.Dimension = -3 }, ErrInvalidDimension},
		{"unknown metric", func(c *Config) { c.IndexMetric = "manhattan" }, ErrInvalidMetric},
		{"unknown backend", func(c *Config) { c.IndexBackend = "lsh" }, ErrInvalidBackend},
		{"zero trees", func(c *Config) { c.IndexTrees = 0 }, ErrInvalidTrees},
		{"zero leaf size", func(c *Config) { c.IndexLeafSize = 0 }, ErrInvalidLeafSize},
		{"negative search k", func(c *Config) { c.SearchK = -1 }, ErrInvalidSearchK},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }, ErrInvalidEpsilon},
		{"negative cache", func(c *Config) { c.CacheCapacity = -1 }, ErrInvalidCacheCapacity},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"empty listen", func(c *Config) { c.ListenAddr = "" }, ErrInvalidListenAddr},
		{"empty metrics", func(c *Config) { c.MetricsAddr = "" }, ErrInvalidMetricsAddr},
		{"negative sample", func(c *Config) { c.ProjectionSample = -1 }, ErrInvalidProjection},
		{"zero keepalive", func(c *Config) { c.KeepAliveTime = 0 }, ErrInvalidKeepAliveTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, ValidateConfig(&cfg))
		})
	}
}

func TestEnvDefaultsMatchDefaultConfig(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process(EnvPrefix, &cfg))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORDSCOPE_INDEX_SEED", "1234")
	t.Setenv("WORDSCOPE_INDEX_BACKEND", "hnsw")
	t.Setenv("WORDSCOPE_VOCAB_LIMIT", "50000")
	t.Setenv("WORDSCOPE_RATE_LIMIT_RPS", "25")
	t.Setenv("WORDSCOPE_KEEPALIVE_TIME", "30m")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cfg.IndexSeed)
	assert.Equal(t, "hnsw", cfg.IndexBackend)
	assert.Equal(t, 50000, cfg.VocabLimit)
	assert.Equal(t, 25, cfg.RPS)
	assert.Equal(t, 30*time.Minute, cfg.KeepAliveTime)

	idx := cfg.IndexConfig()
	assert.Equal(t, core.BackendHNSW, idx.Backend)
	assert.Equal(t, int64(1234), idx.Seed)
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	t.Setenv("WORDSCOPE_INDEX_METRIC", "hamming")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, ErrInvalidMetric)
	var se *wserrors.StructuredError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, wserrors.ErrorTypeValidation, se.Type)

	t.Setenv("WORDSCOPE_INDEX_METRIC", "angular")
	t.Setenv("WORDSCOPE_INDEX_TREES", "many")
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WORDSCOPE_CACHE_CAPACITY=17\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("WORDSCOPE_CACHE_CAPACITY") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 17, cfg.CacheCapacity)
}

func TestLoadConfigMissingDotEnvIsIgnored(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestIndexConfigAcceptsCosineAlias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexMetric = "cosine"
	require.NoError(t, ValidateConfig(&cfg))
	assert.Equal(t, core.MetricAngular, cfg.IndexConfig().Metric)
}

func TestBuildGRPCServerOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.BuildGRPCServerOptions(), 3)
}
