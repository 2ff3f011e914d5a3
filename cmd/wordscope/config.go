package main

import (
	"errors"
	"os"
	"time"

	"github.com/23skdu/wordscope/internal/ann"
	"github.com/23skdu/wordscope/internal/core"
	wserrors "github.com/23skdu/wordscope/internal/errors"
	"github.com/23skdu/wordscope/internal/limiter"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// EnvPrefix prefixes every environment variable, e.g. WORDSCOPE_INDEX_SEED.
const EnvPrefix = "WORDSCOPE"

// Config is the process configuration.
type Config struct {
	EmbeddingsPath string `envconfig:"EMBEDDINGS_PATH" default:"glove.6B.300d.txt"`
	VocabLimit     int    `envconfig:"VOCAB_LIMIT" default:"0"` // 0 keeps every line
	Dimension      int    `envconfig:"DIMENSION" default:"0"`   // 0 infers from the first line

	IndexMetric   string `envconfig:"INDEX_METRIC" default:"angular"`
	IndexBackend  string `envconfig:"INDEX_BACKEND" default:"forest"`
	IndexTrees    int    `envconfig:"INDEX_TREES" default:"10"`
	IndexLeafSize int    `envconfig:"INDEX_LEAF_SIZE" default:"64"`
	IndexSeed     int64  `envconfig:"INDEX_SEED" default:"42"`
	BuildWorkers  int    `envconfig:"BUILD_WORKERS" default:"0"` // 0 means NumCPU
	SearchK       int    `envconfig:"SEARCH_K" default:"0"`      // 0 means trees*k
	HNSWM         int    `envconfig:"HNSW_M" default:"16"`
	HNSWEfSearch  int    `envconfig:"HNSW_EF_SEARCH" default:"100"`

	Epsilon       float32 `envconfig:"SIMILARITY_EPSILON" default:"0.1"`
	CacheCapacity int     `envconfig:"CACHE_CAPACITY" default:"4096"` // 0 is unbounded

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	ListenAddr  string `envconfig:"LISTEN_ADDR" default:"0.0.0.0:3000"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:"0.0.0.0:9090"`
	limiter.Config

	GRPCMaxRecvMsgSize int           `envconfig:"GRPC_MAX_RECV_MSG_SIZE" default:"67108864"`
	GRPCMaxSendMsgSize int           `envconfig:"GRPC_MAX_SEND_MSG_SIZE" default:"67108864"`
	KeepAliveTime      time.Duration `envconfig:"KEEPALIVE_TIME" default:"2h"`
	KeepAliveTimeout   time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"20s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	ProjectionSample int   `envconfig:"PROJECTION_SAMPLE" default:"1000"`
	ProjectionSeed   int64 `envconfig:"PROJECTION_SEED" default:"1"`
}

// Config validation errors
var (
	ErrInvalidEmbeddingsPath = errors.New("embeddings_path cannot be empty")
	ErrInvalidVocabLimit     = errors.New("vocab_limit must be >= 0")
	ErrInvalidDimension      = errors.New("dimension must be >= 0")
	ErrInvalidMetric         = errors.New("index_metric must be 'angular' or 'euclidean'")
	ErrInvalidBackend        = errors.New("index_backend must be 'forest' or 'hnsw'")
	ErrInvalidTrees          = errors.New("index_trees must be positive")
	ErrInvalidLeafSize       = errors.New("index_leaf_size must be positive")
	ErrInvalidSearchK        = errors.New("search_k must be >= 0")
	ErrInvalidEpsilon        = errors.New("similarity_epsilon must be positive")
	ErrInvalidCacheCapacity  = errors.New("cache_capacity must be >= 0")
	ErrInvalidLogFormat      = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel       = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidListenAddr     = errors.New("listen_addr cannot be empty")
	ErrInvalidMetricsAddr    = errors.New("metrics_addr cannot be empty")
	ErrInvalidProjection     = errors.New("projection_sample must be >= 0")
	ErrInvalidKeepAliveTime  = errors.New("keepalive_time must be positive")
)

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		EmbeddingsPath:     "glove.6B.300d.txt",
		IndexMetric:        string(core.MetricAngular),
		IndexBackend:       string(core.BackendForest),
		IndexTrees:         10,
		IndexLeafSize:      64,
		IndexSeed:          42,
		HNSWM:              16,
		HNSWEfSearch:       100,
		Epsilon:            0.1,
		CacheCapacity:      4096,
		LogFormat:          "json",
		LogLevel:           "info",
		ListenAddr:         "0.0.0.0:3000",
		MetricsAddr:        "0.0.0.0:9090",
		GRPCMaxRecvMsgSize: 64 * 1024 * 1024,
		GRPCMaxSendMsgSize: 64 * 1024 * 1024,
		KeepAliveTime:      2 * time.Hour,
		KeepAliveTimeout:   20 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		ProjectionSample:   1000,
		ProjectionSeed:     1,
	}
}

// LoadConfig reads an optional dotenv file, then the environment.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, wserrors.WrapConfigurationError(err, "load_env", "failed to read "+envFile)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, wserrors.WrapConfigurationError(err, "process_env", "invalid environment")
	}
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, wserrors.WrapValidationError(err, "validate_config", "invalid configuration")
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.EmbeddingsPath == "" {
		return ErrInvalidEmbeddingsPath
	}
	if cfg.VocabLimit < 0 {
		return ErrInvalidVocabLimit
	}
	if cfg.Dimension < 0 {
		return ErrInvalidDimension
	}
	if _, err := core.ParseMetric(cfg.IndexMetric); err != nil {
		return ErrInvalidMetric
	}
	if _, err := core.ParseBackend(cfg.IndexBackend); err != nil {
		return ErrInvalidBackend
	}
	if cfg.IndexTrees <= 0 {
		return ErrInvalidTrees
	}
	if cfg.IndexLeafSize <= 0 {
		return ErrInvalidLeafSize
	}
	if cfg.SearchK < 0 {
		return ErrInvalidSearchK
	}
	if cfg.Epsilon <= 0 {
		return ErrInvalidEpsilon
	}
	if cfg.CacheCapacity < 0 {
		return ErrInvalidCacheCapacity
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	if cfg.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	if cfg.ProjectionSample < 0 {
		return ErrInvalidProjection
	}
	if cfg.KeepAliveTime <= 0 {
		return ErrInvalidKeepAliveTime
	}
	return nil
}

// IndexConfig converts the index fields into an ann.Config. Validation has
// already rejected unknown metric and backend names.
func (c *Config) IndexConfig() ann.Config {
	metric, _ := core.ParseMetric(c.IndexMetric)
	backend, _ := core.ParseBackend(c.IndexBackend)
	return ann.Config{
		Backend:      backend,
		Metric:       metric,
		NumTrees:     c.IndexTrees,
		MaxLeafSize:  c.IndexLeafSize,
		Seed:         c.IndexSeed,
		BuildWorkers: c.BuildWorkers,
		SearchK:      c.SearchK,
		HNSWM:        c.HNSWM,
		HNSWEfSearch: c.HNSWEfSearch,
	}
}

// BuildGRPCServerOptions returns the transport options for the Flight server.
func (c *Config) BuildGRPCServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    c.KeepAliveTime,
			Timeout: c.KeepAliveTimeout,
		}),
		grpc.MaxRecvMsgSize(c.GRPCMaxRecvMsgSize),
		grpc.MaxSendMsgSize(c.GRPCMaxSendMsgSize),
	}
}
