package embedding

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/23skdu/wordscope/internal/core"
	wserrors "github.com/23skdu/wordscope/internal/errors"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/rs/zerolog"
)

// maxLineBytes bounds a single input line. Longer lines are skipped as
// malformed; 300 float32 text fields fit easily.
const maxLineBytes = 1 << 20

// LoaderOption configures Load.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	limit     int
	dimension int
	logger    zerolog.Logger
}

// WithLimit retains only the first n valid lines in file order.
// A value <= 0 disables pruning.
func WithLimit(n int) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.limit = n
	}
}

// WithDimension requires every vector to have exactly dim components instead
// of inferring the dimension from the first valid line.
func WithDimension(dim int) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.dimension = dim
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(logger zerolog.Logger) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.logger = logger
	}
}

// LoadFile opens path and parses it with Load.
func LoadFile(ctx context.Context, path string, opts ...LoaderOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewLoadFailure(path, err)
	}
	defer func() { _ = f.Close() }()
	return load(ctx, f, path, opts...)
}

// Load parses embedding lines of the form "token v1 v2 ... vD" from r.
//
// Pruning keeps the first valid lines in file order. This is deterministic
// and reproducible but biased towards whatever order the file was written
// in, not towards token quality or frequency.
func Load(ctx context.Context, r io.Reader, opts ...LoaderOption) (*Table, error) {
	return load(ctx, r, "<reader>", opts...)
}

func load(ctx context.Context, r io.Reader, source string, opts ...LoaderOption) (*Table, error) {
	cfg := loaderConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	start := time.Now()

	capacity := 1024
	if cfg.limit > 0 && cfg.limit < capacity {
		capacity = cfg.limit
	}

	var table *Table
	dim := cfg.dimension
	if dim > 0 {
		table = newTable(dim, capacity)
	}

	var malformed, duplicates int
	br := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewLoadFailure(source, err)
		}
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if tooLong {
			malformed++
			metrics.LoadLinesTotal.WithLabelValues("malformed").Inc()
			cfg.logger.Warn().
				Str("source", source).
				Int("line", lineNo).
				Int("max_bytes", maxLineBytes).
				Msg("Skipping oversized embedding line")
			continue
		}

		fields := strings.Fields(string(raw))
		if len(fields) == 0 {
			continue
		}

		token, vec, perr := parseFields(fields, dim)
		if perr != nil {
			malformed++
			metrics.LoadLinesTotal.WithLabelValues("malformed").Inc()
			cfg.logger.Warn().
				Err(perr.WithContext("line", lineNo)).
				Str("source", source).
				Int("line", lineNo).
				Msg("Skipping malformed embedding line")
			continue
		}

		if table == nil {
			dim = len(vec)
			table = newTable(dim, capacity)
		}

		if !table.add(token, vec) {
			duplicates++
			metrics.LoadLinesTotal.WithLabelValues("duplicate").Inc()
			cfg.logger.Debug().
				Str("token", token).
				Int("line", lineNo).
				Msg("Skipping duplicate token")
			continue
		}
		metrics.LoadLinesTotal.WithLabelValues("valid").Inc()

		if cfg.limit > 0 && table.Len() >= cfg.limit {
			cfg.logger.Info().
				Int("limit", cfg.limit).
				Int("line", lineNo).
				Msg("Vocabulary limit reached, pruning remaining lines")
			break
		}
	}
	if table == nil || table.Len() == 0 {
		return nil, &core.ErrEmptyVocabulary{Path: source}
	}

	metrics.LoadDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.VocabularySize.Set(float64(table.Len()))
	metrics.VectorDimension.Set(float64(table.Dimension()))

	cfg.logger.Info().
		Str("source", source).
		Int("tokens", table.Len()).
		Int("dimension", table.Dimension()).
		Int("malformed", malformed).
		Int("duplicates", duplicates).
		Dur("elapsed", time.Since(start)).
		Msg("Embedding table loaded")

	return table, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is drained to its end and reported with tooLong set.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// parseFields converts one split line. dim <= 0 means the dimension is not
// yet established and any positive component count is accepted.
func parseFields(fields []string, dim int) (string, []float32, *wserrors.StructuredError) {
	if len(fields) < 2 {
		return "", nil, wserrors.NewParseError("load", "line has no vector components").
			WithContext("fields", len(fields))
	}
	components := fields[1:]
	if dim > 0 && len(components) != dim {
		return "", nil, wserrors.NewParseError("load",
			fmt.Sprintf("expected %d components, got %d", dim, len(components))).
			WithContext("token", fields[0])
	}

	vec := make([]float32, len(components))
	for i, s := range components {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return "", nil, wserrors.WrapParseError(err, "load",
				fmt.Sprintf("component %d is not a float", i)).
				WithContext("token", fields[0])
		}
		f := float32(v)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return "", nil, wserrors.NewParseError("load",
				fmt.Sprintf("component %d is not finite", i)).
				WithContext("token", fields[0])
		}
		vec[i] = f
	}
	return fields[0], vec, nil
}

func errEmpty(source string) error {
	return &core.ErrEmptyVocabulary{Path: source}
}

func errLengths(tokens, vectors int) error {
	return core.NewInvalidArgumentError("vectors",
		fmt.Sprintf("%d tokens but %d vectors", tokens, vectors))
}

func errDim(want, got int) error {
	return core.NewDimensionMismatchError(want, got)
}
