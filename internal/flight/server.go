// Package flight serves similarity queries over Arrow Flight.
package flight

import (
	"context"
	"encoding/json"
	"time"

	"github.com/23skdu/wordscope/internal/cache"
	"github.com/23skdu/wordscope/internal/core"
	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/23skdu/wordscope/internal/query"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Ticket kinds accepted by DoGet.
const (
	TicketSimilar    = "similar"
	TicketAnalogy    = "analogy"
	TicketVector     = "vector"
	TicketLookup     = "lookup"
	TicketVocabulary = "vocabulary"
)

// ActionStats is the DoAction type returning index statistics.
const ActionStats = "stats"

// DefaultK is used when a ticket omits k.
const DefaultK = 10

// Ticket is the JSON body of a DoGet ticket.
type Ticket struct {
	Kind        string    `json:"kind"`
	Token       string    `json:"token,omitempty"`
	K           int       `json:"k,omitempty"`
	ExcludeSelf bool      `json:"exclude_self,omitempty"`
	Positive    []string  `json:"positive,omitempty"`
	Negative    []string  `json:"negative,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
}

// ParseTicket decodes a DoGet ticket body.
func ParseTicket(body []byte) (Ticket, error) {
	var t Ticket
	if len(body) == 0 {
		return t, core.NewInvalidArgumentError("ticket", "empty ticket")
	}
	if err := gojson.Unmarshal(body, &t); err != nil {
		return t, core.NewInvalidArgumentError("ticket", err.Error())
	}
	return t, nil
}

// Request converts a similarity ticket into an engine request.
func (t *Ticket) Request() (query.Request, error) {
	k := t.K
	if k == 0 {
		k = DefaultK
	}
	req := query.Request{
		Token:       t.Token,
		Vector:      t.Vector,
		K:           k,
		ExcludeSelf: t.ExcludeSelf,
		Positive:    t.Positive,
		Negative:    t.Negative,
	}
	switch t.Kind {
	case TicketSimilar:
		req.Kind = core.KindToken
	case TicketAnalogy:
		req.Kind = core.KindAnalogy
	case TicketVector:
		req.Kind = core.KindVector
	default:
		return req, core.NewInvalidArgumentError("kind", "unsupported ticket kind "+t.Kind)
	}
	return req, req.Validate()
}

// Stats is the body returned by the stats action.
type Stats struct {
	VocabularySize int    `json:"vocabulary_size"`
	Dimension      int    `json:"dimension"`
	Backend        string `json:"backend"`
	Metric         string `json:"metric"`
	CacheEntries   int    `json:"cache_entries"`
}

// MatchSchema is the schema of similarity results.
var MatchSchema = arrow.NewSchema([]arrow.Field{
	{Name: "token", Type: arrow.BinaryTypes.String},
	{Name: "score", Type: arrow.PrimitiveTypes.Float32},
}, nil)

// VectorSchema is the schema of lookup results.
var VectorSchema = arrow.NewSchema([]arrow.Field{
	{Name: "token", Type: arrow.BinaryTypes.String},
	{Name: "vector", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
}, nil)

// TokenSchema is the schema of vocabulary listings.
var TokenSchema = arrow.NewSchema([]arrow.Field{
	{Name: "token", Type: arrow.BinaryTypes.String},
}, nil)

// Server implements the Flight service on top of a query engine.
type Server struct {
	flight.BaseFlightServer

	engine  *query.Engine
	cached  *cache.CachedEngine
	querier cache.Querier
	mem     memory.Allocator
	logger  zerolog.Logger
}

// NewServer serves engine, answering similarity queries through cached when
// it is non-nil.
func NewServer(engine *query.Engine, cached *cache.CachedEngine, logger zerolog.Logger) *Server {
	s := &Server{
		engine:  engine,
		cached:  cached,
		querier: engine,
		mem:     memory.NewGoAllocator(),
		logger:  logger,
	}
	if cached != nil {
		s.querier = cached
	}
	return s
}

// DoGet answers one ticket with a stream of record batches.
func (s *Server) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	start := time.Now()
	err := s.doGet(tkt, stream)
	s.observe("DoGet", start, err)
	return ToGRPCStatus(err)
}

func (s *Server) doGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	t, err := ParseTicket(tkt.GetTicket())
	if err != nil {
		return err
	}

	ctx := stream.Context()
	s.logger.Debug().
		Str("request_id", uuid.NewString()).
		Str("kind", t.Kind).
		Str("token", t.Token).
		Int("k", t.K).
		Msg("DoGet called")

	switch t.Kind {
	case TicketLookup:
		vec, err := s.engine.Vector(t.Token)
		if err != nil {
			return err
		}
		return s.writeVectors(stream, []string{t.Token}, [][]float32{vec})
	case TicketVocabulary:
		return s.writeTokens(stream, s.engine.Tokens())
	}

	req, err := t.Request()
	if err != nil {
		return err
	}
	matches, err := s.run(ctx, req)
	if err != nil {
		return err
	}
	return s.writeMatches(stream, matches)
}

func (s *Server) run(ctx context.Context, req query.Request) ([]core.Match, error) {
	switch req.Kind {
	case core.KindToken:
		return s.querier.ByToken(ctx, req.Token, req.K, req.ExcludeSelf)
	case core.KindAnalogy:
		return s.querier.Analogy(ctx, req.Positive, req.Negative, req.K)
	default:
		return s.querier.ByVector(ctx, req.Vector, req.K)
	}
}

// DoAction handles the stats action.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	start := time.Now()
	err := s.doAction(action, stream)
	s.observe("DoAction", start, err)
	return ToGRPCStatus(err)
}

func (s *Server) doAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	if action == nil {
		return status.Error(codes.InvalidArgument, "action is required")
	}
	switch action.Type {
	case ActionStats:
		body, err := json.Marshal(s.Stats())
		if err != nil {
			return status.Errorf(codes.Internal, "failed to serialize stats: %v", err)
		}
		return stream.Send(&flight.Result{Body: body})
	default:
		return status.Errorf(codes.Unimplemented, "unknown action: %s", action.Type)
	}
}

// ListActions advertises the supported actions.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	return stream.Send(&flight.ActionType{
		Type:        ActionStats,
		Description: "vocabulary size, dimension, index backend and cache occupancy",
	})
}

// Stats snapshots the served index.
func (s *Server) Stats() Stats {
	st := Stats{
		VocabularySize: s.engine.Len(),
		Dimension:      s.engine.Dimension(),
		Backend:        string(s.engine.Backend()),
		Metric:         string(s.engine.Metric()),
	}
	if s.cached != nil {
		st.CacheEntries = s.cached.Len()
	}
	return st
}

func (s *Server) writeMatches(stream flight.FlightService_DoGetServer, matches []core.Match) error {
	w := flight.NewRecordWriter(stream, ipc.WithSchema(MatchSchema))
	defer func() { _ = w.Close() }()

	b := array.NewRecordBuilder(s.mem, MatchSchema)
	defer b.Release()
	tokens := b.Field(0).(*array.StringBuilder)
	scores := b.Field(1).(*array.Float32Builder)

	tokens.Reserve(len(matches))
	scores.Reserve(len(matches))
	for _, m := range matches {
		tokens.Append(m.Token)
		scores.Append(m.Score)
	}
	return writeBatch(w, b)
}

func (s *Server) writeVectors(stream flight.FlightService_DoGetServer, tokens []string, vectors [][]float32) error {
	w := flight.NewRecordWriter(stream, ipc.WithSchema(VectorSchema))
	defer func() { _ = w.Close() }()

	b := array.NewRecordBuilder(s.mem, VectorSchema)
	defer b.Release()
	tb := b.Field(0).(*array.StringBuilder)
	lb := b.Field(1).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Float32Builder)

	for i, tok := range tokens {
		tb.Append(tok)
		lb.Append(true)
		vb.AppendValues(vectors[i], nil)
	}
	return writeBatch(w, b)
}

func (s *Server) writeTokens(stream flight.FlightService_DoGetServer, tokens []string) error {
	w := flight.NewRecordWriter(stream, ipc.WithSchema(TokenSchema))
	defer func() { _ = w.Close() }()

	b := array.NewRecordBuilder(s.mem, TokenSchema)
	defer b.Release()
	tb := b.Field(0).(*array.StringBuilder)

	for _, span := range newChunkStrategy(1024, 65536, 2.0).spans(len(tokens)) {
		if err := stream.Context().Err(); err != nil {
			return err
		}
		tb.AppendValues(tokens[span[0]:span[1]], nil)
		if err := writeBatch(w, b); err != nil {
			return err
		}
	}
	return nil
}

func writeBatch(w *flight.Writer, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()
	if err := w.Write(rec); err != nil {
		return status.Errorf(codes.Internal, "failed to write arrow batch: %v", err)
	}
	return nil
}

func (s *Server) observe(method string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		s.logger.Debug().Str("method", method).Err(err).Msg("Flight request failed")
	}
	metrics.FlightOperationsTotal.WithLabelValues(method, result).Inc()
	metrics.FlightDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
