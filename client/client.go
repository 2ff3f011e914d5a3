// Package client queries a wordscope Flight server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/23skdu/wordscope/internal/core"
	wsflight "github.com/23skdu/wordscope/internal/flight"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is safe for concurrent use.
type Client struct {
	conn    flight.Client
	timeout time.Duration
}

// Dial connects to addr. Extra options are appended to the insecure
// transport defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(1024 * 1024 * 100), // 100MB
		),
	}, opts...)

	conn, err := flight.NewClientWithMiddleware(addr, nil, nil, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an existing Flight client.
func New(conn flight.Client) *Client {
	return &Client{conn: conn, timeout: 30 * time.Second}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Similar returns the nearest tokens to token.
func (c *Client) Similar(ctx context.Context, token string, k int, excludeSelf bool) ([]core.Match, error) {
	return c.matches(ctx, &wsflight.Ticket{Kind: wsflight.TicketSimilar, Token: token, K: k, ExcludeSelf: excludeSelf}, token)
}

// Analogy returns the nearest tokens to sum(positive) - sum(negative).
func (c *Client) Analogy(ctx context.Context, positive, negative []string, k int) ([]core.Match, error) {
	return c.matches(ctx, &wsflight.Ticket{Kind: wsflight.TicketAnalogy, Positive: positive, Negative: negative, K: k}, "")
}

// ByVector returns the nearest tokens to vec.
func (c *Client) ByVector(ctx context.Context, vec []float32, k int) ([]core.Match, error) {
	return c.matches(ctx, &wsflight.Ticket{Kind: wsflight.TicketVector, Vector: vec, K: k}, "")
}

// Lookup returns the raw vector of token.
func (c *Client) Lookup(ctx context.Context, token string) ([]float32, error) {
	var out []float32
	err := c.doGet(ctx, &wsflight.Ticket{Kind: wsflight.TicketLookup, Token: token}, token, func(rdr *flight.Reader) error {
		for rdr.Next() {
			rec := rdr.Record()
			lists, ok := rec.Column(1).(*array.List)
			if !ok {
				return errors.New("unexpected lookup schema")
			}
			values, ok := lists.ListValues().(*array.Float32)
			if !ok || rec.NumRows() == 0 {
				return errors.New("unexpected lookup schema")
			}
			start, end := lists.ValueOffsets(0)
			out = append([]float32(nil), values.Float32Values()[start:end]...)
		}
		return rdr.Err()
	})
	return out, err
}

// Vocabulary lists every served token in load order.
func (c *Client) Vocabulary(ctx context.Context) ([]string, error) {
	var out []string
	err := c.doGet(ctx, &wsflight.Ticket{Kind: wsflight.TicketVocabulary}, "", func(rdr *flight.Reader) error {
		for rdr.Next() {
			col, ok := rdr.Record().Column(0).(*array.String)
			if !ok {
				return errors.New("unexpected vocabulary schema")
			}
			for i := 0; i < col.Len(); i++ {
				out = append(out, col.Value(i))
			}
		}
		return rdr.Err()
	})
	return out, err
}

// Stats fetches index statistics.
func (c *Client) Stats(ctx context.Context) (*wsflight.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.conn.DoAction(ctx, &flight.Action{Type: wsflight.ActionStats})
	if err != nil {
		return nil, fromStatus(err, "")
	}
	res, err := stream.Recv()
	if err != nil {
		return nil, fromStatus(err, "")
	}
	var st wsflight.Stats
	if err := json.Unmarshal(res.Body, &st); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &st, nil
}

func (c *Client) matches(ctx context.Context, t *wsflight.Ticket, token string) ([]core.Match, error) {
	var out []core.Match
	err := c.doGet(ctx, t, token, func(rdr *flight.Reader) error {
		for rdr.Next() {
			rec := rdr.Record()
			tokens, ok := rec.Column(0).(*array.String)
			if !ok {
				return errors.New("unexpected result schema")
			}
			scores, ok := rec.Column(1).(*array.Float32)
			if !ok {
				return errors.New("unexpected result schema")
			}
			for i := 0; i < int(rec.NumRows()); i++ {
				out = append(out, core.Match{Token: tokens.Value(i), Score: scores.Value(i)})
			}
		}
		return rdr.Err()
	})
	return out, err
}

func (c *Client) doGet(ctx context.Context, t *wsflight.Ticket, token string, read func(*flight.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	stream, err := c.conn.DoGet(ctx, &flight.Ticket{Ticket: body})
	if err != nil {
		return fromStatus(err, token)
	}
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fromStatus(err, token)
	}
	defer rdr.Release()

	if err := read(rdr); err != nil && !errors.Is(err, io.EOF) {
		return fromStatus(err, token)
	}
	return nil
}
