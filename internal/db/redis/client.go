package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ftsearch/internal/db"
)

// Compile-time check: Store implements db.Conn.
var _ db.Conn = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	PoolSize int // rueidis BlockingPoolSize; 0 keeps the default
}

// Store implements db.Conn via rueidis.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		BlockingPoolSize: cfg.PoolSize,
		DisableCache:     true,
		AlwaysRESP2:      true, // FT.SEARCH replies are decoded from the RESP2 flat array layout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Do sends a single command and decodes its reply.
func (s *Store) Do(ctx context.Context, c db.Command) (any, error) {
	return decodeResult(c.Name, s.client.Do(ctx, s.build(c)))
}

// DoMulti sends all commands in a single pipelined round trip.
func (s *Store) DoMulti(ctx context.Context, cmds ...db.Command) []db.Reply {
	if len(cmds) == 0 {
		return nil
	}

	built := make([]rueidis.Completed, len(cmds))
	for i, c := range cmds {
		built[i] = s.build(c)
	}

	results := s.client.DoMulti(ctx, built...)
	replies := make([]db.Reply, len(results))
	for i, res := range results {
		v, err := decodeResult(cmds[i].Name, res)
		replies[i] = db.Reply{Value: v, Err: err}
	}
	return replies
}

func (s *Store) build(c db.Command) rueidis.Completed {
	return s.client.B().Arbitrary(c.Name).Args(c.Args...).Build()
}

func decodeResult(op string, res rueidis.RedisResult) (any, error) {
	msg, err := res.ToMessage()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	v, err := toValue(&msg)
	if err != nil {
		return nil, classify(op, err)
	}
	return v, nil
}

// toValue converts a RESP2 message tree into plain Go values.
func toValue(m *rueidis.RedisMessage) (any, error) {
	if m.IsNil() {
		return nil, nil
	}
	if err := m.Error(); err != nil {
		return nil, err
	}

	switch {
	case m.IsInt64():
		return m.ToInt64()
	case m.IsString():
		return m.ToString()
	case m.IsArray():
		arr, err := m.ToArray()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(arr))
		for i := range arr {
			v, err := toValue(&arr[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return m.ToAny()
	}
}

// classify maps server error replies to db.ServerError and everything else to db.Error.
func classify(op string, err error) error {
	if re, ok := rueidis.IsRedisErr(err); ok {
		return &db.ServerError{Op: op, Message: re.Error()}
	}
	return &db.Error{Op: op, Err: err}
}
