// Package goredis implements db.Conn on top of go-redis/v9.
package goredis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/ftsearch/internal/db"
)

// Compile-time check: Store implements db.Conn.
var _ db.Conn = (*Store)(nil)

// Config holds connection parameters for a go-redis store.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	PoolSize int
}

// Store wraps a go-redis client.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a go-redis backed store. The connection is lazy; use WaitForReady
// to block until the server answers.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2, // FT.SEARCH replies are decoded from the RESP2 flat array layout
	})
	return &Store{rdb: rdb}, nil
}

// Ping sends a PING to the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	_ = s.rdb.Close()
}

// WaitForReady polls Ping until the server responds or timeout expires.
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

// Do sends a single command.
func (s *Store) Do(ctx context.Context, c db.Command) (any, error) {
	v, err := s.rdb.Do(ctx, commandArgs(c)...).Result()
	return normalize(c.Name, v, err)
}

// DoMulti queues all commands into one pipeline and executes it as a unit.
func (s *Store) DoMulti(ctx context.Context, cmds ...db.Command) []db.Reply {
	if len(cmds) == 0 {
		return nil
	}

	pipe := s.rdb.Pipeline()
	queued := make([]*redis.Cmd, len(cmds))
	for i, c := range cmds {
		queued[i] = pipe.Do(ctx, commandArgs(c)...)
	}
	// Per-command errors are kept on each queued command.
	_, _ = pipe.Exec(ctx)

	replies := make([]db.Reply, len(queued))
	for i, q := range queued {
		v, err := normalize(cmds[i].Name, q.Val(), q.Err())
		replies[i] = db.Reply{Value: v, Err: err}
	}
	return replies
}

func commandArgs(c db.Command) []any {
	args := make([]any, 0, len(c.Args)+1)
	args = append(args, c.Name)
	for _, a := range c.Args {
		args = append(args, a)
	}
	return args
}

// normalize maps go-redis results onto the db.Commander reply contract.
func normalize(op string, v any, err error) (any, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return normalizeValue(op, v)
}

func normalizeValue(op string, v any) (any, error) {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalizeValue(op, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case error:
		return nil, classify(op, t)
	case int:
		return int64(t), nil
	default:
		return t, nil
	}
}

func classify(op string, err error) error {
	var re redis.Error
	if errors.As(err, &re) {
		return &db.ServerError{Op: op, Message: re.Error()}
	}
	return &db.Error{Op: op, Err: err}
}
