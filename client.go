// Package ftsearch is a thin client for the RediSearch FT.* commands: it builds
// schemas, queries and filters into argument lists and decodes search replies into
// documents.
package ftsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ftsearch/internal/db"
	dbGoRedis "github.com/kailas-cloud/ftsearch/internal/db/goredis"
	dbRedis "github.com/kailas-cloud/ftsearch/internal/db/redis"
)

// Conn is a connected handle that can send raw commands. The drivers under
// internal/db implement it; tests and callers with their own connection can too.
type Conn = db.Conn

// Command is a named command with its positional arguments.
type Command = db.Command

// Reply is one pipelined reply.
type Reply = db.Reply

// Client dispatches FT.* commands for a single index.
type Client struct {
	index string
	conn  Conn
	owned bool
	obs   *observer
}

// New connects to the server and returns a Client bound to indexName.
func New(indexName string, opts ...Option) (*Client, error) {
	if indexName == "" {
		return nil, configErrorf("index name is required")
	}
	cfg := newClientConfig(opts)
	if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
		return nil, errors.New("ftsearch: database address required (use WithRedis or WithGoRedis)")
	}

	conn, err := Dial(cfg.dialConfig())
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := conn.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ftsearch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{index: indexName, conn: conn, owned: true, obs: obs}, nil
}

// NewWithConn binds indexName to an already connected handle. The handle stays
// owned by the caller: Close does not close it. Driver options are ignored.
func NewWithConn(indexName string, conn Conn, opts ...Option) (*Client, error) {
	if indexName == "" {
		return nil, configErrorf("index name is required")
	}
	if conn == nil {
		return nil, configErrorf("connection is required")
	}
	cfg := newClientConfig(opts)
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{index: indexName, conn: conn, obs: obs}, nil
}

// DialConfig selects and configures a database driver for Dial.
type DialConfig struct {
	Driver   string // DriverRedis (default) or DriverGoRedis
	Addrs    []string
	Username string
	Password string
	DB       int
	// PoolSize caps pooled connections: the go-redis pool size, or the rueidis
	// blocking pool size. 0 keeps the driver default.
	PoolSize int
}

// Dial opens a connection with the configured driver. The caller owns the result.
func Dial(cfg DialConfig) (Conn, error) {
	if len(cfg.Addrs) == 0 || cfg.Addrs[0] == "" {
		return nil, configErrorf("database address is required")
	}
	switch cfg.Driver {
	case DriverRedis, "":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("ftsearch: create redis store: %w", err)
		}
		return s, nil
	case DriverGoRedis:
		s, err := dbGoRedis.NewStore(dbGoRedis.Config{
			Addr:     cfg.Addrs[0],
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("ftsearch: create go-redis store: %w", err)
		}
		return s, nil
	default:
		return nil, configErrorf("unknown driver %q", cfg.Driver)
	}
}

// IndexName returns the index this client operates on.
func (c *Client) IndexName() string { return c.index }

// Close releases the connection if the client opened it.
func (c *Client) Close() {
	if c.owned && c.conn != nil {
		c.conn.Close()
	}
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.conn.Ping(ctx)
	c.obs.observe(c.index, db.OpPing, start, err)
	return err
}

// CreateIndex sends FT.CREATE with the given schema.
func (c *Client) CreateIndex(ctx context.Context, fields ...Field) error {
	if len(fields) == 0 {
		return configErrorf("at least one field is required")
	}
	args := []string{c.index, "SCHEMA"}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name() == "" {
			return configErrorf("field name is required")
		}
		if _, dup := seen[f.Name()]; dup {
			return configErrorf("duplicate field %q", f.Name())
		}
		seen[f.Name()] = struct{}{}
		args = append(args, f.Args()...)
	}

	reply, err := c.do(ctx, db.OpCreate, args...)
	if err != nil {
		return err
	}
	return expectOK(db.OpCreate, reply)
}

// AddDocument sends FT.ADD for a single document.
func (c *Client) AddDocument(ctx context.Context, id string, fields []FieldValue, opts ...AddOption) error {
	args, err := buildAddArgs(c.index, id, fields, newAddConfig(opts))
	if err != nil {
		return err
	}
	reply, err := c.do(ctx, db.OpAdd, args...)
	if err != nil {
		return err
	}
	return expectOK(db.OpAdd, reply)
}

// DeleteDocument sends FT.DEL. It reports whether the document existed.
func (c *Client) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, configErrorf("document id is required")
	}
	reply, err := c.do(ctx, db.OpDel, c.index, id)
	if err != nil {
		return false, err
	}
	n, err := toInt64(reply)
	if err != nil {
		return false, malformedf("%s: %v", db.OpDel, err)
	}
	return n == 1, nil
}

// DropIndex sends FT.DROP, removing the index and the documents it holds.
func (c *Client) DropIndex(ctx context.Context) error {
	reply, err := c.do(ctx, db.OpDrop, c.index)
	if err != nil {
		return err
	}
	return expectOK(db.OpDrop, reply)
}

// IndexExists reports whether FT.INFO knows the index.
func (c *Client) IndexExists(ctx context.Context) (bool, error) {
	_, err := c.do(ctx, db.OpInfo, c.index)
	if err == nil {
		return true, nil
	}
	if IsUnknownIndex(err) {
		return false, nil
	}
	return false, err
}

// Search runs FT.SEARCH. query is a raw query string, a *Query or a Query; anything
// else is rejected before any I/O. snippetSizes maps field names to the maximum number
// of runes kept in that field; pass nil to return fields untouched.
func (c *Client) Search(ctx context.Context, query any, snippetSizes map[string]int) (*Result, error) {
	q, err := toQuery(query)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	args := append([]string{c.index}, q.Args()...)
	start := time.Now()
	reply, err := c.do(ctx, db.OpSearch, args...)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	return ParseResult(reply, q, elapsed, snippetSizes)
}

// Explain returns the server's execution plan for a query.
func (c *Client) Explain(ctx context.Context, query any) (string, error) {
	q, err := toQuery(query)
	if err != nil {
		return "", err
	}
	reply, err := c.do(ctx, db.OpExplain, c.index, q.QueryString())
	if err != nil {
		return "", err
	}
	s, ok := reply.(string)
	if !ok {
		return "", malformedf("%s: expected string reply, got %T", db.OpExplain, reply)
	}
	return s, nil
}

func toQuery(query any) (*Query, error) {
	switch q := query.(type) {
	case string:
		return NewQuery(q), nil
	case *Query:
		if q == nil {
			return nil, configErrorf("query is nil")
		}
		return q, nil
	case Query:
		return &q, nil
	default:
		return nil, configErrorf("query must be a string or *Query, got %T", query)
	}
}

func (c *Client) do(ctx context.Context, op string, args ...string) (any, error) {
	start := time.Now()
	reply, err := c.conn.Do(ctx, db.NewCommand(op, args...))
	err = mapError(err)
	c.obs.observe(c.index, op, start, err)
	return reply, err
}

// mapError turns server error replies into RemoteCommandError. Transport errors pass
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *db.ServerError
	if errors.As(err, &se) {
		return &RemoteCommandError{Command: se.Op, Message: se.Message}
	}
	return err
}

func expectOK(op string, reply any) error {
	if s, ok := reply.(string); ok && s == "OK" {
		return nil
	}
	return &RemoteCommandError{Command: op, Message: fmt.Sprint(reply)}
}
