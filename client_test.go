package ftsearch

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ftsearch/internal/db"
	dbRedis "github.com/kailas-cloud/ftsearch/internal/db/redis"
)

func newTestClient(t *testing.T, conn *fakeConn) *Client {
	t.Helper()
	c, err := NewWithConn("idx", conn)
	if err != nil {
		t.Fatalf("NewWithConn: %v", err)
	}
	return c
}

func TestNew_NoAddress(t *testing.T) {
	if _, err := New("idx"); err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestDial_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  DialConfig
	}{
		{"no address", DialConfig{Driver: DriverRedis}},
		{"empty address", DialConfig{Driver: DriverGoRedis, Addrs: []string{""}}},
		{"unknown driver", DialConfig{Driver: "memcached", Addrs: []string{"localhost:6379"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Dial(tt.cfg); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestDial_GoRedis(t *testing.T) {
	// go-redis connects lazily, so no server is needed.
	conn, err := Dial(DialConfig{Driver: DriverGoRedis, Addrs: []string{"127.0.0.1:1"}, PoolSize: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conn.Close()
}

func TestWithPoolSize(t *testing.T) {
	cfg := newClientConfig([]Option{WithGoRedis("h:1", "pw"), WithDB(2), WithPoolSize(8), WithPoolSize(0)})
	dc := cfg.dialConfig()
	if dc.PoolSize != 8 || dc.Driver != DriverGoRedis || dc.DB != 2 || dc.Password != "pw" {
		t.Errorf("unexpected dial config: %+v", dc)
	}
}

func TestNew_NoIndex(t *testing.T) {
	_, err := New("", WithRedis("localhost:6379", ""))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	if _, err := Dial(cfg.dialConfig()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := newClientConfig([]Option{
		WithGoRedis("localhost:6379", "secret"),
		WithUsername("default"),
		WithDB(2),
		WithReadinessTimeout(0),
	})
	if cfg.driver != DriverGoRedis {
		t.Errorf("expected goredis driver, got %q", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" || cfg.username != "default" || cfg.db != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.readinessTimeout != defaultReadinessTimeout {
		t.Errorf("non-positive timeout must keep default, got %v", cfg.readinessTimeout)
	}
}

func TestClient_CloseBorrowedConn(t *testing.T) {
	conn := newFakeConn()
	newTestClient(t, conn).Close()
	if conn.closed {
		t.Error("borrowed connection must not be closed")
	}
}

func TestCreateIndex(t *testing.T) {
	conn := newFakeConn().reply(db.OpCreate, "OK", nil)
	c := newTestClient(t, conn)

	err := c.CreateIndex(context.Background(),
		MustField(NewTextField("title", WithWeight(5))),
		MustField(NewNumericField("price", Sortable())),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := conn.lastCall()
	want := []string{"idx", "SCHEMA", "title", "TEXT", "WEIGHT", "5", "price", "NUMERIC", "SORTABLE"}
	if got.Name != "FT.CREATE" || !equalArgs(got.Args, want) {
		t.Errorf("unexpected command %s %v", got.Name, got.Args)
	}
}

func TestCreateIndex_Invalid(t *testing.T) {
	conn := newFakeConn()
	c := newTestClient(t, conn)
	ctx := context.Background()

	if err := c.CreateIndex(ctx); !errors.Is(err, ErrConfiguration) {
		t.Errorf("no fields: expected ErrConfiguration, got %v", err)
	}
	f := MustField(NewTextField("title"))
	if err := c.CreateIndex(ctx, f, f); !errors.Is(err, ErrConfiguration) {
		t.Errorf("duplicate: expected ErrConfiguration, got %v", err)
	}
	if err := c.CreateIndex(ctx, Field{}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero field: expected ErrConfiguration, got %v", err)
	}
	if len(conn.calls) != 0 {
		t.Errorf("expected no commands, got %d", len(conn.calls))
	}
}

func TestCreateIndex_RemoteError(t *testing.T) {
	conn := newFakeConn().reply(db.OpCreate, nil, &db.ServerError{Op: db.OpCreate, Message: "Index already exists"})
	c := newTestClient(t, conn)

	err := c.CreateIndex(context.Background(), MustField(NewTextField("title")))
	var rce *RemoteCommandError
	if !errors.As(err, &rce) {
		t.Fatalf("expected *RemoteCommandError, got %v", err)
	}
	if rce.Message != "Index already exists" || rce.Command != "FT.CREATE" {
		t.Errorf("unexpected error: %+v", rce)
	}
	if !errors.Is(err, ErrRemoteCommand) {
		t.Error("expected ErrRemoteCommand sentinel")
	}
}

func TestCreateIndex_UnexpectedReply(t *testing.T) {
	conn := newFakeConn().reply(db.OpCreate, int64(1), nil)
	c := newTestClient(t, conn)
	err := c.CreateIndex(context.Background(), MustField(NewTextField("title")))
	if !errors.Is(err, ErrRemoteCommand) {
		t.Fatalf("expected ErrRemoteCommand, got %v", err)
	}
	var rce *RemoteCommandError
	if !errors.As(err, &rce) || rce.Command != db.OpCreate || rce.Message != "1" {
		t.Errorf("unexpected remote error: %+v", rce)
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	transport := &db.Error{Op: db.OpDrop, Err: context.DeadlineExceeded}
	conn := newFakeConn().reply(db.OpDrop, nil, transport)
	c := newTestClient(t, conn)

	err := c.DropIndex(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if errors.Is(err, ErrRemoteCommand) {
		t.Error("transport failure must not look like a server reply")
	}
}

func TestAddDocument(t *testing.T) {
	conn := newFakeConn().reply(db.OpAdd, "OK", nil)
	c := newTestClient(t, conn)

	err := c.AddDocument(context.Background(), "doc1",
		[]FieldValue{{Name: "title", Value: "hello"}, {Name: "price", Value: 9.5}},
		WithScore(0.5), WithPayload(map[string]int{"rank": 1}), NoSave(), Partial(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"idx", "doc1", "0.5", "NOSAVE", "REPLACE", "PARTIAL",
		"PAYLOAD", `{"rank":1}`,
		"FIELDS", "title", "hello", "price", "9.5",
	}
	if got := conn.lastCall(); !equalArgs(got.Args, want) {
		t.Errorf("expected %v, got %v", want, got.Args)
	}
}

func TestAddDocument_Defaults(t *testing.T) {
	conn := newFakeConn().reply(db.OpAdd, "OK", nil)
	c := newTestClient(t, conn)

	if err := c.AddDocument(context.Background(), "d", FieldsFromMap(map[string]any{"b": 2, "a": "x"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"idx", "d", "1", "FIELDS", "a", "x", "b", "2"}
	if got := conn.lastCall(); !equalArgs(got.Args, want) {
		t.Errorf("expected %v, got %v", want, got.Args)
	}
}

func TestAddDocument_Invalid(t *testing.T) {
	conn := newFakeConn()
	c := newTestClient(t, conn)
	ctx := context.Background()
	fields := []FieldValue{{Name: "title", Value: "x"}}

	cases := map[string]error{
		"empty id":    c.AddDocument(ctx, "", fields),
		"no fields":   c.AddDocument(ctx, "d", nil),
		"bad score":   c.AddDocument(ctx, "d", fields, WithScore(2)),
		"nil value":   c.AddDocument(ctx, "d", []FieldValue{{Name: "t"}}),
		"dup field":   c.AddDocument(ctx, "d", []FieldValue{{Name: "t", Value: 1}, {Name: "t", Value: 2}}),
		"bad payload": c.AddDocument(ctx, "d", fields, WithPayload(make(chan int))),
	}
	for name, err := range cases {
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
	if len(conn.calls) != 0 {
		t.Errorf("expected no commands, got %d", len(conn.calls))
	}
}

func TestDeleteDocument(t *testing.T) {
	conn := newFakeConn().reply(db.OpDel, int64(1), nil)
	c := newTestClient(t, conn)

	ok, err := c.DeleteDocument(context.Background(), "doc1")
	if err != nil || !ok {
		t.Fatalf("expected deleted, got %v %v", ok, err)
	}
	if got := conn.lastCall(); !equalArgs(got.Args, []string{"idx", "doc1"}) {
		t.Errorf("unexpected args %v", got.Args)
	}

	conn.reply(db.OpDel, int64(0), nil)
	if ok, _ := c.DeleteDocument(context.Background(), "doc1"); ok {
		t.Error("expected not deleted")
	}
}

func TestIndexExists(t *testing.T) {
	conn := newFakeConn().reply(db.OpInfo, []any{"index_name", "idx"}, nil)
	c := newTestClient(t, conn)
	ctx := context.Background()

	if ok, err := c.IndexExists(ctx); err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}

	conn.reply(db.OpInfo, nil, &db.ServerError{Op: db.OpInfo, Message: "Unknown Index name"})
	if ok, err := c.IndexExists(ctx); err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}

	conn.reply(db.OpInfo, nil, &db.ServerError{Op: db.OpInfo, Message: "ERR wrong number of arguments"})
	if _, err := c.IndexExists(ctx); !errors.Is(err, ErrRemoteCommand) {
		t.Fatalf("expected ErrRemoteCommand, got %v", err)
	}
}

func TestExplain(t *testing.T) {
	conn := newFakeConn().reply(db.OpExplain, "UNION {\n  hello\n}\n", nil)
	c := newTestClient(t, conn)

	plan, err := c.Explain(context.Background(), NewQuery("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan == "" {
		t.Error("expected a plan")
	}
	if got := conn.lastCall(); !equalArgs(got.Args, []string{"idx", "hello"}) {
		t.Errorf("unexpected args %v", got.Args)
	}
}

func TestSearch(t *testing.T) {
	conn := newFakeConn().reply(db.OpSearch, []any{int64(1), "id1", []any{"title", "hello"}}, nil)
	c := newTestClient(t, conn)

	res, err := c.Search(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || res.Docs[0].Fields["title"] != "hello" {
		t.Errorf("unexpected result: %+v", res)
	}
	want := []string{"idx", "hello", "LIMIT", "0", "10"}
	if got := conn.lastCall(); got.Name != "FT.SEARCH" || !equalArgs(got.Args, want) {
		t.Errorf("unexpected command %s %v", got.Name, got.Args)
	}
}

func TestSearch_QueryValue(t *testing.T) {
	conn := newFakeConn().reply(db.OpSearch, []any{int64(0)}, nil)
	c := newTestClient(t, conn)

	q := NewQuery("x").Paging(5, 1)
	if _, err := c.Search(context.Background(), *q, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"idx", "x", "LIMIT", "5", "1"}
	if got := conn.lastCall(); !equalArgs(got.Args, want) {
		t.Errorf("expected %v, got %v", want, got.Args)
	}
}

func TestSearch_BadInput(t *testing.T) {
	conn := newFakeConn()
	c := newTestClient(t, conn)
	ctx := context.Background()

	var nilQuery *Query
	for name, q := range map[string]any{"int": 42, "nil query": nilQuery, "nil": nil} {
		if _, err := c.Search(ctx, q, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
	if _, err := c.Search(ctx, NewQuery("x").Paging(-1, 1), nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("invalid query: expected ErrConfiguration, got %v", err)
	}
	if len(conn.calls) != 0 {
		t.Errorf("expected no commands, got %d", len(conn.calls))
	}
}

func TestSearch_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	conn := newFakeConn().reply(db.OpSearch, []any{int64(0)}, nil)
	c, err := NewWithConn("idx", conn, WithPrometheus(reg))
	if err != nil {
		t.Fatalf("NewWithConn: %v", err)
	}
	if _, err := c.Search(context.Background(), "x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := testutil.ToFloat64(c.obs.metrics.commands.WithLabelValues("FT.SEARCH", "ok"))
	if got != 1 {
		t.Errorf("expected 1 search, got %v", got)
	}

	// A second client on the same registry reuses the collectors.
	c2, err := NewWithConn("other", conn, WithPrometheus(reg))
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if c2.obs.metrics.commands != c.obs.metrics.commands {
		t.Error("expected shared collector")
	}
}

// Exercises the full path through the rueidis driver.
func TestSearch_RueidisDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	rc := mock.NewClient(ctrl)

	rc.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "hello", "WITHPAYLOADS", "LIMIT", "0", "10")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisBlobString("doc1"),
			mock.RedisBlobString(`{"n":1}`),
			mock.RedisArray(mock.RedisBlobString("title"), mock.RedisBlobString("hello world")),
		)))

	c, err := NewWithConn("idx", dbRedis.NewStoreForTest(rc))
	if err != nil {
		t.Fatalf("NewWithConn: %v", err)
	}
	res, err := c.Search(context.Background(), NewQuery("hello").WithPayloads(), map[string]int{"title": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := res.Docs[0]
	if d.ID != "doc1" || string(d.Payload) != `{"n":1}` {
		t.Errorf("unexpected doc: %+v", d)
	}
	if got, want := d.Fields["title"], "<b>hello</b>..."; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSearch_RueidisServerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	rc := mock.NewClient(ctrl)

	rc.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "hello", "LIMIT", "0", "10")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	c, err := NewWithConn("idx", dbRedis.NewStoreForTest(rc))
	if err != nil {
		t.Fatalf("NewWithConn: %v", err)
	}
	_, err = c.Search(context.Background(), "hello", nil)
	var rce *RemoteCommandError
	if !errors.As(err, &rce) {
		t.Fatalf("expected *RemoteCommandError, got %v", err)
	}
	if rce.Message != "Unknown Index name" {
		t.Errorf("server text must be unmodified, got %q", rce.Message)
	}
}
