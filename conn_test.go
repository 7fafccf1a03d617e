package ftsearch

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/ftsearch/internal/db"
)

// fakeConn records commands and answers from a script keyed by command name.
type fakeConn struct {
	mu      sync.Mutex
	calls   []db.Command
	batches [][]db.Command
	replies map[string]db.Reply
	// multi, when set, answers DoMulti instead of replies.
	multi  func(cmds []db.Command) []db.Reply
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{replies: make(map[string]db.Reply)}
}

func (f *fakeConn) reply(name string, v any, err error) *fakeConn {
	f.replies[name] = db.Reply{Value: v, Err: err}
	return f
}

func (f *fakeConn) Ping(context.Context) error { return nil }

func (f *fakeConn) Close() { f.closed = true }

func (f *fakeConn) WaitForReady(context.Context, time.Duration) error { return nil }

func (f *fakeConn) Do(_ context.Context, cmd db.Command) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	r := f.replies[cmd.Name]
	return r.Value, r.Err
}

func (f *fakeConn) DoMulti(_ context.Context, cmds ...db.Command) []db.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, cmds)
	if f.multi != nil {
		return f.multi(cmds)
	}
	out := make([]db.Reply, len(cmds))
	for i, c := range cmds {
		out[i] = f.replies[c.Name]
	}
	return out
}

func (f *fakeConn) lastCall() db.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return db.Command{}
	}
	return f.calls[len(f.calls)-1]
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
