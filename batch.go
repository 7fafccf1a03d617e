package ftsearch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/ftsearch/internal/db"
)

// DefaultChunkSize is the number of FT.ADD commands pipelined per round trip.
const DefaultChunkSize = 1000

// BatchDoc is one document for BatchIndexer.AddDocuments.
type BatchDoc struct {
	ID     string
	Fields []FieldValue
	// Options are applied after the batch-wide options, e.g. WithScore or WithPayload.
	Options []AddOption
}

// BatchIndexer pipelines FT.ADD commands in chunks.
type BatchIndexer struct {
	client      *Client
	chunkSize   int
	concurrency int
	limiter     *rate.Limiter
}

// BatchOption configures a BatchIndexer.
type BatchOption func(*BatchIndexer)

// WithChunkSize sets how many commands go into one pipeline. Default: 1000.
func WithChunkSize(n int) BatchOption {
	return func(b *BatchIndexer) {
		if n > 0 {
			b.chunkSize = n
		}
	}
}

// WithConcurrency bounds how many chunks are in flight at once. By default every
// chunk is flushed at the same time.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchIndexer) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithFlushRate limits how many chunks are flushed per second.
func WithFlushRate(perSecond float64, burst int) BatchOption {
	return func(b *BatchIndexer) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// NewBatchIndexer creates a BatchIndexer writing through c.
func NewBatchIndexer(c *Client, opts ...BatchOption) *BatchIndexer {
	b := &BatchIndexer{
		client:    c,
		chunkSize: DefaultChunkSize,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// AddDocuments adds docs with FT.ADD, pipelining DefaultChunkSize commands per round
// trip. Every document is validated before anything is sent. The first failure is
// returned, tagged with the document id. A failed chunk does not cancel the others:
// every chunk is attempted and nothing is rolled back.
func (b *BatchIndexer) AddDocuments(ctx context.Context, docs []BatchDoc, opts ...AddOption) error {
	if len(docs) == 0 {
		return nil
	}

	cmds := make([]db.Command, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		all := make([]AddOption, 0, len(opts)+len(d.Options))
		all = append(all, opts...)
		all = append(all, d.Options...)
		args, err := buildAddArgs(b.client.index, d.ID, d.Fields, newAddConfig(all))
		if err != nil {
			return err
		}
		cmds = append(cmds, db.NewCommand(db.OpAdd, args...))
		ids = append(ids, d.ID)
	}

	var g errgroup.Group
	if b.concurrency > 0 {
		g.SetLimit(b.concurrency)
	}
	for start := 0; start < len(cmds); start += b.chunkSize {
		end := min(start+b.chunkSize, len(cmds))
		g.Go(func() error {
			if b.limiter != nil {
				if err := b.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			return b.flush(ctx, cmds[start:end], ids[start:end])
		})
	}
	return g.Wait()
}

func (b *BatchIndexer) flush(ctx context.Context, cmds []db.Command, ids []string) error {
	start := time.Now()
	replies := b.client.conn.DoMulti(ctx, cmds...)
	if len(replies) != len(cmds) {
		err := malformedf("pipeline returned %d replies for %d commands", len(replies), len(cmds))
		b.client.obs.observe(b.client.index, db.OpAdd, start, err)
		b.client.obs.batchDocuments(0, len(cmds))
		return err
	}

	var firstErr error
	ok := 0
	for i, r := range replies {
		err := mapError(r.Err)
		if err == nil {
			err = expectOK(db.OpAdd, r.Value)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("document %q: %w", ids[i], err)
			}
			continue
		}
		ok++
	}
	b.client.obs.observe(b.client.index, db.OpAdd, start, firstErr)
	b.client.obs.batchDocuments(ok, len(cmds)-ok)
	return firstErr
}
