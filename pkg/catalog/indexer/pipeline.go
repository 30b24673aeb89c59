// Package indexer reconciles the search index with the primary store after
// each mutation. Mutations enqueue small jobs carrying only a content id; a
// worker pool consumes them later, re-reads the current aggregate and
// replaces the whole search document. Because upsert always re-reads, jobs
// for the same id may run in any order and still converge on the store's
// latest committed state.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tendant/content-catalog/pkg/catalog"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 2
	defaultAttempts  = 3
	defaultBackoff   = 250 * time.Millisecond
)

// Pipeline is a bounded in-process job queue plus worker pool. It implements
// catalog.JobQueue for the producer side.
//
// Back-pressure policy: when the queue is full Enqueue drops the job and
// returns ErrQueueFull instead of blocking the mutation path. The index is
// eventually consistent either way and a later mutation re-enqueues the id;
// blocking a committed mutation on index housekeeping would be worse.
type Pipeline struct {
	jobs     chan catalog.Job
	repo     catalog.Repository
	index    catalog.SearchIndex
	workers  int
	attempts int
	backoff  time.Duration
	logger   *slog.Logger

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.jobs = make(chan catalog.Job, n)
		}
	}
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithAttempts sets how many times a failing job is tried before giving up.
func WithAttempts(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts.
func WithBackoff(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.backoff = d
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline. The repository must be the worker pool's own
// gateway (its own connection pool/session), never shared with the request
// path.
func New(repo catalog.Repository, index catalog.SearchIndex, opts ...PipelineOption) (*Pipeline, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if index == nil {
		return nil, fmt.Errorf("search index is required")
	}
	p := &Pipeline{
		jobs:     make(chan catalog.Job, defaultQueueSize),
		repo:     repo,
		index:    index,
		workers:  defaultWorkers,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enqueue implements catalog.JobQueue. It never blocks: a full queue is
// reported as ErrQueueFull and the job is dropped.
func (p *Pipeline) Enqueue(ctx context.Context, job catalog.Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return catalog.ErrQueueFull
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-p.jobs:
					p.process(ctx, job)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited after their context was
// cancelled.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// RunPending synchronously drains the jobs queued so far and returns how
// many were processed. It lets tests (and one-shot reindex tools) execute
// the asynchronous pipeline at a deterministic point instead of asserting
// immediate search visibility.
func (p *Pipeline) RunPending(ctx context.Context) int {
	processed := 0
	for {
		select {
		case job := <-p.jobs:
			p.process(ctx, job)
			processed++
		default:
			return processed
		}
	}
}

// QueueDepth reports the number of jobs waiting.
func (p *Pipeline) QueueDepth() int {
	return len(p.jobs)
}

// process runs a job with bounded retries. Delivery is at-least-once within
// the process lifetime; a job that exhausts its attempts is logged and
// dropped, to be corrected by the next mutation of the same id.
func (p *Pipeline) process(ctx context.Context, job catalog.Job) {
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = p.handle(ctx, job); err == nil {
			return
		}
		if attempt < p.attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
	}
	p.logger.Error("index sync job failed",
		"kind", job.Kind, "content_id", job.ContentID, "error", err)
}

func (p *Pipeline) handle(ctx context.Context, job catalog.Job) error {
	switch job.Kind {
	case catalog.JobDelete:
		// Adapters treat an already-absent document as success.
		return p.index.Delete(ctx, job.ContentID)

	case catalog.JobUpsert:
		// Re-read the aggregate as of now, not as of enqueue time: when two
		// updates race, whichever job runs last indexes the latest commit.
		content, err := p.repo.GetContent(ctx, job.ContentID)
		if errors.Is(err, catalog.ErrContentNotFound) {
			// Row deleted between enqueue and execution; the delete job for
			// it removes the document.
			return nil
		}
		if err != nil {
			return err
		}

		media, err := p.repo.GetMediaByContentID(ctx, job.ContentID)
		if err != nil && !errors.Is(err, catalog.ErrMediaNotFound) {
			return err
		}
		return p.index.Upsert(ctx, catalog.BuildSearchDocument(content, media))

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}
