package merge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pagemerge/internal/metrics"
	"github.com/local/pagemerge/internal/pages"
)

// Publisher copies a finished merge somewhere else (e.g. object storage) and
// returns where it went.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Job is one merge request.
type Job struct {
	Pages    []*pages.Descriptor
	Output   string
	Progress Progress
}

// Result is posted on Runner.Done when a merge finishes.
type Result struct {
	JobID      string
	Output     string
	Pages      int
	Err        error
	Location   string // set when a Publisher uploaded the output
	PublishErr error
	Duration   time.Duration
}

// Runner runs at most one merge at a time on its own goroutine and reports the
// outcome on a channel instead of calling back into its caller.
type Runner struct {
	exec *Executor
	pub  Publisher

	mu      sync.Mutex
	running bool
	done    chan Result
}

// NewRunner returns a runner; pub may be nil.
func NewRunner(exec *Executor, pub Publisher) *Runner {
	return &Runner{exec: exec, pub: pub, done: make(chan Result, 1)}
}

// Done delivers one Result per started merge.
func (r *Runner) Done() <-chan Result { return r.done }

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches job and returns its id, or ErrBusy if a merge is running.
// ctx bounds both the merge and the delivery of its Result: once ctx is done a
// Result nobody is waiting for is dropped rather than blocking the worker.
func (r *Runner) Start(ctx context.Context, job Job) (string, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	id := uuid.NewString()
	log.Info().Str("job_id", id).Str("output", job.Output).Int("pages", len(job.Pages)).Msg("merge started")
	go r.run(ctx, id, job)
	return id, nil
}

func (r *Runner) run(ctx context.Context, id string, job Job) {
	start := time.Now()
	n, err := r.exec.Merge(ctx, job.Pages, job.Output, job.Progress)
	res := Result{JobID: id, Output: job.Output, Pages: n, Err: err}
	if err == nil && r.pub != nil {
		res.Location, res.PublishErr = r.pub.Publish(ctx, job.Output)
		if res.PublishErr != nil {
			log.Error().Err(res.PublishErr).Str("job_id", id).Msg("publish merged pdf failed")
		}
	}
	res.Duration = time.Since(start)

	result := "success"
	if err != nil {
		result = KindOf(err).String()
		log.Error().Err(err).Str("job_id", id).Msg("merge failed")
	} else {
		log.Info().Str("job_id", id).Int("pages", n).Dur("took", res.Duration).Msg("merge finished")
	}
	metrics.ObserveMerge(result, n, res.Duration)

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	select {
	case r.done <- res:
	case <-ctx.Done():
		log.Warn().Str("job_id", id).Msg("merge result dropped; receiver gone")
	}
}
