package jobqueue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/WaffleHacks/wafflemaker/internal/metrics"
	"github.com/rs/zerolog"
)

// Pool runs N workers, each looping: pop a job, run it to completion,
// repeat. Workers run in parallel with no ordering guarantee between
// concurrently enqueued jobs (spec.md §4.1).
type Pool struct {
	queue *Queue
	n     int
	log   zerolog.Logger
}

// NewPool constructs a pool of n workers draining queue.
func NewPool(queue *Queue, n int, log zerolog.Logger) *Pool {
	return &Pool{queue: queue, n: n, log: log}
}

// Run starts all workers and blocks until stop is closed, at which point
// the queue is closed (unblocking every worker's Pop) and Run waits for
// in-flight jobs to finish running to completion before returning.
// In-flight jobs are never interrupted mid-run; only-queued jobs are
// abandoned (spec.md §4.1).
func (p *Pool) Run(ctx context.Context, stop <-chan struct{}) {
	var wg sync.WaitGroup
	wg.Add(p.n)

	for i := 0; i < p.n; i++ {
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, stop)
		}(i)
	}

	<-stop
	p.queue.Close()
	wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int, stop <-chan struct{}) {
	for {
		job, ok := p.queue.Pop()
		if !ok {
			return
		}
		select {
		case <-stop:
			return
		default:
		}
		p.log.Debug().Int("worker", id).Str("job", job.Name()).Msg("running job")

		kind, _, _ := strings.Cut(job.Name(), ":")

		start := time.Now()
		job.Run(ctx)

		metrics.JobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		metrics.JobsTotal.WithLabelValues(kind, "completed").Inc()
	}
}
