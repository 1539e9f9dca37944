// Package jobqueue is the unbounded FIFO job queue and worker pool
// described in spec.md §4.1.
package jobqueue

import "context"

// Job is an opaque unit of deferred work. Jobs do not return values; they
// emit notifier events and log (spec.md §3).
type Job interface {
	Name() string
	Run(ctx context.Context)
}
