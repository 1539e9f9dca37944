package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink receives every emitted event. A sink that cannot represent a
// variant (e.g. the commit-status sink seeing a service event) must skip
// silently rather than error (spec.md §4.8).
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

// Fanout dispatches each Notify call to every configured sink
// independently; a sink failure is logged and does not propagate
// (spec.md §4.8).
type Fanout struct {
	sinks []Sink
	log   zerolog.Logger
}

// New constructs a Fanout over the given sinks.
func New(log zerolog.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log}
}

// Notify sends event to every sink, logging (not propagating) individual
// failures.
func (f *Fanout) Notify(ctx context.Context, event Event) {
	for _, sink := range f.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			f.log.Warn().Err(err).Str("event_kind", string(event.Kind)).Msg("notifier sink failed")
		}
	}
}
