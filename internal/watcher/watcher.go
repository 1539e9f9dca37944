// Package watcher implements the container-event watcher of spec.md §4.7:
// it restarts containers that exit unexpectedly.
package watcher

import (
	"context"
	"strconv"

	"github.com/WaffleHacks/wafflemaker/internal/metrics"
	"github.com/docker/docker/api/types/events"
	"github.com/rs/zerolog"
)

// EventSource streams the engine's container event feed. internal/docker.Engine
// satisfies this.
type EventSource interface {
	Events(ctx context.Context) (<-chan events.Message, <-chan error)
}

// Starter restarts a container by id. internal/docker.Engine satisfies this.
type Starter interface {
	Start(ctx context.Context, id string) error
}

// Watcher tracks each container's last action and restarts any container
// whose most recent die event reports a non-zero exit code, unless the
// container was explicitly killed (spec.md §4.7).
type Watcher struct {
	engine interface {
		EventSource
		Starter
	}
	log zerolog.Logger

	lastAction map[string]string
}

// New constructs a Watcher over engine.
func New(engine interface {
	EventSource
	Starter
}, log zerolog.Logger) *Watcher {
	return &Watcher{engine: engine, log: log, lastAction: make(map[string]string)}
}

// Run subscribes to the event stream and processes events until ctx is
// canceled or stop is closed.
func (w *Watcher) Run(ctx context.Context, stop <-chan struct{}) {
	msgs, errs := w.engine.Events(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.log.Error().Err(err).Msg("container event stream error")
			}
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, msg events.Message) {
	id := msg.Actor.ID
	if id == "" {
		return
	}

	previous := w.lastAction[id]
	w.lastAction[id] = msg.Action

	if msg.Action != "die" || previous == "kill" {
		return
	}

	exitCode := exitCodeOf(msg)
	if exitCode == 0 {
		return
	}

	w.log.Warn().Str("container_id", id).Int("exit_code", exitCode).Msg("restarting unexpectedly exited container")
	if err := w.engine.Start(ctx, id); err != nil {
		w.log.Error().Err(err).Str("container_id", id).Msg("restart failed")
		return
	}
	metrics.ContainerRestarts.Inc()
}

func exitCodeOf(msg events.Message) int {
	raw, ok := msg.Actor.Attributes["exitCode"]
	if !ok {
		return 0
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return code
}
