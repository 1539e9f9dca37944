package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// CreateOptions is the full set of parameters UpdateService's S1 ("Build
// create-options") assembles before S6's rolling swap.
type CreateOptions struct {
	Name   string
	Image  string
	Env    []string
	Labels map[string]string
	Network string
}

// Engine adapts the Docker Engine API client to the container lifecycle
// operations the job state machines need (spec.md §4.4, §4.5, §4.7).
type Engine struct {
	cli     *client.Client
	timeout func() context.Context
}

// NewEngine wraps an already-constructed Docker client.
func NewEngine(cli *client.Client) *Engine {
	return &Engine{cli: cli}
}

// PullImage pulls ref, reading the progress stream to completion and
// discarding it. Pull progress is not logged and is not returned to the
// caller.
func (e *Engine) PullImage(ctx context.Context, ref string) error {
	rc, err := e.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pull %s: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("docker: pull %s: stream: %w", ref, err)
	}
	return nil
}

// Create creates (but does not start) a new container per opts, attached
// to the configured network.
func (e *Engine) Create(ctx context.Context, opts CreateOptions) (string, error) {
	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image:  opts.Image,
		Env:    opts.Env,
		Labels: opts.Labels,
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode(opts.Network),
	}, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("docker: create %s: %w", opts.Name, err)
	}
	return resp.ID, nil
}

// Start starts an existing container.
func (e *Engine) Start(ctx context.Context, id string) error {
	if err := e.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("docker: start %s: %w", id, err)
	}
	return nil
}

// Stop stops a running container. "Not running" is swallowed, per
// spec.md §7's idempotent stop/delete semantics.
func (e *Engine) Stop(ctx context.Context, id string) error {
	if err := e.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("docker: stop %s: %w", id, err)
	}
	return nil
}

// Delete removes a container by id. Not-found is swallowed.
func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("docker: delete %s: %w", id, err)
	}
	return nil
}

// IP returns the container's address on the given network.
func (e *Engine) IP(ctx context.Context, id, network string) (string, error) {
	info, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("docker: inspect %s: %w", id, err)
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("docker: %s has no network settings", id)
	}
	net, ok := info.NetworkSettings.Networks[network]
	if !ok {
		return "", fmt.Errorf("docker: %s is not attached to network %q", id, network)
	}
	return net.IPAddress, nil
}

// ExposedPort returns one of the image's exposed ports, used by the
// Traefik load-balancer label (spec.md §6). For an image exposing exactly
// one port that port is returned; when several are exposed, which one is
// returned is not defined (the ports are read from an unordered map).
// Returns 0 when the image exposes none.
func (e *Engine) ExposedPort(ctx context.Context, image string) (int, error) {
	info, _, err := e.cli.ImageInspectWithRaw(ctx, image)
	if err != nil {
		return 0, fmt.Errorf("docker: inspect image %s: %w", image, err)
	}
	if info.Config == nil {
		return 0, nil
	}
	for portProto := range info.Config.ExposedPorts {
		port, err := portProto.Int()
		if err != nil {
			continue
		}
		return port, nil
	}
	return 0, nil
}

// Events streams the local container event feed, filtered to
// type=container, scope=local (spec.md §4.7).
func (e *Engine) Events(ctx context.Context) (<-chan events.Message, <-chan error) {
	f := filters.NewArgs()
	f.Add("type", "container")
	f.Add("scope", "local")
	return e.cli.Events(ctx, types.EventsOptions{Filters: f})
}
