// Package jobs implements the three job variants — PlanUpdate,
// UpdateService, DeleteService — described in spec.md §4.2, §4.4, §4.5.
package jobs

import (
	"github.com/WaffleHacks/wafflemaker/internal/config"
	"github.com/WaffleHacks/wafflemaker/internal/dnspublisher"
	"github.com/WaffleHacks/wafflemaker/internal/docker"
	"github.com/WaffleHacks/wafflemaker/internal/gitworker"
	"github.com/WaffleHacks/wafflemaker/internal/jobqueue"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/WaffleHacks/wafflemaker/internal/store"
	"github.com/WaffleHacks/wafflemaker/internal/vault"
	"github.com/rs/zerolog"
)

// Deps bundles every collaborator a job needs. One instance is shared by
// every job dispatched onto the queue.
type Deps struct {
	Registry  *service.Registry
	Store     *store.Store
	Vault     *vault.Client
	Leases    *leases.Registry
	DNS       *dnspublisher.Client
	Notify    *notifier.Fanout
	Engine    *docker.Engine
	Git       *gitworker.Worker
	Queue     *jobqueue.Queue
	Log       zerolog.Logger
	Network   string
	DefaultDomain string
	Dependencies map[string]config.DependencyCfg
}
