package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/WaffleHacks/wafflemaker/internal/config"
	"github.com/WaffleHacks/wafflemaker/internal/dnspublisher"
	"github.com/WaffleHacks/wafflemaker/internal/docker"
	"github.com/WaffleHacks/wafflemaker/internal/gitworker"
	"github.com/WaffleHacks/wafflemaker/internal/httpapi"
	"github.com/WaffleHacks/wafflemaker/internal/jobqueue"
	"github.com/WaffleHacks/wafflemaker/internal/jobs"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/logging"
	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
	"github.com/WaffleHacks/wafflemaker/internal/store"
	"github.com/WaffleHacks/wafflemaker/internal/vault"
	"github.com/WaffleHacks/wafflemaker/internal/watcher"
	"github.com/spf13/cobra"
)

// runAgent wires every subsystem as explicit, constructed-once values
// (spec.md §9: "a faithful rewrite should use explicit construction at
// startup, passed to each subsystem by reference") and blocks until a
// shutdown signal is received. The webhook/management listener is bound
// only after every other subsystem has finished initializing, so no
// stub/noop engine is ever needed (spec.md §9).
func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Agent.Log)
	log.Info().Str("config", configPath).Msg("starting wafflemaker")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stopCh)
	}()

	// Vault: permission check is fatal at startup (spec.md §7).
	vaultClient := vault.New(cfg.Secrets.Address, cfg.Secrets.Token)
	if err := vaultClient.CheckPerms(ctx, vaultCapabilityPaths()); err != nil {
		return fmt.Errorf("vault permission check: %w", err)
	}

	// Docker: connection failure during initialization is fatal
	// (spec.md §7).
	dockerCli, err := docker.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("connect docker: %w", err)
	}
	defer dockerCli.Close()
	engine := docker.NewEngine(dockerCli)

	stateStore, err := store.Open(cfg.Deployment.StatePath)
	if err != nil {
		return fmt.Errorf("open name->id store: %w", err)
	}
	defer stateStore.Close()

	dnsClient, err := dnspublisher.New(cfg.DNS.KVURL, cfg.DNS.KeyPrefix, cfg.DNS.Zone)
	if err != nil {
		return fmt.Errorf("connect dns kv store: %w", err)
	}
	defer dnsClient.Close()

	sinks, err := buildSinks(cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("configure notifiers: %w", err)
	}
	fanout := notifier.New(log, sinks...)

	gitWorker := gitworker.Start(cfg.Git.CloneTo, log.With().Str("component", "gitworker").Logger())
	defer gitWorker.Shutdown()

	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", cfg.Git.Branch, cfg.Git.Branch)
	head, err := gitWorker.Sync(cfg.Git.Repository, refspec)
	if err != nil {
		return fmt.Errorf("initial git sync: %w", err)
	}
	log.Info().Str("commit", head).Msg("working copy synced")

	registry := service.NewRegistry()
	if err := service.LoadDirectory(gitWorker.CloneDir(), registry, log); err != nil {
		return fmt.Errorf("initial spec scan: %w", err)
	}
	log.Info().Int("services", len(registry.Names())).Msg("loaded service specs")

	leaseRegistry := leases.NewRegistry()
	queue := jobqueue.New()

	deps := &jobs.Deps{
		Registry:      registry,
		Store:         stateStore,
		Vault:         vaultClient,
		Leases:        leaseRegistry,
		DNS:           dnsClient,
		Notify:        fanout,
		Engine:        engine,
		Git:           gitWorker,
		Queue:         queue,
		Log:           log,
		Network:       cfg.Deployment.Network,
		DefaultDomain: cfg.DNS.Zone,
		Dependencies:  cfg.Dependencies,
	}

	pool := jobqueue.NewPool(queue, cfg.Agent.Workers, log.With().Str("component", "jobqueue").Logger())
	go pool.Run(ctx, stopCh)

	go vault.RunTokenRenewLoop(ctx, vaultClient, cfg.Secrets.TokenInterval(), stopCh, log.With().Str("component", "vault-renewer").Logger())
	go leases.RunRenewLoop(ctx, leaseRegistry, vaultClient, cfg.Secrets.LeaseInterval(), cfg.Secrets.LeasePercent, stopCh, log.With().Str("component", "lease-renewer").Logger())

	eventWatcher := watcher.New(engine, log.With().Str("component", "watcher").Logger())
	go eventWatcher.Run(ctx, stopCh)

	server := httpapi.New(deps, cfg, log.With().Str("component", "httpapi").Logger())
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: server.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.HTTP.Address).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown did not complete cleanly")
	}

	log.Info().Msg("wafflemaker stopped")
	return nil
}

// vaultCapabilityPaths are the Vault paths WaffleMaker's token must carry
// usable capabilities on, checked once at startup (spec.md §7: "Permission
// errors from Vault on startup: fatal with the offending path(s) logged").
func vaultCapabilityPaths() []string {
	return []string{
		"services/data/*",
		"aws/creds/*",
		"database/static-creds/*",
		"database/static-roles/*",
	}
}

func buildSinks(configs []config.NotifierConfig) ([]notifier.Sink, error) {
	sinks := make([]notifier.Sink, 0, len(configs))
	for _, n := range configs {
		switch n.Type {
		case "webhook":
			sinks = append(sinks, notifier.NewWebhookSink(n.Webhook))
		case "github":
			sink, err := notifier.NewGitHubStatusSink(n.AppID, n.InstallationID, n.KeyPath, n.Repository)
			if err != nil {
				return nil, fmt.Errorf("github notifier: %w", err)
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("unknown notifier type %q", n.Type)
		}
	}
	return sinks, nil
}
