package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/WaffleHacks/wafflemaker/internal/config"
	"github.com/WaffleHacks/wafflemaker/internal/docker"
	"github.com/WaffleHacks/wafflemaker/internal/leases"
	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
)

// UpdateService is the rolling-update state machine of spec.md §4.4.
type UpdateService struct {
	deps *Deps
	spec service.Spec
	name service.Name
}

// NewUpdateService constructs the job. name is the service's canonical
// name forms, already derived from its spec file's path.
func NewUpdateService(deps *Deps, spec service.Spec, name service.Name) *UpdateService {
	return &UpdateService{deps: deps, spec: spec, name: name}
}

func (j *UpdateService) Name() string { return "update-service:" + j.name.Proper }

func (j *UpdateService) Run(ctx context.Context) {
	d := j.deps
	log := d.Log.With().Str("job", j.Name()).Logger()

	// S0 Begin.
	d.Registry.Put(j.name.Proper, j.spec)
	d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.InProgress()))

	// S1 Build create-options.
	containerName := fmt.Sprintf("%s-%s", j.name.Sanitized, randomSuffix())
	env := make([]string, 0, len(j.spec.Env))
	for k, v := range j.spec.Env {
		env = append(env, k+"="+v)
	}

	// S2 Acquire static secrets.
	bundle, err := d.Vault.FetchStatic(ctx, j.name.Proper)
	if err != nil {
		log.Error().Err(err).Msg("fetch static secrets failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	var dynamicLeases []leases.Lease
	dynamicCache := make(map[string][2]string) // role -> [access, secret]

	for _, slotName := range j.spec.SortedSecretNames() {
		slot := j.spec.Secrets[slotName]
		value, lease, err := j.resolveSecret(ctx, slotName, slot, bundle, dynamicCache)
		if err != nil {
			log.Error().Err(err).Str("slot", slotName).Msg("resolve secret failed")
			d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
			return
		}
		if lease != nil {
			dynamicLeases = append(dynamicLeases, *lease)
		}
		env = append(env, strings.ToUpper(slotName)+"="+value)
	}

	// S3 Resolve dependencies.
	for kind, binding := range j.spec.Dependencies {
		cfg, known := d.Dependencies[kind]
		if !known {
			continue
		}
		resolved := binding.Resolve(cfg.DefaultEnv, kind)
		if !resolved.Present {
			continue
		}
		value, lease, err := j.resolveDependency(ctx, kind, resolved, cfg)
		if err != nil {
			log.Error().Err(err).Str("dependency", kind).Msg("resolve dependency failed")
			d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
			return
		}
		if lease != nil {
			dynamicLeases = append(dynamicLeases, *lease)
		}
		env = append(env, resolved.EnvVar+"="+value)
	}

	labels := map[string]string{}
	if j.spec.Web.Enabled {
		host := j.spec.Web.Domain
		if host == "" {
			host = j.name.Domain + "." + d.DefaultDomain
		}
		exposedPort, _ := d.Engine.ExposedPort(ctx, j.spec.ImageRef())
		labels = docker.BuildWebLabels(j.name.Sanitized, host, j.spec.Web.Path, exposedPort)
	}

	// S4 Pull image.
	if err := d.Engine.PullImage(ctx, j.spec.ImageRef()); err != nil {
		log.Error().Err(err).Msg("pull image failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	// S5 Look up previous id.
	prevID, _, lookupErr := d.Store.Get(j.name.Proper)
	hasPrev := lookupErr == nil && prevID != ""

	// S6 Rolling swap.
	opts := docker.CreateOptions{
		Name:    containerName,
		Image:   j.spec.ImageRef(),
		Env:     env,
		Labels:  labels,
		Network: d.Network,
	}

	newID, err := d.Engine.Create(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("create container failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	if hasPrev {
		if err := d.Engine.Stop(ctx, prevID); err != nil {
			log.Warn().Err(err).Str("container_id", prevID).Msg("stop previous container failed")
		}
	}

	startErr := d.Engine.Start(ctx, newID)
	if startErr != nil {
		if hasPrev {
			if err := d.Engine.Start(ctx, prevID); err != nil {
				log.Error().Err(err).Str("container_id", prevID).Msg("best-effort restart of previous container failed")
			}
		}
		_ = d.Engine.Delete(ctx, newID)
		for _, l := range dynamicLeases {
			_ = d.Vault.RevokeLease(ctx, l.ID)
		}
		log.Error().Err(startErr).Msg("start new container failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(startErr.Error())))
		return
	}

	// S7 Commit new generation.
	for _, l := range dynamicLeases {
		d.Leases.Register(newID, l)
	}
	if hasPrev {
		_ = d.Engine.Delete(ctx, prevID)
		for _, l := range d.Leases.RevokeAll(prevID) {
			_ = d.Vault.RevokeLease(ctx, l.ID)
		}
	}
	if err := d.Store.Put(j.name.Proper, newID, j.spec.ImageRef()); err != nil {
		log.Error().Err(err).Msg("persist name->id map failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	// S8 Publish DNS.
	if j.spec.Web.Enabled {
		ip, err := d.Engine.IP(ctx, newID, d.Network)
		if err != nil {
			log.Error().Err(err).Msg("lookup container ip failed")
			d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
			return
		}
		if err := d.DNS.Register(ctx, j.name.Domain, ip, 60); err != nil {
			log.Error().Err(err).Msg("publish dns record failed")
			d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
			return
		}
	}

	// S9 Persist static secrets.
	if err := d.Vault.PutStatic(ctx, j.name.Proper, bundle); err != nil {
		log.Error().Err(err).Msg("persist static secrets failed")
		d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	// S10 Done.
	d.Notify.Notify(ctx, notifier.ServiceUpdateEvent(j.name.Proper, notifier.Success()))
}

// resolveSecret implements spec.md §4.4 S2's per-slot-kind resolution.
func (j *UpdateService) resolveSecret(ctx context.Context, slotName string, slot service.Secret, bundle map[string]string, dynamicCache map[string][2]string) (string, *leases.Lease, error) {
	switch slot.Kind {
	case service.SlotLoad:
		value, ok := bundle[slotName]
		if !ok {
			j.deps.Log.Warn().Str("slot", slotName).Msg("load secret missing from stored bundle")
		}
		return value, nil, nil

	case service.SlotGenerate:
		if !slot.Regenerate {
			if existing, ok := bundle[slotName]; ok {
				return existing, nil, nil
			}
		}
		r := newStreamCipherRand()
		value, err := generateSecretValue(r, slot.Format, slot.Length)
		if err != nil {
			return "", nil, err
		}
		bundle[slotName] = value
		return value, nil, nil

	case service.SlotDynamic:
		if cached, ok := dynamicCache[slot.Role]; ok {
			return pickPart(cached, slot.Part), nil, nil
		}
		creds, err := j.deps.Vault.AWSCredentials(ctx, slot.Role)
		if err != nil {
			return "", nil, fmt.Errorf("dynamic secret %q: %w", slotName, err)
		}
		dynamicCache[slot.Role] = [2]string{creds.AccessKey, creds.SecretKey}
		lease := leases.Lease{ID: creds.LeaseID, TTLSeconds: creds.LeaseTTL, UpdatedAtUnix: time.Now().Unix()}
		return pickPart(dynamicCache[slot.Role], slot.Part), &lease, nil

	default:
		return "", nil, fmt.Errorf("unknown secret slot kind %q", slot.Kind)
	}
}

func pickPart(pair [2]string, part service.Part) string {
	if part == service.PartSecret {
		return pair[1]
	}
	return pair[0]
}

// resolveDependency implements spec.md §4.4 S3.
func (j *UpdateService) resolveDependency(ctx context.Context, kind string, resolved service.Resolved, cfg config.DependencyCfg) (string, *leases.Lease, error) {
	if template := cfg.ConnectionTemplate; template != "" {
		role := resolved.Role
		if role == "" {
			role = kind
		}

		roles, err := j.deps.Vault.ListDatabaseRoles(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("list database roles: %w", err)
		}
		if !contains(roles, role) {
			if err := j.deps.Vault.CreateDatabaseRole(ctx, role); err != nil {
				return "", nil, fmt.Errorf("create database role %q: %w", role, err)
			}
		}

		creds, err := j.deps.Vault.DatabaseCredentials(ctx, role)
		if err != nil {
			return "", nil, fmt.Errorf("database credentials for role %q: %w", role, err)
		}

		value := template
		value = strings.ReplaceAll(value, "{{username}}", creds.AccessKey)
		value = strings.ReplaceAll(value, "{{password}}", creds.SecretKey)
		value = strings.ReplaceAll(value, "{{database}}", role)

		lease := leases.Lease{ID: creds.LeaseID, TTLSeconds: creds.LeaseTTL, UpdatedAtUnix: time.Now().Unix()}
		return value, &lease, nil
	}

	return cfg.Value, nil, nil
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func randomSuffix() string {
	r := newStreamCipherRand()
	suffix, _ := generateSecretValue(r, service.FormatAlphanumeric, 8)
	return strings.ToLower(suffix)
}
