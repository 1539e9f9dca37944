package jobs

import (
	"context"

	"github.com/WaffleHacks/wafflemaker/internal/notifier"
	"github.com/WaffleHacks/wafflemaker/internal/service"
)

// DeleteService tears a service down, per spec.md §4.5.
type DeleteService struct {
	deps *Deps
	name service.Name
}

// NewDeleteService constructs the job.
func NewDeleteService(deps *Deps, name service.Name) *DeleteService {
	return &DeleteService{deps: deps, name: name}
}

func (j *DeleteService) Name() string { return "delete-service:" + j.name.Proper }

func (j *DeleteService) Run(ctx context.Context) {
	d := j.deps
	log := d.Log.With().Str("job", j.Name()).Logger()

	// Step 1: remove from registry; absent is a no-op success.
	if !d.Registry.Delete(j.name.Proper) {
		d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Success()))
		return
	}

	d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.InProgress()))

	// Step 3: read the name->id map.
	id, _, err := d.Store.Get(j.name.Proper)
	if err != nil {
		log.Debug().Err(err).Msg("no name->id entry, nothing to tear down")
		d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Success()))
		return
	}

	// Step 4: stop, swallowing "not running".
	if err := d.Engine.Stop(ctx, id); err != nil {
		log.Debug().Err(err).Str("container_id", id).Msg("stop failed")
	}

	// Step 5: delete the container and drop the name's sub-namespace.
	if err := d.Engine.Delete(ctx, id); err != nil {
		log.Error().Err(err).Msg("delete container failed")
		d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}
	if err := d.Store.Delete(j.name.Proper); err != nil {
		log.Error().Err(err).Msg("drop name->id entry failed")
		d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	// Step 6: revoke all leases for the id.
	for _, l := range d.Leases.RevokeAll(id) {
		if err := d.Vault.RevokeLease(ctx, l.ID); err != nil {
			log.Error().Err(err).Str("lease_id", l.ID).Msg("revoke lease failed")
			d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Failure(err.Error())))
			return
		}
	}

	// Step 7: unregister DNS.
	if err := d.DNS.Unregister(ctx, j.name.Domain); err != nil {
		log.Error().Err(err).Msg("dns unregister failed")
		d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Failure(err.Error())))
		return
	}

	// Step 8: best-effort database role delete, ignore not-found.
	if err := d.Vault.DeleteDatabaseRole(ctx, j.name.Sanitized); err != nil {
		log.Debug().Err(err).Msg("delete database role failed (best effort)")
	}

	// Step 9: done.
	d.Notify.Notify(ctx, notifier.ServiceDeleteEvent(j.name.Proper, notifier.Success()))
}
