package leases

import (
	"context"
	"time"

	"github.com/WaffleHacks/wafflemaker/internal/metrics"
	"github.com/rs/zerolog"
)

// Renewer issues a fresh lease for an existing lease ID, per spec.md
// §4.6. Implemented by *vault.Client.
type Renewer interface {
	RenewLease(ctx context.Context, leaseID string) error
}

// RunRenewLoop ticks at interval; for each (container_id, lease) pair,
// if now - updated_at >= lease_percent * ttl, it renews and advances
// updated_at. Terminates when stop is closed — within one tick, per
// Testable Property #6.
func RunRenewLoop(ctx context.Context, registry *Registry, renewer Renewer, interval time.Duration, leasePercent float64, stop <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			renewDuePass(ctx, registry, renewer, leasePercent, log)
		}
	}
}

func renewDuePass(ctx context.Context, registry *Registry, renewer Renewer, leasePercent float64, log zerolog.Logger) {
	now := time.Now().Unix()
	registry.forEachForRenewal(func(containerID string, _ int, lease *Lease) {
		threshold := int64(float64(lease.TTLSeconds) * leasePercent)
		if now-lease.UpdatedAtUnix < threshold {
			return
		}
		if err := renewer.RenewLease(ctx, lease.ID); err != nil {
			log.Warn().Err(err).Str("lease_id", lease.ID).Str("container_id", containerID).Msg("lease renewal failed")
			metrics.LeaseRenewals.WithLabelValues("failure").Inc()
			return
		}
		lease.UpdatedAtUnix = now
		metrics.LeaseRenewals.WithLabelValues("success").Inc()
	})
}
