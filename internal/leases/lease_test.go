package leases

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndRevoke(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", Lease{ID: "l1", TTLSeconds: 60, UpdatedAtUnix: 100})
	r.Register("c1", Lease{ID: "l2", TTLSeconds: 60, UpdatedAtUnix: 100})

	snap := r.Snapshot()
	require.Len(t, snap["c1"], 2)

	revoked := r.RevokeAll("c1")
	assert.Len(t, revoked, 2)

	assert.Empty(t, r.Snapshot()["c1"])
}

func TestRegistry_Drop(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", Lease{ID: "l1", TTLSeconds: 60})
	r.Register("c1", Lease{ID: "l2", TTLSeconds: 60})

	r.Drop("c1", "l1")

	snap := r.Snapshot()
	require.Len(t, snap["c1"], 1)
	assert.Equal(t, "l2", snap["c1"][0].ID)
}

type fakeRenewer struct {
	renewed []string
	fail    bool
}

func (f *fakeRenewer) RenewLease(_ context.Context, leaseID string) error {
	if f.fail {
		return assert.AnError
	}
	f.renewed = append(f.renewed, leaseID)
	return nil
}

func TestRenewDuePass(t *testing.T) {
	r := NewRegistry()
	now := time.Now().Unix()
	// due: updated 50s ago, ttl 60, percent 0.7 -> threshold 42
	r.Register("c1", Lease{ID: "due", TTLSeconds: 60, UpdatedAtUnix: now - 50})
	// not due: updated 10s ago
	r.Register("c1", Lease{ID: "fresh", TTLSeconds: 60, UpdatedAtUnix: now - 10})

	renewer := &fakeRenewer{}
	renewDuePass(context.Background(), r, renewer, 0.7, zerolog.Nop())

	assert.ElementsMatch(t, []string{"due"}, renewer.renewed)

	snap := r.Snapshot()
	for _, l := range snap["c1"] {
		if l.ID == "due" {
			assert.InDelta(t, now, l.UpdatedAtUnix, 2)
		}
		if l.ID == "fresh" {
			assert.Equal(t, now-10, l.UpdatedAtUnix)
		}
	}
}

func TestRenewDuePass_FailureLeavesUpdatedAt(t *testing.T) {
	r := NewRegistry()
	now := time.Now().Unix()
	r.Register("c1", Lease{ID: "due", TTLSeconds: 60, UpdatedAtUnix: now - 50})

	renewer := &fakeRenewer{fail: true}
	renewDuePass(context.Background(), r, renewer, 0.7, zerolog.Nop())

	snap := r.Snapshot()
	assert.Equal(t, now-50, snap["c1"][0].UpdatedAtUnix)
}
