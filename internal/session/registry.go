package session

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Lister is the kind-agnostic view of a Store used by the registry.
type Lister interface {
	Kind() Kind
	List() []Summary
	Delete(id string) bool
	Reap(cutoff time.Time) int
}

// Registry aggregates the stores of every family for cross-kind listing and
// for the optional idle-session sweep.
type Registry struct {
	stores []Lister
}

// NewRegistry creates a registry over stores.
func NewRegistry(stores ...Lister) *Registry {
	return &Registry{stores: stores}
}

// List returns summaries across all stores, or only those of kind when kind
// is non-empty, ordered by creation time.
func (r *Registry) List(kind Kind) ([]Summary, error) {
	if kind != "" {
		if err := ValidateKind(kind); err != nil {
			return nil, Invalid("kind", "%s", err.Error())
		}
	}
	var out []Summary
	for _, st := range r.stores {
		if kind != "" && st.Kind() != kind {
			continue
		}
		out = append(out, st.List()...)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Reap deletes every session idle for longer than ttl and returns how many
// were removed.
func (r *Registry) Reap(ttl time.Duration) int {
	cutoff := timeNow().Add(-ttl)
	n := 0
	for _, st := range r.stores {
		n += st.Reap(cutoff)
	}
	return n
}

// StartReaper sweeps idle sessions every interval until ctx is cancelled.
// A non-positive ttl disables the sweep.
func (r *Registry) StartReaper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Reap(ttl); n > 0 {
					log.Info().Int("removed", n).Dur("ttl", ttl).Msg("reaped idle sessions")
				}
			}
		}
	}()
}
