package features

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// Apply writes one provider's feature block onto the snapshot. Collect calls
// it under a lock, so providers never touch the snapshot concurrently.
type Apply func(*models.FeatureSnapshot)

// Provider supplies one independently-computed feature block. Fetch is the
// only place in the pipeline allowed to block on I/O.
type Provider interface {
	// Name identifies the provider in logs
	Name() string

	// Fetch gathers the block; the returned Apply attaches it to a snapshot
	Fetch(ctx context.Context, symbol string) (Apply, error)
}

// Collector fans requests out to all registered providers.
type Collector struct {
	providers []Provider
}

// NewCollector builds a collector over the given providers.
func NewCollector(providers ...Provider) *Collector {
	return &Collector{providers: providers}
}

// Collect fetches every provider concurrently under a per-provider timeout
// and assembles whatever arrived into a snapshot. A provider that errors or
// times out contributes nothing — its block stays absent; the request itself
// never fails.
func (c *Collector) Collect(ctx context.Context, symbol, instrumentClass string, cfg *config.Config) *models.FeatureSnapshot {
	snap := &models.FeatureSnapshot{
		Symbol:          symbol,
		InstrumentClass: instrumentClass,
		CollectedAt:     time.Now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range c.providers {
		p := p
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, cfg.Request.ProviderTimeout)
			defer cancel()

			apply, err := p.Fetch(pctx, symbol)
			if err != nil {
				log.Warn().
					Err(err).
					Str("provider", p.Name()).
					Str("symbol", symbol).
					Msg("feature provider failed, block treated as absent")
				return nil
			}
			if apply != nil {
				mu.Lock()
				apply(snap)
				mu.Unlock()
			}
			return nil
		})
	}

	// Providers swallow their own errors, so this only waits.
	_ = g.Wait()
	return snap
}
