package engine

import (
	"context"
	"time"

	"github.com/quantsignal/fusion/internal/features"
	"github.com/quantsignal/fusion/models"
)

// Analyze runs a full request: gather features under the configured deadline,
// then decide on whatever arrived. A deadline overrun degrades to a partial
// snapshot instead of an error — a decision is always producible, even if it
// is a wait.
func (e *Engine) Analyze(ctx context.Context, symbol, instrumentClass string, collector *features.Collector) models.Decision {
	cfg := e.store.Snapshot()

	e.logger.Debug().
		Str("stage", string(StageCollecting)).
		Str("symbol", symbol).
		Msg("pipeline")

	cctx, cancel := context.WithTimeout(ctx, cfg.Request.Deadline)
	defer cancel()

	snap := collector.Collect(cctx, symbol, instrumentClass, cfg)
	return e.Decide(snap, time.Now().UTC())
}
