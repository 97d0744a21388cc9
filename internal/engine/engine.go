package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/internal/gate"
	"github.com/quantsignal/fusion/internal/regime"
	"github.com/quantsignal/fusion/internal/risk"
	"github.com/quantsignal/fusion/internal/strategy"
	"github.com/quantsignal/fusion/models"
)

// Stage names the pipeline phases, logged per request for observability.
type Stage string

const (
	StageCollecting  Stage = "COLLECTING_FEATURES"
	StageClassifying Stage = "CLASSIFYING_VOLATILITY"
	StageScoring     Stage = "SCORING_STRATEGIES"
	StageGating      Stage = "GATING"
	StageAggregating Stage = "AGGREGATING"
	StageDone        Stage = "DONE"
)

// Engine turns one feature snapshot into one decision. It holds only
// read-only shared state (catalog, config store), so concurrent requests
// need no locking.
type Engine struct {
	catalog *strategy.Catalog
	store   *config.Store
	logger  zerolog.Logger
}

// New builds an engine over the given config store.
func New(store *config.Store) *Engine {
	return &Engine{
		catalog: strategy.NewCatalog(),
		store:   store,
		logger:  log.With().Str("component", "engine").Logger(),
	}
}

// Decide runs the pure pipeline stages on an already-collected snapshot.
// It always returns a well-formed decision: every stage degrades to a
// conservative default instead of failing, and "wait" is a successful
// outcome, not an error.
func (e *Engine) Decide(snap *models.FeatureSnapshot, now time.Time) models.Decision {
	cfg := e.store.Snapshot()
	lg := e.logger.With().Str("symbol", snap.Symbol).Logger()

	lg.Debug().Str("stage", string(StageClassifying)).Msg("pipeline")
	reg := regime.Classify(snap, cfg)

	lg.Debug().Str("stage", string(StageScoring)).Msg("pipeline")
	candidates := e.catalog.Score(snap, reg, cfg)

	lg.Debug().Str("stage", string(StageGating)).Msg("pipeline")
	gated := gate.Apply(candidates, reg, snap, now, cfg)

	lg.Debug().Str("stage", string(StageAggregating)).Msg("pipeline")
	decision := e.aggregate(snap, reg, gated, now, cfg, lg)

	lg.Info().
		Str("stage", string(StageDone)).
		Str("direction", string(decision.Direction)).
		Float64("confidence", decision.Confidence).
		Int("wait_reasons", len(decision.WaitReasons)).
		Msg("decision produced")
	return decision
}

// aggregate merges the gated strategy result with macro and structure bias
// into the final decision record.
func (e *Engine) aggregate(
	snap *models.FeatureSnapshot,
	reg models.VolatilityRegime,
	gated gate.Result,
	now time.Time,
	cfg *config.Config,
	lg zerolog.Logger,
) models.Decision {
	decision := models.Decision{
		Symbol:      snap.Symbol,
		GeneratedAt: now,
		Direction:   models.DirectionNone,
		Regime:      reg,
		Guidance:    risk.GuidanceFor(reg, cfg),
	}

	if snap.Macro != nil {
		decision.MacroBias = snap.Macro.BiasScore
	}
	if snap.Structure != nil {
		decision.StructureLabels = snap.Structure.TrendLabels
	}

	if gated.Selected == nil {
		decision.WaitReasons = gated.WaitReasons
		decision.Confidence = 0
		if price := lastKnownPrice(snap, cfg); price != nil {
			decision.Entry = price
		}
		return decision
	}

	sel := gated.Selected
	decision.Direction = sel.Direction
	decision.SelectedStrategy = models.StringPtr(sel.Name)
	decision.Confidence = sel.Confidence
	decision.Factors = sel.Reasoning
	decision.Entry = sel.Entry
	decision.StopLoss = sel.StopLoss
	decision.TakeProfit = sel.TakeProfit

	// Macro disagreement dampens confidence but never flips the direction.
	if snap.Macro != nil && opposes(snap.Macro.BiasScore, sel.Direction, cfg.Macro.DisagreeThreshold) {
		decision.Confidence *= cfg.Macro.DampeningFactor
		decision.Factors = append(decision.Factors, "macro bias disagrees, confidence reduced")
	}
	decision.Confidence = models.Clamp100(decision.Confidence)

	e.enforceLevelInvariant(&decision, lg)

	if decision.Entry != nil && decision.StopLoss != nil && decision.TakeProfit != nil {
		riskSize := math.Abs(*decision.Entry - *decision.StopLoss)
		if riskSize > 0 {
			rr := math.Abs(*decision.TakeProfit-*decision.Entry) / riskSize
			decision.RiskRewardRatio = models.Float64Ptr(rr)
		}
	}
	return decision
}

// enforceLevelInvariant forces entry/stop/target to be jointly present or
// jointly absent. A partial level set is an internal inconsistency: it gets
// logged and stripped rather than propagated.
func (e *Engine) enforceLevelInvariant(d *models.Decision, lg zerolog.Logger) {
	present := 0
	if d.Entry != nil {
		present++
	}
	if d.StopLoss != nil {
		present++
	}
	if d.TakeProfit != nil {
		present++
	}
	if present == 0 || present == 3 {
		return
	}
	lg.Warn().
		Str("symbol", d.Symbol).
		Int("levels_present", present).
		Msg("partial level set after aggregation, stripping levels")
	d.Entry, d.StopLoss, d.TakeProfit = nil, nil, nil
	d.RiskRewardRatio = nil
}

// opposes reports whether the macro bias meaningfully contradicts the trade
// direction.
func opposes(bias float64, dir models.Direction, threshold float64) bool {
	switch dir {
	case models.DirectionBuy:
		return bias <= -threshold
	case models.DirectionSell:
		return bias >= threshold
	default:
		return false
	}
}

// lastKnownPrice falls back from the snapshot's spot price to the execution
// timeframe's last close.
func lastKnownPrice(snap *models.FeatureSnapshot, cfg *config.Config) *float64 {
	if snap.LastPrice != nil {
		return snap.LastPrice
	}
	if snap.Technicals != nil {
		for _, tf := range cfg.MarketData.Timeframes {
			if t, ok := snap.Technicals.Timeframes[tf]; ok && t.LastClose > 0 {
				return models.Float64Ptr(t.LastClose)
			}
		}
	}
	return nil
}
