package strategy

import (
	"sort"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// Strategy is one catalog entry: a pure scoring function from features to a
// candidate. Evaluate must be total — missing inputs degrade the score to
// zero, they never produce an error.
type Strategy interface {
	// Name returns the catalog name of the strategy
	Name() string

	// Evaluate scores the strategy against the snapshot
	Evaluate(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) models.StrategyCandidate
}

// Catalog is the ordered strategy registry. Declaration order doubles as the
// tie-break priority, so selection stays deterministic.
type Catalog struct {
	strategies []Strategy
}

// NewCatalog builds the default catalog in its fixed priority order.
func NewCatalog() *Catalog {
	return &Catalog{
		strategies: []Strategy{
			&InsideBarTrap{},
			&BreakoutContinuation{},
			&PostNewsReaction{},
			&ReversionScalp{},
		},
	}
}

// Names lists catalog entries in priority order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Score evaluates every catalog entry and returns all candidates ordered by
// score descending, ties broken by catalog priority. Entries are never
// omitted: a strategy with no usable inputs contributes a zero-score
// candidate so the gate can still report the best available score.
func (c *Catalog) Score(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) []models.StrategyCandidate {
	candidates := make([]models.StrategyCandidate, 0, len(c.strategies))
	for _, s := range c.strategies {
		cand := s.Evaluate(snap, reg, cfg)
		cand.Name = s.Name()
		cand.Score = models.Clamp100(cand.Score)
		cand.Confidence = models.Clamp100(cand.Confidence)
		candidates = append(candidates, cand)
	}

	// Stable sort keeps catalog order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// insufficientData is the zero candidate emitted when a strategy's
// prerequisite features are entirely absent.
func insufficientData(direction models.Direction) models.StrategyCandidate {
	return models.StrategyCandidate{
		Score:      0,
		Confidence: 0,
		Direction:  direction,
		Reasoning:  []string{"insufficient data"},
	}
}

// executionTimeframe picks the timeframe a strategy computes levels on: the
// first configured timeframe that is actually present in the snapshot.
func executionTimeframe(snap *models.FeatureSnapshot, cfg *config.Config) (string, *models.TimeframeTechnicals) {
	if snap.Technicals == nil {
		return "", nil
	}
	for _, tf := range cfg.MarketData.Timeframes {
		if t, ok := snap.Technicals.Timeframes[tf]; ok {
			return tf, &t
		}
	}
	// Snapshot carries timeframes the config does not know; take any, but
	// deterministically.
	keys := make([]string, 0, len(snap.Technicals.Timeframes))
	for k := range snap.Technicals.Timeframes {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", nil
	}
	sort.Strings(keys)
	t := snap.Technicals.Timeframes[keys[0]]
	return keys[0], &t
}

// levelsFromStop derives the take-profit from entry and stop using the
// configured risk-reward multiple. Long when stop is below entry.
func levelsFromStop(entry, stop, rrMultiple float64) (e, sl, tp *float64) {
	risk := entry - stop
	target := entry + risk*rrMultiple
	return models.Float64Ptr(entry), models.Float64Ptr(stop), models.Float64Ptr(target)
}
