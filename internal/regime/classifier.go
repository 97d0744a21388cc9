package regime

import (
	"math"
	"sort"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// Boundaries between volatility states, in ATR-ratio terms. An ATR ratio
// below stableMax with a quiet ADX is a stable market; above volatileMin the
// market is expanding.
const (
	stableMax   = 0.9
	volatileMin = 1.3

	maxConfidence = 99.0
)

// Classify derives the volatility regime from the per-timeframe ATR ratios
// and ADX readings in the snapshot. It never fails: timeframes without data
// are dropped and the weights renormalized; with no timeframes at all the
// regime is UNKNOWN with zero confidence, which downstream consumers must
// treat as the most conservative case.
func Classify(snap *models.FeatureSnapshot, cfg *config.Config) models.VolatilityRegime {
	if snap == nil || snap.Technicals == nil || len(snap.Technicals.Timeframes) == 0 {
		return models.VolatilityRegime{State: models.RegimeUnknown}
	}

	// Sum in sorted key order: float addition is order-dependent, and map
	// iteration order would make identical snapshots classify differently.
	keys := make([]string, 0, len(snap.Technicals.Timeframes))
	for tf := range snap.Technicals.Timeframes {
		keys = append(keys, tf)
	}
	sort.Strings(keys)

	var weightTotal, atrSum, adxSum float64
	for _, tf := range keys {
		t := snap.Technicals.Timeframes[tf]
		if t.ATRRatio <= 0 {
			continue
		}
		w, ok := cfg.Regime.TimeframeWeights[tf]
		if !ok {
			w = 1.0
		}
		weightTotal += w
		atrSum += t.ATRRatio * w
		adxSum += t.ADX * w
	}
	if weightTotal == 0 {
		return models.VolatilityRegime{State: models.RegimeUnknown}
	}

	atrRatio := atrSum / weightTotal
	adx := adxSum / weightTotal

	var state models.RegimeState
	switch {
	case atrRatio >= volatileMin:
		state = models.RegimeVolatile
	case atrRatio >= stableMax:
		state = models.RegimeTransitional
	case adx <= cfg.Regime.StableADXMax:
		state = models.RegimeStable
	default:
		// Quiet range but directional pressure building.
		state = models.RegimeTransitional
	}

	return models.VolatilityRegime{
		State:      state,
		ATRRatio:   atrRatio,
		ADX:        adx,
		Confidence: confidenceFor(atrRatio),
	}
}

// confidenceFor grows with distance from the nearest state boundary: readings
// deep inside a band are trustworthy, readings on an edge are not.
func confidenceFor(atrRatio float64) float64 {
	dist := math.Min(math.Abs(atrRatio-stableMax), math.Abs(atrRatio-volatileMin))
	conf := 40 + dist*150
	if conf > maxConfidence {
		return maxConfidence
	}
	return conf
}
