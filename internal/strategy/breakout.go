package strategy

import (
	"fmt"
	"strings"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// BreakoutContinuation rewards a confirmed structure break: a BOS backed by
// volume and a trending ADX. A break without ATR expansion is suspect and
// gets penalized instead of vetoed.
type BreakoutContinuation struct{}

func (s *BreakoutContinuation) Name() string { return "breakout-continuation" }

func (s *BreakoutContinuation) Evaluate(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) models.StrategyCandidate {
	_, tech := executionTimeframe(snap, cfg)
	if tech == nil {
		return insufficientData(models.DirectionNone)
	}
	if tech.StructureBreak == "" {
		cand := insufficientData(models.DirectionNone)
		cand.Reasoning = []string{"no structure break on execution timeframe"}
		return cand
	}

	p := cfg.Strategies.Breakout
	var score float64
	var reasons []string

	direction := models.DirectionBuy
	if strings.HasSuffix(tech.StructureBreak, "_DOWN") {
		direction = models.DirectionSell
	}

	// Break of structure in trend direction is the core signal; a change of
	// character gets partial credit.
	if strings.HasPrefix(tech.StructureBreak, "BOS") {
		score += p.StructureWeight
		reasons = append(reasons, "break of structure: "+tech.StructureBreak)
	} else {
		score += p.StructureWeight * 0.6
		reasons = append(reasons, "change of character: "+tech.StructureBreak)
	}

	// Volume confirmation on the breaking candle.
	if tech.BreakoutVolume >= p.MinBreakoutVolume {
		score += p.VolumeWeight
		reasons = append(reasons, fmt.Sprintf("breakout volume %.1fx average", tech.BreakoutVolume))
	} else if tech.BreakoutVolume > 1.0 {
		score += p.VolumeWeight * 0.5
		reasons = append(reasons, "moderate breakout volume")
	} else {
		reasons = append(reasons, "breakout volume unconvincing")
	}

	// Trend strength behind the move.
	if tech.ADX >= p.MinADX {
		aligned := (direction == models.DirectionBuy && tech.PlusDI > tech.MinusDI) ||
			(direction == models.DirectionSell && tech.MinusDI > tech.PlusDI)
		if aligned {
			score += p.TrendWeight
			reasons = append(reasons, fmt.Sprintf("ADX %.0f with aligned DI", tech.ADX))
		} else {
			score += p.TrendWeight * 0.4
			reasons = append(reasons, "ADX strong but DI mixed")
		}
	}

	// A break that does not expand volatility is usually a fakeout.
	if tech.ATRExpansion > 0 && tech.ATRExpansion < p.WeakExpansionMax {
		score -= p.WeakExpansionPenalty
		reasons = append(reasons, fmt.Sprintf("weak ATR expansion %.2f", tech.ATRExpansion))
	}
	if score < 0 {
		score = 0
	}

	entry := tech.LastClose
	var stop float64
	if direction == models.DirectionBuy {
		stop = entry - tech.ATR*1.5
	} else {
		stop = entry + tech.ATR*1.5
	}

	cand := models.StrategyCandidate{
		Score:      score,
		Confidence: score * dataCoverage(snap),
		Direction:  direction,
		Reasoning:  reasons,
	}
	if tech.ATR > 0 && entry > 0 {
		cand.Entry, cand.StopLoss, cand.TakeProfit = levelsFromStop(entry, stop, cfg.Strategies.RiskRewardMultiple)
	}
	return cand
}
