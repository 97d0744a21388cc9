package strategy

import (
	"fmt"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// ReversionScalp fades stretched oscillator readings when the order flow
// shows exhaustion: an overbought/oversold market whose aggressors are
// running out of volume.
type ReversionScalp struct{}

func (s *ReversionScalp) Name() string { return "volatility-reversion-scalp" }

func (s *ReversionScalp) Evaluate(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) models.StrategyCandidate {
	_, tech := executionTimeframe(snap, cfg)
	if tech == nil {
		return insufficientData(models.DirectionNone)
	}

	p := cfg.Strategies.Reversion
	var score float64
	var reasons []string
	direction := models.DirectionNone

	// Oscillator extreme, with the stochastic confirming the turn.
	switch {
	case tech.RSI > 0 && tech.RSI <= p.RSIOversold:
		direction = models.DirectionBuy
		score += p.OscWeight * 0.7
		reasons = append(reasons, fmt.Sprintf("RSI oversold at %.1f", tech.RSI))
		if tech.Stochastic < 25 && tech.Stochastic > tech.StochasticSig {
			score += p.OscWeight * 0.3
			reasons = append(reasons, "stochastic turning up from oversold")
		}
	case tech.RSI >= p.RSIOverbought:
		direction = models.DirectionSell
		score += p.OscWeight * 0.7
		reasons = append(reasons, fmt.Sprintf("RSI overbought at %.1f", tech.RSI))
		if tech.Stochastic > 75 && tech.Stochastic < tech.StochasticSig {
			score += p.OscWeight * 0.3
			reasons = append(reasons, "stochastic turning down from overbought")
		}
	default:
		reasons = append(reasons, "oscillators not at extremes")
	}

	// Volume exhaustion from order flow confirms the fade.
	if snap.OrderFlow != nil && direction != models.DirectionNone {
		of := snap.OrderFlow
		if of.IsExhaustion {
			score += p.ExhaustionWeight
			reasons = append(reasons, "order flow exhaustion")
		} else if of.IsClimaxVolume {
			score += p.ExhaustionWeight * 0.6
			reasons = append(reasons, "climax volume")
		}
	}

	// Scalps live or die on execution cost, so the microstructure block
	// weighs in when present: a wide spread guts the edge, a book leaning
	// into the fade supports it.
	if snap.Microstructure != nil && direction != models.DirectionNone {
		ms := snap.Microstructure
		if ms.SpreadBps > p.MaxSpreadBps {
			score *= 0.6
			reasons = append(reasons, fmt.Sprintf("spread %.1f bps too wide for a scalp", ms.SpreadBps))
		}
		if (direction == models.DirectionBuy && ms.BookImbalance > 0.2) ||
			(direction == models.DirectionSell && ms.BookImbalance < -0.2) {
			score += p.ImbalanceWeight
			reasons = append(reasons, "book imbalance supports the fade")
		}
	}

	cand := models.StrategyCandidate{
		Score:      score,
		Confidence: score * dataCoverage(snap),
		Direction:  direction,
		Reasoning:  reasons,
	}
	if direction != models.DirectionNone && tech.ATR > 0 && tech.LastClose > 0 {
		entry := tech.LastClose
		var stop float64
		if direction == models.DirectionBuy {
			stop = entry - tech.ATR
		} else {
			stop = entry + tech.ATR
		}
		cand.Entry, cand.StopLoss, cand.TakeProfit = levelsFromStop(entry, stop, cfg.Strategies.RiskRewardMultiple)
	}
	return cand
}
