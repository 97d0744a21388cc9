package strategy

import (
	"fmt"
	"math"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// PostNewsReaction trades the settling move after a high-impact release:
// recent news plus a pullback to the moving average in the direction of the
// macro bias. Without news timing data the strategy scores near zero.
type PostNewsReaction struct{}

func (s *PostNewsReaction) Name() string { return "post-news-reaction" }

func (s *PostNewsReaction) Evaluate(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) models.StrategyCandidate {
	if snap.Macro == nil {
		cand := insufficientData(models.DirectionNone)
		cand.Reasoning = []string{"insufficient data", "no news timing available"}
		return cand
	}
	_, tech := executionTimeframe(snap, cfg)
	if tech == nil {
		return insufficientData(models.DirectionNone)
	}

	p := cfg.Strategies.PostNews
	macro := snap.Macro
	var score float64
	var reasons []string

	// Recency of the release; credit decays linearly to the window edge.
	if macro.NewsImpact == "HIGH" && macro.MinutesSinceNews >= 0 && macro.MinutesSinceNews <= p.MaxMinutesSinceNews {
		recency := 1 - macro.MinutesSinceNews/p.MaxMinutesSinceNews
		score += p.NewsWeight * (0.5 + 0.5*recency)
		reasons = append(reasons, fmt.Sprintf("high-impact news %.0f minutes ago", macro.MinutesSinceNews))
	} else {
		reasons = append(reasons, "no recent high-impact news")
	}

	// Pullback to the EMA within tolerance, measured in ATR multiples.
	if tech.ATR > 0 {
		distance := math.Abs(tech.LastClose-tech.EMA) / tech.ATR
		if distance <= p.PullbackTolerance {
			score += p.PullbackWeight
			reasons = append(reasons, fmt.Sprintf("price at EMA (%.2f ATR away)", distance))
		} else if distance <= p.PullbackTolerance*2 {
			score += p.PullbackWeight * 0.5
			reasons = append(reasons, "price approaching EMA")
		}
	}

	direction := models.DirectionNone
	if macro.BiasScore > 0.1 {
		direction = models.DirectionBuy
	} else if macro.BiasScore < -0.1 {
		direction = models.DirectionSell
	} else if tech.LastClose > tech.EMA {
		direction = models.DirectionBuy
	} else {
		direction = models.DirectionSell
	}

	cand := models.StrategyCandidate{
		Score:      score,
		Confidence: score * dataCoverage(snap),
		Direction:  direction,
		Reasoning:  reasons,
	}
	if tech.ATR > 0 && tech.LastClose > 0 && direction != models.DirectionNone {
		entry := tech.LastClose
		var stop float64
		if direction == models.DirectionBuy {
			stop = entry - tech.ATR*1.5
		} else {
			stop = entry + tech.ATR*1.5
		}
		cand.Entry, cand.StopLoss, cand.TakeProfit = levelsFromStop(entry, stop, cfg.Strategies.RiskRewardMultiple)
	}
	return cand
}
