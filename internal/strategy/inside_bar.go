package strategy

import (
	"fmt"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// InsideBarTrap rewards volatility compression that tends to resolve
// violently: tight Bollinger width, ATR cooling but not dead, and volume that
// is not drying up. Entry sits at the inside bar's midpoint with the stop
// beyond the bar's extreme.
type InsideBarTrap struct{}

func (s *InsideBarTrap) Name() string { return "inside-bar-volatility-trap" }

func (s *InsideBarTrap) Evaluate(snap *models.FeatureSnapshot, reg models.VolatilityRegime, cfg *config.Config) models.StrategyCandidate {
	_, tech := executionTimeframe(snap, cfg)
	if tech == nil {
		return insufficientData(models.DirectionNone)
	}

	p := cfg.Strategies.InsideBar
	var score float64
	var reasons []string

	// Band compression, with partial credit as the width percentile rises
	// toward the cutoff.
	if tech.BBWidthPctile <= p.MaxBBWidthPctile {
		score += p.CompressionWeight
		reasons = append(reasons, fmt.Sprintf("Bollinger width in bottom %.0f%% of range", tech.BBWidthPctile))
	} else if tech.BBWidthPctile <= p.MaxBBWidthPctile*2 {
		score += p.CompressionWeight * (1 - (tech.BBWidthPctile-p.MaxBBWidthPctile)/p.MaxBBWidthPctile)
		reasons = append(reasons, "partial Bollinger compression")
	}

	// ATR cooled off but not collapsed.
	if tech.ATRRatio >= p.MinATRRatio && tech.ATRRatio <= p.MaxATRRatio {
		score += p.ATRWeight
		reasons = append(reasons, fmt.Sprintf("ATR ratio %.2f in trap band", tech.ATRRatio))
	} else if tech.ATRRatio > 0 && tech.ATRRatio < p.MinATRRatio {
		reasons = append(reasons, "volatility collapsed, trap unreliable")
	}

	// Volume holding up while the range contracts.
	switch tech.VolumeTrend {
	case "RISING":
		score += p.VolumeWeight
		reasons = append(reasons, "volume rising into compression")
	case "FLAT":
		score += p.VolumeWeight * 0.7
		reasons = append(reasons, "volume steady into compression")
	case "FALLING":
		reasons = append(reasons, "volume declining")
	}

	direction := models.DirectionBuy
	if tech.LastClose < tech.EMA {
		direction = models.DirectionSell
	}

	hasBar := tech.InsideBar && tech.InsideBarHigh > tech.InsideBarLow
	if !hasBar {
		reasons = append(reasons, "no inside bar formed yet")
		score *= 0.8
	}

	cand := models.StrategyCandidate{
		Score:      score,
		Confidence: score * dataCoverage(snap),
		Direction:  direction,
		Reasoning:  reasons,
	}

	// Levels only exist when an inside bar is actually on the chart.
	if hasBar {
		mid := (tech.InsideBarHigh + tech.InsideBarLow) / 2
		var stop float64
		if direction == models.DirectionBuy {
			stop = tech.InsideBarLow - (tech.InsideBarHigh-tech.InsideBarLow)*0.25
		} else {
			stop = tech.InsideBarHigh + (tech.InsideBarHigh-tech.InsideBarLow)*0.25
		}
		cand.Entry, cand.StopLoss, cand.TakeProfit = levelsFromStop(mid, stop, cfg.Strategies.RiskRewardMultiple)
	}

	return cand
}

// dataCoverage scales confidence by how much of the snapshot is populated:
// a score built on thin inputs should not carry full conviction.
func dataCoverage(snap *models.FeatureSnapshot) float64 {
	present := 0
	if snap.Technicals != nil {
		present++
	}
	if snap.OrderFlow != nil {
		present++
	}
	if snap.Structure != nil {
		present++
	}
	if snap.Macro != nil {
		present++
	}
	if snap.Microstructure != nil {
		present++
	}
	return 0.55 + 0.45*float64(present)/5.0
}
