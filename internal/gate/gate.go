package gate

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// Result is the gate's verdict: at most one selected candidate, plus every
// wait reason that independently applied. Reasons compose — a blocked session
// and a score shortfall are both reported.
type Result struct {
	Selected    *models.StrategyCandidate
	Threshold   float64
	WaitReasons []models.WaitReason
}

// Apply compares the best candidate against the dynamically adjusted
// threshold and decides trade vs. wait.
func Apply(
	candidates []models.StrategyCandidate,
	reg models.VolatilityRegime,
	snap *models.FeatureSnapshot,
	now time.Time,
	cfg *config.Config,
) Result {
	res := Result{}

	threshold := AdjustedThreshold(snap.InstrumentClass, reg, now, cfg)
	res.Threshold = threshold

	if snap.Empty() {
		res.WaitReasons = append(res.WaitReasons, models.WaitReason{
			Code:        models.WaitNoFeatures,
			Description: "no feature blocks were collected",
			Severity:    models.SeverityHigh,
		})
	}

	if reg.State == models.RegimeUnknown {
		res.WaitReasons = append(res.WaitReasons, models.WaitReason{
			Code:        models.WaitRegimeUnknown,
			Description: "volatility regime could not be classified",
			Severity:    models.SeverityMedium,
		})
	}

	sessionBlocked := false
	if w := activeWindow(now, cfg.Sessions); w != nil && w.Block {
		sessionBlocked = true
		res.WaitReasons = append(res.WaitReasons, models.WaitReason{
			Code:        models.WaitSessionBlocked,
			Description: fmt.Sprintf("session filter %q blocks the current window", w.Name),
			Severity:    models.SeverityHigh,
		})
	}

	best := bestCandidate(candidates)
	if best == nil {
		if len(res.WaitReasons) == 0 {
			res.WaitReasons = append(res.WaitReasons, models.WaitReason{
				Code:        models.WaitScoreShortfall,
				Description: "no scoreable strategy candidates",
				Severity:    models.SeverityHigh,
				Threshold:   threshold,
			})
		}
		return res
	}

	if best.Score >= threshold && !sessionBlocked && !snap.Empty() {
		selected := *best
		res.Selected = &selected
		log.Debug().
			Str("strategy", selected.Name).
			Float64("score", selected.Score).
			Float64("threshold", threshold).
			Msg("candidate cleared gate")
		return res
	}

	if best.Score < threshold {
		res.WaitReasons = append(res.WaitReasons, models.WaitReason{
			Code:        models.WaitScoreShortfall,
			Description: fmt.Sprintf("best strategy %q scored below the adjusted threshold", best.Name),
			Severity:    shortfallSeverity(threshold, best.Score),
			Threshold:   threshold,
			Actual:      best.Score,
		})
	}
	return res
}

// AdjustedThreshold computes base - sessionBias - volatilityAdjustment,
// clamped to the configured band. The volatility term is monotone in the
// composite ATR ratio: an expanding market raises the bar, a quiet one
// lowers it. An UNKNOWN regime tightens further.
func AdjustedThreshold(instrumentClass string, reg models.VolatilityRegime, now time.Time, cfg *config.Config) float64 {
	t := cfg.Thresholds
	threshold := t.BaseThreshold(instrumentClass)

	if w := activeWindow(now, cfg.Sessions); w != nil && !w.Block {
		threshold -= w.Bias
	}

	if reg.State == models.RegimeUnknown {
		threshold += t.UnknownRegimePenalty
	} else {
		// Centered at ATR ratio 1.0; below it the adjustment is positive and
		// lowers the threshold.
		threshold -= t.VolAdjustFactor * (1.0 - reg.ATRRatio)
	}

	if threshold < t.Floor {
		return t.Floor
	}
	if threshold > t.Ceiling {
		return t.Ceiling
	}
	return threshold
}

// bestCandidate returns the highest-scoring candidate with an actionable
// direction. Ties keep the earliest entry, which preserves catalog priority
// for slices ordered by the scorer.
func bestCandidate(candidates []models.StrategyCandidate) *models.StrategyCandidate {
	var best *models.StrategyCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.Direction == models.DirectionNone {
			continue
		}
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	return best
}

// activeWindow returns the session window covering the given UTC hour.
// Windows may wrap midnight.
func activeWindow(now time.Time, windows []config.SessionWindow) *config.SessionWindow {
	hour := now.UTC().Hour()
	for i := range windows {
		w := &windows[i]
		if w.StartHour <= w.EndHour {
			if hour >= w.StartHour && hour < w.EndHour {
				return w
			}
		} else if hour >= w.StartHour || hour < w.EndHour {
			return w
		}
	}
	return nil
}

func shortfallSeverity(threshold, actual float64) models.WaitSeverity {
	gap := threshold - actual
	switch {
	case gap <= 5:
		return models.SeverityLow
	case gap <= 20:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}
