package calculate

// Structure and volume helpers shared by the market-data feature provider.

import (
	"github.com/quantsignal/fusion/models"
)

// InsideBar reports whether the last completed candle is fully contained in
// the range of the candle before it, returning the mother bar's extremes.
func InsideBar(candles []models.Candle) (ok bool, motherHigh, motherLow float64) {
	if len(candles) < 2 {
		return false, 0, 0
	}
	last := candles[len(candles)-1]
	mother := candles[len(candles)-2]
	if last.High <= mother.High && last.Low >= mother.Low {
		return true, mother.High, mother.Low
	}
	return false, 0, 0
}

// VolumeRatio returns last candle volume over the average of the trailing
// window, and 0 when volume data is absent.
func VolumeRatio(candles []models.Candle, window int) float64 {
	if len(candles) < window+1 {
		return 0
	}
	var total int64
	for i := len(candles) - window - 1; i < len(candles)-1; i++ {
		total += candles[i].Volume
	}
	if total == 0 {
		return 0
	}
	avg := float64(total) / float64(window)
	return float64(candles[len(candles)-1].Volume) / avg
}

// VolumeTrend labels the recent volume slope as RISING, FLAT or FALLING by
// comparing the last few candles against the window before them.
func VolumeTrend(candles []models.Candle, window int) string {
	if len(candles) < window*2 {
		return "FLAT"
	}
	var recent, earlier int64
	for i := len(candles) - window; i < len(candles); i++ {
		recent += candles[i].Volume
	}
	for i := len(candles) - window*2; i < len(candles)-window; i++ {
		earlier += candles[i].Volume
	}
	if earlier == 0 {
		return "FLAT"
	}
	ratio := float64(recent) / float64(earlier)
	switch {
	case ratio > 1.15:
		return "RISING"
	case ratio < 0.85:
		return "FALLING"
	default:
		return "FLAT"
	}
}

// DetectStructureBreak scans the trailing window for a close beyond the prior
// swing high/low. A break in the direction of the previous swing sequence is
// a BOS (continuation); against it, a CHOCH (reversal). Returns "" when no
// break is found.
func DetectStructureBreak(candles []models.Candle, swingLookback int) string {
	if len(candles) < swingLookback+3 {
		return ""
	}

	window := candles[len(candles)-swingLookback-1 : len(candles)-1]
	swingHigh, swingLow := window[0].High, window[0].Low
	for _, c := range window {
		if c.High > swingHigh {
			swingHigh = c.High
		}
		if c.Low < swingLow {
			swingLow = c.Low
		}
	}

	last := candles[len(candles)-1]
	uptrend := window[len(window)-1].Close > window[0].Close

	switch {
	case last.Close > swingHigh && uptrend:
		return "BOS_UP"
	case last.Close > swingHigh:
		return "CHOCH_UP"
	case last.Close < swingLow && !uptrend:
		return "BOS_DOWN"
	case last.Close < swingLow:
		return "CHOCH_DOWN"
	default:
		return ""
	}
}
