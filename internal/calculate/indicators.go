package calculate

import (
	"math"
	"sort"

	"github.com/quantsignal/fusion/models"
)

// ATR computes the Average True Range over the trailing period.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	var trueRanges []float64
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}

	periodToUse := period
	if len(trueRanges) < period {
		periodToUse = len(trueRanges)
	}

	var sum float64
	for i := len(trueRanges) - periodToUse; i < len(trueRanges); i++ {
		sum += trueRanges[i]
	}
	return sum / float64(periodToUse)
}

// ATRRatio returns current ATR over the rolling median ATR of the lookback
// window. Values above 1 mean volatility is expanding.
func ATRRatio(candles []models.Candle, period, lookback int) float64 {
	if len(candles) < period+lookback {
		return 0
	}

	current := ATR(candles, period)

	var history []float64
	for i := 0; i < lookback; i++ {
		end := len(candles) - i
		if end < period+1 {
			break
		}
		history = append(history, ATR(candles[:end], period))
	}
	if len(history) == 0 {
		return 0
	}
	sort.Float64s(history)
	median := history[len(history)/2]
	if len(history)%2 == 0 {
		median = (history[len(history)/2-1] + history[len(history)/2]) / 2
	}
	if median == 0 {
		return 0
	}
	return current / median
}

// ADX computes the Average Directional Index with its directional components.
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI float64) {
	if len(candles) < period*2 {
		return 0, 0, 0
	}

	var trs, plusDMs, minusDMs []float64
	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		tr := math.Max(highLow, math.Max(highPrevClose, lowPrevClose))

		trs = append(trs, tr)
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	// Wilder smoothing
	smTR := sum(trs[:period])
	smPlus := sum(plusDMs[:period])
	smMinus := sum(minusDMs[:period])

	var dxs []float64
	for i := period; i < len(trs); i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDMs[i]
		smMinus = smMinus - smMinus/float64(period) + minusDMs[i]

		if smTR == 0 {
			continue
		}
		pDI := 100 * smPlus / smTR
		mDI := 100 * smMinus / smTR
		plusDI, minusDI = pDI, mDI

		if pDI+mDI > 0 {
			dxs = append(dxs, 100*math.Abs(pDI-mDI)/(pDI+mDI))
		}
	}

	if len(dxs) == 0 {
		return 0, plusDI, minusDI
	}
	n := period
	if len(dxs) < n {
		n = len(dxs)
	}
	adx = sum(dxs[len(dxs)-n:]) / float64(n)
	return adx, plusDI, minusDI
}

// EMA computes an exponential moving average of closes.
func EMA(candles []models.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		period = len(candles)
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	ema := candles[len(candles)-period].Close
	for i := len(candles) - period + 1; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema
}

// RSI computes the Relative Strength Index using Wilder smoothing.
func RSI(candles []models.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - change) / float64(period)
		}
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// BollingerBands returns upper, middle and lower bands over the period.
func BollingerBands(candles []models.Candle, period int, stdDev float64) (upper, middle, lower float64) {
	if len(candles) == 0 {
		return 0, 0, 0
	}
	if len(candles) < period {
		last := candles[len(candles)-1].Close
		return last, last, last
	}

	var s float64
	for i := len(candles) - period; i < len(candles); i++ {
		s += candles[i].Close
	}
	middle = s / float64(period)

	var variance float64
	for i := len(candles) - period; i < len(candles); i++ {
		variance += math.Pow(candles[i].Close-middle, 2)
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + sd*stdDev, middle, middle - sd*stdDev
}

// BBWidthPercentile ranks the current band width against the lookback window.
// 0 means the tightest compression seen, 100 the widest.
func BBWidthPercentile(candles []models.Candle, period int, stdDev float64, lookback int) float64 {
	if len(candles) < period+lookback {
		return 50
	}

	width := func(cs []models.Candle) float64 {
		u, m, l := BollingerBands(cs, period, stdDev)
		if m == 0 {
			return 0
		}
		return (u - l) / m
	}

	current := width(candles)
	below := 0
	for i := 1; i <= lookback; i++ {
		if width(candles[:len(candles)-i]) <= current {
			below++
		}
	}
	return 100 * float64(below) / float64(lookback)
}

// Stochastic returns %K and its smoothed %D signal.
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) (k, d float64) {
	if len(candles) < kPeriod+dPeriod {
		return 50, 50
	}

	kAt := func(end int) float64 {
		lowest, highest := math.MaxFloat64, -math.MaxFloat64
		for i := end - kPeriod; i < end; i++ {
			if candles[i].Low < lowest {
				lowest = candles[i].Low
			}
			if candles[i].High > highest {
				highest = candles[i].High
			}
		}
		if highest == lowest {
			return 50
		}
		return 100 * (candles[end-1].Close - lowest) / (highest - lowest)
	}

	k = kAt(len(candles))
	var dSum float64
	for i := 0; i < dPeriod; i++ {
		dSum += kAt(len(candles) - i)
	}
	return k, dSum / float64(dPeriod)
}

func sum(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s
}
