package marketdata

import (
	"context"
	"fmt"
	"sort"

	talib "github.com/markcheno/go-talib"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/internal/calculate"
	"github.com/quantsignal/fusion/internal/features"
	"github.com/quantsignal/fusion/models"
)

// Indicator parameters for the technicals block. These follow common
// defaults; the tunable decision weights all live in config.
const (
	atrPeriod     = 14
	adxPeriod     = 14
	rsiPeriod     = 14
	emaPeriod     = 21
	bbPeriod      = 20
	bbStdDev      = 2.0
	atrLookback   = 60
	widthLookback = 90
	swingLookback = 12
	volumeWindow  = 10
)

// TechnicalsProvider computes the per-timeframe indicator block from raw
// candles.
type TechnicalsProvider struct {
	client *Client
	cfg    config.MarketDataConfig
}

// NewTechnicalsProvider builds the provider over a shared client.
func NewTechnicalsProvider(client *Client, cfg config.MarketDataConfig) *TechnicalsProvider {
	return &TechnicalsProvider{client: client, cfg: cfg}
}

func (p *TechnicalsProvider) Name() string { return "technicals" }

// Fetch pulls candles for every configured timeframe and computes the
// indicator set. Timeframes that fail to load are skipped; the block is only
// absent when no timeframe loads at all.
func (p *TechnicalsProvider) Fetch(ctx context.Context, symbol string) (features.Apply, error) {
	block := &models.TechnicalBlock{Timeframes: make(map[string]models.TimeframeTechnicals)}
	var lastPrice float64

	for _, tf := range p.cfg.Timeframes {
		candles, err := p.client.GetCandles(ctx, symbol, tf, p.cfg.CandleCount)
		if err != nil {
			p.client.logger.Warn().Err(err).Str("timeframe", tf).Msg("timeframe unavailable")
			continue
		}
		t, err := computeTechnicals(candles)
		if err != nil {
			p.client.logger.Warn().Err(err).Str("timeframe", tf).Msg("indicator computation failed")
			continue
		}
		block.Timeframes[tf] = t
		if lastPrice == 0 {
			lastPrice = candles[len(candles)-1].Close
		}
	}

	if len(block.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframe data for %s", symbol)
	}
	price := lastPrice
	return func(snap *models.FeatureSnapshot) {
		snap.Technicals = block
		if snap.LastPrice == nil && price > 0 {
			snap.LastPrice = models.Float64Ptr(price)
		}
	}, nil
}

// computeTechnicals derives one timeframe's indicator readings.
func computeTechnicals(candles []models.Candle) (models.TimeframeTechnicals, error) {
	var t models.TimeframeTechnicals
	if len(candles) < bbPeriod+5 {
		return t, fmt.Errorf("need at least %d candles, got %d", bbPeriod+5, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	last := len(candles) - 1

	atrSeries := talib.Atr(highs, lows, closes, atrPeriod)
	t.ATR = atrSeries[last]
	t.ATRRatio = atrRatioFromSeries(atrSeries)

	adxSeries := talib.Adx(highs, lows, closes, adxPeriod)
	t.ADX = adxSeries[last]
	t.PlusDI = talib.PlusDI(highs, lows, closes, adxPeriod)[last]
	t.MinusDI = talib.MinusDI(highs, lows, closes, adxPeriod)[last]

	t.RSI = talib.Rsi(closes, rsiPeriod)[last]
	t.EMA = talib.Ema(closes, emaPeriod)[last]

	upper, middle, lower := talib.BBands(closes, bbPeriod, bbStdDev, bbStdDev, talib.SMA)
	t.BBUpper, t.BBMiddle, t.BBLower = upper[last], middle[last], lower[last]
	if t.BBMiddle != 0 {
		t.BBWidthPercent = (t.BBUpper - t.BBLower) / t.BBMiddle * 100
	}
	t.BBWidthPctile = widthPercentile(upper, middle, lower)

	slowK, slowD := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	t.Stochastic = slowK[last]
	t.StochasticSig = slowD[last]

	t.LastClose = closes[last]
	t.VolumeRatio = calculate.VolumeRatio(candles, volumeWindow)
	t.VolumeTrend = calculate.VolumeTrend(candles, volumeWindow)

	if ok, _, _ := calculate.InsideBar(candles); ok {
		inside := candles[len(candles)-1]
		t.InsideBar = true
		t.InsideBarHigh = inside.High
		t.InsideBarLow = inside.Low
	}

	if brk := calculate.DetectStructureBreak(candles, swingLookback); brk != "" {
		t.StructureBreak = brk
		t.BreakoutVolume = t.VolumeRatio
		if longATR := atrSeries[last]; longATR > 0 {
			shortATR := calculate.ATR(candles, 5)
			t.ATRExpansion = shortATR / longATR
		}
	}
	return t, nil
}

// atrRatioFromSeries is current ATR over the median of the trailing window.
func atrRatioFromSeries(series []float64) float64 {
	var window []float64
	for i := len(series) - atrLookback; i < len(series); i++ {
		if i >= 0 && series[i] > 0 {
			window = append(window, series[i])
		}
	}
	if len(window) < 2 {
		return 0
	}
	current := window[len(window)-1]
	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	if median == 0 {
		return 0
	}
	return current / median
}

// widthPercentile ranks the latest band width within the series history.
func widthPercentile(upper, middle, lower []float64) float64 {
	width := func(i int) float64 {
		if middle[i] == 0 {
			return 0
		}
		return (upper[i] - lower[i]) / middle[i]
	}
	last := len(middle) - 1
	current := width(last)

	start := last - widthLookback
	if start < bbPeriod {
		start = bbPeriod
	}
	if start >= last {
		return 50
	}
	below, total := 0, 0
	for i := start; i < last; i++ {
		total++
		if width(i) <= current {
			below++
		}
	}
	if total == 0 {
		return 50
	}
	return 100 * float64(below) / float64(total)
}
