package marketdata

import (
	"context"
	"fmt"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/internal/calculate"
	"github.com/quantsignal/fusion/internal/features"
	"github.com/quantsignal/fusion/models"
)

// StructureProvider labels the trend structure per timeframe from EMA
// alignment and closing sequence.
type StructureProvider struct {
	client *Client
	cfg    config.MarketDataConfig
}

// NewStructureProvider builds the provider over a shared client.
func NewStructureProvider(client *Client, cfg config.MarketDataConfig) *StructureProvider {
	return &StructureProvider{client: client, cfg: cfg}
}

func (p *StructureProvider) Name() string { return "structure" }

func (p *StructureProvider) Fetch(ctx context.Context, symbol string) (features.Apply, error) {
	labels := make(map[string]string)
	for _, tf := range p.cfg.Timeframes {
		candles, err := p.client.GetCandles(ctx, symbol, tf, p.cfg.CandleCount)
		if err != nil {
			continue
		}
		labels[tf] = trendLabel(candles)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no structure data for %s", symbol)
	}
	return func(snap *models.FeatureSnapshot) {
		snap.Structure = &models.StructureBlock{TrendLabels: labels}
	}, nil
}

// trendLabel combines fast/slow EMA alignment with the recent close sequence.
func trendLabel(candles []models.Candle) string {
	if len(candles) < 25 {
		return "NONE"
	}
	fast := calculate.EMA(candles, 8)
	slow := calculate.EMA(candles, 21)
	last := candles[len(candles)-1].Close
	prev := candles[len(candles)-2].Close

	switch {
	case fast > slow && last > fast:
		return "BULLISH"
	case fast > slow && last < fast && last > prev:
		return "PULLBACK"
	case fast < slow && last < fast:
		return "BEARISH"
	case fast < slow && last > fast && last < prev:
		return "PULLBACK"
	default:
		return "RANGE"
	}
}

// OrderFlowProvider summarizes volume pressure from the execution timeframe.
type OrderFlowProvider struct {
	client *Client
	cfg    config.MarketDataConfig
}

// NewOrderFlowProvider builds the provider over a shared client.
func NewOrderFlowProvider(client *Client, cfg config.MarketDataConfig) *OrderFlowProvider {
	return &OrderFlowProvider{client: client, cfg: cfg}
}

func (p *OrderFlowProvider) Name() string { return "order_flow" }

func (p *OrderFlowProvider) Fetch(ctx context.Context, symbol string) (features.Apply, error) {
	if len(p.cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("no timeframes configured")
	}
	candles, err := p.client.GetCandles(ctx, symbol, p.cfg.Timeframes[0], p.cfg.CandleCount)
	if err != nil {
		return nil, err
	}
	block, err := orderFlowFrom(candles)
	if err != nil {
		return nil, err
	}
	return func(snap *models.FeatureSnapshot) {
		snap.OrderFlow = block
	}, nil
}

// orderFlowFrom splits recent volume into up-candle and down-candle pressure.
func orderFlowFrom(candles []models.Candle) (*models.OrderFlowBlock, error) {
	const window = 10
	if len(candles) < window {
		return nil, fmt.Errorf("need %d candles for order flow, got %d", window, len(candles))
	}
	for _, c := range candles[len(candles)-window:] {
		if c.Volume == 0 {
			return nil, fmt.Errorf("no volume data")
		}
	}

	var upVolume, downVolume int64
	for i := len(candles) - window; i < len(candles); i++ {
		if candles[i].Close > candles[i].Open {
			upVolume += candles[i].Volume
		} else {
			downVolume += candles[i].Volume
		}
	}
	total := upVolume + downVolume
	if total == 0 {
		return nil, fmt.Errorf("zero total volume")
	}

	buying := float64(upVolume) / float64(total)
	selling := float64(downVolume) / float64(total)

	direction := "NEUTRAL"
	if buying > 0.65 {
		direction = "BULLISH"
	} else if buying < 0.35 {
		direction = "BEARISH"
	}

	// Climax: the last candle's volume dwarfs the window average. Exhaustion:
	// climax volume that failed to extend the move.
	avg := float64(total) / window
	lastVol := float64(candles[len(candles)-1].Volume)
	climax := lastVol > avg*2.5

	lastRange := candles[len(candles)-1].High - candles[len(candles)-1].Low
	lastBody := candles[len(candles)-1].Close - candles[len(candles)-1].Open
	exhaustion := climax && lastRange > 0 && absFloat(lastBody)/lastRange < 0.3

	return &models.OrderFlowBlock{
		Direction:       direction,
		BuyingPressure:  buying,
		SellingPressure: selling,
		DeltaPercentage: (buying - selling) * 100,
		IsClimaxVolume:  climax,
		IsExhaustion:    exhaustion,
	}, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
