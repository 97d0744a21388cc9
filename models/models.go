package models

import (
	"time"
)

// Candle represents a single price candle
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// TimeframeTechnicals holds the indicator readings computed for one timeframe.
// Every analysis request gets a fresh set; nothing here is shared or cached.
type TimeframeTechnicals struct {
	ATR            float64 `json:"atr"`
	ATRRatio       float64 `json:"atr_ratio"` // current ATR / rolling median ATR
	ADX            float64 `json:"adx"`
	PlusDI         float64 `json:"plus_di"`
	MinusDI        float64 `json:"minus_di"`
	RSI            float64 `json:"rsi"`
	Stochastic     float64 `json:"stochastic"`
	StochasticSig  float64 `json:"stochastic_signal"`
	EMA            float64 `json:"ema"`
	BBUpper        float64 `json:"bb_upper"`
	BBMiddle       float64 `json:"bb_middle"`
	BBLower        float64 `json:"bb_lower"`
	BBWidthPercent float64 `json:"bb_width_percent"` // (upper-lower)/middle * 100
	BBWidthPctile  float64 `json:"bb_width_pctile"`  // width percentile over lookback, 0-100
	VolumeRatio    float64 `json:"volume_ratio"`     // last volume / average volume
	VolumeTrend    string  `json:"volume_trend"`     // RISING, FLAT, FALLING
	LastClose      float64 `json:"last_close"`
	InsideBar      bool    `json:"inside_bar"`
	InsideBarHigh  float64 `json:"inside_bar_high,omitempty"`
	InsideBarLow   float64 `json:"inside_bar_low,omitempty"`
	StructureBreak string  `json:"structure_break,omitempty"` // BOS_UP, BOS_DOWN, CHOCH_UP, CHOCH_DOWN
	BreakoutVolume float64 `json:"breakout_volume,omitempty"` // volume ratio on the breaking candle
	ATRExpansion   float64 `json:"atr_expansion,omitempty"`   // short ATR / long ATR at the break
}

// TechnicalBlock carries per-timeframe indicator readings. Timeframes that a
// provider could not deliver are simply missing from the map.
type TechnicalBlock struct {
	Timeframes map[string]TimeframeTechnicals `json:"timeframes"`
}

// MacroBlock carries macro context computed by an external provider.
type MacroBlock struct {
	BiasScore             float64 `json:"bias_score"` // -1 (bearish) .. +1 (bullish)
	MinutesSinceNews      float64 `json:"minutes_since_news"`
	NewsImpact            string  `json:"news_impact"` // LOW, MEDIUM, HIGH
	HasUpcomingHighImpact bool    `json:"has_upcoming_high_impact"`
}

// StructureBlock holds smart-money structure labels per timeframe.
type StructureBlock struct {
	TrendLabels map[string]string `json:"trend_labels"` // timeframe -> BULLISH, BEARISH, PULLBACK, RANGE, NONE
}

// OrderFlowBlock summarizes recent order-flow pressure.
type OrderFlowBlock struct {
	Direction       string  `json:"direction"` // BULLISH, BEARISH, NEUTRAL
	BuyingPressure  float64 `json:"buying_pressure"`
	SellingPressure float64 `json:"selling_pressure"`
	DeltaPercentage float64 `json:"delta_percentage"`
	IsClimaxVolume  bool    `json:"is_climax_volume"`
	IsExhaustion    bool    `json:"is_exhaustion"`
}

// MicrostructureBlock carries spread/liquidity readings near the top of book.
type MicrostructureBlock struct {
	SpreadBps      float64 `json:"spread_bps"`
	BookImbalance  float64 `json:"book_imbalance"` // -1 .. +1, positive = bid heavy
	LiquidityScore float64 `json:"liquidity_score"`
}

// FeatureSnapshot is the immutable per-request bundle of feature blocks.
// A nil block means the provider did not deliver it; consumers must treat
// nil as "missing", never as zero values.
type FeatureSnapshot struct {
	Symbol          string               `json:"symbol"`
	InstrumentClass string               `json:"instrument_class"` // e.g. "forex", "crypto", "index"
	CollectedAt     time.Time            `json:"collected_at"`
	LastPrice       *float64             `json:"last_price,omitempty"`
	Macro           *MacroBlock          `json:"macro,omitempty"`
	Technicals      *TechnicalBlock      `json:"technicals,omitempty"`
	Structure       *StructureBlock      `json:"structure,omitempty"`
	OrderFlow       *OrderFlowBlock      `json:"order_flow,omitempty"`
	Microstructure  *MicrostructureBlock `json:"microstructure,omitempty"`
}

// Empty reports whether no feature block at all was collected.
func (s *FeatureSnapshot) Empty() bool {
	return s.Macro == nil && s.Technicals == nil && s.Structure == nil &&
		s.OrderFlow == nil && s.Microstructure == nil
}

// RegimeState labels the current volatility state.
type RegimeState string

const (
	RegimeStable       RegimeState = "STABLE"
	RegimeTransitional RegimeState = "TRANSITIONAL"
	RegimeVolatile     RegimeState = "VOLATILE"
	RegimeUnknown      RegimeState = "UNKNOWN"
)

// VolatilityRegime is the classified volatility state for one request.
type VolatilityRegime struct {
	State      RegimeState `json:"state"`
	ATRRatio   float64     `json:"atr_ratio"`
	ADX        float64     `json:"adx"`
	Confidence float64     `json:"confidence"` // 0-100
}

// Float64Ptr returns a pointer to v. Convenience for optional fields.
func Float64Ptr(v float64) *float64 { return &v }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
