package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is one immutable configuration snapshot. Requests hold the snapshot
// they started with; hot reloads swap in a new one via Store.
type Config struct {
	LogLevel string `mapstructure:"log_level" default:"info"`

	Symbols []SymbolConfig `mapstructure:"symbols" validate:"min=1,dive"`

	Request    RequestConfig    `mapstructure:"request"`
	Thresholds ThresholdConfig  `mapstructure:"thresholds" validate:"required"`
	Sessions   []SessionWindow  `mapstructure:"sessions" validate:"dive"`
	Strategies StrategyConfig   `mapstructure:"strategies"`
	Regime     RegimeConfig     `mapstructure:"regime"`
	Macro      MacroConfig      `mapstructure:"macro"`
	Risk       RiskConfig       `mapstructure:"risk"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	MacroFeed  MacroFeedConfig  `mapstructure:"macro_feed"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// SymbolConfig binds an instrument to its class for threshold lookup.
type SymbolConfig struct {
	Symbol string `mapstructure:"symbol" validate:"required"`
	Class  string `mapstructure:"class" default:"forex" validate:"required"`
}

// RequestConfig bounds one analysis request.
type RequestConfig struct {
	Deadline        time.Duration `mapstructure:"deadline" default:"30s" validate:"gt=0"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" default:"10s" validate:"gt=0"`
}

// ThresholdConfig drives the confluence gate. Base thresholds are keyed by
// instrument class; the adjusted threshold is always clamped to [Floor,Ceiling].
type ThresholdConfig struct {
	Base                 map[string]float64 `mapstructure:"base" validate:"min=1"`
	DefaultBase          float64            `mapstructure:"default_base" default:"72"`
	Floor                float64            `mapstructure:"floor" default:"55" validate:"gte=0"`
	Ceiling              float64            `mapstructure:"ceiling" default:"90" validate:"gtefield=Floor,lte=100"`
	VolAdjustFactor      float64            `mapstructure:"vol_adjust_factor" default:"8"`
	UnknownRegimePenalty float64            `mapstructure:"unknown_regime_penalty" default:"10" validate:"gte=0"`
}

// SessionWindow lowers (or blocks) the bar during a UTC trading window.
// Windows may wrap midnight (StartHour > EndHour).
type SessionWindow struct {
	Name      string  `mapstructure:"name" validate:"required"`
	StartHour int     `mapstructure:"start_hour" validate:"gte=0,lte=23"`
	EndHour   int     `mapstructure:"end_hour" validate:"gte=0,lte=23"`
	Bias      float64 `mapstructure:"bias"`
	Block     bool    `mapstructure:"block"`
}

// StrategyConfig carries the tunable weights of every catalog strategy.
// None of these numbers are contracts; they are deployment tuning.
type StrategyConfig struct {
	RiskRewardMultiple float64         `mapstructure:"risk_reward_multiple" default:"2.0" validate:"gt=0"`
	InsideBar          InsideBarConfig `mapstructure:"inside_bar"`
	Breakout           BreakoutConfig  `mapstructure:"breakout"`
	PostNews           PostNewsConfig  `mapstructure:"post_news"`
	Reversion          ReversionConfig `mapstructure:"reversion"`
}

// InsideBarConfig tunes the inside-bar volatility-trap strategy.
type InsideBarConfig struct {
	MaxBBWidthPctile  float64 `mapstructure:"max_bb_width_pctile" default:"25"`
	MinATRRatio       float64 `mapstructure:"min_atr_ratio" default:"0.55"`
	MaxATRRatio       float64 `mapstructure:"max_atr_ratio" default:"0.95"`
	CompressionWeight float64 `mapstructure:"compression_weight" default:"40"`
	ATRWeight         float64 `mapstructure:"atr_weight" default:"30"`
	VolumeWeight      float64 `mapstructure:"volume_weight" default:"30"`
}

// BreakoutConfig tunes the breakout-continuation strategy.
type BreakoutConfig struct {
	MinBreakoutVolume    float64 `mapstructure:"min_breakout_volume" default:"1.3"`
	MinADX               float64 `mapstructure:"min_adx" default:"22"`
	WeakExpansionMax     float64 `mapstructure:"weak_expansion_max" default:"1.05"`
	StructureWeight      float64 `mapstructure:"structure_weight" default:"45"`
	VolumeWeight         float64 `mapstructure:"volume_weight" default:"30"`
	TrendWeight          float64 `mapstructure:"trend_weight" default:"25"`
	WeakExpansionPenalty float64 `mapstructure:"weak_expansion_penalty" default:"20"`
}

// PostNewsConfig tunes the post-news-reaction strategy.
type PostNewsConfig struct {
	MaxMinutesSinceNews float64 `mapstructure:"max_minutes_since_news" default:"45"`
	NewsWeight          float64 `mapstructure:"news_weight" default:"55"`
	PullbackWeight      float64 `mapstructure:"pullback_weight" default:"45"`
	PullbackTolerance   float64 `mapstructure:"pullback_tolerance" default:"0.25"` // ATR multiples from EMA
}

// ReversionConfig tunes the volatility-reversion scalp strategy.
type ReversionConfig struct {
	RSIOversold      float64 `mapstructure:"rsi_oversold" default:"28"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought" default:"72"`
	OscWeight        float64 `mapstructure:"osc_weight" default:"60"`
	ExhaustionWeight float64 `mapstructure:"exhaustion_weight" default:"40"`
	MaxSpreadBps     float64 `mapstructure:"max_spread_bps" default:"5"`
	ImbalanceWeight  float64 `mapstructure:"imbalance_weight" default:"10"`
}

// RegimeConfig weights timeframes for the volatility classifier. Higher
// timeframes carry more weight; missing timeframes are renormalized away.
type RegimeConfig struct {
	TimeframeWeights map[string]float64 `mapstructure:"timeframe_weights"`
	StableADXMax     float64            `mapstructure:"stable_adx_max" default:"20"`
}

// MacroConfig controls how macro bias dampens a disagreeing strategy.
type MacroConfig struct {
	DisagreeThreshold float64 `mapstructure:"disagree_threshold" default:"0.2" validate:"gte=0,lte=1"`
	DampeningFactor   float64 `mapstructure:"dampening_factor" default:"0.7" validate:"gt=0,lte=1"`
}

// RiskConfig sets the baseline risk fraction that regime guidance scales.
type RiskConfig struct {
	BaseRiskFraction float64 `mapstructure:"base_risk_fraction" default:"0.01" validate:"gt=0,lte=0.1"`
}

// MarketDataConfig points at the candle/indicator feed.
type MarketDataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeframes     []string      `mapstructure:"timeframes"`
	CandleCount    int           `mapstructure:"candle_count" default:"120" validate:"gte=30"`
	RequestsPerSec int           `mapstructure:"requests_per_sec" default:"5"`
	Timeout        time.Duration `mapstructure:"timeout" default:"15s"`
}

// MacroFeedConfig points at the macro calendar feed.
type MacroFeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" default:"15s"`
}

// DatabaseConfig enables the decision audit store when DSN is set.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// BaseThreshold returns the gate base threshold for an instrument class.
func (t ThresholdConfig) BaseThreshold(class string) float64 {
	if v, ok := t.Base[strings.ToLower(class)]; ok {
		return v
	}
	return t.DefaultBase
}

// Load reads, defaults and validates a configuration file. Any error here is
// fatal to startup; a half-valid config must never reach the engine.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FUSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults failed: %w", err)
	}
	cfg.applyDerivedDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDerivedDefaults fills defaults that creasty/defaults cannot express
// (map and slice literals).
func (c *Config) applyDerivedDefaults() {
	if len(c.Regime.TimeframeWeights) == 0 {
		c.Regime.TimeframeWeights = map[string]float64{
			"5min":  1.0,
			"15min": 2.0,
			"1h":    3.0,
			"4h":    4.0,
		}
	}
	if len(c.Thresholds.Base) == 0 {
		c.Thresholds.Base = map[string]float64{
			"forex":  72,
			"crypto": 75,
			"index":  70,
		}
	}
	if len(c.MarketData.Timeframes) == 0 {
		c.MarketData.Timeframes = []string{"5min", "15min", "1h", "4h"}
	}
}

// Default returns a fully-defaulted configuration with no symbols bound.
// Callers that load from a file get validation on top; Default is for
// embedding and tests.
func Default() *Config {
	var cfg Config
	// creasty/defaults only fails on non-struct input.
	_ = defaults.Set(&cfg)
	cfg.applyDerivedDefaults()
	return &cfg
}

var validate = validator.New()

// Validate checks a snapshot for structural errors.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Thresholds.Floor > cfg.Thresholds.Ceiling {
		return fmt.Errorf("config validation failed: threshold floor %.1f above ceiling %.1f",
			cfg.Thresholds.Floor, cfg.Thresholds.Ceiling)
	}
	for class, base := range cfg.Thresholds.Base {
		if base < 0 || base > 100 {
			return fmt.Errorf("config validation failed: base threshold for %q out of range: %.1f", class, base)
		}
	}
	for tf, w := range cfg.Regime.TimeframeWeights {
		if w <= 0 {
			return fmt.Errorf("config validation failed: non-positive weight for timeframe %q: %.2f", tf, w)
		}
	}
	return nil
}
