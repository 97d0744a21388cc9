package strategy

import (
	"testing"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

func trapSnapshot() *models.FeatureSnapshot {
	return &models.FeatureSnapshot{
		Symbol:          "EUR/USD",
		InstrumentClass: "forex",
		LastPrice:       models.Float64Ptr(1.0850),
		Technicals: &models.TechnicalBlock{
			Timeframes: map[string]models.TimeframeTechnicals{
				"5min": {
					ATR:           0.0008,
					ATRRatio:      0.87,
					ADX:           17,
					RSI:           54,
					EMA:           1.0840,
					BBWidthPctile: 12,
					VolumeRatio:   1.1,
					VolumeTrend:   "RISING",
					LastClose:     1.0850,
					InsideBar:     true,
					InsideBarHigh: 1.0856,
					InsideBarLow:  1.0846,
				},
			},
		},
	}
}

func TestInsideBarTrapScenario(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()
	reg := models.VolatilityRegime{State: models.RegimeStable, ATRRatio: 0.87, Confidence: 80}

	cand := (&InsideBarTrap{}).Evaluate(snap, reg, cfg)

	if cand.Score < 75 {
		t.Errorf("compressed inside bar with rising volume should score >= 75, got %.1f", cand.Score)
	}
	if cand.Direction != models.DirectionBuy {
		t.Errorf("close above EMA should give BUY, got %v", cand.Direction)
	}
	if !cand.HasLevels() {
		t.Fatal("inside bar present, expected a full level set")
	}
	mid := (1.0856 + 1.0846) / 2
	if *cand.Entry != mid {
		t.Errorf("entry should sit at the inside bar midpoint %.4f, got %.4f", mid, *cand.Entry)
	}
	if *cand.StopLoss >= *cand.Entry {
		t.Errorf("long stop must be below entry, got stop %.4f entry %.4f", *cand.StopLoss, *cand.Entry)
	}
	if *cand.TakeProfit <= *cand.Entry {
		t.Errorf("long target must be above entry, got %.4f", *cand.TakeProfit)
	}
}

func TestCatalogNeverOmitsEntries(t *testing.T) {
	cfg := config.Default()
	catalog := NewCatalog()

	// A snapshot with nothing in it must still yield one candidate per
	// catalog entry, all scoring zero with an insufficient-data reason.
	empty := &models.FeatureSnapshot{Symbol: "EUR/USD"}
	candidates := catalog.Score(empty, models.VolatilityRegime{State: models.RegimeUnknown}, cfg)

	if len(candidates) != len(catalog.Names()) {
		t.Fatalf("expected %d candidates, got %d", len(catalog.Names()), len(candidates))
	}
	for _, c := range candidates {
		if c.Score != 0 {
			t.Errorf("strategy %s scored %.1f on an empty snapshot", c.Name, c.Score)
		}
		if len(c.Reasoning) == 0 {
			t.Errorf("strategy %s gave no reasoning", c.Name)
		}
	}
}

func TestCatalogOrderingAndTieBreak(t *testing.T) {
	cfg := config.Default()
	catalog := NewCatalog()
	snap := trapSnapshot()
	reg := models.VolatilityRegime{State: models.RegimeStable, ATRRatio: 0.87, Confidence: 80}

	first := catalog.Score(snap, reg, cfg)
	second := catalog.Score(snap, reg, cfg)

	for i := range first {
		if first[i].Name != second[i].Name || first[i].Score != second[i].Score {
			t.Fatalf("ordering not deterministic at %d: %s/%.1f vs %s/%.1f",
				i, first[i].Name, first[i].Score, second[i].Name, second[i].Score)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Score > first[i-1].Score {
			t.Errorf("candidates not sorted by score: %.1f before %.1f", first[i-1].Score, first[i].Score)
		}
	}

	// All-zero candidates must come back in catalog declaration order.
	empty := &models.FeatureSnapshot{Symbol: "EUR/USD"}
	zeros := catalog.Score(empty, models.VolatilityRegime{State: models.RegimeUnknown}, cfg)
	for i, name := range catalog.Names() {
		if zeros[i].Name != name {
			t.Errorf("tie-break broke catalog order: pos %d got %s, want %s", i, zeros[i].Name, name)
		}
	}
}

func TestInsideBarTrapConfidenceTracksPenalizedScore(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()
	// Fully populated snapshot, but the inside bar has not formed: the
	// setup score takes a penalty and confidence must follow it down.
	tf := snap.Technicals.Timeframes["5min"]
	tf.InsideBar = false
	snap.Technicals.Timeframes["5min"] = tf
	snap.Macro = &models.MacroBlock{BiasScore: 0.1}
	snap.Structure = &models.StructureBlock{TrendLabels: map[string]string{"1h": "BULLISH"}}
	snap.OrderFlow = &models.OrderFlowBlock{Direction: "BULLISH"}
	snap.Microstructure = &models.MicrostructureBlock{SpreadBps: 1.0}

	cand := (&InsideBarTrap{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeStable, ATRRatio: 0.87}, cfg)

	if cand.Confidence > cand.Score {
		t.Errorf("confidence %.1f exceeds the penalized score %.1f", cand.Confidence, cand.Score)
	}
	if cand.HasLevels() {
		t.Error("no inside bar on the chart, no levels")
	}
}

func TestReversionScalpWeighsMicrostructure(t *testing.T) {
	cfg := config.Default()

	oversold := func() *models.FeatureSnapshot {
		snap := trapSnapshot()
		tf := snap.Technicals.Timeframes["5min"]
		tf.RSI = 22
		snap.Technicals.Timeframes["5min"] = tf
		return snap
	}
	reg := models.VolatilityRegime{State: models.RegimeTransitional}

	base := (&ReversionScalp{}).Evaluate(oversold(), reg, cfg)

	wide := oversold()
	wide.Microstructure = &models.MicrostructureBlock{SpreadBps: 12}
	costly := (&ReversionScalp{}).Evaluate(wide, reg, cfg)
	if costly.Score >= base.Score {
		t.Errorf("a wide spread should cut the scalp score: %.1f vs %.1f", costly.Score, base.Score)
	}

	leaning := oversold()
	leaning.Microstructure = &models.MicrostructureBlock{SpreadBps: 1, BookImbalance: 0.5}
	backed := (&ReversionScalp{}).Evaluate(leaning, reg, cfg)
	if backed.Score <= base.Score {
		t.Errorf("a bid-heavy book should support the long fade: %.1f vs %.1f", backed.Score, base.Score)
	}
	if backed.Direction != models.DirectionBuy {
		t.Errorf("microstructure must not change the direction, got %v", backed.Direction)
	}
}

func TestPostNewsWithoutNewsTiming(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()
	snap.Macro = nil

	cand := (&PostNewsReaction{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeStable}, cfg)
	if cand.Score != 0 || cand.Confidence != 0 {
		t.Errorf("post-news without macro data should score zero, got score %.1f conf %.1f",
			cand.Score, cand.Confidence)
	}
}

func TestPostNewsRecentHighImpact(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()
	snap.Macro = &models.MacroBlock{
		BiasScore:        0.4,
		MinutesSinceNews: 12,
		NewsImpact:       "HIGH",
	}
	// Put price right on the EMA so the pullback factor fires.
	tf := snap.Technicals.Timeframes["5min"]
	tf.EMA = tf.LastClose
	snap.Technicals.Timeframes["5min"] = tf

	cand := (&PostNewsReaction{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeTransitional}, cfg)
	if cand.Score < 60 {
		t.Errorf("fresh high-impact news at the EMA should score well, got %.1f", cand.Score)
	}
	if cand.Direction != models.DirectionBuy {
		t.Errorf("bullish macro bias should give BUY, got %v", cand.Direction)
	}
}

func TestReversionScalpLevels(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()
	tf := snap.Technicals.Timeframes["5min"]
	tf.RSI = 22
	tf.Stochastic = 15
	tf.StochasticSig = 10
	snap.Technicals.Timeframes["5min"] = tf
	snap.OrderFlow = &models.OrderFlowBlock{IsExhaustion: true}

	cand := (&ReversionScalp{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeTransitional}, cfg)
	if cand.Direction != models.DirectionBuy {
		t.Fatalf("oversold RSI should fade long, got %v", cand.Direction)
	}
	if cand.Score < 80 {
		t.Errorf("oversold extreme with exhaustion should score high, got %.1f", cand.Score)
	}
	if !cand.HasLevels() {
		t.Error("actionable reversion scalp should carry levels")
	}
}

func TestBreakoutRequiresStructureBreak(t *testing.T) {
	cfg := config.Default()
	snap := trapSnapshot()

	cand := (&BreakoutContinuation{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeStable}, cfg)
	if cand.Score != 0 {
		t.Errorf("no structure break should score zero, got %.1f", cand.Score)
	}

	tf := snap.Technicals.Timeframes["5min"]
	tf.StructureBreak = "BOS_UP"
	tf.BreakoutVolume = 1.8
	tf.ADX = 28
	tf.PlusDI = 30
	tf.MinusDI = 12
	tf.ATRExpansion = 1.4
	snap.Technicals.Timeframes["5min"] = tf

	cand = (&BreakoutContinuation{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeTransitional}, cfg)
	if cand.Direction != models.DirectionBuy {
		t.Errorf("BOS_UP should give BUY, got %v", cand.Direction)
	}
	if cand.Score < 90 {
		t.Errorf("fully confirmed breakout should score >= 90, got %.1f", cand.Score)
	}

	// A weak expansion on the same setup must cost score, not veto.
	tf.ATRExpansion = 0.9
	snap.Technicals.Timeframes["5min"] = tf
	weak := (&BreakoutContinuation{}).Evaluate(snap, models.VolatilityRegime{State: models.RegimeTransitional}, cfg)
	if weak.Score >= cand.Score {
		t.Errorf("weak ATR expansion should be penalized: %.1f vs %.1f", weak.Score, cand.Score)
	}
	if weak.Score == 0 {
		t.Error("weak expansion is a penalty, not a veto")
	}
}
