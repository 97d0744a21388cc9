package features

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

type stubProvider struct {
	name  string
	apply Apply
	err   error
	delay time.Duration
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, symbol string) (Apply, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.apply, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Request.ProviderTimeout = 50 * time.Millisecond
	return cfg
}

func TestCollectAssemblesAllBlocks(t *testing.T) {
	c := NewCollector(
		&stubProvider{name: "technicals", apply: func(s *models.FeatureSnapshot) {
			s.Technicals = &models.TechnicalBlock{Timeframes: map[string]models.TimeframeTechnicals{}}
		}},
		&stubProvider{name: "macro", apply: func(s *models.FeatureSnapshot) {
			s.Macro = &models.MacroBlock{BiasScore: 0.2}
		}},
		&stubProvider{name: "structure", apply: func(s *models.FeatureSnapshot) {
			s.Structure = &models.StructureBlock{TrendLabels: map[string]string{"1h": "BULLISH"}}
		}},
	)

	snap := c.Collect(context.Background(), "EUR/USD", "forex", testConfig())

	if snap.Symbol != "EUR/USD" || snap.InstrumentClass != "forex" {
		t.Errorf("snapshot identity wrong: %s %s", snap.Symbol, snap.InstrumentClass)
	}
	if snap.Technicals == nil || snap.Macro == nil || snap.Structure == nil {
		t.Error("every successful provider's block should be present")
	}
	if snap.Empty() {
		t.Error("snapshot with blocks must not report empty")
	}
}

func TestCollectFailedProviderLeavesBlockAbsent(t *testing.T) {
	c := NewCollector(
		&stubProvider{name: "technicals", apply: func(s *models.FeatureSnapshot) {
			s.Technicals = &models.TechnicalBlock{Timeframes: map[string]models.TimeframeTechnicals{}}
		}},
		&stubProvider{name: "macro", err: errors.New("feed unreachable")},
	)

	snap := c.Collect(context.Background(), "EUR/USD", "forex", testConfig())

	if snap.Technicals == nil {
		t.Error("healthy provider's block should survive a sibling failure")
	}
	if snap.Macro != nil {
		t.Error("failed provider must not leave a block behind")
	}
}

func TestCollectTimesOutSlowProvider(t *testing.T) {
	c := NewCollector(
		&stubProvider{name: "fast", apply: func(s *models.FeatureSnapshot) {
			s.Structure = &models.StructureBlock{}
		}},
		&stubProvider{name: "slow", delay: time.Second, apply: func(s *models.FeatureSnapshot) {
			s.Macro = &models.MacroBlock{}
		}},
	)

	start := time.Now()
	snap := c.Collect(context.Background(), "EUR/USD", "forex", testConfig())

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow provider should be cut off by its timeout, took %v", elapsed)
	}
	if snap.Structure == nil {
		t.Error("fast provider's block should be present")
	}
	if snap.Macro != nil {
		t.Error("timed-out provider must contribute nothing")
	}
}

func TestCollectAllProvidersTimedOut(t *testing.T) {
	c := NewCollector(
		&stubProvider{name: "a", delay: time.Second},
		&stubProvider{name: "b", delay: time.Second},
	)

	snap := c.Collect(context.Background(), "EUR/USD", "forex", testConfig())

	if !snap.Empty() {
		t.Error("when every provider times out the snapshot must be empty")
	}
	if snap.Symbol != "EUR/USD" {
		t.Error("an empty snapshot still identifies its symbol")
	}
}

func TestCollectNoProviders(t *testing.T) {
	c := NewCollector()
	snap := c.Collect(context.Background(), "EUR/USD", "forex", testConfig())
	if !snap.Empty() {
		t.Error("collector without providers yields an empty snapshot")
	}
}
