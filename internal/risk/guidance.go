package risk

import (
	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/models"
)

// GuidanceFor maps the volatility regime to an advisory maximum risk
// fraction. Pure function of the regime state; enforcement belongs to the
// order-management layer, not here.
func GuidanceFor(reg models.VolatilityRegime, cfg *config.Config) models.PositionGuidance {
	base := cfg.Risk.BaseRiskFraction
	switch reg.State {
	case models.RegimeStable:
		return models.PositionGuidance{MaxRiskFraction: base}
	case models.RegimeTransitional:
		return models.PositionGuidance{
			MaxRiskFraction: base * 0.75,
			Note:            "volatility in transition, size reduced",
		}
	case models.RegimeVolatile:
		return models.PositionGuidance{
			MaxRiskFraction: base * 0.5,
			Note:            "volatile regime, size halved",
		}
	default:
		// UNKNOWN is the most conservative case.
		return models.PositionGuidance{
			MaxRiskFraction: base * 0.25,
			Note:            "regime unknown, minimum size",
		}
	}
}
