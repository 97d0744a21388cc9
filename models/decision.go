package models

import "time"

// Direction of a trade recommendation.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionNone Direction = "NONE"
)

// StrategyCandidate is the result of evaluating one catalog strategy against
// a feature snapshot. Entry/StopLoss/TakeProfit are either all set or all nil.
type StrategyCandidate struct {
	Name       string    `json:"name"`
	Score      float64   `json:"score"`      // 0-100
	Confidence float64   `json:"confidence"` // 0-100
	Direction  Direction `json:"direction"`
	Entry      *float64  `json:"entry,omitempty"`
	StopLoss   *float64  `json:"stop_loss,omitempty"`
	TakeProfit *float64  `json:"take_profit,omitempty"`
	Reasoning  []string  `json:"reasoning"`
}

// HasLevels reports whether the candidate carries a complete level set.
func (c *StrategyCandidate) HasLevels() bool {
	return c.Entry != nil && c.StopLoss != nil && c.TakeProfit != nil
}

// WaitReasonCode identifies why the gate held back a recommendation.
type WaitReasonCode string

const (
	WaitScoreShortfall WaitReasonCode = "SCORE_SHORTFALL"
	WaitSessionBlocked WaitReasonCode = "SESSION_BLOCKED"
	WaitRegimeUnknown  WaitReasonCode = "REGIME_UNKNOWN"
	WaitNoFeatures     WaitReasonCode = "NO_FEATURES"
)

// WaitSeverity grades how hard a wait reason blocks the trade.
type WaitSeverity string

const (
	SeverityLow    WaitSeverity = "low"
	SeverityMedium WaitSeverity = "medium"
	SeverityHigh   WaitSeverity = "high"
)

// WaitReason is a structured explanation for why no trade was recommended.
type WaitReason struct {
	Code        WaitReasonCode `json:"code"`
	Description string         `json:"description"`
	Severity    WaitSeverity   `json:"severity"`
	Threshold   float64        `json:"threshold,omitempty"`
	Actual      float64        `json:"actual,omitempty"`
}

// PositionGuidance is advisory sizing attached to a decision. Enforcement is
// an order-management concern, not ours.
type PositionGuidance struct {
	MaxRiskFraction float64 `json:"max_risk_fraction"` // of account equity
	Note            string  `json:"note,omitempty"`
}

// Decision is the single output of one analysis request, immutable once
// produced. Direction NONE means no trade ("wait"), which is a successful
// outcome and carries the collected wait reasons.
type Decision struct {
	Symbol           string            `json:"symbol"`
	GeneratedAt      time.Time         `json:"generated_at"`
	Direction        Direction         `json:"direction"`
	Entry            *float64          `json:"entry,omitempty"`
	StopLoss         *float64          `json:"stop_loss,omitempty"`
	TakeProfit       *float64          `json:"take_profit,omitempty"`
	Confidence       float64           `json:"confidence"` // 0-100
	RiskRewardRatio  *float64          `json:"risk_reward_ratio,omitempty"`
	SelectedStrategy *string           `json:"selected_strategy,omitempty"`
	WaitReasons      []WaitReason      `json:"wait_reasons,omitempty"`
	Guidance         PositionGuidance  `json:"position_guidance"`
	Regime           VolatilityRegime  `json:"regime"`
	MacroBias        float64           `json:"macro_bias"`
	StructureLabels  map[string]string `json:"structure_labels,omitempty"`
	Factors          []string          `json:"factors,omitempty"`
}

// Clamp100 clamps v to the [0,100] confidence range.
func Clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
