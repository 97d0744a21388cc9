package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantsignal/fusion/models"
)

// DB is the decision audit store. Every emitted decision is recorded for
// later accuracy review; writes are best effort and never sit on the request
// critical path.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// New opens the audit store and ensures its schema.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, logger: log.With().Str("component", "audit_store").Logger()}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			direction TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			entry DOUBLE PRECISION,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			risk_reward DOUBLE PRECISION,
			selected_strategy TEXT,
			regime TEXT NOT NULL,
			macro_bias DOUBLE PRECISION NOT NULL,
			wait_reasons JSONB,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// RecordDecision inserts one decision row. Errors are returned for the
// caller to log; they must not fail the analysis request.
func (db *DB) RecordDecision(ctx context.Context, d *models.Decision) error {
	var reasons []byte
	if len(d.WaitReasons) > 0 {
		var err error
		reasons, err = json.Marshal(d.WaitReasons)
		if err != nil {
			return err
		}
	}

	var strategyName sql.NullString
	if d.SelectedStrategy != nil {
		strategyName = sql.NullString{String: *d.SelectedStrategy, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO decisions (
			symbol, generated_at, direction, confidence,
			entry, stop_loss, take_profit, risk_reward,
			selected_strategy, regime, macro_bias, wait_reasons
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		d.Symbol, d.GeneratedAt, string(d.Direction), d.Confidence,
		nullFloat(d.Entry), nullFloat(d.StopLoss), nullFloat(d.TakeProfit), nullFloat(d.RiskRewardRatio),
		strategyName, string(d.Regime.State), d.MacroBias, nullBytes(reasons),
	)
	return err
}

// RecentDecisions lists the latest recorded decisions for a symbol, newest
// first.
func (db *DB) RecentDecisions(ctx context.Context, symbol string, limit int) ([]models.Decision, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT symbol, generated_at, direction, confidence,
			entry, stop_loss, take_profit, risk_reward,
			selected_strategy, regime, macro_bias, wait_reasons
		FROM decisions
		WHERE symbol = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Decision
	for rows.Next() {
		var d models.Decision
		var direction, regimeState string
		var entry, stop, target, rr sql.NullFloat64
		var strategyName sql.NullString
		var reasons []byte
		var generatedAt time.Time

		if err := rows.Scan(
			&d.Symbol, &generatedAt, &direction, &d.Confidence,
			&entry, &stop, &target, &rr,
			&strategyName, &regimeState, &d.MacroBias, &reasons,
		); err != nil {
			return nil, err
		}

		d.GeneratedAt = generatedAt
		d.Direction = models.Direction(direction)
		d.Regime.State = models.RegimeState(regimeState)
		d.Entry = floatPtr(entry)
		d.StopLoss = floatPtr(stop)
		d.TakeProfit = floatPtr(target)
		d.RiskRewardRatio = floatPtr(rr)
		if strategyName.Valid {
			d.SelectedStrategy = models.StringPtr(strategyName.String)
		}
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &d.WaitReasons); err != nil {
				db.logger.Warn().Err(err).Msg("unreadable wait reasons in audit row")
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float64Ptr(v.Float64)
}
