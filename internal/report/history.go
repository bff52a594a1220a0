package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// History is the optional Postgres audit-history sink. A nil *History is a
// valid no-op sink, so callers never have to branch on whether a DSN was
// configured. Insert failures are logged and never abort the batch.
type History struct {
	pool  *pgxpool.Pool
	runID uuid.UUID
	stage string
	log   *zap.SugaredLogger
}

const historySchema = `
CREATE TABLE IF NOT EXISTS offboard_history (
    run_id      uuid        NOT NULL,
    stage       text        NOT NULL,
    service     text        NOT NULL,
    email       text        NOT NULL,
    provider_id text        NOT NULL DEFAULT '',
    outcome     text        NOT NULL,
    http_status int         NOT NULL DEFAULT 0,
    detail      text        NOT NULL DEFAULT '',
    observed_at timestamptz NOT NULL DEFAULT now()
)`

// OpenHistory connects the sink. An empty DSN yields a nil sink and no
// Postgres traffic at all.
func OpenHistory(ctx context.Context, dsn, stage string, log *zap.SugaredLogger) (*History, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history dsn: %w", err)
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history connect: %w", err)
	}
	if _, err := pool.Exec(ctx, historySchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &History{pool: pool, runID: uuid.New(), stage: stage, log: log}, nil
}

// RunID identifies this stage invocation in the history table.
func (h *History) RunID() string {
	if h == nil {
		return ""
	}
	return h.runID.String()
}

// Record inserts one per-record outcome.
func (h *History) Record(ctx context.Context, service, email, providerID, outcome string, status int, detail string) {
	if h == nil {
		return
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO offboard_history (run_id, stage, service, email, provider_id, outcome, http_status, detail)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		h.runID, h.stage, service, email, providerID, outcome, status, detail)
	if err != nil {
		h.log.Warnw("history insert failed", "email", email, "service", service, "err", err)
	}
}

func (h *History) Close() {
	if h != nil {
		h.pool.Close()
	}
}
