package cdr

import (
	"context"
	"database/sql"

	"github.com/Rikhil-Nell/call-agent/pkg/utils"
)

// PostgresRepo persists CDRs to Postgres via the pgx stdlib driver.
//
// Expected schema:
//
//	CREATE TABLE call_records (
//	    call_id          TEXT NOT NULL,
//	    room_name        TEXT NOT NULL,
//	    direction        TEXT NOT NULL,
//	    to_number        TEXT,
//	    status           TEXT NOT NULL,
//	    end_reason       TEXT,
//	    started_at       TIMESTAMPTZ NOT NULL,
//	    ended_at         TIMESTAMPTZ,
//	    duration_seconds INT NOT NULL DEFAULT 0,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, rec CDR) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_records
				(call_id, room_name, direction, to_number, status, end_reason, started_at, ended_at, duration_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.CallID,
			rec.RoomName,
			rec.Direction,
			rec.To,
			rec.Status,
			rec.EndReason,
			rec.StartedAt,
			rec.EndedAt,
			rec.DurationSeconds,
		)
		return err
	})
}
