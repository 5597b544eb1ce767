package store

import (
	"context"
	"database/sql"
	"fmt"
)

const recordSlotsSchema = `
CREATE TABLE IF NOT EXISTS record_slots (
	slot_key   TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSlot 槽保存在 record_slots 表的一行中
// Update 在事务内先取 advisory lock，保证同一 slot_key 串行写入
type PostgresSlot struct {
	db *sql.DB
}

func NewPostgresSlot(db *sql.DB) *PostgresSlot {
	return &PostgresSlot{db: db}
}

var _ Slot = (*PostgresSlot)(nil)

// EnsureSchema 创建 record_slots 表（幂等）
func (r *PostgresSlot) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, recordSlotsSchema); err != nil {
		return fmt.Errorf("failed to create record_slots: %w", err)
	}
	return nil
}

func (r *PostgresSlot) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM record_slots WHERE slot_key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", key, err)
	}
	return payload, nil
}

func (r *PostgresSlot) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock slot %s: %w", key, err)
	}

	var current []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload FROM record_slots WHERE slot_key = $1`, key,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO record_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		key, string(next),
	)
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit slot %s: %w", key, err)
	}
	return nil
}
