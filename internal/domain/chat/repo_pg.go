package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationChatSessions is the SQL DDL for the chat_sessions table. It is
// safe to execute multiple times (uses IF NOT EXISTS); callers run it at
// startup as an auto-migration step.
const MigrationChatSessions = `
CREATE TABLE IF NOT EXISTS chat_sessions (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    session_json JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_owner_id
    ON chat_sessions (owner_id);
`

// pgRow represents a single row returned by QueryRow.
type pgRow interface {
	Scan(dest ...any) error
}

// pgConn is the minimal database interface required by PGRepository.
// Both *pgxpool.Pool (via a thin adapter) and test mocks implement this.
type pgConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgRow
	Exec(ctx context.Context, sql string, args ...any) error
}

// PGRepository is a PostgreSQL-backed Repository. The whole session is
// stored as JSONB alongside an owner column for lookups.
type PGRepository struct {
	db pgConn
}

func NewPGRepository(db pgConn) *PGRepository {
	return &PGRepository{db: db}
}

// NewPGRepositoryFromPool wraps a *pgxpool.Pool. This is the constructor
// for production use.
func NewPGRepositoryFromPool(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: &pgxPoolWrapper{pool: pool}}
}

func (r *PGRepository) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal chat session: %w", err)
	}

	const query = `INSERT INTO chat_sessions (id, owner_id, session_json, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET session_json = EXCLUDED.session_json`

	if err := r.db.Exec(ctx, query, session.ID, session.OwnerID, data, session.CreatedAt); err != nil {
		return fmt.Errorf("save chat session: %w", err)
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (*Session, error) {
	const query = `SELECT session_json FROM chat_sessions WHERE id = $1`

	var data []byte
	if err := r.db.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal chat session: %w", err)
	}
	return &session, nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM chat_sessions WHERE id = $1`
	if err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}

// isNoRows returns true when the error represents a "no rows" condition.
// It works with both pgx (pgx.ErrNoRows) and the mock used in tests.
func isNoRows(err error) bool {
	if err == pgx.ErrNoRows {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "no rows")
}

// pgxPoolWrapper adapts *pgxpool.Pool to the pgConn interface. The
// adapter is necessary because pgxpool.Pool.Exec returns
// (pgconn.CommandTag, error) whereas pgConn.Exec returns only error.
type pgxPoolWrapper struct {
	pool *pgxpool.Pool
}

func (w *pgxPoolWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgRow {
	return w.pool.QueryRow(ctx, sql, args...)
}

func (w *pgxPoolWrapper) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.pool.Exec(ctx, sql, args...)
	return err
}
