package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PendingRepo struct {
	DB     *sql.DB
	maxAge time.Duration
}

func NewPendingRepo(db *sql.DB, maxAge time.Duration) *PendingRepo {
	return &PendingRepo{DB: db, maxAge: maxAge}
}

// OpenPostgres opens dsn with the pgx driver and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, maxAge time.Duration) (*PendingRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	r := NewPendingRepo(db, maxAge)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

var migrations = []struct {
	name  string
	query string
}{
	{
		name: "001_pending_ocr_results",
		query: `create table if not exists pending_ocr_results (
	conversation_id text primary key,
	result_id       text not null,
	result_text     text not null,
	created_at      timestamptz not null default now()
)`,
	},
}

func (r *PendingRepo) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.DB.ExecContext(ctx, m.query); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

// Put replaces the pending result of the conversation.
func (r *PendingRepo) Put(ctx context.Context, conversationID string, p PendingResult) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	const q = `
insert into pending_ocr_results (conversation_id, result_id, result_text, created_at)
values ($1, $2, $3, $4)
on conflict (conversation_id) do update set
  result_id   = excluded.result_id,
  result_text = excluded.result_text,
  created_at  = excluded.created_at`
	_, err := r.DB.ExecContext(ctx, q, conversationID, p.ResultID, p.Text, p.CreatedAt)
	return err
}

func (r *PendingRepo) Get(ctx context.Context, conversationID string) (PendingResult, bool, error) {
	const q = `select result_id, result_text, created_at
	           from pending_ocr_results
	           where conversation_id = $1`
	var p PendingResult
	err := r.DB.QueryRowContext(ctx, q, conversationID).Scan(&p.ResultID, &p.Text, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingResult{}, false, nil
	}
	if err != nil {
		return PendingResult{}, false, err
	}
	if expired(p, r.maxAge, time.Now()) {
		return PendingResult{}, false, nil
	}
	return p, true, nil
}

func (r *PendingRepo) Close() error {
	return r.DB.Close()
}
