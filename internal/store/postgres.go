package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	wager_id    TEXT,
	state       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversations_wager_id_idx ON conversations (wager_id) WHERE wager_id IS NOT NULL;`

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the conversations table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id string) (wager.State, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM conversations WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return wager.State{}, ErrNotFound
	}
	if err != nil {
		return wager.State{}, fmt.Errorf("load conversation %s: %w", id, err)
	}
	return decode(id, data)
}

// Save upserts the snapshot. A completed conversation is never overwritten.
func (p *Postgres) Save(ctx context.Context, s wager.State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	var wagerID *string
	if s.Output != nil {
		wagerID = &s.Output.ID
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO conversations (id, stage, wager_id, state, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET stage = EXCLUDED.stage, wager_id = EXCLUDED.wager_id, state = EXCLUDED.state, updated_at = now()
		WHERE conversations.stage <> 'complete'`,
		s.ConversationID, string(s.Stage), wagerID, data,
	)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", s.ConversationID, err)
	}
	return nil
}

// FindByWager returns the conversation that produced wagerID.
func (p *Postgres) FindByWager(ctx context.Context, wagerID string) (wager.State, error) {
	var (
		id   string
		data []byte
	)
	err := p.pool.QueryRow(ctx, `SELECT id, state FROM conversations WHERE wager_id = $1`, wagerID).Scan(&id, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return wager.State{}, ErrNotFound
	}
	if err != nil {
		return wager.State{}, fmt.Errorf("find wager %s: %w", wagerID, err)
	}
	return decode(id, data)
}
