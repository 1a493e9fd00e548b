package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

// Postgres publishes a small JSON payload with pg_notify so other services
// can LISTEN for draft progress.
type Postgres struct {
	pool    *pgxpool.Pool
	channel string
}

func NewPostgres(ctx context.Context, dsn, channel string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg notify pool: %w", err)
	}
	return &Postgres{pool: pool, channel: channel}, nil
}

type pgPayload struct {
	DraftID    string       `json:"draftId"`
	Selections int          `json:"selections"`
	Phase      engine.Phase `json:"phase"`
}

func (p *Postgres) Notify(ctx context.Context, d engine.Draft) error {
	payload, err := json.Marshal(pgPayload{DraftID: d.ID, Selections: len(d.Selections), Phase: d.Phase()})
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
