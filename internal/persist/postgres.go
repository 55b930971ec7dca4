package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/serviceflow/schedcore/libs/db"
)

// PostgresStore keeps one JSONB row per user id:
//
//	CREATE TABLE IF NOT EXISTS account_documents (
//	    user_id    TEXT PRIMARY KEY,
//	    doc        JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Save(ctx context.Context, userID string, doc []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO account_documents (user_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, userID, doc)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, userID string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT doc FROM account_documents WHERE user_id = $1
	`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}
