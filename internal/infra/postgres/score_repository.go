package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz/internal/domain"
)

// ScoreRepository appends ledger rows to the scores table. Rows are never
// updated; insertion order (id) is display order.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

func (r *ScoreRepository) AppendScore(ctx context.Context, clientID string, record domain.ScoreRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scores (client_id, username, score, recorded_at) VALUES ($1, NULLIF($2, ''), $3, $4)`,
		clientID, record.Username, record.Score, record.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

func (r *ScoreRepository) ListScores(ctx context.Context, clientID string) ([]domain.ScoreRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username, score, recorded_at FROM scores WHERE client_id = $1 ORDER BY id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	scores := []domain.ScoreRecord{}
	for rows.Next() {
		var (
			username sql.NullString
			record   domain.ScoreRecord
		)
		if err := rows.Scan(&username, &record.Score, &record.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		record.Username = username.String
		scores = append(scores, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}
