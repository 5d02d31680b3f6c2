package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"trivia-quiz/internal/domain"
)

// ScoreRepository is a file-backed score ledger for single-node deployments.
type ScoreRepository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite ledger at path and ensures its schema.
func Open(ctx context.Context, path string) (*ScoreRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// one writer keeps appends from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id TEXT NOT NULL,
			username TEXT,
			score INTEGER NOT NULL,
			recorded_at_unix INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scores_client_id ON scores(client_id, id);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite ledger: %w", err)
	}
	return &ScoreRepository{db: db}, nil
}

func (r *ScoreRepository) Close() error {
	return r.db.Close()
}

func (r *ScoreRepository) AppendScore(ctx context.Context, clientID string, record domain.ScoreRecord) error {
	var username sql.NullString
	if record.Username != "" {
		username = sql.NullString{String: record.Username, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO scores (client_id, username, score, recorded_at_unix) VALUES (?, ?, ?, ?)",
		clientID, username, record.Score, record.RecordedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

func (r *ScoreRepository) ListScores(ctx context.Context, clientID string) ([]domain.ScoreRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT username, score, recorded_at_unix FROM scores WHERE client_id = ? ORDER BY id",
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
			unix     int64
			record   domain.ScoreRecord
		)
		if err := rows.Scan(&username, &record.Score, &unix); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		record.Username = username.String
		record.RecordedAt = time.Unix(unix, 0).UTC()
		scores = append(scores, record)
	}
	return scores, rows.Err()
}
