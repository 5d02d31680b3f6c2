package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"trivia-quiz/internal/domain"
)

// ScoreRepository stores each client's ledger as one JSON array under
// trivia:{clientID}:scores, e.g. [{"username":"alice","score":3},{"score":1}].
// AppendScore reads the whole array, appends and writes it back; concurrent
// appends for the same client can lose records.
type ScoreRepository struct {
	client *redis.Client
}

func NewScoreRepository(client *redis.Client) *ScoreRepository {
	return &ScoreRepository{client: client}
}

func (r *ScoreRepository) AppendScore(ctx context.Context, clientID string, record domain.ScoreRecord) error {
	scores, err := r.load(ctx, clientID)
	if err != nil {
		return err
	}
	scores = append(scores, record)

	raw, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	if err := r.client.Set(ctx, r.key(clientID), raw, 0).Err(); err != nil {
		return fmt.Errorf("store scores: %w", err)
	}
	return nil
}

func (r *ScoreRepository) ListScores(ctx context.Context, clientID string) ([]domain.ScoreRecord, error) {
	return r.load(ctx, clientID)
}

// load treats a missing or unparsable value as an empty ledger.
func (r *ScoreRepository) load(ctx context.Context, clientID string) ([]domain.ScoreRecord, error) {
	raw, err := r.client.Get(ctx, r.key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.ScoreRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	var scores []domain.ScoreRecord
	if err := json.Unmarshal(raw, &scores); err != nil {
		log.Printf("ERROR: ledger for %s is corrupt, starting over: %v", clientID, err)
		return []domain.ScoreRecord{}, nil
	}
	if scores == nil {
		scores = []domain.ScoreRecord{}
	}
	return scores, nil
}

func (r *ScoreRepository) key(clientID string) string {
	return "trivia:" + clientID + ":scores"
}
