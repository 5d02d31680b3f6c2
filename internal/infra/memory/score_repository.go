package memory

import (
	"context"
	"sync"

	"trivia-quiz/internal/domain"
)

// ScoreRepository is an in-memory, append-only score ledger.
type ScoreRepository struct {
	mu     sync.RWMutex
	scores map[string][]domain.ScoreRecord
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{
		scores: make(map[string][]domain.ScoreRecord),
	}
}

func (r *ScoreRepository) AppendScore(_ context.Context, clientID string, record domain.ScoreRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[clientID] = append(r.scores[clientID], record)
	return nil
}

func (r *ScoreRepository) ListScores(_ context.Context, clientID string) ([]domain.ScoreRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.scores[clientID]
	out := make([]domain.ScoreRecord, len(stored))
	copy(out, stored)
	return out, nil
}
